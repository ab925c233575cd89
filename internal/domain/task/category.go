package task

import "strings"

// Category classifies a parenting input into one of a closed vocabulary.
// The Dispatcher assigns exactly one category per task.
type Category string

const (
	CategoryBehaviorAnalysis    Category = "behavior_analysis"
	CategoryDevelopmentTracking Category = "development_tracking"
	CategoryEmotionalSupport    Category = "emotional_support"
	CategorySchedulingPlanning  Category = "scheduling_planning"
	CategoryLearningActivities  Category = "learning_activities"
	CategoryAcademicPlanning    Category = "academic_planning"
	CategoryHealthWellness      Category = "health_wellness"
	CategoryNutritionGuidance   Category = "nutrition_guidance"
	CategorySocialSkills        Category = "social_skills"
	CategoryGeneralParenting    Category = "general_parenting"
)

// Categories lists the full closed vocabulary.
func Categories() []Category {
	return []Category{
		CategoryBehaviorAnalysis,
		CategoryDevelopmentTracking,
		CategoryEmotionalSupport,
		CategorySchedulingPlanning,
		CategoryLearningActivities,
		CategoryAcademicPlanning,
		CategoryHealthWellness,
		CategoryNutritionGuidance,
		CategorySocialSkills,
		CategoryGeneralParenting,
	}
}

// ParseCategory maps a classifier output to a known category.
// Anything outside the vocabulary falls back to general_parenting, so a
// sloppy model answer never aborts a pipeline run.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c
		}
	}
	return CategoryGeneralParenting
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a classifier output to a priority. Anything outside
// {low, medium, high} becomes medium; this fallback is part of the
// Dispatcher contract, not an error path.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityMedium
	}
}
