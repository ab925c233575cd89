// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrBudgetExceeded indicates the user's monthly usage budget is exhausted
// and no new pipeline run may start.
var ErrBudgetExceeded = errors.New("monthly usage budget exceeded")

// ErrUnknownAgentType indicates a stored agent references a type name the
// factory does not recognize. This is an operator mistake, never silently
// defaulted.
var ErrUnknownAgentType = errors.New("unknown agent type")

// ErrUnknownTaskKind indicates a task carries a kind tag no handler exists for.
var ErrUnknownTaskKind = errors.New("unknown task type")
