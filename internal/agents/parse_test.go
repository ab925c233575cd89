package agents

import (
	"reflect"
	"testing"
)

func TestStripMarker(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"- bullet item", "bullet item"},
		{"* star item", "star item"},
		{"• dot item", "dot item"},
		{"1. numbered", "numbered"},
		{"2) numbered paren", "numbered paren"},
		{"(3) wrapped number", "wrapped number"},
		{"  - indented", "indented"},
		{"plain line", "plain line"},
		{"- ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := StripMarker(tc.in); got != tc.want {
			t.Errorf("StripMarker(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseItemsCapsAndSkipsEmpty(t *testing.T) {
	text := "1. first\n\n- second\n* third\nfourth\n5) fifth\n6. sixth"

	got := ParseItems(text, 5)
	want := []string{"first", "second", "third", "fourth", "fifth"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseItems = %v, want %v", got, want)
	}
}

func TestParseItemsEmptyInput(t *testing.T) {
	if got := ParseItems("", 5); len(got) != 0 {
		t.Fatalf("expected no items, got %v", got)
	}
	if got := ParseItems("- \n* \n", 5); len(got) != 0 {
		t.Fatalf("expected marker-only lines dropped, got %v", got)
	}
}

func TestParseTimeline(t *testing.T) {
	text := "Here is the plan.\n" +
		"2026-09-01\n" +
		"- Morning reading\n" +
		"- Park visit\n" +
		"2026-09-02: rest day\n" +
		"* Quiet play\n" +
		"random prose line\n"

	entries := ParseTimeline(text)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Date != "2026-09-01" || len(entries[0].Activities) != 2 {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Date != "2026-09-02" || len(entries[1].Activities) != 1 {
		t.Fatalf("second entry = %+v", entries[1])
	}
	if entries[1].Activities[0] != "Quiet play" {
		t.Fatalf("activity = %q", entries[1].Activities[0])
	}
}

func TestParseTimelineDropsOrphanActivities(t *testing.T) {
	entries := ParseTimeline("- orphan before any date\n2026-09-01\n- kept")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if len(entries[0].Activities) != 1 || entries[0].Activities[0] != "kept" {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestParseTimelineEmpty(t *testing.T) {
	if entries := ParseTimeline("no dates at all, just prose"); len(entries) != 0 {
		t.Fatalf("expected empty timeline, got %v", entries)
	}
}
