package repository

import (
	"strings"
	"testing"
)

func TestDueLeadsQueryBoundsTheWindow(t *testing.T) {
	query := strings.ToLower(dueLeadsQuery)

	requiredFragments := []string{
		"created_at <= now() - make_interval(days => $1)",
		"created_at > now() - make_interval(days => $2)",
		"status in ('new', 'contacted')",
		"source in ('contest', 'partner', 'website')",
		"is null",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected due-leads query fragment %q to be present", fragment)
		}
	}
}

func TestStampColumnsCoverTheSequence(t *testing.T) {
	for _, day := range []int{3, 7, 14} {
		if _, ok := stampColumns[day]; !ok {
			t.Fatalf("milestone day %d has no stamp column", day)
		}
	}
	if len(stampColumns) != 3 {
		t.Fatalf("unexpected stamp column count %d", len(stampColumns))
	}
}
