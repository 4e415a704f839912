package repository

import (
	"strings"
	"testing"
)

func TestCreateDedupQueryClaimsWindowInOneStatement(t *testing.T) {
	query := strings.ToLower(createDedupQuery)

	requiredFragments := []string{
		"created_at > now() - interval '24 hours'",
		"where not exists (select 1 from existing)",
		"order by created_at desc",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected dedup query fragment %q to be present", fragment)
		}
	}
}

func TestUpdateQueryStampsStatusTimestampsOnce(t *testing.T) {
	query := strings.ToLower(updateQuery)

	requiredFragments := []string{
		"coalesce(contacted_at, now())",
		"coalesce(scheduled_at, now())",
		"coalesce(won_at, now())",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected one-way stamp fragment %q to be present", fragment)
		}
	}

	if strings.Contains(query, "contacted_at = now()") {
		t.Fatal("status stamps must never be overwritten unconditionally")
	}
}
