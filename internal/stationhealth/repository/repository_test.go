package repository

import (
	"strings"
	"testing"
)

func TestClaimAlertQueryEnforcesCooldownAtWriteTime(t *testing.T) {
	query := strings.ToLower(claimAlertQuery)

	requiredFragments := []string{
		"insert into station_health_alerts",
		"where not exists",
		"sent_at > now() - interval '7 days'",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected claim query fragment %q to be present", fragment)
		}
	}
}
