package repository

import (
	"strings"
	"testing"
)

func TestMarkSeenQueryIsConflictSafe(t *testing.T) {
	query := strings.ToLower(markSeenQuery)

	if !strings.Contains(query, "on conflict (provider_event_id) do nothing") {
		t.Fatal("replayed deliveries must insert nothing")
	}
}
