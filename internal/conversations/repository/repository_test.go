package repository

import (
	"strings"
	"testing"
)

func TestAppendMessageQueryAssignsSeqInOneStatement(t *testing.T) {
	query := strings.ToLower(appendMessageQuery)

	requiredFragments := []string{
		"coalesce(max(seq), 0) + 1",
		"update conversations set updated_at = now()",
		"insert into conversation_messages",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected append query fragment %q to be present", fragment)
		}
	}

	forbidden := []string{"update conversation_messages", "delete from conversation_messages"}
	for _, fragment := range forbidden {
		if strings.Contains(query, fragment) {
			t.Fatalf("message log is append-only; found %q", fragment)
		}
	}
}
