package ai

import "strings"

// EscalationMarker is the token the responder is instructed to append when
// a reply needs human follow-up. It is stripped before the customer sees
// the message.
const EscalationMarker = "[ESCALATE]"

// MarkerClassifier decides escalation by scanning the generated reply for
// the marker token.
type MarkerClassifier struct{}

// ShouldEscalate reports whether the reply text signals escalation.
func (MarkerClassifier) ShouldEscalate(replyText string) bool {
	return strings.Contains(replyText, EscalationMarker)
}

// StripMarker removes the escalation token from a reply so it can be sent
// to the customer.
func StripMarker(replyText string) string {
	return strings.TrimSpace(strings.ReplaceAll(replyText, EscalationMarker, ""))
}
