package ai

import "testing"

func TestMarkerClassifier(t *testing.T) {
	c := MarkerClassifier{}

	if !c.ShouldEscalate("Let me get a teammate to help you. [ESCALATE]") {
		t.Fatal("expected marker reply to escalate")
	}
	if c.ShouldEscalate("We open at 9am tomorrow, see you then!") {
		t.Fatal("plain reply should not escalate")
	}
}

func TestStripMarker(t *testing.T) {
	got := StripMarker("Let me get a teammate to help you. [ESCALATE]")
	want := "Let me get a teammate to help you."
	if got != want {
		t.Fatalf("StripMarker = %q, want %q", got, want)
	}
}
