package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabledPassesTranscriptThrough(t *testing.T) {
	SetEnabled(false)
	in := "you can reach me at jane.doe@example.com or +1 415 555 0199"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabledScrubsRespondentPII(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	in := "you can reach me at jane.doe@example.com or +1 415 555 0199"
	got := Text(in)
	if got == in {
		t.Fatal("expected redaction to change the text")
	}
	if !strings.Contains(got, "[REDACTED_EMAIL]") {
		t.Fatalf("email not scrubbed: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("phone not scrubbed: %q", got)
	}
}

func TestRedactLeavesOrdinaryTranscriptAlone(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	in := "the checkout flow took me about 5 minutes and 30 seconds"
	if got := Text(in); got != in {
		t.Fatalf("ordinary transcript mangled: %q", got)
	}
}
