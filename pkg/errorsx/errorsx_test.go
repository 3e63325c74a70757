package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonUpload)
	if Reason(err) != ReasonUpload {
		t.Fatalf("expected reason %s, got %s", ReasonUpload, Reason(err))
	}
	if !HasReason(err, ReasonUpload) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonSessionCompleted)
	second := Wrap(first, ReasonUpload)
	if Reason(second) != ReasonSessionCompleted {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestReasonNilError(t *testing.T) {
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
	if Wrap(nil, ReasonUpload) != nil {
		t.Fatalf("expected nil wrap for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
