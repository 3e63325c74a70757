package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
	"github.com/sidilemine/InsightSprint-sub001/pkg/store"
)

func testMachine(t *testing.T, cfg session.MachineConfig) (*session.Machine, *session.TokenIssuer) {
	t.Helper()
	s := store.NewMemory()
	if err := s.PutInterview(context.Background(), session.Interview{
		ID:    "iv-1",
		Title: "Checkout friction study",
		Questions: []session.Question{
			{ID: "q1", Text: "Walk me through your last purchase.", Order: 1},
			{ID: "q2", Text: "Where did you hesitate?", Order: 2},
			{ID: "q3", Text: "What would you change?", Order: 3},
		},
	}); err != nil {
		t.Fatalf("seed interview: %v", err)
	}
	issuer := session.NewTokenIssuer("test-secret", time.Hour)
	return session.NewMachine(s, issuer, cfg, nil, nil), issuer
}

func grantAccess(t *testing.T, m *session.Machine, issuer *session.TokenIssuer) session.Claims {
	t.Helper()
	token, _, err := m.IssueAccess(context.Background(), "iv-1", "respondent@example.com")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	return claims
}

func TestIssueAccessCreatesNotStartedSession(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	token, sess, err := m.IssueAccess(context.Background(), "iv-1", "respondent@example.com")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if sess.Status != session.StatusNotStarted {
		t.Fatalf("unexpected status %s", sess.Status)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SessionID != sess.ID || claims.InterviewID != "iv-1" {
		t.Fatalf("claims not bound to session: %+v", claims)
	}
}

func TestIssueAccessUnknownInterview(t *testing.T) {
	m, _ := testMachine(t, session.MachineConfig{})
	if _, _, err := m.IssueAccess(context.Background(), "iv-missing", "x@example.com"); err == nil {
		t.Fatal("expected error for unknown interview")
	}
}

func TestTokenBoundToMissingSessionIsInvalid(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	token, err := issuer.Issue("gone-session", "iv-1", "respondent@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	ctx := context.Background()
	if _, _, err := m.Access(ctx, claims); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("access: expected invalid token reason, got %v", err)
	}
	if err := m.SubmitDemographics(ctx, claims.SessionID, session.Demographics{Age: "25-34"}); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("demographics: expected invalid token reason, got %v", err)
	}
	if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: "q1"}); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("submit: expected invalid token reason, got %v", err)
	}
	if err := m.DeleteResponse(ctx, claims.SessionID, "q1"); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("delete: expected invalid token reason, got %v", err)
	}
	if _, err := m.Complete(ctx, claims.SessionID); !errorsx.HasReason(err, errorsx.ReasonSessionInvalidToken) {
		t.Fatalf("complete: expected invalid token reason, got %v", err)
	}
}

func TestAccessStartsSession(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)

	sess, iv, err := m.Access(context.Background(), claims)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if sess.Status != session.StatusInProgress {
		t.Fatalf("expected in progress, got %s", sess.Status)
	}
	if len(iv.Questions) != 3 {
		t.Fatalf("expected interview payload, got %+v", iv)
	}
}

func TestSubmitResponseOverwritesPerQuestion(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)
	ctx := context.Background()

	first, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{
		QuestionID:    "q1",
		Transcription: "first take",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{
		QuestionID:    "q1",
		Transcription: "second take",
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected a fresh response id on overwrite")
	}

	sess, _, err := m.Access(ctx, claims)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if sess.AnsweredCount() != 1 {
		t.Fatalf("expected one stored response, got %d", sess.AnsweredCount())
	}
	if sess.Responses["q1"].Transcription != "second take" {
		t.Fatalf("overwrite lost: %+v", sess.Responses["q1"])
	}
}

func TestSubmitResponseUnknownQuestion(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)

	_, err := m.SubmitResponse(context.Background(), claims.SessionID, session.Response{
		QuestionID:    "q99",
		Transcription: "should not land",
	})
	if !errorsx.HasReason(err, errorsx.ReasonSessionUnknownQuestion) {
		t.Fatalf("expected unknown question, got %v", err)
	}
}

func TestDeleteResponseAllowsReRecord(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)
	ctx := context.Background()

	if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: "q2", Transcription: "hmm"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.DeleteResponse(ctx, claims.SessionID, "q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sess, _, err := m.Access(ctx, claims)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if sess.AnsweredCount() != 0 {
		t.Fatalf("expected zero responses, got %d", sess.AnsweredCount())
	}
}

func TestCompletionIsIrreversible(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)
	ctx := context.Background()

	if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: "q1", Transcription: "done"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	sealed, err := m.Complete(ctx, claims.SessionID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if sealed.Status != session.StatusCompleted || sealed.CompletedAt == nil {
		t.Fatalf("not sealed: %+v", sealed)
	}

	// Every further operation is rejected with the completed reason.
	if _, _, err := m.Access(ctx, claims); !errorsx.HasReason(err, errorsx.ReasonSessionCompleted) {
		t.Fatalf("access after completion: %v", err)
	}
	if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: "q2", Transcription: "late"}); !errorsx.HasReason(err, errorsx.ReasonSessionCompleted) {
		t.Fatalf("submit after completion: %v", err)
	}
	if err := m.SubmitDemographics(ctx, claims.SessionID, session.Demographics{Age: "30-39"}); !errorsx.HasReason(err, errorsx.ReasonSessionCompleted) {
		t.Fatalf("demographics after completion: %v", err)
	}
	if err := m.DeleteResponse(ctx, claims.SessionID, "q1"); !errorsx.HasReason(err, errorsx.ReasonSessionCompleted) {
		t.Fatalf("delete after completion: %v", err)
	}
	if _, err := m.Complete(ctx, claims.SessionID); !errorsx.HasReason(err, errorsx.ReasonSessionCompleted) {
		t.Fatalf("double complete: %v", err)
	}
}

func TestCompleteWithPartialAnswersAllowedByDefault(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)

	if _, err := m.Complete(context.Background(), claims.SessionID); err != nil {
		t.Fatalf("complete with zero answers should pass: %v", err)
	}
}

func TestRequireAllAnsweredBlocksPartialCompletion(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{RequireAllAnswered: true})
	claims := grantAccess(t, m, issuer)
	ctx := context.Background()

	if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: "q1", Transcription: "only one"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Complete(ctx, claims.SessionID); !errorsx.HasReason(err, errorsx.ReasonSessionIncomplete) {
		t.Fatalf("expected incomplete rejection, got %v", err)
	}

	for _, q := range []string{"q2", "q3"} {
		if _, err := m.SubmitResponse(ctx, claims.SessionID, session.Response{QuestionID: q, Transcription: "answered"}); err != nil {
			t.Fatalf("submit %s: %v", q, err)
		}
	}
	if _, err := m.Complete(ctx, claims.SessionID); err != nil {
		t.Fatalf("complete with all answers: %v", err)
	}
}

func TestDemographicsAttach(t *testing.T) {
	m, issuer := testMachine(t, session.MachineConfig{})
	claims := grantAccess(t, m, issuer)
	ctx := context.Background()

	if err := m.SubmitDemographics(ctx, claims.SessionID, session.Demographics{
		Age:      "25-34",
		Location: "Lyon",
	}); err != nil {
		t.Fatalf("demographics: %v", err)
	}
	sess, _, err := m.Access(ctx, claims)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if sess.Demographics == nil || sess.Demographics.Location != "Lyon" {
		t.Fatalf("demographics lost: %+v", sess.Demographics)
	}
}
