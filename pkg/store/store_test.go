package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

func testStores(t *testing.T) map[string]session.Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "insight.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]session.Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func testInterview() session.Interview {
	return session.Interview{
		ID:    "iv-1",
		Title: "Product onboarding study",
		Questions: []session.Question{
			{ID: "q1", Text: "How did setup feel?", Order: 1},
			{ID: "q2", Text: "What almost made you quit?", Order: 2},
		},
	}
}

func TestInterviewRoundTrip(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.PutInterview(ctx, testInterview()); err != nil {
				t.Fatalf("put interview: %v", err)
			}
			iv, err := s.Interview(ctx, "iv-1")
			if err != nil {
				t.Fatalf("get interview: %v", err)
			}
			if len(iv.Questions) != 2 || iv.Questions[1].ID != "q2" {
				t.Fatalf("unexpected interview %+v", iv)
			}
			if _, err := s.Interview(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestSessionLifecyclePersists(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := session.Session{
				ID:          "sess-1",
				InterviewID: "iv-1",
				Email:       "respondent@example.com",
				Status:      session.StatusNotStarted,
				Responses:   make(map[string]session.Response),
				CreatedAt:   time.Now(),
			}
			if err := s.CreateSession(ctx, sess); err != nil {
				t.Fatalf("create session: %v", err)
			}

			sess.Status = session.StatusInProgress
			sess.Responses["q1"] = session.Response{
				ID:            "r1",
				QuestionID:    "q1",
				Transcription: "setup was painless",
				CreatedAt:     time.Now(),
			}
			if err := s.SaveSession(ctx, sess); err != nil {
				t.Fatalf("save session: %v", err)
			}

			got, err := s.Session(ctx, "sess-1")
			if err != nil {
				t.Fatalf("get session: %v", err)
			}
			if got.Status != session.StatusInProgress {
				t.Fatalf("unexpected status %s", got.Status)
			}
			if got.Responses["q1"].Transcription != "setup was painless" {
				t.Fatalf("response lost: %+v", got.Responses)
			}
		})
	}
}

func TestSaveUnknownSessionFails(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SaveSession(context.Background(), session.Session{ID: "ghost"})
			if !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestMemoryCloneIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sess := session.Session{
		ID:        "sess-2",
		Status:    session.StatusInProgress,
		Responses: map[string]session.Response{"q1": {ID: "r1", QuestionID: "q1"}},
	}
	if err := m.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := m.Session(ctx, "sess-2")
	got.Responses["q9"] = session.Response{ID: "rogue"}

	again, _ := m.Session(ctx, "sess-2")
	if _, ok := again.Responses["q9"]; ok {
		t.Fatal("stored session aliased by caller mutation")
	}
}
