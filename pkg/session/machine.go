package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/metrics"
)

// MachineConfig tunes lifecycle enforcement.
type MachineConfig struct {
	// RequireAllAnswered rejects completion while questions remain
	// unanswered. Off by default: respondents may skip questions.
	RequireAllAnswered bool
}

// Machine enforces the session lifecycle over a Store. All mutating
// operations serialize per session, and a completed session rejects
// every further mutation.
type Machine struct {
	store    Store
	issuer   *TokenIssuer
	cfg      MachineConfig
	observer metrics.Observer
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMachine(store Store, issuer *TokenIssuer, cfg MachineConfig, observer metrics.Observer, logger *slog.Logger) *Machine {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:    store,
		issuer:   issuer,
		cfg:      cfg,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "session"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// loadSession resolves the session a verified token points at. A token
// whose session no longer exists is treated as invalid, not as a
// missing resource: the binding is part of the credential.
func (m *Machine) loadSession(ctx context.Context, sessionID string) (Session, error) {
	s, err := m.store.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, errorsx.Wrap(
				fmt.Errorf("token bound to unknown session %s", sessionID),
				errorsx.ReasonSessionInvalidToken)
		}
		return Session{}, err
	}
	return s, nil
}

// sessionLock returns the per-session mutex, creating it on first use.
func (m *Machine) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}

// IssueAccess creates a fresh session for an interview and returns a
// token bound to it.
func (m *Machine) IssueAccess(ctx context.Context, interviewID, email string) (string, Session, error) {
	if _, err := m.store.Interview(ctx, interviewID); err != nil {
		return "", Session{}, err
	}

	s := Session{
		ID:          uuid.NewString(),
		InterviewID: interviewID,
		Email:       email,
		Status:      StatusNotStarted,
		Responses:   make(map[string]Response),
		CreatedAt:   time.Now(),
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return "", Session{}, err
	}

	token, err := m.issuer.Issue(s.ID, interviewID, email)
	if err != nil {
		return "", Session{}, err
	}

	m.observer.RecordEvent(metrics.MetricsEvent{
		Name: "session_created",
		Time: time.Now(),
		Tags: map[string]string{"interview_id": interviewID},
	})
	m.logger.Info("access_issued",
		slog.String("session_id", s.ID),
		slog.String("interview_id", interviewID))
	return token, s, nil
}

// Access loads the session and its interview for a verified token.
// First access moves the session into progress.
func (m *Machine) Access(ctx context.Context, claims Claims) (Session, Interview, error) {
	lock := m.sessionLock(claims.SessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.loadSession(ctx, claims.SessionID)
	if err != nil {
		return Session{}, Interview{}, err
	}
	if s.Status == StatusCompleted {
		return Session{}, Interview{}, m.completedErr(s.ID)
	}

	iv, err := m.store.Interview(ctx, s.InterviewID)
	if err != nil {
		return Session{}, Interview{}, err
	}

	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
		if err := m.store.SaveSession(ctx, s); err != nil {
			return Session{}, Interview{}, err
		}
		m.logger.Info("session_started", slog.String("session_id", s.ID))
	}
	return s, iv, nil
}

// SubmitDemographics attaches the respondent profile to the session.
func (m *Machine) SubmitDemographics(ctx context.Context, sessionID string, demo Demographics) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status == StatusCompleted {
		return m.completedErr(s.ID)
	}

	s.Demographics = &demo
	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
	}
	return m.store.SaveSession(ctx, s)
}

// SubmitResponse stores an answer for a question of the session's
// interview. An existing answer for the same question is replaced.
func (m *Machine) SubmitResponse(ctx context.Context, sessionID string, resp Response) (Response, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return Response{}, err
	}
	if s.Status == StatusCompleted {
		return Response{}, m.completedErr(s.ID)
	}

	iv, err := m.store.Interview(ctx, s.InterviewID)
	if err != nil {
		return Response{}, err
	}
	if !iv.HasQuestion(resp.QuestionID) {
		return Response{}, errorsx.Wrap(
			fmt.Errorf("question %s does not belong to interview %s", resp.QuestionID, iv.ID),
			errorsx.ReasonSessionUnknownQuestion)
	}

	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now()
	}

	if s.Responses == nil {
		s.Responses = make(map[string]Response)
	}
	_, replaced := s.Responses[resp.QuestionID]
	s.Responses[resp.QuestionID] = resp
	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return Response{}, err
	}

	m.observer.RecordEvent(metrics.MetricsEvent{
		Name: "response_saved",
		Time: time.Now(),
		Tags: map[string]string{
			"session_id":  sessionID,
			"question_id": resp.QuestionID,
		},
		Fields: map[string]any{"replaced": replaced},
	})
	m.logger.Info("response_saved",
		slog.String("session_id", sessionID),
		slog.String("question_id", resp.QuestionID),
		slog.Bool("replaced", replaced))
	return resp, nil
}

// DeleteResponse removes a stored answer so the respondent can
// re-record it.
func (m *Machine) DeleteResponse(ctx context.Context, sessionID, questionID string) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status == StatusCompleted {
		return m.completedErr(s.ID)
	}
	if _, ok := s.Responses[questionID]; !ok {
		return errorsx.Wrap(
			fmt.Errorf("no response stored for question %s", questionID),
			errorsx.ReasonSessionUnknownQuestion)
	}

	delete(s.Responses, questionID)
	return m.store.SaveSession(ctx, s)
}

// Complete seals the session. Completion is one-way: every later
// operation on the session fails.
func (m *Machine) Complete(ctx context.Context, sessionID string) (Session, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusCompleted {
		return Session{}, m.completedErr(s.ID)
	}

	if m.cfg.RequireAllAnswered {
		iv, err := m.store.Interview(ctx, s.InterviewID)
		if err != nil {
			return Session{}, err
		}
		if s.AnsweredCount() < len(iv.Questions) {
			return Session{}, errorsx.Wrap(
				fmt.Errorf("%d of %d questions answered", s.AnsweredCount(), len(iv.Questions)),
				errorsx.ReasonSessionIncomplete)
		}
	}

	now := time.Now()
	s.Status = StatusCompleted
	s.CompletedAt = &now
	if err := m.store.SaveSession(ctx, s); err != nil {
		return Session{}, err
	}

	m.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "session_completed",
		Time:  now,
		Value: float64(s.AnsweredCount()),
		Tags:  map[string]string{"session_id": sessionID},
	})
	m.logger.Info("session_completed",
		slog.String("session_id", sessionID),
		slog.Int("responses", s.AnsweredCount()))
	return s, nil
}

func (m *Machine) completedErr(sessionID string) error {
	return errorsx.Wrap(
		fmt.Errorf("session %s is completed", sessionID),
		errorsx.ReasonSessionCompleted)
}
