// Package store provides persistence drivers for interviews and
// sessions: an in-memory map for tests and single-node runs, and a
// SQLite file for durable local deployments.
package store

import (
	"context"
	"sync"

	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

// Memory keeps everything in process memory.
type Memory struct {
	mu         sync.RWMutex
	interviews map[string]session.Interview
	sessions   map[string]session.Session
}

func NewMemory() *Memory {
	return &Memory{
		interviews: make(map[string]session.Interview),
		sessions:   make(map[string]session.Session),
	}
}

func (m *Memory) PutInterview(ctx context.Context, iv session.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interviews[iv.ID] = iv
	return nil
}

func (m *Memory) Interview(ctx context.Context, id string) (session.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iv, ok := m.interviews[id]
	if !ok {
		return session.Interview{}, session.ErrNotFound
	}
	return iv, nil
}

func (m *Memory) CreateSession(ctx context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *Memory) Session(ctx context.Context, id string) (session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return cloneSession(s), nil
}

func (m *Memory) SaveSession(ctx context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return session.ErrNotFound
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *Memory) Close() error { return nil }

// cloneSession copies the mutable response map so callers cannot alias
// stored state.
func cloneSession(s session.Session) session.Session {
	out := s
	out.Responses = make(map[string]session.Response, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	if s.Demographics != nil {
		demo := *s.Demographics
		out.Demographics = &demo
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

var _ session.Store = (*Memory)(nil)
