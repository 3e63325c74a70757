// Package session models respondent interview sessions and enforces
// their lifecycle: created on access grant, in progress while
// answering, and irreversibly completed at the end.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
)

// Status is the session lifecycle status.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Question is one prompt a respondent answers aloud.
type Question struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Interview is the study definition respondents are invited to.
type Interview struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// HasQuestion reports whether id belongs to this interview.
func (iv Interview) HasQuestion(id string) bool {
	for _, q := range iv.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Demographics is the optional respondent profile collected up front.
type Demographics struct {
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Location   string `json:"location,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

// Response is one stored answer. A session holds at most one response
// per question; re-answering replaces the previous one.
type Response struct {
	ID              string                   `json:"id"`
	QuestionID      string                   `json:"question_id"`
	Transcription   string                   `json:"transcription"`
	AudioPath       string                   `json:"audio_path,omitempty"`
	DurationSeconds float64                  `json:"duration_seconds,omitempty"`
	Sentiments      []transcribe.Sentiment   `json:"sentiments,omitempty"`
	SafetyLabels    []transcribe.SafetyLabel `json:"safety_labels,omitempty"`
	Insights        string                   `json:"insights,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// Session is one respondent's pass through an interview.
type Session struct {
	ID           string              `json:"id"`
	InterviewID  string              `json:"interview_id"`
	Email        string              `json:"email"`
	Status       Status              `json:"status"`
	Demographics *Demographics       `json:"demographics,omitempty"`
	Responses    map[string]Response `json:"responses"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// AnsweredCount reports how many questions have a stored response.
func (s Session) AnsweredCount() int { return len(s.Responses) }

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists interviews and sessions.
type Store interface {
	PutInterview(ctx context.Context, iv Interview) error
	Interview(ctx context.Context, id string) (Interview, error)
	CreateSession(ctx context.Context, s Session) error
	Session(ctx context.Context, id string) (Session, error)
	SaveSession(ctx context.Context, s Session) error
	Close() error
}
