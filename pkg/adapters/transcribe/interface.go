package transcribe

import (
	"context"
	"io"
)

// Status is a provider-reported job status.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further status change can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Options toggles provider-side annotation of the result.
type Options struct {
	SentimentAnalysis bool
	ContentSafety     bool
}

// Sentiment is one provider sentiment annotation span.
type Sentiment struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// SafetyLabel is one provider content-safety annotation.
type SafetyLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Job is a provider-side transcription unit of work.
type Job struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	Text         string        `json:"text,omitempty"`
	Error        string        `json:"error,omitempty"`
	Sentiments   []Sentiment   `json:"sentiments,omitempty"`
	SafetyLabels []SafetyLabel `json:"safety_labels,omitempty"`
}

// Result is the outcome of the synchronous processing path.
type Result struct {
	Job
	Insights string `json:"insights,omitempty"`
}

// Gateway defines the contract for any transcription vendor implementation.
type Gateway interface {
	// Name returns gateway name for logging/metrics.
	Name() string
	// Upload stores an audio object and returns a dereferenceable URL.
	Upload(ctx context.Context, audio io.Reader, mime string) (string, error)
	// Submit creates a transcription job and returns its handle immediately.
	Submit(ctx context.Context, audioURL string, opts Options) (string, error)
	// JobStatus queries current job state by handle.
	JobStatus(ctx context.Context, jobID string) (Job, error)
	// Process blocks until the provider produces a final result or failure.
	Process(ctx context.Context, audioURL, prompt string, opts Options) (Result, error)
}
