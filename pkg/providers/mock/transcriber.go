package mock

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
)

// Transcriber is a scripted transcription gateway. Each submitted job
// walks a configured status sequence, one step per JobStatus call, and
// sticks on the last entry.
type Transcriber struct {
	statuses   []transcribe.Status
	text       string
	insights   string
	failureMsg string
	uploadErr  error

	mu   sync.Mutex
	jobs map[string]*scriptedJob
}

type scriptedJob struct {
	calls int
	opts  transcribe.Options
}

// TranscriberOption configures a mock gateway.
type TranscriberOption func(*Transcriber)

// WithStatusSequence scripts the per-call status progression.
func WithStatusSequence(statuses ...transcribe.Status) TranscriberOption {
	return func(t *Transcriber) { t.statuses = statuses }
}

// WithTranscript sets the text returned on completion.
func WithTranscript(text string) TranscriberOption {
	return func(t *Transcriber) { t.text = text }
}

// WithInsights sets the insight text Process returns when given a prompt.
func WithInsights(insights string) TranscriberOption {
	return func(t *Transcriber) { t.insights = insights }
}

// WithFailure sets the provider error detail reported on StatusError.
func WithFailure(msg string) TranscriberOption {
	return func(t *Transcriber) { t.failureMsg = msg }
}

// WithUploadError makes Upload fail.
func WithUploadError(err error) TranscriberOption {
	return func(t *Transcriber) { t.uploadErr = err }
}

func NewTranscriber(opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		statuses: []transcribe.Status{transcribe.StatusCompleted},
		text:     "mock transcript",
		jobs:     make(map[string]*scriptedJob),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcriber) Name() string { return "mock" }

func (t *Transcriber) Upload(ctx context.Context, audio io.Reader, mime string) (string, error) {
	if t.uploadErr != nil {
		return "", errorsx.Wrap(t.uploadErr, errorsx.ReasonUpload)
	}
	n, err := io.Copy(io.Discard, audio)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}
	return fmt.Sprintf("mock://audio/%s?bytes=%d", uuid.NewString(), n), nil
}

func (t *Transcriber) Submit(ctx context.Context, audioURL string, opts transcribe.Options) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := uuid.NewString()
	t.jobs[id] = &scriptedJob{opts: opts}
	return id, nil
}

func (t *Transcriber) JobStatus(ctx context.Context, jobID string) (transcribe.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[jobID]
	if !ok {
		return transcribe.Job{}, errorsx.Wrap(fmt.Errorf("unknown job %s", jobID), errorsx.ReasonTranscribeStatus)
	}

	idx := j.calls
	if idx >= len(t.statuses) {
		idx = len(t.statuses) - 1
	}
	j.calls++

	job := transcribe.Job{ID: jobID, Status: t.statuses[idx]}
	switch job.Status {
	case transcribe.StatusCompleted:
		job.Text = t.text
		if j.opts.SentimentAnalysis {
			job.Sentiments = []transcribe.Sentiment{{Text: t.text, Sentiment: "NEUTRAL", Confidence: 0.9}}
		}
		if j.opts.ContentSafety {
			job.SafetyLabels = []transcribe.SafetyLabel{}
		}
	case transcribe.StatusError:
		job.Error = t.failureMsg
		if job.Error == "" {
			job.Error = "mock transcription failure"
		}
	}
	return job, nil
}

// StatusCalls reports how many status queries a job has received.
func (t *Transcriber) StatusCalls(jobID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[jobID]; ok {
		return j.calls
	}
	return 0
}

func (t *Transcriber) Process(ctx context.Context, audioURL, prompt string, opts transcribe.Options) (transcribe.Result, error) {
	id, err := t.Submit(ctx, audioURL, opts)
	if err != nil {
		return transcribe.Result{}, err
	}
	for {
		job, err := t.JobStatus(ctx, id)
		if err != nil {
			return transcribe.Result{}, err
		}
		if job.Status == transcribe.StatusError {
			return transcribe.Result{}, errorsx.Wrap(fmt.Errorf("transcription failed: %s", job.Error), errorsx.ReasonTranscribeProcessing)
		}
		if job.Status == transcribe.StatusCompleted {
			res := transcribe.Result{Job: job}
			if prompt != "" {
				res.Insights = t.insights
			}
			return res, nil
		}
		select {
		case <-ctx.Done():
			return transcribe.Result{}, ctx.Err()
		default:
		}
	}
}

var _ transcribe.Gateway = (*Transcriber)(nil)
