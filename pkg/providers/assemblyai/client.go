// Package assemblyai implements the transcription gateway against the
// AssemblyAI v2 REST API.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/resilience"
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxAttempts  int
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryPolicy
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.NewComponentLogger(logger, "assemblyai")

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		retry:   resilience.NewRetryPolicy(2, 500*time.Millisecond),
		logger:  logger,
	}
}

func (c *Client) Name() string { return "assemblyai" }

// Upload pushes raw audio bytes and returns the provider's audio URL.
func (c *Client) Upload(ctx context.Context, audio io.Reader, mime string) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	err = c.retry.DoWithContext(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/octet-stream")
		return c.doJSON(req, &out)
	})
	if err != nil {
		c.logger.Error("upload_failed", slog.String("error", err.Error()))
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}

	c.logger.Info("audio_uploaded",
		slog.Int("size_bytes", len(data)),
		slog.String("mime", mime))
	return out.UploadURL, nil
}

// Submit creates a transcription job and returns its id immediately.
func (c *Client) Submit(ctx context.Context, audioURL string, opts transcribe.Options) (string, error) {
	if !c.breaker.Allow() {
		return "", errorsx.Wrap(fmt.Errorf("assemblyai circuit open"), errorsx.ReasonTranscribeSubmit)
	}

	payload := map[string]any{
		"audio_url":          audioURL,
		"sentiment_analysis": opts.SentimentAnalysis,
		"content_safety":     opts.ContentSafety,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonTranscribeSubmit)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := c.doJSON(req, &out); err != nil {
		c.breaker.OnError(err)
		c.logger.Error("submit_failed", slog.String("error", err.Error()))
		return "", errorsx.Wrap(err, errorsx.ReasonTranscribeSubmit)
	}
	c.breaker.OnSuccess()

	c.logger.Info("transcription_job_created",
		slog.String("job_id", out.ID),
		slog.Bool("sentiment_analysis", opts.SentimentAnalysis),
		slog.Bool("content_safety", opts.ContentSafety))
	return out.ID, nil
}

// JobStatus fetches current job state by id.
func (c *Client) JobStatus(ctx context.Context, jobID string) (transcribe.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return transcribe.Job{}, errorsx.Wrap(err, errorsx.ReasonTranscribeStatus)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	var out transcriptResponse
	if err := c.doJSON(req, &out); err != nil {
		c.logger.Error("status_failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return transcribe.Job{}, errorsx.Wrap(err, errorsx.ReasonTranscribeStatus)
	}
	return out.toJob(), nil
}

// Process submits the audio and blocks until a terminal result, then
// optionally asks LeMUR for insight text.
func (c *Client) Process(ctx context.Context, audioURL, prompt string, opts transcribe.Options) (transcribe.Result, error) {
	jobID, err := c.Submit(ctx, audioURL, opts)
	if err != nil {
		return transcribe.Result{}, err
	}

	job, err := c.waitForJob(ctx, jobID)
	if err != nil {
		return transcribe.Result{}, err
	}

	result := transcribe.Result{Job: job}
	if strings.TrimSpace(prompt) != "" {
		insights, err := c.generateInsights(ctx, jobID, prompt)
		if err != nil {
			// Insights are best-effort; the transcript is still the answer.
			c.logger.Warn("insights_failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		} else {
			result.Insights = insights
		}
	}
	return result, nil
}

func (c *Client) waitForJob(ctx context.Context, jobID string) (transcribe.Job, error) {
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		job, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return transcribe.Job{}, err
		}
		switch job.Status {
		case transcribe.StatusCompleted:
			c.logger.Info("transcription_completed",
				slog.String("job_id", jobID),
				slog.Int("attempts", attempt))
			return job, nil
		case transcribe.StatusError:
			return transcribe.Job{}, errorsx.Wrap(fmt.Errorf("transcription failed: %s", job.Error), errorsx.ReasonTranscribeProcessing)
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return transcribe.Job{}, ctx.Err()
		case <-timer.C:
		}
	}
	return transcribe.Job{}, errorsx.Wrap(fmt.Errorf("transcription timed out after %d attempts", c.cfg.MaxAttempts), errorsx.ReasonPollingTimeout)
}

func (c *Client) generateInsights(ctx context.Context, jobID, prompt string) (string, error) {
	payload := map[string]any{
		"transcript_ids":  []string{jobID},
		"prompt":          prompt,
		"max_output_size": 1000,
		"final_model":     "default",
	}
	body, _ := json.Marshal(payload)

	base := strings.TrimSuffix(c.cfg.BaseURL, "/v2")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/lemur/v3/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Response string `json:"response"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return resilience.RateLimitError{Provider: "assemblyai", Message: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("assemblyai %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

type transcriptResponse struct {
	ID                       string `json:"id"`
	Status                   string `json:"status"`
	Text                     string `json:"text"`
	Error                    string `json:"error"`
	SentimentAnalysisResults []struct {
		Text       string  `json:"text"`
		Sentiment  string  `json:"sentiment"`
		Confidence float64 `json:"confidence"`
	} `json:"sentiment_analysis_results"`
	ContentSafetyLabels struct {
		Results []struct {
			Labels []struct {
				Label      string  `json:"label"`
				Confidence float64 `json:"confidence"`
			} `json:"labels"`
		} `json:"results"`
	} `json:"content_safety_labels"`
}

func (r transcriptResponse) toJob() transcribe.Job {
	job := transcribe.Job{
		ID:     r.ID,
		Status: transcribe.Status(r.Status),
		Text:   r.Text,
		Error:  r.Error,
	}
	for _, s := range r.SentimentAnalysisResults {
		job.Sentiments = append(job.Sentiments, transcribe.Sentiment{
			Text:       s.Text,
			Sentiment:  s.Sentiment,
			Confidence: s.Confidence,
		})
	}
	for _, res := range r.ContentSafetyLabels.Results {
		for _, l := range res.Labels {
			job.SafetyLabels = append(job.SafetyLabels, transcribe.SafetyLabel{
				Label:      l.Label,
				Confidence: l.Confidence,
			})
		}
	}
	return job
}

var _ transcribe.Gateway = (*Client)(nil)
