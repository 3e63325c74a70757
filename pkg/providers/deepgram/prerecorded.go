// Package deepgram implements the synchronous transcription path using
// the Deepgram pre-recorded REST API. Deepgram transcribes within the
// request, so the poll-based contract is not available here.
package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type Config struct {
	APIKey   string
	Model    string
	Language string
	SpoolDir string
}

type Gateway struct {
	cfg    Config
	rest   *api.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.NewComponentLogger(logger, "deepgram_prerecorded")

	c := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Gateway{
		cfg:    cfg,
		rest:   api.New(c),
		logger: logger,
	}
}

func (g *Gateway) Name() string { return "deepgram_prerecorded" }

// Upload spools the audio to local disk; Process reads it back as a stream.
func (g *Gateway) Upload(ctx context.Context, audio io.Reader, mime string) (string, error) {
	path := filepath.Join(g.cfg.SpoolDir, uuid.NewString()+extForMime(mime))
	f, err := os.Create(path)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}
	defer f.Close()

	n, err := io.Copy(f, audio)
	if err != nil {
		_ = os.Remove(path)
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}

	g.logger.Info("audio_spooled",
		slog.String("path", path),
		slog.Int64("size_bytes", n))
	return path, nil
}

// Submit is not supported: the pre-recorded API has no job handles.
func (g *Gateway) Submit(ctx context.Context, audioURL string, opts transcribe.Options) (string, error) {
	return "", errorsx.Wrap(fmt.Errorf("deepgram gateway has no job handles; use the synchronous process path"), errorsx.ReasonTranscribeSubmit)
}

// JobStatus is not supported for the same reason as Submit.
func (g *Gateway) JobStatus(ctx context.Context, jobID string) (transcribe.Job, error) {
	return transcribe.Job{}, errorsx.Wrap(fmt.Errorf("deepgram gateway has no job handles"), errorsx.ReasonTranscribeStatus)
}

// Process transcribes within a single blocking call.
func (g *Gateway) Process(ctx context.Context, audioURL, prompt string, opts transcribe.Options) (transcribe.Result, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       g.cfg.Model,
		Language:    g.cfg.Language,
		SmartFormat: true,
		Sentiment:   opts.SentimentAnalysis,
	}

	var (
		res *restinterfaces.PreRecordedResponse
		err error
	)
	if strings.HasPrefix(audioURL, "http://") || strings.HasPrefix(audioURL, "https://") {
		res, err = g.rest.FromURL(ctx, audioURL, options)
	} else {
		var f *os.File
		f, err = os.Open(audioURL)
		if err != nil {
			return transcribe.Result{}, errorsx.Wrap(err, errorsx.ReasonTranscribeProcessing)
		}
		defer f.Close()
		res, err = g.rest.FromStream(ctx, f, options)
	}
	if err != nil {
		g.logger.Error("process_failed", slog.String("error", err.Error()))
		return transcribe.Result{}, errorsx.Wrap(err, errorsx.ReasonTranscribeProcessing)
	}

	job := transcribe.Job{
		ID:     uuid.NewString(),
		Status: transcribe.StatusCompleted,
	}
	if res != nil && len(res.Results.Channels) > 0 && len(res.Results.Channels[0].Alternatives) > 0 {
		job.Text = res.Results.Channels[0].Alternatives[0].Transcript
	}

	g.logger.Info("transcription_completed",
		slog.Int("transcript_chars", len(job.Text)))
	return transcribe.Result{Job: job}, nil
}

func extForMime(mime string) string {
	switch {
	case strings.Contains(mime, "wav"):
		return ".wav"
	case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
		return ".mp3"
	case strings.Contains(mime, "ogg"):
		return ".ogg"
	default:
		return ".bin"
	}
}

var _ transcribe.Gateway = (*Gateway)(nil)
