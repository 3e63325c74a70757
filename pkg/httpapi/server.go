// Package httpapi exposes the respondent-facing REST surface, the
// speech proxy, and the websocket progress feed.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/poller"
	"github.com/sidilemine/InsightSprint-sub001/pkg/redact"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

type Config struct {
	UploadsDir     string
	MaxUploadBytes int64
}

// Server wires the session machine, the transcription gateway, and the
// progress hub behind one router.
type Server struct {
	cfg     Config
	machine *session.Machine
	issuer  *session.TokenIssuer
	gateway transcribe.Gateway
	poll    *poller.Poller
	hub     *Hub
	router  chi.Router
	logger  *slog.Logger
	started time.Time
}

func NewServer(cfg Config, machine *session.Machine, issuer *session.TokenIssuer, gateway transcribe.Gateway, poll *poller.Poller, hub *Hub, logger *slog.Logger) (*Server, error) {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		machine: machine,
		issuer:  issuer,
		gateway: gateway,
		poll:    poll,
		hub:     hub,
		logger:  logging.NewComponentLogger(logger, "httpapi"),
		started: time.Now(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/interviews/{interviewID}/generate-access", s.handleGenerateAccess)
	if s.hub != nil {
		r.Get("/ws/progress", s.hub.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/api/respondent/interview-session", s.handleInterviewSession)
		r.Post("/api/respondent/demographics", s.handleDemographics)
		r.Post("/api/respondent/submit-response", s.handleSubmitResponse)
		r.Delete("/api/respondent/responses/{questionID}", s.handleDeleteResponse)
		r.Post("/api/respondent/complete-interview", s.handleComplete)

		r.Post("/api/speech/upload", s.handleSpeechUpload)
		r.Post("/api/speech/transcribe", s.handleSpeechTranscribe)
		r.Get("/api/speech/transcription/{jobID}", s.handleSpeechTranscription)
		r.Get("/api/speech/transcription/{jobID}/wait", s.handleSpeechWait)
		r.Post("/api/speech/process", s.handleSpeechProcess)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"gateway":        s.gateway.Name(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleGenerateAccess(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "email is required"})
		return
	}

	token, sess, err := s.machine.IssueAccess(r.Context(), interviewID, body.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("access_granted",
		slog.String("interview_id", interviewID),
		slog.String("session_id", sess.ID),
		slog.String("email", redact.Text(body.Email)))
	writeData(w, http.StatusOK, map[string]string{
		"accessToken": token,
		"sessionId":   sess.ID,
	})
}

func (s *Server) handleInterviewSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, errorsx.Wrap(fmt.Errorf("no session claims"), errorsx.ReasonSessionInvalidToken))
		return
	}
	sess, iv, err := s.machine.Access(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"session":   sess,
		"interview": iv,
	})
}

func (s *Server) handleDemographics(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, errorsx.Wrap(fmt.Errorf("no session claims"), errorsx.ReasonSessionInvalidToken))
		return
	}
	var demo session.Demographics
	if err := json.NewDecoder(r.Body).Decode(&demo); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid demographics payload"})
		return
	}
	if err := s.machine.SubmitDemographics(r.Context(), claims.SessionID, demo); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Demographics saved", nil)
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, errorsx.Wrap(fmt.Errorf("no session claims"), errorsx.ReasonSessionInvalidToken))
		return
	}
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "expected multipart form"})
		return
	}

	questionID := r.FormValue("questionId")
	transcription := r.FormValue("transcription")
	if questionID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "questionId is required"})
		return
	}

	resp := session.Response{
		QuestionID:    questionID,
		Transcription: transcription,
		Insights:      r.FormValue("insights"),
	}
	if raw := r.FormValue("duration"); raw != "" {
		if seconds, err := strconv.ParseFloat(raw, 64); err == nil && seconds >= 0 {
			resp.DurationSeconds = seconds
		}
	}

	if file, header, err := r.FormFile("audioFile"); err == nil {
		defer file.Close()
		path, err := s.saveAudio(claims.SessionID, questionID, header.Filename, file)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.AudioPath = path
	}

	saved, err := s.machine.SubmitResponse(r.Context(), claims.SessionID, resp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"responseId": saved.ID})
}

// saveAudio persists the uploaded take under a session-scoped name. A
// re-recorded answer overwrites the slot in the store; the previous
// audio file stays on disk until a cleanup job removes it.
func (s *Server) saveAudio(sessionID, questionID, filename string, src io.Reader) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}
	name := fmt.Sprintf("%s_%s_%d%s", sessionID, questionID, time.Now().UnixNano(), ext)
	path := filepath.Join(s.cfg.UploadsDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(src, s.cfg.MaxUploadBytes)); err != nil {
		_ = os.Remove(path)
		return "", errorsx.Wrap(err, errorsx.ReasonUpload)
	}
	return path, nil
}

func (s *Server) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, errorsx.Wrap(fmt.Errorf("no session claims"), errorsx.ReasonSessionInvalidToken))
		return
	}
	questionID := chi.URLParam(r, "questionID")
	if err := s.machine.DeleteResponse(r.Context(), claims.SessionID, questionID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Response deleted", nil)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, errorsx.Wrap(fmt.Errorf("no session claims"), errorsx.ReasonSessionInvalidToken))
		return
	}
	sess, err := s.machine.Complete(r.Context(), claims.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Interview completed", map[string]any{
		"responsesSubmitted": sess.AnsweredCount(),
		"completedAt":        sess.CompletedAt,
	})
}

func (s *Server) handleSpeechUpload(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	mime := r.Header.Get("Content-Type")

	if file, header, err := func() (io.ReadCloser, string, error) {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return nil, "", err
		}
		f, h, err := r.FormFile("audio")
		if err != nil {
			return nil, "", err
		}
		return f, h.Header.Get("Content-Type"), nil
	}(); err == nil {
		defer file.Close()
		src = file
		mime = header
	}

	url, err := s.gateway.Upload(r.Context(), io.LimitReader(src, s.cfg.MaxUploadBytes), mime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"uploadUrl": url})
}

func (s *Server) handleSpeechTranscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AudioURL          string `json:"audioUrl"`
		SentimentAnalysis bool   `json:"sentimentAnalysis"`
		ContentSafety     bool   `json:"contentSafety"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AudioURL == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "audioUrl is required"})
		return
	}
	jobID, err := s.gateway.Submit(r.Context(), body.AudioURL, transcribe.Options{
		SentimentAnalysis: body.SentimentAnalysis,
		ContentSafety:     body.ContentSafety,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"transcriptionId": jobID})
}

func (s *Server) handleSpeechTranscription(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.gateway.JobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

// handleSpeechWait blocks until the job is terminal or the polling
// budget runs out, so thin clients can skip their own poll loop.
func (s *Server) handleSpeechWait(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.poll.Wait(r.Context(), jobID, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (s *Server) handleSpeechProcess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AudioURL          string `json:"audioUrl"`
		Prompt            string `json:"prompt"`
		SentimentAnalysis bool   `json:"sentimentAnalysis"`
		ContentSafety     bool   `json:"contentSafety"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AudioURL == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "audioUrl is required"})
		return
	}
	result, err := s.gateway.Process(r.Context(), body.AudioURL, body.Prompt, transcribe.Options{
		SentimentAnalysis: body.SentimentAnalysis,
		ContentSafety:     body.ContentSafety,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
