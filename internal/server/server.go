// Package server exposes the correction pipeline over HTTP.
//
// The JSON API consists of:
//
//   - POST /api/correct     — correct a transcription text
//   - POST /api/learn       — learn dictionary rules from user edits
//   - GET  /api/dictionary  — list or search dictionary rules
//   - POST /api/dictionary  — add a single rule manually
//   - POST /api/transcribe  — transcribe an uploaded audio file
//
// Operational endpoints (/healthz, /readyz, /metrics) are registered
// alongside. Errors are returned as JSON objects with a stable error code
// and a user-facing Japanese message.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otoscribe/otoscribe/internal/correct"
	"github.com/otoscribe/otoscribe/internal/dictionary"
	"github.com/otoscribe/otoscribe/internal/health"
	"github.com/otoscribe/otoscribe/internal/observe"
	"github.com/otoscribe/otoscribe/pkg/provider/stt"
)

// memoryThreshold is the multipart parse buffer size; larger uploads spill
// to temporary files.
const memoryThreshold = 8 << 20

// Server holds the handlers for the JSON API. Construct it with [New].
type Server struct {
	corrector      *correct.Corrector
	learner        *correct.Learner
	store          dictionary.Store
	transcriber    stt.Transcriber
	metrics        *observe.Metrics
	health         *health.Handler
	maxUploadBytes int64
}

// Config collects the dependencies of a [Server].
type Config struct {
	Corrector *correct.Corrector
	Learner   *correct.Learner
	Store     dictionary.Store

	// Transcriber is optional; when nil, POST /api/transcribe responds
	// with 503.
	Transcriber stt.Transcriber

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics

	// Health defaults to a checker-less handler when nil.
	Health *health.Handler

	// MaxUploadBytes caps the request body size of audio uploads.
	MaxUploadBytes int64
}

// New creates a [Server] from cfg.
func New(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	h := cfg.Health
	if h == nil {
		h = health.New()
	}
	return &Server{
		corrector:      cfg.Corrector,
		learner:        cfg.Learner,
		store:          cfg.Store,
		transcriber:    cfg.Transcriber,
		metrics:        m,
		health:         h,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Handler returns the fully wired [http.Handler]: all API routes behind the
// observability middleware, plus health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/correct", s.handleCorrect)
	mux.HandleFunc("POST /api/learn", s.handleLearn)
	mux.HandleFunc("GET /api/dictionary", s.handleListDictionary)
	mux.HandleFunc("POST /api/dictionary", s.handleAddRule)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// ── POST /api/correct ─────────────────────────────────────────────────────────

type correctRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	start := time.Now()
	result, err := s.corrector.Correct(ctx, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.CorrectionDuration.Record(ctx, time.Since(start).Seconds())
	s.recordApplications(r, result.AppliedRules)

	writeJSON(w, http.StatusOK, result)
}

// recordApplications splits the applied-rule descriptions back into their
// mechanical and LLM halves for the counter attributes.
func (s *Server) recordApplications(r *http.Request, applied []string) {
	var dict, llm int64
	for _, a := range applied {
		switch {
		case strings.HasPrefix(a, "[辞書] "):
			dict++
		case strings.HasPrefix(a, "[LLM] "):
			llm++
		}
	}
	if dict > 0 {
		s.metrics.RecordRuleApplications(r.Context(), "dictionary", dict)
	}
	if llm > 0 {
		s.metrics.RecordRuleApplications(r.Context(), "llm", llm)
	}
}

// ── POST /api/learn ───────────────────────────────────────────────────────────

type learnRequest struct {
	Changes []correct.DiffPair `json:"changes"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.learner.Learn(r.Context(), req.Changes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result.SavedCount > 0 {
		s.metrics.RecordLearnedRules(r.Context(), "diff", int64(result.SavedCount))
	}

	writeJSON(w, http.StatusOK, result)
}

// ── GET /api/dictionary ───────────────────────────────────────────────────────

type dictionaryResponse struct {
	Entries []dictionary.Rule `json:"entries"`
	Count   int               `json:"count"`
}

func (s *Server) handleListDictionary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var (
		rules []dictionary.Rule
		err   error
	)
	if query == "" {
		rules, err = s.store.ListAll(r.Context())
	} else {
		rules, err = s.store.Search(r.Context(), query)
	}
	if err != nil {
		s.writeError(w, r, &correct.Error{Kind: correct.KindStorage, Message: "辞書の読み込みに失敗しました", Err: err})
		return
	}
	if rules == nil {
		rules = []dictionary.Rule{}
	}

	writeJSON(w, http.StatusOK, dictionaryResponse{Entries: rules, Count: len(rules)})
}

// ── POST /api/dictionary ──────────────────────────────────────────────────────

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule dictionary.Rule
	if !s.decodeJSON(w, r, &rule) {
		return
	}

	saved, err := s.learner.AddRule(r.Context(), rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordLearnedRules(r.Context(), "manual", 1)

	writeJSON(w, http.StatusCreated, saved)
}

// ── POST /api/transcribe ──────────────────────────────────────────────────────

type transcribeResponse struct {
	Text       string                    `json:"text"`
	Language   string                    `json:"language,omitempty"`
	Correction *correct.CorrectionResult `json:"correction,omitempty"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "API_ERROR",
			"文字起こしプロバイダが設定されていません", nil)
		return
	}

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(memoryThreshold); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR",
				"音声ファイルが大きすぎます", nil)
			return
		}
		writeErrorBody(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"マルチパートフォームの形式が正しくありません", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"音声ファイルが見つかりません", nil)
		return
	}
	defer file.Close()

	ctx := r.Context()
	start := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, file, header.Filename)
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stt", "transcribe")
		s.writeError(w, r, err)
		return
	}
	s.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordProviderRequest(ctx, "stt", "transcribe", "ok")

	resp := transcribeResponse{
		Text:     correct.Normalize(transcript.Text),
		Language: transcript.Language,
	}

	// An optional form flag runs the full correction pipeline on the
	// transcription before returning.
	if r.FormValue("correct") == "true" && s.corrector != nil {
		result, err := s.corrector.Correct(ctx, resp.Text)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Correction = result
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Shared helpers ────────────────────────────────────────────────────────────

// decodeJSON decodes the request body into v. On failure it writes a 400
// response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"リクエストの形式が正しくありません", nil)
		return false
	}
	return true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Conflict carries the existing dictionary entry on 409 responses.
	Conflict *dictionary.Rule `json:"conflict,omitempty"`
}

// writeError maps a pipeline error to its HTTP status and JSON body.
// Unknown errors are logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *correct.Error
	if errors.As(err, &cerr) {
		if cerr.Kind.HTTPStatus() >= 500 {
			observe.Logger(r.Context()).Error("request failed",
				slog.String("path", r.URL.Path), slog.Any("err", err))
		}
		writeErrorBody(w, cerr.Kind.HTTPStatus(), cerr.Kind.String(), cerr.Message, cerr.Conflict)
		return
	}

	observe.Logger(r.Context()).Error("request failed",
		slog.String("path", r.URL.Path), slog.Any("err", err))
	writeErrorBody(w, http.StatusInternalServerError, "UNKNOWN_ERROR",
		"予期しないエラーが発生しました", nil)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string, conflict *dictionary.Rule) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:     code,
		Message:  message,
		Conflict: conflict,
	}})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "err", err)
	}
}
