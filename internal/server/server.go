// Package server exposes the assessment pipeline over HTTP.
//
// Endpoints:
//
//	POST /v1/assessments        — multipart reading sample, returns the report
//	GET  /v1/assessments/recent — past attempts of a text, newest first
//	GET  /v1/reference          — synthesized reference audio for a text
//	GET  /healthz, /readyz      — liveness and readiness
//	GET  /metrics               — Prometheus scrape endpoint
//
// Input errors produce 400 with a labeled reason; failures of downstream
// collaborators (speech recognition, synthesis) produce 502.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/oratio/internal/assess"
	"github.com/MrWong99/oratio/internal/health"
	"github.com/MrWong99/oratio/internal/history"
	"github.com/MrWong99/oratio/internal/observe"
	"github.com/MrWong99/oratio/internal/refaudio"
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
)

// maxUploadBytes caps the multipart request body. A minute of 16 kHz mono
// 16-bit PCM is under 2 MiB, so this leaves generous headroom.
const maxUploadBytes = 32 << 20

// defaultRecentLimit is used when the recent-attempts query omits limit.
const defaultRecentLimit = 10

// maxRecentLimit caps the recent-attempts query.
const maxRecentLimit = 100

// Assessor evaluates one reading sample. Satisfied by [assess.Pipeline].
type Assessor interface {
	Assess(ctx context.Context, req assess.Request) (*assess.Report, error)
}

// ReferenceCache serves synthesized reference audio. Satisfied by
// [refaudio.Cache].
type ReferenceCache interface {
	WAV(ctx context.Context, text, language string) ([]byte, error)
}

// Server routes HTTP requests to the assessment pipeline and its
// supporting services.
type Server struct {
	assessor Assessor
	refs     ReferenceCache
	store    history.Store
	emb      embeddings.Provider
	health   *health.Handler
	metrics  *observe.Metrics
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithReferenceCache enables the GET /v1/reference endpoint.
func WithReferenceCache(refs ReferenceCache) Option {
	return func(s *Server) {
		s.refs = refs
	}
}

// WithHistory enables persistence of finished assessments and the
// recent-attempts endpoint.
func WithHistory(store history.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithEmbedder attaches an embedding provider used to store an acoustic
// embedding alongside each persisted assessment. Only meaningful together
// with [WithHistory].
func WithEmbedder(emb embeddings.Provider) Option {
	return func(s *Server) {
		s.emb = emb
	}
}

// WithHealth registers the health endpoints on the server's mux.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server around the given assessor.
func New(assessor Assessor, opts ...Option) *Server {
	s := &Server{
		assessor: assessor,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the fully-routed HTTP handler, wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/assessments", s.handleAssess)
	mux.HandleFunc("GET /v1/assessments/recent", s.handleRecent)
	mux.HandleFunc("GET /v1/reference", s.handleReference)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}
	return observe.Middleware(s.metrics)(mux)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleAssess handles POST /v1/assessments.
//
// Multipart form fields:
//
//	audio       — the reading as a 16-bit PCM WAV file (required)
//	target_text — the text the reader was asked to read (required)
//	language    — BCP-47-ish language hint, e.g. "hi" (optional)
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	targetText := r.FormValue("target_text")
	if targetText == "" {
		writeError(w, http.StatusBadRequest, "target_text is required")
		return
	}
	language := r.FormValue("language")

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	wav, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio: "+err.Error())
		return
	}
	sig, err := audio.DecodeWAV(wav)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid WAV audio: "+err.Error())
		return
	}

	s.metrics.ActiveAssessments.Add(ctx, 1)
	defer s.metrics.ActiveAssessments.Add(ctx, -1)

	start := time.Now()
	report, err := s.assessor.Assess(ctx, assess.Request{
		TargetText: targetText,
		Audio:      sig,
		Language:   language,
	})
	s.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("language", attrLanguage(language))))

	if err != nil {
		switch {
		case errors.Is(err, assess.ErrEmptyTarget):
			s.metrics.RecordAssessment(ctx, language, "invalid", 0)
			writeError(w, http.StatusBadRequest, "target text holds no assessable words")
		case errors.Is(err, assess.ErrEmptyAudio):
			s.metrics.RecordAssessment(ctx, language, "invalid", 0)
			writeError(w, http.StatusBadRequest, "audio holds no samples")
		case errors.Is(err, assess.ErrSilentAudio):
			s.metrics.RecordAssessment(ctx, language, "invalid", 0)
			writeError(w, http.StatusBadRequest, "audio is silent")
		default:
			s.metrics.RecordAssessment(ctx, language, "error", 0)
			s.log.Error("assessment failed",
				"language", language,
				"error", err)
			writeError(w, http.StatusBadGateway, "assessment failed: "+err.Error())
		}
		return
	}

	s.metrics.RecordAssessment(ctx, language, "ok", report.OverallScore)
	closest := s.persist(ctx, targetText, language, sig, report)

	writeJSON(w, http.StatusOK, assessResponse{Report: report, Closest: closest})
}

// assessResponse is the report plus, for deployments with a history store,
// the reader's acoustically closest earlier attempt at the same text.
type assessResponse struct {
	*assess.Report
	Closest *closestAttempt `json:"closest_attempt,omitempty"`
}

// closestAttempt summarises the nearest stored attempt by embedding cosine
// similarity.
type closestAttempt struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	OverallScore float64   `json:"overall_score"`

	// Similarity is the cosine similarity between the two readings'
	// embeddings, in [-1, 1].
	Similarity float64 `json:"similarity"`
}

// persist stores the finished assessment when a history store is configured
// and returns the closest earlier attempt found before saving, so a reading
// never matches itself. Persistence failures never fail the request.
func (s *Server) persist(ctx context.Context, targetText, language string, sig audio.Signal, report *assess.Report) *closestAttempt {
	if s.store == nil {
		return nil
	}
	textKey := refaudio.Key(targetText, language)

	var embedding []float32
	if s.emb != nil {
		vec, err := s.emb.Embed(ctx, sig)
		if err != nil {
			s.log.Warn("embedding for history failed, storing without",
				"error", err)
		} else {
			embedding = vec
		}
	}

	var closest *closestAttempt
	if embedding != nil {
		prev, sim, err := s.store.ClosestAttempt(ctx, textKey, embedding)
		switch {
		case errors.Is(err, history.ErrNotFound):
			// First embedded attempt at this text.
		case err != nil:
			s.log.Warn("closest-attempt lookup failed", "error", err)
		default:
			closest = &closestAttempt{
				ID:           prev.ID,
				CreatedAt:    prev.CreatedAt,
				OverallScore: prev.OverallScore,
				Similarity:   sim,
			}
		}
	}

	id, err := s.store.SaveAssessment(ctx, history.Assessment{
		TextKey:      textKey,
		TargetText:   targetText,
		Language:     language,
		OverallScore: report.OverallScore,
		Report:       report,
		Embedding:    embedding,
	})
	if err != nil {
		s.log.Warn("failed to persist assessment", "error", err)
		return closest
	}
	s.log.Debug("assessment persisted", "id", id)
	return closest
}

// recentAttempt is one entry of the recent-attempts response.
type recentAttempt struct {
	ID           int64          `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	Language     string         `json:"language"`
	OverallScore float64        `json:"overall_score"`
	Report       *assess.Report `json:"report,omitempty"`
}

// recentResponse is the JSON body of GET /v1/assessments/recent.
type recentResponse struct {
	Attempts []recentAttempt `json:"attempts"`
}

// handleRecent handles GET /v1/assessments/recent?text=...&language=...&limit=N.
// Attempts are keyed by the normalized text, so punctuation and casing
// differences in the query still find past readings.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "assessment history is not configured")
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}
	language := r.URL.Query().Get("language")

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	attempts, err := s.store.RecentByText(r.Context(), refaudio.Key(text, language), limit)
	if err != nil {
		s.log.Error("recent-attempts query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query assessment history")
		return
	}

	resp := recentResponse{Attempts: make([]recentAttempt, 0, len(attempts))}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, recentAttempt{
			ID:           a.ID,
			CreatedAt:    a.CreatedAt,
			Language:     a.Language,
			OverallScore: a.OverallScore,
			Report:       a.Report,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReference handles GET /v1/reference?text=...&language=...
// and responds with the synthesized WAV rendition of the text.
func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	if s.refs == nil {
		writeError(w, http.StatusServiceUnavailable, "reference audio is not configured")
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}
	language := r.URL.Query().Get("language")

	wav, err := s.refs.WAV(r.Context(), text, language)
	if err != nil {
		s.log.Error("reference synthesis failed",
			"language", language,
			"error", err)
		writeError(w, http.StatusBadGateway, "reference synthesis failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

// attrLanguage mirrors the metric attribute normalization of
// [observe.Metrics.RecordAssessment].
func attrLanguage(language string) string {
	if language == "" {
		return "auto"
	}
	return language
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
