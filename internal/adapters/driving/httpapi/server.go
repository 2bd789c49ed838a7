// Package httpapi exposes the chat and retrieval services over a local HTTP
// API. The server is designed for same-machine clients: it answers from the
// local corpus only and reports offline_mode on its health endpoint.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Config tunes the HTTP server.
type Config struct {
	// AdminToken protects /admin endpoints. Empty disables them.
	AdminToken string

	// BackendName is reported on /health. Empty means template-only.
	BackendName string

	// ChatRate bounds chat requests per second. Zero means 2/s.
	ChatRate float64
}

// Server routes HTTP requests to the core services.
type Server struct {
	chat      driving.ChatService
	retrieval driving.RetrievalService
	ingest    driving.IngestService
	audit     driven.AuditLog
	cfg       Config

	chatLimiter  *rate.Limiter
	adminLimiter *rate.Limiter
	router       chi.Router
}

// NewServer wires the routes. audit may be nil.
func NewServer(
	chat driving.ChatService,
	retrieval driving.RetrievalService,
	ingest driving.IngestService,
	audit driven.AuditLog,
	cfg Config,
) *Server {
	if cfg.ChatRate <= 0 {
		cfg.ChatRate = 2
	}

	s := &Server{
		chat:      chat,
		retrieval: retrieval,
		ingest:    ingest,
		audit:     audit,
		cfg:       cfg,

		chatLimiter:  rate.NewLimiter(rate.Limit(cfg.ChatRate), 5),
		adminLimiter: rate.NewLimiter(rate.Limit(1), 3),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Post("/chat", s.handleChat)
	r.Post("/document/view", s.handleDocumentView)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/audit", s.handleAudit)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID  string                 `json:"conversation_id"`
	Checklist       []domain.ChecklistStep `json:"checklist"`
	Meta            domain.Meta            `json:"meta"`
	Mode            string                 `json:"mode"`
	Blocked         bool                   `json:"blocked"`
	BlockReasons    []string               `json:"block_reasons,omitempty"`
	EmergencyBanner string                 `json:"emergency_banner,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.chatLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	outcome, err := s.chat.Ask(r.Context(), req.Query, req.ConversationID)
	if err != nil {
		logger.Warn("chat request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to answer")
		return
	}

	resp := chatResponse{
		ConversationID: outcome.ConversationID,
		Checklist:      outcome.Response.Checklist,
		Meta:           outcome.Response.Meta,
		Mode:           outcome.Mode,
		Blocked:        outcome.Blocked,
	}
	if outcome.Blocked {
		resp.BlockReasons = outcome.Decision.Reasons
	}
	if outcome.Decision.RequiresEmergencyBanner {
		resp.EmergencyBanner = domain.EmergencyBannerText
	}
	writeJSON(w, http.StatusOK, resp)
}

type documentViewRequest struct {
	DocID string `json:"doc_id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (s *Server) handleDocumentView(w http.ResponseWriter, r *http.Request) {
	var req documentViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, "doc_id is required")
		return
	}

	result, err := s.retrieval.Open(r.Context(), req.DocID, req.Start, req.End)
	if err != nil {
		logger.Warn("document view failed: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to read document")
		return
	}
	if result.Status != "" {
		writeError(w, http.StatusNotFound, result.Status)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	corpus := "ok"
	var documents int
	if stats, err := s.ingest.Stats(r.Context()); err != nil {
		corpus = "unavailable"
	} else {
		documents = stats.Documents
	}

	backend := s.cfg.BackendName
	if backend == "" {
		backend = "template-only"
	}

	auditStatus := "ok"
	if s.audit == nil {
		auditStatus = "disabled"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"offline_mode": true,
		"documents":    documents,
		"components": map[string]string{
			"corpus":  corpus,
			"backend": backend,
			"audit":   auditStatus,
		},
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "audit log disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 200)
	}
	blockedOnly := r.URL.Query().Get("blocked") == "1"

	entries, err := s.audit.Recent(r.Context(), limit, blockedOnly)
	if err != nil {
		logger.Warn("audit query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to read audit log")
		return
	}

	type entryOut struct {
		ID             string   `json:"id"`
		Timestamp      string   `json:"timestamp"`
		ConversationID string   `json:"conversation_id,omitempty"`
		Query          string   `json:"query"`
		Status         string   `json:"status"`
		Reasons        []string `json:"reasons,omitempty"`
		Emergency      bool     `json:"emergency"`
		Backend        string   `json:"backend,omitempty"`
		LatencyMS      int64    `json:"latency_ms"`
	}
	out := make([]entryOut, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryOut{
			ID:             e.ID,
			Timestamp:      e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			ConversationID: e.ConversationID,
			Query:          e.Query,
			Status:         e.Status,
			Reasons:        e.Reasons,
			Emergency:      e.Emergency,
			Backend:        e.Backend,
			LatencyMS:      e.LatencyMS,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	corpus, err := s.ingest.Stats(r.Context())
	if err != nil {
		logger.Warn("stats query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to read stats")
		return
	}

	resp := map[string]any{
		"corpus": map[string]int{
			"documents": corpus.Documents,
			"chunks":    corpus.Chunks,
		},
	}
	if s.audit != nil {
		audit, err := s.audit.Stats(r.Context())
		if err != nil {
			logger.Warn("audit stats failed: %v", err)
			writeError(w, http.StatusInternalServerError, "unable to read stats")
			return
		}
		resp["audit"] = map[string]int{
			"total":     audit.Total,
			"blocked":   audit.Blocked,
			"emergency": audit.Emergency,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// requireAdmin gates /admin behind the configured bearer token. With no
// token configured the endpoints do not exist.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if !s.adminLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
