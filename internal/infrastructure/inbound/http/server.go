package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/services"
	"github.com/sophialabs/perfaudit/internal/infrastructure/usecases"
)

const maxBodySize = 64 << 20 // 64 MB, traces are large

const (
	defaultHistoryLimit = 20
	defaultCacheSize    = 128
)

// Server is the HTTP API for audits, artifacts and capture administration.
type Server struct {
	router     *chi.Mux
	index      atomic.Pointer[services.CaptureIndex]
	reports    atomic.Pointer[reportCache]
	rebuildMu  sync.Mutex
	inflight   singleflight.Group
	loadUC     *usecases.LoadCapturesUseCase
	auditsUC   *usecases.RunAuditsUseCase
	importUC   *usecases.ImportCaptureUseCase
	deleteUC   *usecases.DeleteCaptureUseCase
	history    *audit.History
	limiter    ports.RateLimiter
	rate       float64
	burst      int
	cacheSize  int
	pagination services.PaginationConfig
	logger     ports.Logger
}

// NewServer creates a new Server. It answers 503 until the first Rebuild.
func NewServer(
	loadUC *usecases.LoadCapturesUseCase,
	auditsUC *usecases.RunAuditsUseCase,
	history *audit.History,
	logger ports.Logger,
) *Server {
	s := &Server{
		loadUC:     loadUC,
		auditsUC:   auditsUC,
		history:    history,
		cacheSize:  defaultCacheSize,
		pagination: services.DefaultPagination(),
		logger:     logger,
	}
	s.reports.Store(newReportCache(s.cacheSize, 0))
	s.router = s.buildRouter()
	return s
}

// SetAdminDeps injects the capture import and delete use cases. Without
// them the corresponding routes answer 501.
func (s *Server) SetAdminDeps(importUC *usecases.ImportCaptureUseCase, deleteUC *usecases.DeleteCaptureUseCase) {
	s.importUC = importUC
	s.deleteUC = deleteUC
}

// SetRateLimit limits every route except health to rate requests per second
// per client address, with the given burst.
func (s *Server) SetRateLimit(limiter ports.RateLimiter, rate float64, burst int) {
	s.limiter = limiter
	s.rate = rate
	s.burst = burst
}

// SetCacheSize bounds the number of cached reports. It takes effect at the
// next Rebuild.
func (s *Server) SetCacheSize(n int) {
	if n > 0 {
		s.cacheSize = n
	}
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/__admin/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/__admin/captures", s.handleListCaptures)
		r.Get("/__admin/captures/{captureID}", s.handleGetCapture)
		r.Post("/__admin/captures", s.handleImportCapture)
		r.Delete("/__admin/captures/{captureID}", s.handleDeleteCapture)
		r.Post("/__admin/reload", s.handleReload)
		r.Get("/__admin/history", s.handleHistory)

		r.Get("/audits/{captureID}", s.handleAudits)
		r.Get("/audits/{captureID}/{auditID}", s.handleAudit)
		r.Get("/artifacts/{captureID}/{pass}/{name}", s.handleArtifact)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

// Rebuild swaps in a new capture index and drops every cached report.
// Serialized via mutex.
func (s *Server) Rebuild(idx *services.CaptureIndex) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	s.index.Store(idx)
	s.reports.Store(newReportCache(s.cacheSize, s.reports.Load().generation+1))
	s.logger.Info("capture index rebuilt", "captures", idx.Len())
}

// CachedReports returns the number of reports cached since the last Rebuild.
func (s *Server) CachedReports() int {
	return s.reports.Load().len()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(r.Context(), clientKey(r), s.rate, s.burst) {
			s.logger.Info("request rate-limited", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup resolves the captureID URL parameter, writing the error response
// itself when it fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*capture.Capture, bool) {
	idx := s.index.Load()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "captures not loaded yet")
		return nil, false
	}
	id := chi.URLParam(r, "captureID")
	c, ok := idx.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "capture not found: "+id)
		return nil, false
	}
	return c, true
}

type passView struct {
	Name               string `json:"name"`
	Trace              string `json:"trace,omitempty"`
	DevtoolsLog        string `json:"devtools_log,omitempty"`
	TraceEvents        int    `json:"trace_events"`
	DevtoolsLogEntries int    `json:"devtools_log_entries"`
}

type captureView struct {
	ID     string     `json:"id"`
	URL    string     `json:"url,omitempty"`
	Passes []passView `json:"passes"`
}

func newCaptureView(c *capture.Capture) captureView {
	v := captureView{ID: c.ID, URL: c.URL, Passes: make([]passView, 0, len(c.Passes))}
	for _, name := range c.PassNames() {
		raw := c.Passes[name]
		files := c.Files[name]
		v.Passes = append(v.Passes, passView{
			Name:               name,
			Trace:              files.Trace,
			DevtoolsLog:        files.DevtoolsLog,
			TraceEvents:        len(raw.Trace()),
			DevtoolsLogEntries: len(raw.DevtoolsLog()),
		})
	}
	return v
}

func (s *Server) handleListCaptures(w http.ResponseWriter, _ *http.Request) {
	views := []captureView{}
	if idx := s.index.Load(); idx != nil {
		for _, c := range idx.All() {
			views = append(views, newCaptureView(c))
		}
	}
	writeJSONStatus(w, http.StatusOK, views)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSONStatus(w, http.StatusOK, newCaptureView(c))
}

func (s *Server) handleImportCapture(w http.ResponseWriter, r *http.Request) {
	if s.importUC == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "capture import is not configured")
		return
	}

	defer func() { _ = r.Body.Close() }()
	c, err := s.importUC.Execute(r.Context(), io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "import_failed", err.Error())
		return
	}
	if !s.reload(w, r) {
		return
	}
	writeJSONStatus(w, http.StatusCreated, newCaptureView(c))
}

func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	if s.deleteUC == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "capture deletion is not configured")
		return
	}

	id := chi.URLParam(r, "captureID")
	if err := s.deleteUC.Execute(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, capture.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "capture not found: "+id)
		case errors.Is(err, capture.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		}
		return
	}
	if !s.reload(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.reload(w, r) {
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"message":  "captures reloaded",
		"captures": s.index.Load().Len(),
	})
}

// reload reloads and swaps the index, writing a 500 response on failure.
func (s *Server) reload(w http.ResponseWriter, r *http.Request) bool {
	idx, err := s.loadUC.Execute(r.Context())
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", "capture reload failed, check server logs")
		return false
	}
	s.Rebuild(idx)
	return true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	var entries []audit.Entry
	switch id := r.URL.Query().Get("capture"); {
	case s.history == nil:
	case id != "":
		entries = s.history.ForCapture(id, n)
	default:
		entries = s.history.Last(n)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSONStatus(w, http.StatusOK, entries)
}

// report returns the cached report for a capture pass, computing it at most
// once across concurrent requests of the same index generation. An empty pass
// names the default pass.
func (s *Server) report(r *http.Request, c *capture.Capture, pass string) (audit.Report, error) {
	raw, err := c.Pass(pass)
	if err != nil {
		return audit.Report{}, err
	}
	pass = raw.Pass()

	cache := s.reports.Load()
	key := reportKey(c.ID, pass)
	if rep, ok := cache.get(key); ok {
		return rep, nil
	}

	// Shared by every waiter, so one client going away must not cancel it.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.inflight.Do(cache.flightKey(key), func() (any, error) {
		rep, err := s.auditsUC.Execute(ctx, c, pass)
		if err != nil {
			return nil, err
		}
		cache.add(key, rep)
		return rep, nil
	})
	if err != nil {
		return audit.Report{}, err
	}
	return v.(audit.Report), nil
}

func (s *Server) writeReportError(w http.ResponseWriter, err error) {
	if errors.Is(err, capture.ErrPassNotFound) {
		writeError(w, http.StatusNotFound, "pass_not_found", err.Error())
		return
	}
	s.logger.Error("audit run failed", "error", err)
	writeError(w, http.StatusInternalServerError, "audit_failed", err.Error())
}

func (s *Server) handleAudits(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	rep, err := s.report(r, c, r.URL.Query().Get("pass"))
	if err != nil {
		s.writeReportError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, rep)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "auditID")
	if _, ok := services.FindAudit(auditID); !ok {
		writeError(w, http.StatusNotFound, "unknown_audit", "unknown audit: "+auditID)
		return
	}
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	rep, err := s.report(r, c, r.URL.Query().Get("pass"))
	if err != nil {
		s.writeReportError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, rep.Audits[auditID])
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !services.IsArtifact(name) {
		writeError(w, http.StatusNotFound, "unknown_artifact", "unknown artifact: "+name)
		return
	}
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	v, err := s.auditsUC.Artifact(r.Context(), c, chi.URLParam(r, "pass"), name)
	switch {
	case errors.Is(err, capture.ErrPassNotFound):
		writeError(w, http.StatusNotFound, "pass_not_found", err.Error())
		return
	case err != nil && services.IsMetricFailure(err):
		writeError(w, http.StatusUnprocessableEntity, "artifact_unavailable", services.DebugString(err))
		return
	case err != nil:
		s.logger.Error("artifact computation failed", "capture", c.ID, "artifact", name, "error", err)
		writeError(w, http.StatusInternalServerError, "compute_failed", services.DebugString(err))
		return
	}

	qp := extractQueryParams(r)
	if !services.WantsPagination(s.pagination, qp) {
		writeJSONStatus(w, http.StatusOK, v)
		return
	}
	dataPath := qp["data_path"]
	if dataPath == "" {
		dataPath = "$"
	}
	page, err := services.Paginate(v, dataPath, s.pagination, qp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pagination_failed", err.Error())
		return
	}
	writeJSONStatus(w, http.StatusOK, page)
}

func extractQueryParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSONStatus(w, status, map[string]string{"error": code, "message": message})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
