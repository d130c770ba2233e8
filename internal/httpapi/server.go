// Package httpapi exposes the daemon over HTTP: assistant queries, web
// search, vision, desktop automation, and component lifecycle control.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"agentd/internal/automation"
	"agentd/internal/chat"
	"agentd/internal/lifecycle"
	"agentd/internal/search"
	"agentd/internal/sysinfo"
	"agentd/internal/vision"
	"agentd/pkg/types"
)

// ChatService answers assistant queries.
type ChatService interface {
	Ask(ctx context.Context, query string, contextPairs map[string]string) (chat.Result, error)
}

// SearchService answers web queries.
type SearchService interface {
	Search(ctx context.Context, query string, maxResults int, useCache bool) (search.Response, error)
	CacheStats() search.CacheStats
}

// VisionService analyzes images.
type VisionService interface {
	Analyze(ctx context.Context, req vision.Request) (vision.Report, error)
}

// AutomationService executes desktop actions.
type AutomationService interface {
	Execute(ctx context.Context, req automation.Request) (automation.Result, error)
}

// Lifecycle is the component-manager surface the API needs.
type Lifecycle interface {
	Status() map[string]lifecycle.ComponentStatus
	Registered(name string) bool
	Evict(name string) error
}

// Deps wires the API to the daemon's subsystems. A nil service disables its
// routes with 503 rather than 404, so clients can tell "off" from "wrong URL".
type Deps struct {
	Lifecycle  Lifecycle
	Chat       ChatService
	Search     SearchService
	Vision     VisionService
	Automation AutomationService
	// System reports a host snapshot for /status; nil omits it.
	System func() sysinfo.Report
	// Events streams lifecycle events over /events; nil disables the route.
	Events *EventHub

	Logger       zerolog.Logger
	CORSEnabled  bool
	MaxBodyBytes int64
	StartTime    time.Time
}

// NewMux builds the HTTP handler.
func NewMux(deps Deps) http.Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	if deps.StartTime.IsZero() {
		deps.StartTime = time.Now()
	}
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if deps.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/status", s.handleStatus)
	r.Get("/components", s.handleComponents)
	r.Post("/components/{name}/evict", s.handleEvict)
	r.Post("/chat", s.handleChat)
	r.Post("/search", s.handleSearch)
	r.Post("/vision/analyze", s.handleVision)
	r.Post("/automation/execute", s.handleAutomation)
	if deps.Events != nil {
		r.Get("/events", deps.Events.ServeHTTP)
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

type server struct {
	deps Deps
}

// handleHealthz godoc
// @Summary Liveness probe
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz godoc
// @Summary Readiness probe
// @Produce plain
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "shutting down"
// @Router /readyz [get]
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// The lifecycle manager stays queryable after Close, but Evict on a
	// closed manager is the cheapest closed-ness probe we have that does
	// not touch a real component.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleStatus godoc
// @Summary Daemon status: components, resident memory, host snapshot
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	components := s.componentStatuses()
	resp := types.StatusResponse{
		Components:     components,
		UptimeSeconds:  int64(time.Since(s.deps.StartTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	for _, c := range components {
		if c.State == string(lifecycle.StateLoaded) {
			resp.ResidentCount++
			resp.ResidentEstMB += c.EstMemoryMB
		}
	}
	if s.deps.System != nil {
		rep := s.deps.System()
		resp.System = &types.SystemInfo{
			Platform:          rep.Platform,
			CPUCount:          rep.CPUCount,
			CPUPercent:        rep.CPUPercent,
			MemoryTotalMB:     rep.MemoryTotalMB,
			MemoryAvailableMB: rep.MemoryAvailableMB,
			MemoryUsedPercent: rep.MemoryUsedPercent,
			DiskTotalGB:       rep.DiskTotalGB,
			DiskFreeGB:        rep.DiskFreeGB,
			DiskUsedPercent:   rep.DiskUsedPercent,
		}
	}
	if s.deps.Search != nil {
		st := s.deps.Search.CacheStats()
		resp.SearchCache = &types.CacheStats{
			TotalEntries: st.TotalEntries,
			LastHour:     st.LastHour,
			LastDay:      st.LastDay,
			Older:        st.Older,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleComponents godoc
// @Summary List managed components and their lifecycle state
// @Produce json
// @Success 200 {object} types.ComponentsResponse
// @Router /components [get]
func (s *server) handleComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ComponentsResponse{Components: s.componentStatuses()})
}

func (s *server) componentStatuses() []types.ComponentStatus {
	statuses := s.deps.Lifecycle.Status()
	out := make([]types.ComponentStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, types.ComponentStatus{
			Name:        st.Name,
			State:       string(st.State),
			IdleSeconds: int64(st.IdleSeconds),
			AccessCount: st.AccessCount,
			EstMemoryMB: st.EstMemoryMB,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// handleEvict godoc
// @Summary Unload one component immediately
// @Produce json
// @Param name path string true "component name"
// @Success 200 {object} types.EvictResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /components/{name}/evict [post]
func (s *server) handleEvict(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.deps.Lifecycle.Evict(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	state := string(lifecycle.StateNotLoaded)
	if st, ok := s.deps.Lifecycle.Status()[name]; ok {
		state = string(st.State)
	}
	writeJSON(w, http.StatusOK, types.EvictResponse{Component: name, State: state})
}

// handleChat godoc
// @Summary Ask the assistant a question
// @Accept json
// @Produce json
// @Param request body types.ChatRequest true "query"
// @Success 200 {object} types.ChatResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /chat [post]
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "chat is disabled")
		return
	}
	var req types.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}
	res, err := s.deps.Chat.Ask(r.Context(), req.Query, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{
		Response:             res.Response,
		Model:                res.Model,
		RequestID:            res.RequestID,
		SessionID:            res.SessionID,
		DurationMS:           res.Duration.Milliseconds(),
		DangerKeywords:       res.Danger.KeywordsFound,
		RequiresConfirmation: res.Danger.RequiresConfirmation,
	})
}

// handleSearch godoc
// @Summary Run a web search
// @Accept json
// @Produce json
// @Param request body types.SearchRequest true "query"
// @Success 200 {object} types.SearchResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /search [post]
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "search is disabled")
		return
	}
	var req types.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}
	res, err := s.deps.Search.Search(r.Context(), req.Query, req.MaxResults, useCache)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results := make([]types.SearchResult, 0, len(res.Results))
	for _, hit := range res.Results {
		results = append(results, types.SearchResult{
			Title:   hit.Title,
			URL:     hit.URL,
			Snippet: hit.Snippet,
			Source:  hit.Source,
		})
	}
	writeJSON(w, http.StatusOK, types.SearchResponse{
		Query:           res.Query,
		Results:         results,
		FromCache:       res.FromCache,
		CacheAgeSeconds: int64(res.CacheAge.Seconds()),
		DurationMS:      res.Duration.Milliseconds(),
	})
}

// handleVision godoc
// @Summary Analyze an image or the current screen
// @Accept json
// @Produce json
// @Param request body types.VisionRequest true "image and question"
// @Success 200 {object} types.VisionResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /vision/analyze [post]
func (s *server) handleVision(w http.ResponseWriter, r *http.Request) {
	if s.deps.Vision == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "vision is disabled")
		return
	}
	var req types.VisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := s.deps.Vision.Analyze(r.Context(), vision.Request{
		ImagePath: req.ImagePath,
		Question:  req.Question,
		Detect:    req.Detect,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dets := make([]types.Detection, 0, len(rep.Detections))
	for _, d := range rep.Detections {
		dets = append(dets, types.Detection{
			Label:      d.Label,
			Confidence: d.Confidence,
			X:          d.X,
			Y:          d.Y,
			Width:      d.Width,
			Height:     d.Height,
		})
	}
	writeJSON(w, http.StatusOK, types.VisionResponse{
		ImagePath:  rep.ImagePath,
		Text:       rep.Text,
		Caption:    rep.Caption,
		Detections: dets,
		Warnings:   rep.Warnings,
		DurationMS: rep.Duration.Milliseconds(),
	})
}

// handleAutomation godoc
// @Summary Execute a desktop action
// @Accept json
// @Produce json
// @Param request body types.AutomationRequest true "action"
// @Success 200 {object} types.AutomationResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /automation/execute [post]
func (s *server) handleAutomation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Automation == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "automation is disabled")
		return
	}
	var req types.AutomationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeJSONError(w, http.StatusBadRequest, "action is required")
		return
	}
	res, err := s.deps.Automation.Execute(r.Context(), automation.Request{
		Action:    req.Action,
		X:         req.X,
		Y:         req.Y,
		Button:    req.Button,
		Text:      req.Text,
		Key:       req.Key,
		Confirmed: req.Confirmed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AutomationResponse{
		Action:         res.Action,
		ScreenshotPath: res.ScreenshotPath,
		DurationMS:     res.Duration.Milliseconds(),
	})
}

// decode reads a JSON body with content-type and size checks. On failure it
// writes the error response and returns false.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// MaxBytesReader failures land here too; report 400 either way.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	rid := middleware.GetReqID(r.Context())
	s.deps.Logger.Error().Err(err).Int("status", status).Str("request_id", rid).
		Str("path", r.URL.Path).Msg("request failed")
	writeJSONError(w, status, err.Error())
}
