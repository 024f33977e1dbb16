package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/onceup/internal/executor"
	"github.com/loykin/onceup/internal/runner"
	"github.com/loykin/onceup/internal/script"
	"github.com/loykin/onceup/internal/status"
)

// Router provides embeddable HTTP handlers for the runner.
// Endpoints:
//
//	POST {basePath}/run          trigger one activation
//	GET  {basePath}/status       query: name=... (single record) or none (all)
//	POST {basePath}/reset        query: name=... (delete one record)
//
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	r        *runner.Runner
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/run, /api/status, /api/reset.
func NewRouter(r *runner.Runner, basePath string) *Router {
	return &Router{r: r, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (rt *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(rt.basePath)
	group.POST("/run", rt.handleRun)
	group.GET("/status", rt.handleStatus)
	group.POST("/reset", rt.handleReset)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, r *runner.Runner) (*http.Server, error) {
	rt := NewRouter(r, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (rt *Router) handleRun(c *gin.Context) {
	// The activation itself has no return value; failures and outcomes are
	// observed via logs and the persisted records. The HTTP status only
	// classifies the abort reason for the caller's convenience.
	if err := rt.r.Activate(c.Request.Context()); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, script.ErrConfiguration):
			code = http.StatusBadRequest
		case errors.Is(err, executor.ErrInconsistentState):
			code = http.StatusConflict
		case errors.Is(err, status.ErrUnavailable):
			code = http.StatusServiceUnavailable
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusAccepted, okResp{OK: true})
}

func (rt *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name != "" {
		if !isSafeName(name) {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
			return
		}
		rec, err := rt.r.Record(c.Request.Context(), name)
		if err != nil {
			writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusOK, rec)
		return
	}
	recs, err := rt.r.Records(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []status.Record{}
	}
	writeJSON(c, http.StatusOK, recs)
}

func (rt *Router) handleReset(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if err := rt.r.Reset(c.Request.Context(), name); err != nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
