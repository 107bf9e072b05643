// Package api serves stored density runs over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/channelkde/internal/db"
	"github.com/banshee-data/channelkde/internal/report"
	"github.com/banshee-data/channelkde/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// defaultListLimit caps /api/runs when no limit is given.
const defaultListLimit = 100

// RunStore is the subset of the database the server reads.
type RunStore interface {
	ListRuns(limit int) ([]db.Run, error)
	GetRun(runID string) (*db.Run, error)
}

type Server struct {
	store      RunStore
	assetsHost string
}

// NewServer returns a read-only server over store. assetsHost, when set,
// overrides where chart pages load the echarts scripts from.
func NewServer(store RunStore, assetsHost string) *Server {
	return &Server{
		store:      store,
		assetsHost: assetsHost,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /charts/runs/{id}", s.runChart)
	mux.HandleFunc("GET /api/version", s.showVersion)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// lookupRun writes the error response itself and returns nil when the run
// cannot be served.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *db.Run {
	run, err := s.store.GetRun(r.PathValue("id"))
	switch {
	case errors.Is(err, db.ErrRunNotFound):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return nil
	case err != nil:
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err))
		return nil
	}
	return run
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if run := s.lookupRun(w, r); run != nil {
		s.writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}

	series := make([]report.Series, len(run.Channels))
	for i, ch := range run.Channels {
		series[i] = report.Series{Channel: ch.Channel, Label: ch.Label, Density: ch.Density}
	}

	var buf bytes.Buffer
	err := report.RenderHTML(&buf, report.ChartOptions{
		Title:      fmt.Sprintf("Run %s", run.RunID),
		Subtitle:   fmt.Sprintf("%s (%s, %dx%d) %s", run.Source, run.Mode, run.Width, run.Height, run.CreatedAt.Format(time.RFC3339)),
		AssetsHost: s.assetsHost,
	}, series)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, version.Get())
}
