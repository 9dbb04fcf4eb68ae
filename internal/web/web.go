package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"sheetcal/internal/config"
	"sheetcal/internal/ics"
	appLog "sheetcal/internal/log"
	"sheetcal/internal/model"
	"sheetcal/internal/pipeline"
)

// ConvertFunc produces the current set of shifts, usually by running
// pipeline.Convert against the configured input.
type ConvertFunc func(ctx context.Context) (pipeline.Result, error)

// Server publishes the converted schedule as a subscribable calendar feed.
//
//	GET /health        liveness, never authenticated
//	GET /calendar.ics  the latest calendar document
//	GET /api/events    the latest occurrences as JSON
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	convert ConvertFunc

	// Latest successful conversion. A failed refresh keeps the previous feed.
	feedMu sync.RWMutex
	feed   *feed
}

// feed holds one rendered calendar and when it was produced.
type feed struct {
	body        []byte
	etag        string
	occurrences []model.Occurrence
	updatedAt   time.Time
}

// NewServer constructs a new Server. Nothing is served until the first
// successful Refresh.
func NewServer(cfg *config.Config, convert ConvertFunc) *Server {
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		convert: convert,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves Handler on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// Refresh re-runs the conversion and swaps in the new feed on success.
func (s *Server) Refresh(ctx context.Context) error {
	start := time.Now()
	res, err := s.convert(ctx)
	if err != nil {
		appLog.Error("feed refresh failed; keeping previous calendar", err)
		return err
	}

	var buf bytes.Buffer
	wcfg := ics.WriterConfig{
		ProductID:    s.cfg.ProductID,
		CalendarName: s.cfg.CalendarName,
		TimeZone:     s.cfg.TimeZone,
	}
	if err := ics.Write(&buf, res.Occurrences, wcfg); err != nil {
		appLog.Error("feed render failed; keeping previous calendar", err)
		return err
	}

	sum := sha256.Sum256(stripStamps(buf.Bytes()))
	f := &feed{
		body:        buf.Bytes(),
		etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		occurrences: res.Occurrences,
		updatedAt:   time.Now(),
	}

	s.feedMu.Lock()
	prev := s.feed
	if prev != nil && prev.etag == f.etag {
		// Same content; keep the old body so DTSTAMP and Last-Modified stay put.
		f = prev
	}
	s.feed = f
	s.feedMu.Unlock()

	appLog.Info("feed refreshed",
		"event_count", len(res.Occurrences),
		"changed", prev != f,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Server) currentFeed() *feed {
	s.feedMu.RLock()
	defer s.feedMu.RUnlock()
	return s.feed
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="sheetcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// GET /calendar.ics
//
// Supports If-None-Match so subscribed clients polling the feed get a 304
// when the schedule has not changed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	f := s.currentFeed()
	if f == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not ready")
		return
	}

	w.Header().Set("ETag", f.etag)
	w.Header().Set("Last-Modified", f.updatedAt.UTC().Format(http.TimeFormat))
	if etagMatches(r.Header.Get("If-None-Match"), f.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(f.body); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

// etagMatches applies the weak comparison If-None-Match calls for: any
// listed tag, with or without a W/ prefix, or "*".
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

// eventsResponse is the JSON payload of /api/events.
type eventsResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	TimeZone    string          `json:"timezone"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type occurrenceDTO struct {
	UID     string    `json:"uid"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	f := s.currentFeed()
	if f == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not ready")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(f.occurrences))
	for _, occ := range f.occurrences {
		uid := occ.UID
		if uid == "" {
			uid = ics.EventUID(occ)
		}
		dtos = append(dtos, occurrenceDTO{
			UID:     uid,
			Summary: occ.Summary,
			Start:   occ.Start,
			End:     occ.End,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences: dtos,
		TimeZone:    s.cfg.TimeZone,
		UpdatedAt:   f.updatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// stripStamps drops DTSTAMP lines so the ETag only changes with content.
func stripStamps(body []byte) []byte {
	lines := bytes.Split(body, []byte("\n"))
	out := lines[:0]
	for _, l := range lines {
		if bytes.HasPrefix(l, []byte("DTSTAMP")) {
			continue
		}
		out = append(out, l)
	}
	return bytes.Join(out, []byte("\n"))
}
