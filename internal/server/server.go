package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/league-vision/internal/config"
	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/scanner"
	"github.com/GriffinCanCode/league-vision/internal/trace"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Controller is the scanner surface the server drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Pause() bool
	Resume() bool
	Status() scanner.Status
	SetModeOverride(mode *vision.ScanMode)
	ToggleMode() vision.ScanMode
	SetZone(zone string)
}

// Reloader re-reads the vision configuration.
type Reloader interface {
	Reload() (config.Snapshot, error)
}

// History serves recent decisions and live events.
type History interface {
	Recent(n int) []vision.Decision
	Events() <-chan scanner.Event
}

// Alerts mutes and unmutes the audible alert.
type Alerts interface {
	SetEnabled(enabled bool)
	Enabled() bool
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

// ControlMessage is sent by clients over the WebSocket.
type ControlMessage struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Zone    string `json:"zone,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type StatusMessage struct {
	Type   string         `json:"type"`
	Status scanner.Status `json:"status"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ModeRequest struct {
	// Mode is a scan mode name, "auto" to clear the override, or "toggle".
	Mode string `json:"mode"`
}

type ZoneRequest struct {
	Zone string `json:"zone"`
}

type AlertsRequest struct {
	Enabled *bool `json:"enabled"`
}

type AlertsMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-RateLimitWindow)
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctl     Controller
	config  Reloader
	history History
	alerts  Alerts
	logger  *slog.Logger
	// appCtx outlives requests; the scanner is started under it.
	appCtx context.Context

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server. ctx bounds scanner runs started through the API.
func New(ctx context.Context, ctl Controller, cfg Reloader, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctl:        ctl,
		config:     cfg,
		history:    history,
		logger:     logger,
		appCtx:     ctx,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
}

// WithAlerts exposes alert muting through the API.
func (s *Server) WithAlerts(a Alerts) *Server {
	s.alerts = a
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/decisions", s.handleDecisions)
	mux.HandleFunc("POST /api/scanner/{action}", s.handleScanner)
	mux.HandleFunc("POST /api/mode", s.handleMode)
	mux.HandleFunc("POST /api/zone", s.handleZone)
	mux.HandleFunc("POST /api/config/reload", s.handleReload)
	mux.HandleFunc("POST /api/alerts", s.handleAlerts)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Broadcast forwards feed events to every WebSocket client until ctx ends.
func (s *Server) Broadcast(ctx context.Context) {
	events := s.history.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.broadcast(ctx, evt)
		}
	}
}

func (s *Server) broadcast(ctx context.Context, msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			wctx, cancel := context.WithTimeout(ctx, BroadcastWriteTimeout)
			defer cancel()
			_ = wsjson.Write(wctx, c, msg)
		}(conn)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx, s.logger)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: s.ctl.Status()})

	for {
		var raw json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow(time.Now()) {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			ctx = trace.WithContext(ctx, tc)
		} else {
			ctx, _ = trace.EnsureContext(ctx)
		}
		s.handleControl(ctx, conn, msg)
	}
}

func (s *Server) handleControl(ctx context.Context, conn *websocket.Conn, msg ControlMessage) {
	ctx, span := trace.StartSpan(ctx, "handle_control")
	defer span.Finish(trace.Logger(ctx, s.logger), "Control handled")
	span.SetAttr("type", msg.Type)

	var err error
	switch msg.Type {
	case "control":
		err = s.apply(msg.Action)
	case "mode":
		_, err = s.setMode(msg.Mode)
	case "zone":
		s.ctl.SetZone(msg.Zone)
	case "alerts":
		var enabled bool
		if enabled, err = s.setAlerts(msg.Enabled); err == nil {
			_ = wsjson.Write(ctx, conn, AlertsMessage{Type: "alerts", Enabled: enabled})
			return
		}
	case "status":
	default:
		err = apperrors.Newf(apperrors.CodeInvalidArgument, "unknown message type %q", msg.Type)
	}

	if err != nil {
		trace.Logger(ctx, s.logger).Debug("control rejected", "type", msg.Type, "error", err)
		_ = wsjson.Write(ctx, conn, errorMessage(err))
		return
	}
	_ = wsjson.Write(ctx, conn, StatusMessage{Type: "status", Status: s.ctl.Status()})
}

// apply runs a lifecycle action.
func (s *Server) apply(action string) error {
	switch action {
	case "start":
		return s.ctl.Start(s.appCtx)
	case "stop":
		s.ctl.Stop()
	case "pause":
		if !s.ctl.Pause() {
			return apperrors.New(apperrors.CodeInvalidArgument, "scanner is not running")
		}
	case "resume":
		if !s.ctl.Resume() {
			return apperrors.New(apperrors.CodeInvalidArgument, "scanner is not paused")
		}
	default:
		return apperrors.Newf(apperrors.CodeInvalidArgument, "unknown action %q", action)
	}
	return nil
}

// setMode applies a mode request and returns the resulting base mode.
func (s *Server) setMode(name string) (vision.ScanMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "toggle":
		return s.ctl.ToggleMode(), nil
	case "auto", "":
		s.ctl.SetModeOverride(nil)
		return s.ctl.Status().Mode, nil
	}
	mode, ok := vision.ParseScanMode(name)
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown scan mode %q", name)
	}
	s.ctl.SetModeOverride(&mode)
	return mode, nil
}

// setAlerts applies an alert request; a nil value only reads the state.
func (s *Server) setAlerts(enabled *bool) (bool, error) {
	if s.alerts == nil {
		return false, apperrors.New(apperrors.CodeUnavailable, "alert sound is not available")
	}
	if enabled != nil {
		s.alerts.SetEnabled(*enabled)
	}
	return s.alerts.Enabled(), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit := DefaultDecisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid limit %q", v))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": s.history.Recent(limit)})
}

func (s *Server) handleScanner(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	if err := s.apply(action); err != nil {
		writeError(w, err)
		return
	}
	trace.Logger(r.Context(), s.logger).Info("scanner control", "action", action)
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode mode request"))
		return
	}
	mode, err := s.setMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": mode.String()})
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	var req ZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode zone request"))
		return
	}
	s.ctl.SetZone(req.Zone)
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var req AlertsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode alerts request"))
		return
	}
	enabled, err := s.setAlerts(req.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.config.Reload()
	if err != nil {
		trace.Logger(r.Context(), s.logger).Warn("config reload failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": snap.Version, "loaded_at": snap.LoadedAt})
}

func errorMessage(err error) ErrorMessage {
	msg := ErrorMessage{Type: "error", Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		msg.Code = appErr.Code.String()
	}
	return msg
}

// httpStatus maps error codes onto HTTP statuses.
func httpStatus(err error) int {
	appErr, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case apperrors.CodeInvalidArgument, apperrors.CodeConfigInvalid:
		return http.StatusBadRequest
	case apperrors.CodeConfigMissing:
		return http.StatusNotFound
	case apperrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), errorMessage(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
