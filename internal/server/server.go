package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/blobstore"
	"github.com/GriffinCanCode/interview-coach/internal/capture"
	"github.com/GriffinCanCode/interview-coach/internal/config"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
	"github.com/GriffinCanCode/interview-coach/internal/session"
	"github.com/GriffinCanCode/interview-coach/internal/sessionapi"
	"github.com/GriffinCanCode/interview-coach/internal/speech"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Backend holds what every session shares.
type Backend struct {
	API     sessionapi.API
	Store   blobstore.Store
	Options session.Options
	Clock   scheduler.Clock
	// LocalDevices, when set, captures on this machine instead of taking
	// frames and audio from the frontend.
	LocalDevices func() capture.Devices
	// LocalSynth, when set, speaks on this machine instead of asking the
	// frontend to.
	LocalSynth speech.Synthesizer
	// ResultRetention is how long a completed session is kept for its
	// result. Zero means DefaultResultRetention.
	ResultRetention time.Duration
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
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

// Server routes requests to interview sessions.
type Server struct {
	backend Backend

	mu    sync.RWMutex
	hosts map[string]*host
}

// New creates a new server.
func New(b Backend) *Server {
	if b.Options.Personas == nil {
		b.Options.Personas = config.DefaultPersonas()
	}
	if b.Clock == nil {
		b.Clock = scheduler.RealClock()
	}
	if b.ResultRetention <= 0 {
		b.ResultRetention = DefaultResultRetention
	}
	return &Server{backend: b, hosts: make(map[string]*host)}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/personas", s.handlePersonas)
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSnapshot)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/sessions/{id}/result", s.handleResult)
	mux.HandleFunc("POST /api/sessions/{id}/{action}", s.handleAction)
	mux.HandleFunc("GET /api/recordings/{id}", s.handleRecording)

	// WebSocket endpoint
	mux.HandleFunc("/ws/sessions/{id}", s.handleWebSocket)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close ends every session.
func (s *Server) Close(ctx context.Context) {
	s.mu.Lock()
	hosts := make([]*host, 0, len(s.hosts))
	for id, h := range s.hosts {
		hosts = append(hosts, h)
		delete(s.hosts, id)
	}
	s.mu.Unlock()
	for _, h := range hosts {
		if err := h.ctrl.End(ctx); err != nil {
			trace.Logger(trace.WithSession(ctx, h.id)).Warn("ending session on shutdown", "error", err)
		}
		h.close()
	}
}

// watch schedules the release of h once its session has completed.
func (s *Server) watch(h *host) {
	if h.ctrl.Phase() != session.PhaseCompleted {
		return
	}
	h.expireOnce.Do(func() {
		s.backend.Clock.AfterFunc(s.backend.ResultRetention, func() { s.release(h) })
	})
}

// release drops h from the session table and disconnects its frontends.
func (s *Server) release(h *host) {
	s.mu.Lock()
	if cur, ok := s.hosts[h.id]; ok && cur == h {
		delete(s.hosts, h.id)
	}
	s.mu.Unlock()
	h.close()
	slog.Info("completed session released", "session_id", h.id)
}

func (s *Server) host(id string) (*host, error) {
	s.mu.RLock()
	h, ok := s.hosts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.Newf(apperrors.NotFound, "session %s not found", id)
	}
	return h, nil
}

// PersonaInfo describes a persona to clients.
type PersonaInfo struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	QuestionTimeLimit float64 `json:"question_time_limit_seconds"`
	AnalyticsEnabled  bool    `json:"analytics_enabled"`
}

func (s *Server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	personas := s.backend.Options.Personas
	out := make([]PersonaInfo, 0, len(personas))
	for _, name := range personas.Names() {
		p, _ := personas.Lookup(name)
		out = append(out, PersonaInfo{
			Name:              p.Name,
			Description:       p.Description,
			QuestionTimeLimit: p.QuestionTimeLimit.Seconds(),
			AnalyticsEnabled:  p.AnalyticsEnabled,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, out)
}

// CreateRequest starts a session.
type CreateRequest struct {
	PlanID  string `json:"plan_id"`
	Persona string `json:"persona"`
	Role    string `json:"role"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "http_create_session")
	defer span.End()

	var req CreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, span.Fail(err))
		return
	}
	h := s.newHost(req.Role)
	if err := h.ctrl.Start(ctx, req.PlanID, req.Persona); err != nil {
		h.close()
		writeError(w, span.Fail(err))
		return
	}
	h.id = h.ctrl.SessionID()
	s.mu.Lock()
	s.hosts[h.id] = h
	s.mu.Unlock()
	go h.pump(s.watch)

	trace.Logger(trace.WithSession(ctx, h.id)).Info("session created", "persona", req.Persona, "role", req.Role)
	writeJSON(w, http.StatusCreated, h.ctrl.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h, err := s.host(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h, err := s.host(id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	delete(s.hosts, id)
	s.mu.Unlock()
	endErr := h.ctrl.End(r.Context())
	h.close()
	if endErr != nil {
		writeError(w, endErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	h, err := s.host(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.ctrl.Result()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InputRequest carries typed candidate input.
type InputRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	h, err := s.host(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	action := r.PathValue("action")
	ctx, span := trace.StartSpan(trace.WithSession(r.Context(), h.id), "http_"+action)
	defer span.End()

	switch action {
	case "input":
		var req InputRequest
		if err = decode(w, r, &req); err == nil {
			err = h.ctrl.SubmitInput(ctx, req.Text)
		}
	case "skip":
		err = h.ctrl.Skip(ctx)
	case "pause":
		err = h.ctrl.Pause(ctx)
	case "resume":
		err = h.ctrl.Resume(ctx)
	case "end":
		err = h.ctrl.End(ctx)
	case "listen":
		err = h.ctrl.Listen()
	case "mic":
		writeJSON(w, http.StatusOK, map[string]bool{"mic_enabled": h.ctrl.ToggleMic()})
		return
	default:
		err = apperrors.Newf(apperrors.NotFound, "unknown action %q", action)
	}
	if err != nil {
		writeError(w, span.Fail(err))
		return
	}
	s.watch(h)
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	if s.backend.Store == nil {
		writeError(w, apperrors.New(apperrors.NotFound, "recordings are not stored"))
		return
	}
	id := r.PathValue("id")
	rec, err := s.backend.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, apperrors.Newf(apperrors.NotFound, "no recording for session %s", id))
		return
	}
	w.Header().Set("Content-Type", rec.MIMEType)
	w.Header().Set("X-Recording-Duration-Ms", formatMillis(rec.Duration))
	_, _ = w.Write(rec.Data)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidArgument, "malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response", "error", err)
	}
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error session.ErrorInfo `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(apperrors.CodeOf(err)), ErrorResponse{Error: session.NewErrorInfo(err)})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.InvalidArgument, apperrors.CaptureInvalid:
		return http.StatusBadRequest
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.InvalidPhase, apperrors.AlreadyAnswered:
		return http.StatusConflict
	case apperrors.PermissionDenied, apperrors.PermissionBlocked, apperrors.RecognitionNotAllowed:
		return http.StatusForbidden
	case apperrors.Network:
		return http.StatusBadGateway
	case apperrors.DeviceNotFound, apperrors.DeviceInUse, apperrors.DeviceConstraint, apperrors.RecognitionUnsupported:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
