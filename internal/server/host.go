package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/interview-coach/internal/capture"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/session"
	"github.com/GriffinCanCode/interview-coach/internal/speech"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Message is the envelope of every WebSocket message.
type Message struct {
	Type string `json:"type"`
}

type InputMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type TranscriptMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type RecognitionEndMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type RecognitionSupportMessage struct {
	Type      string `json:"type"`
	Supported bool   `json:"supported"`
}

type SpeechDoneMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type PermissionMessage struct {
	Type  string                  `json:"type"`
	Kind  capture.Kind            `json:"kind"`
	State capture.PermissionState `json:"state"`
}

type TracksMessage struct {
	Type     string          `json:"type"`
	Tracks   []capture.Track `json:"tracks"`
	MIMEType string          `json:"mime_type"`
}

type TrackMessage struct {
	Type    string       `json:"type"`
	Kind    capture.Kind `json:"kind"`
	Live    bool         `json:"live"`
	Enabled bool         `json:"enabled"`
}

// FrameMessage carries a JPEG frame; MediaMessage an encoded media chunk.
// Data is base64 in JSON.
type FrameMessage struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

type MediaMessage struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

type AudioMessage struct {
	Type       string    `json:"type"`
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// CommandMessage asks the frontend to speak or listen.
type CommandMessage struct {
	Type    string         `json:"type"`
	Command speech.Command `json:"command"`
}

type ErrorMessage struct {
	Type  string            `json:"type"`
	Error session.ErrorInfo `json:"error"`
}

type SnapshotMessage struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// host is one session and the frontends connected to it.
type host struct {
	id      string
	ctrl    *session.Controller
	devices *capture.RemoteDevices
	synth   *speech.RemoteSynthesizer
	rec     *speech.RemoteRecognizer

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}

	done       chan struct{}
	closeOnce  sync.Once
	expireOnce sync.Once
}

func (s *Server) newHost(role string) *host {
	b := s.backend
	h := &host{conns: make(map[*websocket.Conn]struct{}), done: make(chan struct{})}
	h.rec = speech.NewRemoteRecognizer(h.send)

	synth := b.LocalSynth
	if synth == nil {
		h.synth = speech.NewRemoteSynthesizer(h.send)
		synth = h.synth
	}
	var devices capture.Devices
	if b.LocalDevices != nil {
		devices = b.LocalDevices()
	} else {
		h.devices = capture.NewRemoteDevices(b.Clock)
		devices = h.devices
	}

	opts := b.Options
	opts.Role = role
	h.ctrl = session.New(session.Deps{
		API:        b.API,
		Store:      b.Store,
		Devices:    devices,
		Synth:      synth,
		Recognizer: h.rec,
		Clock:      b.Clock,
	}, opts)
	return h
}

// close stops the event pump and drops every frontend connection.
func (h *host) close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.RLock()
		for c := range h.conns {
			_ = c.CloseNow()
		}
		h.mu.RUnlock()
	})
}

// pump forwards session events to every connected frontend. watch is called
// after each event so a completed session gets released.
func (h *host) pump(watch func(*host)) {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.ctrl.Events():
			h.broadcast(ev)
			watch(h)
		}
	}
}

// broadcast writes msg to every connection and returns how many there were.
// Writes are sequential so clients see events in order.
func (h *host) broadcast(msg any) int {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
		if err := wsjson.Write(ctx, c, msg); err != nil {
			slog.Debug("websocket write failed", "session_id", h.id, "error", err)
		}
		cancel()
	}
	return len(conns)
}

// send delivers a speech command to the frontend.
func (h *host) send(cmd speech.Command) error {
	if h.broadcast(CommandMessage{Type: MsgCommand, Command: cmd}) == 0 {
		return apperrors.New(apperrors.Network, "no frontend connected").WithMetadata("command", cmd.Type)
	}
	return nil
}

func (h *host) attach(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *host) detach(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h, err := s.host(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(MaxMessageBytes)

	baseCtx := trace.WithSession(r.Context(), h.id)
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	h.attach(conn)
	defer h.detach(conn)
	_ = wsjson.Write(baseCtx, conn, SnapshotMessage{Type: "snapshot", Snapshot: h.ctrl.Snapshot()})

	rl := &rateLimiter{}
	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: MsgRateLimited, Error: session.ErrorInfo{
				Code:    apperrors.InvalidArgument,
				Message: "rate limit exceeded",
			}})
			continue
		}

		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(msg); ok {
			ctx = trace.WithContext(ctx, tc)
		}
		if err := h.dispatch(ctx, msg); err != nil {
			trace.Logger(ctx).Debug("websocket message rejected", "error", err)
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: MsgError, Error: session.NewErrorInfo(err)})
		}
	}
}

func (h *host) dispatch(ctx context.Context, raw json.RawMessage) error {
	var base Message
	if err := json.Unmarshal(raw, &base); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidArgument, "malformed message")
	}
	unmarshal := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return apperrors.Wrapf(err, apperrors.InvalidArgument, "malformed %s message", base.Type)
		}
		return nil
	}

	switch base.Type {
	case MsgInput:
		var m InputMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		return h.ctrl.SubmitInput(ctx, m.Text)
	case MsgListen:
		return h.ctrl.Listen()
	case MsgMicToggle:
		h.ctrl.ToggleMic()
		return nil
	case MsgTranscript:
		var m TranscriptMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		if !h.rec.Deliver(m.ID, m.Text, m.Final) {
			slog.Debug("transcript for inactive recognition", "id", m.ID)
		}
		return nil
	case MsgRecognitionEnd:
		var m RecognitionEndMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		h.rec.End(m.ID, m.Error)
		return nil
	case MsgRecognitionSupport:
		var m RecognitionSupportMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		h.rec.SetSupported(m.Supported)
		return nil
	case MsgSpeechDone:
		var m SpeechDoneMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		if h.synth != nil {
			h.synth.SpeechDone(m.ID)
		}
		return nil
	}
	return h.dispatchCapture(ctx, base.Type, unmarshal)
}

func (h *host) dispatchCapture(ctx context.Context, typ string, unmarshal func(any) error) error {
	if h.devices == nil {
		switch typ {
		case MsgPermission, MsgTracks, MsgTrack, MsgFrame, MsgAudio, MsgMedia:
			return apperrors.New(apperrors.CaptureInvalid, "capture runs on the server for this session")
		}
		return apperrors.Newf(apperrors.InvalidArgument, "unknown message type %q", typ)
	}

	switch typ {
	case MsgPermission:
		var m PermissionMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		h.devices.SetPermission(m.Kind, m.State)
		return nil
	case MsgTracks:
		var m TracksMessage
		if err := unmarshal(&m); err != nil {
			return err
		}
		h.devices.Announce(m.Tracks, m.MIMEType)
		return nil
	}

	stream := h.devices.Stream()
	switch typ {
	case MsgTrack:
		var m TrackMessage
		if err := unmarshal(&m); err != nil || stream == nil {
			return err
		}
		stream.SetTrack(m.Kind, m.Live, m.Enabled)
	case MsgFrame:
		var m FrameMessage
		if err := unmarshal(&m); err != nil || stream == nil {
			return err
		}
		return stream.PushJPEG(m.Data)
	case MsgAudio:
		var m AudioMessage
		if err := unmarshal(&m); err != nil || stream == nil {
			return err
		}
		stream.PushAudio(m.Samples, m.SampleRate)
	case MsgMedia:
		var m MediaMessage
		if err := unmarshal(&m); err != nil || stream == nil {
			return err
		}
		return stream.PushMedia(ctx, m.Data)
	default:
		return apperrors.Newf(apperrors.InvalidArgument, "unknown message type %q", typ)
	}
	return nil
}
