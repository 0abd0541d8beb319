package speech

import (
	"context"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// Command types sent to a browser client that performs speech on our behalf.
const (
	CmdSpeak          = "speak"
	CmdCancelSpeech   = "cancel_speech"
	CmdStartListening = "start_listening"
	CmdStopListening  = "stop_listening"
)

// Command is an instruction for the remote speech client.
type Command struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

// Sender delivers a command to the remote client.
type Sender func(Command) error

// RemoteSynthesizer asks the client to speak and waits for it to report
// completion through SpeechDone.
type RemoteSynthesizer struct {
	send Sender

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewRemoteSynthesizer creates a synthesizer that speaks through send.
func NewRemoteSynthesizer(send Sender) *RemoteSynthesizer {
	return &RemoteSynthesizer{send: send, pending: make(map[string]chan struct{})}
}

// Speak implements Synthesizer.
func (s *RemoteSynthesizer) Speak(ctx context.Context, text string) error {
	id := uuid.NewString()
	done := make(chan struct{})
	s.mu.Lock()
	s.pending[id] = done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.send(Command{Type: CmdSpeak, ID: id, Text: text}); err != nil {
		return apperrors.Wrap(err, apperrors.Network, "send speech to client")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		_ = s.send(Command{Type: CmdCancelSpeech, ID: id})
		return ctx.Err()
	}
}

// SpeechDone marks utterance id as finished. Unknown ids are ignored.
func (s *RemoteSynthesizer) SpeechDone(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, ok := s.pending[id]
	if ok {
		close(done)
		delete(s.pending, id)
	}
	return ok
}

type remoteSession struct {
	id       string
	onResult func(Result)
	end      chan error
}

// RemoteRecognizer relays recognition sessions run by the client. Results
// arrive through Deliver and the session end through End.
type RemoteRecognizer struct {
	send Sender

	mu        sync.Mutex
	supported bool
	active    *remoteSession
}

// NewRemoteRecognizer creates a recognizer. It reports unsupported until the
// client says otherwise.
func NewRemoteRecognizer(send Sender) *RemoteRecognizer {
	return &RemoteRecognizer{send: send}
}

// SetSupported records whether the client can recognize speech.
func (r *RemoteRecognizer) SetSupported(ok bool) {
	r.mu.Lock()
	r.supported = ok
	r.mu.Unlock()
}

// Supported implements Recognizer.
func (r *RemoteRecognizer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supported
}

// Recognize implements Recognizer.
func (r *RemoteRecognizer) Recognize(ctx context.Context, onResult func(Result)) error {
	sess := &remoteSession{id: uuid.NewString(), onResult: onResult, end: make(chan error, 1)}
	r.mu.Lock()
	if !r.supported {
		r.mu.Unlock()
		return apperrors.New(apperrors.RecognitionUnsupported, "client cannot recognize speech")
	}
	r.active = sess
	r.mu.Unlock()
	defer r.clear(sess)

	if err := r.send(Command{Type: CmdStartListening, ID: sess.id}); err != nil {
		return apperrors.Wrap(err, apperrors.RecognitionAborted, "send listen request to client")
	}
	select {
	case err := <-sess.end:
		return err
	case <-ctx.Done():
		_ = r.send(Command{Type: CmdStopListening, ID: sess.id})
		return ctx.Err()
	}
}

// ActiveID returns the id of the running session, or "".
func (r *RemoteRecognizer) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return r.active.id
}

// Deliver forwards a transcript update for session id. Updates for stale
// sessions are dropped.
func (r *RemoteRecognizer) Deliver(id, text string, final bool) bool {
	sess := r.lookup(id)
	if sess == nil {
		return false
	}
	sess.onResult(Result{Text: text, Final: final})
	return true
}

// End finishes session id. code is empty for a normal end or a browser
// recognition error name such as "no-speech" or "not-allowed".
func (r *RemoteRecognizer) End(id, code string) bool {
	sess := r.lookup(id)
	if sess == nil {
		return false
	}
	select {
	case sess.end <- recognitionError(code):
	default:
	}
	return true
}

func (r *RemoteRecognizer) lookup(id string) *remoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.id != id {
		return nil
	}
	return r.active
}

func (r *RemoteRecognizer) clear(sess *remoteSession) {
	r.mu.Lock()
	if r.active == sess {
		r.active = nil
	}
	r.mu.Unlock()
}

func recognitionError(code string) error {
	switch code {
	case "":
		return nil
	case "no-speech":
		return apperrors.New(apperrors.RecognitionNoSpeech, "no speech detected")
	case "not-allowed", "service-not-allowed", "audio-capture":
		return apperrors.New(apperrors.RecognitionNotAllowed, "speech recognition not allowed").WithMetadata("reason", code)
	}
	return apperrors.New(apperrors.RecognitionAborted, "speech recognition aborted").WithMetadata("reason", code)
}
