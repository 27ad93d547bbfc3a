// Package capture holds the single pending input awaiting submission and
// the producers that fill it: camera frames, uploaded image files, and
// recorded speech.
package capture

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/quipcam/quipcam/internal/apperr"
)

// Kind tags the pending input. The values are sent to the backend as "type".
type Kind string

const (
	KindImage  Kind = "image"
	KindSpeech Kind = "speech"
)

// State of the capture session.
type State int

const (
	StateEmpty State = iota
	StateHasImage
	StateHasSpeech
)

func (s State) String() string {
	switch s {
	case StateHasImage:
		return "has-image"
	case StateHasSpeech:
		return "has-speech"
	default:
		return "empty"
	}
}

// Messages shown for the session's own validation failures.
const (
	MsgNothingCaptured = "Please capture an image, upload an image, or record speech first."
	MsgInvalidImage    = "Please select a valid image file."
	MsgEmptyRecording  = "No audio was recorded."
)

// Input is one captured payload. Payload is base64 without a data: prefix.
type Input struct {
	Kind       Kind
	Payload    string
	MediaType  string
	Label      string
	CapturedAt time.Time
}

// Submitter sends a taken input to the backend.
type Submitter func(ctx context.Context, in Input) error

// Session holds at most one pending Input. A new capture overwrites the
// previous one.
type Session struct {
	mu        sync.Mutex
	pending   *Input
	maxUpload int64
	now       func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithMaxUpload caps the size of uploaded files in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Session) { s.maxUpload = n }
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		maxUpload: 20 * 1024 * 1024,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateOf(s.pending)
}

func stateOf(in *Input) State {
	switch {
	case in == nil:
		return StateEmpty
	case in.Kind == KindSpeech:
		return StateHasSpeech
	default:
		return StateHasImage
	}
}

// Pending returns a copy of the pending input.
func (s *Session) Pending() (Input, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Input{}, false
	}
	return *s.pending, true
}

// SetImage stores encoded image bytes as the pending input.
func (s *Session) SetImage(data []byte, mediaType, label string) {
	s.set(KindImage, data, mediaType, label)
}

// SetSpeech stores recorded audio as the pending input.
func (s *Session) SetSpeech(data []byte, mediaType string) {
	s.set(KindSpeech, data, mediaType, "recording")
}

func (s *Session) set(kind Kind, data []byte, mediaType, label string) {
	in := &Input{
		Kind:       kind,
		Payload:    base64.StdEncoding.EncodeToString(data),
		MediaType:  mediaType,
		Label:      label,
		CapturedAt: s.now(),
	}
	s.mu.Lock()
	s.pending = in
	s.mu.Unlock()
}

// Take removes and returns the pending input.
func (s *Session) Take() (Input, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Input{}, false
	}
	in := *s.pending
	s.pending = nil
	return in, true
}

// Clear drops the pending input.
func (s *Session) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Submit takes the pending input and hands it to submit. The session is
// empty afterwards whatever submit returns, so a failed input is never
// resent silently. With nothing pending, submit is not called.
func (s *Session) Submit(ctx context.Context, submit Submitter) error {
	in, ok := s.Take()
	if !ok {
		return apperr.Validation(MsgNothingCaptured)
	}
	return submit(ctx, in)
}
