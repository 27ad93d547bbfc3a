package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/quipcam/quipcam/internal/apperr"
)

const chunkSize = 32 * 1024

// Recording is the concatenated audio of one recording.
type Recording struct {
	Data      []byte
	MediaType string
}

// Recorder buffers audio chunks from a microphone between Start and Stop.
type Recorder struct {
	mu     sync.Mutex
	stream AudioStream
	chunks [][]byte
	done   chan struct{}
	err    error
}

// NewRecorder creates an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Start acquires the microphone and begins buffering. ctx bounds the whole
// recording, not just the call.
func (r *Recorder) Start(ctx context.Context, mic Microphone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return apperr.Validation("Recording already in progress.")
	}

	stream, err := mic.Open(ctx)
	if err != nil {
		return err
	}
	r.stream = stream
	r.chunks = nil
	r.err = nil
	r.done = make(chan struct{})
	go r.read(stream, r.done)
	return nil
}

func (r *Recorder) read(stream AudioStream, done chan struct{}) {
	defer close(done)
	for {
		buf := make([]byte, chunkSize)
		n, err := stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.chunks = append(r.chunks, buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop releases the microphone, waits for the last chunk, and returns the
// chunks joined into one blob.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	stream, done := r.stream, r.done
	r.mu.Unlock()
	if stream == nil {
		return Recording{}, apperr.Validation("No recording in progress.")
	}

	closeErr := stream.Close()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := Recording{Data: bytes.Join(r.chunks, nil), MediaType: stream.MediaType()}
	readErr := r.err
	r.stream, r.chunks, r.done, r.err = nil, nil, nil, nil

	if readErr != nil {
		return Recording{}, readErr
	}
	if closeErr != nil {
		return Recording{}, closeErr
	}
	return rec, nil
}

// FinishRecording stops rec and stores the audio as the pending input.
// An empty recording leaves the session unchanged.
func (s *Session) FinishRecording(rec *Recorder) error {
	recording, err := rec.Stop()
	if err != nil {
		return err
	}
	if len(recording.Data) == 0 {
		return apperr.Validation(MsgEmptyRecording)
	}
	s.SetSpeech(recording.Data, recording.MediaType)
	return nil
}
