package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// Microphone is an audio device that can be opened for recording.
type Microphone interface {
	Open(ctx context.Context) (AudioStream, error)
}

// AudioStream yields recorded bytes until it is closed. Read returns
// io.EOF once the device has flushed everything after Close.
type AudioStream interface {
	io.Reader
	// MediaType of the encoded audio, e.g. "audio/webm".
	MediaType() string
	Close() error
}

// DefaultMicrophoneCommand returns the platform command that records the
// default input device as webm/opus to stdout until interrupted.
func DefaultMicrophoneCommand() []string {
	input := []string{"-f", "pulse", "-i", "default"}
	switch runtime.GOOS {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		input = []string{"-f", "dshow", "-i", "audio=Microphone"}
	}
	argv := append([]string{"ffmpeg", "-loglevel", "error"}, input...)
	return append(argv, "-c:a", "libopus", "-f", "webm", "-")
}

// CommandMicrophone records by running an external program that streams
// encoded audio to stdout until it receives an interrupt.
type CommandMicrophone struct {
	Argv      []string
	Format    string
	GraceTime time.Duration
}

// NewCommandMicrophone uses argv, or the platform default when argv is empty.
func NewCommandMicrophone(argv []string) *CommandMicrophone {
	if len(argv) == 0 {
		argv = DefaultMicrophoneCommand()
	}
	return &CommandMicrophone{Argv: argv, Format: "audio/webm", GraceTime: 3 * time.Second}
}

func (m *CommandMicrophone) Open(ctx context.Context) (AudioStream, error) {
	if len(m.Argv) == 0 {
		return nil, fmt.Errorf("no microphone command configured")
	}
	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, m.Argv[0], m.Argv[1:]...)
	cmd.Stdout = pw
	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", m.Argv[0], err)
	}

	s := &commandAudioStream{
		cmd:    cmd,
		stdin:  stdin,
		pr:     pr,
		format: m.Format,
		grace:  m.GraceTime,
		done:   make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		// An interrupted recorder exits non-zero; the bytes are still good.
		if err != nil && !s.stopping() {
			pw.CloseWithError(err)
		} else {
			pw.Close()
		}
		close(s.done)
	}()
	return s, nil
}

type commandAudioStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	pr     *io.PipeReader
	format string
	grace  time.Duration
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (s *commandAudioStream) Read(p []byte) (int, error) { return s.pr.Read(p) }

func (s *commandAudioStream) MediaType() string { return s.format }

func (s *commandAudioStream) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Close asks the recorder to finish; it is killed if it has not exited
// within the grace period. The reader keeps draining until EOF.
func (s *commandAudioStream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}
	if err := s.interrupt(); err != nil {
		_ = s.cmd.Process.Kill()
		return nil
	}
	go func() {
		select {
		case <-s.done:
		case <-time.After(s.grace):
			_ = s.cmd.Process.Kill()
		}
	}()
	return nil
}

// interrupt asks the recorder to flush and exit. Windows cannot deliver
// os.Interrupt to a child, so there ffmpeg gets its "q" quit key on stdin.
func (s *commandAudioStream) interrupt() error {
	if runtime.GOOS == "windows" {
		_, err := io.WriteString(s.stdin, "q")
		return err
	}
	return s.cmd.Process.Signal(os.Interrupt)
}
