package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// FrameSource is a video device that can be opened for a single frame.
type FrameSource interface {
	// Name is shown in status messages.
	Name() string
	Open(ctx context.Context) (FrameStream, error)
}

// FrameStream is an acquired device. Close releases it.
type FrameStream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// CaptureCamera acquires src, renders one frame to an offscreen bitmap and
// releases the device. The PNG is stored only once the device is released.
func (s *Session) CaptureCamera(ctx context.Context, src FrameSource) error {
	stream, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("Error starting %s. Please check permissions: %w", src.Name(), err)
	}

	data, err := grabPNG(ctx, stream)
	if err != nil {
		err = fmt.Errorf("capture frame from %s: %w", src.Name(), err)
	}
	if cerr := stream.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("release %s: %w", src.Name(), cerr)
	}
	if err != nil {
		return err
	}
	s.SetImage(data, "image/png", src.Name()+".png")
	return nil
}

func grabPNG(ctx context.Context, stream FrameStream) ([]byte, error) {
	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, err
	}
	return encodePNG(frame)
}

// encodePNG draws img onto a fresh RGBA canvas the size of the frame and
// encodes the canvas.
func encodePNG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DefaultCameraCommand returns the platform command that writes one
// encoded frame from the default camera to stdout.
func DefaultCameraCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"ffmpeg", "-loglevel", "error", "-f", "avfoundation", "-framerate", "30",
			"-i", "0", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"}
	case "windows":
		return []string{"ffmpeg", "-loglevel", "error", "-f", "dshow", "-i", "video=Integrated Camera",
			"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"}
	default:
		return []string{"ffmpeg", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0",
			"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"}
	}
}

// CommandCamera captures frames by running an external program that
// writes one encoded image to stdout.
type CommandCamera struct {
	Argv []string
}

// NewCommandCamera uses argv, or the platform default when argv is empty.
func NewCommandCamera(argv []string) *CommandCamera {
	if len(argv) == 0 {
		argv = DefaultCameraCommand()
	}
	return &CommandCamera{Argv: argv}
}

func (c *CommandCamera) Name() string { return "camera" }

func (c *CommandCamera) Open(ctx context.Context) (FrameStream, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("no camera command configured")
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Children of the capture program may keep stderr open after a kill.
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Argv[0], err)
	}
	return &commandFrameStream{cmd: cmd, stdout: stdout, stderr: &stderr}, nil
}

type commandFrameStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	framed bool
	closed bool
}

// Frame decodes the first image the program writes. On failure the
// program is killed and its stderr is appended to the error.
func (s *commandFrameStream) Frame(_ context.Context) (image.Image, error) {
	img, _, err := image.Decode(s.stdout)
	if err != nil {
		_ = s.release(true)
		if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
			return nil, fmt.Errorf("decode frame: %w (%s)", err, msg)
		}
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	s.framed = true
	return img, nil
}

// Close lets a program that delivered its frame finish, and kills one
// that did not.
func (s *commandFrameStream) Close() error {
	return s.release(!s.framed)
}

func (s *commandFrameStream) release(kill bool) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if kill {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
		return nil
	}
	// Drain anything left so the program is not blocked writing.
	_, _ = io.Copy(io.Discard, s.stdout)
	if err := s.cmd.Wait(); err != nil {
		if s.cmd.ProcessState != nil && s.cmd.ProcessState.Exited() {
			if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w (%s)", s.cmd.Path, err, msg)
			}
			return fmt.Errorf("%s: %w", s.cmd.Path, err)
		}
	}
	return nil
}
