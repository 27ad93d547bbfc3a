package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenSource captures a display instead of a camera.
type ScreenSource struct {
	Display int
}

func (s *ScreenSource) Name() string { return "screen" }

func (s *ScreenSource) Open(_ context.Context) (FrameStream, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active display")
	}
	if s.Display < 0 || s.Display >= n {
		return nil, fmt.Errorf("display %d out of range (have %d)", s.Display, n)
	}
	return screenStream{display: s.Display}, nil
}

type screenStream struct{ display int }

func (s screenStream) Frame(_ context.Context) (image.Image, error) {
	img, err := screenshot.CaptureDisplay(s.display)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (screenStream) Close() error { return nil }
