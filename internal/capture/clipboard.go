package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ClipboardSource reads an image from the system clipboard.
// macOS: uses osascript to write the clipboard to a temp PNG, then reads it.
// Linux: uses xclip to read PNG data from the clipboard.
type ClipboardSource struct{}

func (ClipboardSource) Name() string { return "clipboard" }

func (ClipboardSource) Open(_ context.Context) (FrameStream, error) {
	switch runtime.GOOS {
	case "darwin", "linux":
		return &clipboardStream{}, nil
	default:
		return nil, fmt.Errorf("clipboard image not supported on %s", runtime.GOOS)
	}
}

type clipboardStream struct {
	tmpPath string
}

func (c *clipboardStream) Frame(ctx context.Context) (image.Image, error) {
	var (
		data []byte
		err  error
	)
	if runtime.GOOS == "darwin" {
		data, err = c.readMac(ctx)
	} else {
		data, err = readClipboardLinux(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("clipboard image is empty")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode clipboard image: %w", err)
	}
	return img, nil
}

func (c *clipboardStream) readMac(ctx context.Context) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "quipcam-clip-*.png")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}
	c.tmpPath = tmpFile.Name()
	tmpFile.Close()

	script := fmt.Sprintf(`
		set imgData to the clipboard as «class PNGf»
		set fp to open for access POSIX file %q with write permission
		write imgData to fp
		close access fp
	`, c.tmpPath)

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("no image in clipboard: %s", strings.TrimSpace(string(out)))
	}
	return os.ReadFile(c.tmpPath)
}

func readClipboardLinux(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "xclip", "-selection", "clipboard", "-t", "image/png", "-o")
	data, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("no image in clipboard (install xclip): %w", err)
	}
	return data, nil
}

// Close removes the temp file used on macOS.
func (c *clipboardStream) Close() error {
	if c.tmpPath == "" {
		return nil
	}
	err := os.Remove(c.tmpPath)
	c.tmpPath = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
