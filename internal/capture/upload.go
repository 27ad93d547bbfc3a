package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/quipcam/quipcam/internal/apperr"
)

// Upload reads an image file into the session. Anything whose content is
// not an image is rejected and the session is left as it was.
func (s *Session) Upload(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("Error reading image file: %w", err)
	}
	if info.IsDir() {
		return apperr.Validation(MsgInvalidImage)
	}
	if s.maxUpload > 0 && info.Size() > s.maxUpload {
		return apperr.Validationf("Image too large: %d bytes (max %d).", info.Size(), s.maxUpload)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("Error reading image file: %w", err)
	}
	mediaType := mt.String()
	if !strings.HasPrefix(mediaType, "image/") {
		return apperr.Validation(MsgInvalidImage)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Error reading image file: %w", err)
	}
	s.SetImage(data, mediaType, filepath.Base(path))
	return nil
}
