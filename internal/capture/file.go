package capture

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/framecast/framecast/internal/models"
)

// Extensions accepted without content sniffing. Anything else is sniffed.
var mediaExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".heic": "image/heic",
}

// detectMIME validates that the file is a video/* or image/* media type,
// first by extension, then by sniffing the leading bytes.
func detectMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mediaExtensions[ext]; ok {
		return mime, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}

	mime := http.DetectContentType(buf[:n])
	if strings.HasPrefix(mime, "video/") || strings.HasPrefix(mime, "image/") {
		return mime, nil
	}

	return "", fmt.Errorf("content type %s is neither video nor image", mime)
}

// openFile validates and probes an uploaded media file. The source's
// orientation comes from the file's own intrinsic dimensions, never from the
// current screen orientation: a landscape clip imported on a portrait device
// still exports landscape.
func openFile(path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	mime, err := detectMIME(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	info, err := probeMedia(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	return &Source{
		Mode:        models.ModeUpload,
		Orientation: models.OrientationFromDimensions(info.Width, info.Height),
		Width:       info.Width,
		Height:      info.Height,
		FPS:         info.FPS,
		Duration:    info.Duration,
		HasAudio:    info.HasAudio,
		Path:        path,
		IsImage:     strings.HasPrefix(mime, "image/"),
	}, nil
}
