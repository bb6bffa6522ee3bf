// Package playback serves camera files to the editor: MP4 and LRV previews
// with byte-range support and THM thumbnails.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrFileMissing = errors.New("file not found")

// GoPro sidecar extensions mime does not know: LRV is an MP4 proxy and THM
// a JPEG.
var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".lrv": "video/mp4",
	".mov": "video/quicktime",
	".thm": "image/jpeg",
}

// ContentType resolves the response type of a camera file.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// ServeFile streams filePath, answering Range and conditional requests. It
// returns ErrFileMissing before writing anything if the file is gone.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrFileMissing
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return ErrFileMissing
	}

	w.Header().Set("Content-Type", ContentType(filePath))
	// The editor page may be served from another local origin.
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")

	s.logger.Debug("serving file", "file", filepath.Base(filePath), "size", stat.Size(), "range", r.Header.Get("Range"))
	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
	return nil
}
