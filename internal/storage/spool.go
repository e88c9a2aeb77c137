package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Spool writes uploaded request binaries to temp files on the local
// filesystem so they can be handed to the upload client and the frame
// extractor by path. Spooled files live for one request: the returned cleanup
// func removes them unconditionally, success or failure. Cleanup is
// best-effort; a crash between spool and cleanup can leak a temp file.
type Spool struct {
	dir string
}

// NewSpool initializes a Spool rooted at dir (created if missing).
func NewSpool(dir string) (*Spool, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: spool dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure spool dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the configured spool directory.
func (s *Spool) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Save streams r into a fresh temp file carrying the given extension and
// returns its path together with a cleanup func the caller must defer.
func (s *Spool) Save(r io.Reader, ext string) (path string, cleanup func(), err error) {
	if s == nil {
		return "", nil, errors.New("storage: no spool configured")
	}
	ext, err = sanitizeExt(ext)
	if err != nil {
		return "", nil, err
	}

	path = filepath.Join(s.dir, "sop-upload-"+uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("storage: create spool file: %w", err)
	}

	cleanup = func() { _ = os.Remove(path) }

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("storage: write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("storage: close spool file: %w", err)
	}
	return path, cleanup, nil
}

// sanitizeExt normalizes a file extension and rejects anything that could
// escape the spool directory or smuggle separators into the filename.
func sanitizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return "", errors.New("storage: extension is required")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext[1:], "./\\") {
		return "", fmt.Errorf("storage: invalid extension %q", ext)
	}
	return ext, nil
}
