// Package storage keeps uploaded proofs and rendered invoices on local disk.
// Paths handed out and accepted are relative to the store root.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	ProofsDir   = "proofs"
	InvoicesDir = "invoices"
)

var (
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG or PDF")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidPath     = errors.New("invalid storage path")
)

// allowedUploads maps sniffed MIME types to the extension stored on disk.
var allowedUploads = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	for _, dir := range []string{ProofsDir, InvoicesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Path resolves a relative path under the root, refusing anything that escapes it.
func (s *Store) Path(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}

// SaveUpload sniffs the content, enforces maxBytes and writes the file under dir
// with a random name. It returns the relative path and the detected MIME type.
func (s *Store) SaveUpload(dir string, r io.Reader, maxBytes int64) (string, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if int64(len(data)) > maxBytes {
		return "", "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ext := ""
	for mime, e := range allowedUploads {
		if mt.Is(mime) {
			ext = e
			break
		}
	}
	if ext == "" {
		return "", "", ErrUnsupportedType
	}

	rel := filepath.ToSlash(filepath.Join(dir, uuid.NewString()+ext))
	if err := s.Write(rel, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}); err != nil {
		return "", "", err
	}
	return rel, mt.String(), nil
}

// Write creates or truncates rel and fills it through fn. A partial file is
// removed when fn fails.
func (s *Store) Write(rel string, fn func(w io.Writer) error) error {
	full, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return fmt.Errorf("close %s: %w", rel, err)
	}
	return nil
}

func (s *Store) Open(rel string) (*os.File, error) {
	full, err := s.Path(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *Store) Exists(rel string) bool {
	full, err := s.Path(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Remove deletes rel; a missing file is not an error.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// Count returns the number of regular files under dir.
func (s *Store) Count(dir string) (int, error) {
	full, err := s.Path(dir)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n, nil
}
