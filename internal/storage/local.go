package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// Local stores blobs as files in a single directory
type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory, %w", err)
	}

	return &Local{Dir: dir}, nil
}

func (l *Local) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	// O_EXCL so a colliding key never overwrites an existing blob
	f, err := os.OpenFile(filepath.Join(l.Dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create blob file, %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to write blob, %w", err)
	}

	return f.Close()
}

func (l *Local) Delete(_ context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	err := os.Remove(filepath.Join(l.Dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}

	return err
}

func (l *Local) Serve(w http.ResponseWriter, r *http.Request, key string) {
	if !ValidKey(key) {
		http.NotFound(w, r)
		return
	}

	p := filepath.Join(l.Dir, key)
	if _, err := os.Stat(p); err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, p)
}
