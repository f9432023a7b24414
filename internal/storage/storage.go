// Package storage keeps uploaded blobs outside of the database. Records only
// reference blobs by key
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid blob key")
	ErrNotFound   = errors.New("blob not found")
)

// Store is implemented by every storage backend
type Store interface {
	// Put writes body under key. size may be -1 if unknown
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Delete removes the blob stored under key
	Delete(ctx context.Context, key string) error
	// Serve writes the blob to w, either directly or by redirecting
	Serve(w http.ResponseWriter, r *http.Request, key string)
}

// ValidKey reports whether key is a single, plain path element
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}

	return path.Base(key) == key && !strings.ContainsAny(key, `/\`)
}
