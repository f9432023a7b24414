package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"
)

var (
	ErrCameraBusy   = errors.New("camera is already in use")
	ErrStreamClosed = errors.New("stream is closed")
)

// FileCamera is a camera backed by an image file on disk. Like a real device
// it can only be held by one stream at a time. The file has a single "lens"
// so the requested facing is ignored.
type FileCamera struct {
	Path string

	mu   sync.Mutex
	busy bool
}

func NewFileCamera(path string) *FileCamera {
	return &FileCamera{Path: path}
}

func (c *FileCamera) Open(ctx context.Context, _ Facing) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return nil, ErrCameraBusy
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s, %w", c.Path, err)
	}

	c.busy = true
	return &fileStream{cam: c, img: img}, nil
}

func (c *FileCamera) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

type fileStream struct {
	cam *FileCamera
	img image.Image

	mu     sync.Mutex
	closed bool
}

func (s *fileStream) Still(quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStreamClosed
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.cam.release()
	return nil
}
