// Package capture drives the photo capture flow on the client: acquire the
// camera, grab a still, collect a rating and comment, submit, show the result
// and start over.
package capture

import (
	"bitwise74/capture-api/validators"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// JPEGQuality is used for every captured still
	JPEGQuality = 80
	// DefaultRating is preselected after every capture
	DefaultRating = 50
)

var (
	ErrWrongState     = errors.New("operation not allowed in current state")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

type State int

const (
	CameraAcquiring State = iota
	LivePreview
	Captured
	Submitting
	Result
)

func (s State) String() string {
	switch s {
	case CameraAcquiring:
		return "camera_acquiring"
	case LivePreview:
		return "live_preview"
	case Captured:
		return "captured"
	case Submitting:
		return "submitting"
	case Result:
		return "result"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Facing selects which camera to open when the device has more than one
type Facing int

const (
	FacingEnvironment Facing = iota
	FacingUser
)

// Camera hands out exclusive access to a capture device
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open camera. It must be closed to release the device
type Stream interface {
	// Still returns the current frame encoded as JPEG
	Still(quality int) ([]byte, error)
	Close() error
}

// Submission is what gets sent for analysis
type Submission struct {
	Image   []byte
	Comment string
	Rating  int
}

// Submitter sends a submission and returns the analysis text
type Submitter interface {
	Submit(ctx context.Context, s Submission) (string, error)
}

// Workflow is the capture state machine. It's safe for concurrent use, but
// only one submission can be pending at a time.
type Workflow struct {
	camera    Camera
	submitter Submitter

	mu      sync.Mutex
	state   State
	stream  Stream
	frame   []byte
	rating  int
	comment string
	result  string
	err     error
}

func New(camera Camera, submitter Submitter) *Workflow {
	return &Workflow{
		camera:    camera,
		submitter: submitter,
		state:     CameraAcquiring,
		rating:    DefaultRating,
	}
}

// Start acquires the rear camera and moves to LivePreview. A failure is
// recorded in Err and the workflow stays in CameraAcquiring, it's up to the
// caller to try again.
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.start(ctx)
}

func (w *Workflow) start(ctx context.Context) error {
	if w.state != CameraAcquiring || w.stream != nil {
		return w.wrongState("start")
	}

	stream, err := w.camera.Open(ctx, FacingEnvironment)
	if err != nil {
		w.err = fmt.Errorf("failed to acquire camera, %w", err)
		return w.err
	}

	w.stream = stream
	w.err = nil
	w.state = LivePreview
	return nil
}

// Capture freezes the current frame and releases the camera. The camera is
// released even if grabbing the frame fails, in which case the workflow goes
// back to CameraAcquiring.
func (w *Workflow) Capture() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != LivePreview {
		return w.wrongState("capture")
	}

	frame, err := w.still()
	if err != nil {
		w.state = CameraAcquiring
		w.err = fmt.Errorf("failed to capture frame, %w", err)
		return w.err
	}

	w.frame = frame
	w.rating = DefaultRating
	w.comment = ""
	w.err = nil
	w.state = Captured
	return nil
}

func (w *Workflow) still() ([]byte, error) {
	stream := w.stream
	w.stream = nil

	defer func() {
		if err := stream.Close(); err != nil {
			zap.L().Warn("Failed to release camera", zap.Error(err))
		}
	}()

	return stream.Still(JPEGQuality)
}

// Annotate sets the rating and comment. Only allowed while Captured
func (w *Workflow) Annotate(rating int, comment string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Captured {
		return w.wrongState("annotate")
	}

	if rating < validators.MinRating || rating > validators.MaxRating {
		return validators.ErrRatingRange
	}

	w.rating = rating
	w.comment = comment
	return nil
}

// Submit sends the frame and annotation and blocks until the submitter
// returns. On failure the workflow stays in Captured so it can be retried.
func (w *Workflow) Submit(ctx context.Context) (string, error) {
	w.mu.Lock()
	switch w.state {
	case Captured:
	case Submitting:
		w.mu.Unlock()
		return "", ErrSubmitInFlight
	default:
		err := w.wrongState("submit")
		w.mu.Unlock()
		return "", err
	}

	s := Submission{
		Image:   w.frame,
		Comment: w.comment,
		Rating:  w.rating,
	}
	w.state = Submitting
	w.err = nil
	w.mu.Unlock()

	text, err := w.submitter.Submit(ctx, s)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.state = Captured
		w.err = fmt.Errorf("failed to submit, %w", err)
		return "", w.err
	}

	w.result = text
	w.state = Result
	return text, nil
}

// Retake drops the frame, annotation and result and acquires the camera again
func (w *Workflow) Retake(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Captured && w.state != Result {
		return w.wrongState("retake")
	}

	w.frame = nil
	w.rating = DefaultRating
	w.comment = ""
	w.result = ""
	w.err = nil
	w.state = CameraAcquiring

	return w.start(ctx)
}

// Close releases the camera if it's still held. The workflow can be started
// again afterwards.
func (w *Workflow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stream == nil {
		return nil
	}

	err := w.stream.Close()
	w.stream = nil
	w.state = CameraAcquiring
	return err
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Frame returns a copy of the captured still, nil before capture
func (w *Workflow) Frame() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return nil
	}

	return append([]byte(nil), w.frame...)
}

func (w *Workflow) Annotation() (int, string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rating, w.comment
}

func (w *Workflow) Result() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.result
}

// Err returns the last acquisition, capture or submission error
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.err
}

func (w *Workflow) wrongState(op string) error {
	return fmt.Errorf("%w: can't %s while %s", ErrWrongState, op, w.state)
}
