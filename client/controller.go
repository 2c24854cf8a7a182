package client

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxAttempts  = 60
	defaultPollInterval = time.Second
	defaultMaxFileSize  = 50 << 20
)

// terminalProgressCap is the highest progress estimate reported while a
// document is still processing. 100 is reserved for completion.
const terminalProgressCap = 90.0

// API is the server surface the Controller needs.
type API interface {
	Upload(ctx context.Context, file io.Reader, filename string) (UploadResult, error)
	Status(ctx context.Context, documentID string) (StatusSnapshot, error)
}

// ProgressFunc receives the snapshot after every non-terminal poll.
// Snapshot.Progress carries the client-side estimate.
type ProgressFunc func(snapshot StatusSnapshot)

// session is one submitted upload being tracked. A new Submit abandons
// the previous session: its poll loop stops reporting and returns.
// Abandonment is detected by identity, so a stale in-flight response can
// never touch the replacement session.
type session struct {
	documentID string
}

// Controller drives one upload at a time: Submit validates and uploads
// the file, Poll watches the status endpoint until a terminal state.
// Submitting again while a previous document is still polling cancels
// the earlier session.
type Controller struct {
	api          API
	maxAttempts  int
	pollInterval time.Duration
	maxFileSize  int64

	mu      sync.Mutex
	active  *session
	polling bool
}

type ControllerOption func(*Controller)

func WithMaxAttempts(n int) ControllerOption {
	return func(c *Controller) { c.maxAttempts = n }
}

func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.pollInterval = d }
}

func WithMaxFileSize(n int64) ControllerOption {
	return func(c *Controller) { c.maxFileSize = n }
}

func NewController(api API, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:          api,
		maxAttempts:  defaultMaxAttempts,
		pollInterval: defaultPollInterval,
		maxFileSize:  defaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates the file locally, uploads it, and starts a new
// session. Validation failures return *ValidationError before any
// request is sent. A previous in-flight session is canceled.
func (c *Controller) Submit(ctx context.Context, file io.Reader, filename string, size int64) (string, error) {
	if err := c.validate(filename, size); err != nil {
		return "", err
	}

	result, err := c.api.Upload(ctx, file, filename)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.active = &session{documentID: result.DocumentID}
	c.mu.Unlock()

	return result.DocumentID, nil
}

func (c *Controller) validate(filename string, size int64) error {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return &ValidationError{Field: "filename", Message: "only PDF files are supported"}
	}
	if size > c.maxFileSize {
		return &ValidationError{
			Field:   "size",
			Message: "file exceeds the maximum upload size",
		}
	}
	return nil
}

// Poll blocks until the submitted document reaches a terminal state,
// the attempt ceiling is hit, or the session is abandoned. onProgress
// (optional) is invoked after every non-terminal response.
//
// Returns the completed snapshot, or *ServerReportedError when the
// server marks the document failed, *PollTimeoutError after
// maxAttempts non-terminal responses, *TransportError on a failed
// status request, context.Canceled when the session was replaced.
func (c *Controller) Poll(ctx context.Context, documentID string, onProgress ProgressFunc) (StatusSnapshot, error) {
	c.mu.Lock()
	sess := c.active
	if sess == nil || sess.documentID != documentID {
		c.mu.Unlock()
		return StatusSnapshot{}, context.Canceled
	}
	if c.polling {
		c.mu.Unlock()
		return StatusSnapshot{}, &ValidationError{
			Field:   "session",
			Message: "a poll is already running for this controller",
		}
	}
	c.polling = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.polling = false
		c.mu.Unlock()
	}()

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		snap, err := c.api.Status(ctx, documentID)
		if err != nil {
			return StatusSnapshot{}, err
		}

		if !c.isActive(sess) {
			return StatusSnapshot{}, context.Canceled
		}

		switch snap.Status {
		case StatusCompleted:
			snap.Progress = 100
			return snap, nil
		case StatusFailed:
			return StatusSnapshot{}, &ServerReportedError{Message: snap.Error}
		}

		snap.Progress = estimateProgress(attempt, c.maxAttempts)
		if onProgress != nil {
			onProgress(snap)
		}

		if attempt == c.maxAttempts {
			break
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.pollInterval)

		select {
		case <-ctx.Done():
			return StatusSnapshot{}, ctx.Err()
		case <-timer.C:
		}

		if !c.isActive(sess) {
			return StatusSnapshot{}, context.Canceled
		}
	}

	return StatusSnapshot{}, &PollTimeoutError{Attempts: c.maxAttempts}
}

// Track is Submit followed by Poll in one call.
func (c *Controller) Track(ctx context.Context, file io.Reader, filename string, size int64, onProgress ProgressFunc) (StatusSnapshot, error) {
	documentID, err := c.Submit(ctx, file, filename, size)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return c.Poll(ctx, documentID, onProgress)
}

// Reset abandons the current session, if any.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

func (c *Controller) isActive(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active == sess
}

// estimateProgress maps poll attempts onto a 0-90 scale. The server
// reports no granular progress, so this is purely a pacing hint.
func estimateProgress(attempt, maxAttempts int) float64 {
	p := float64(attempt) / float64(maxAttempts) * terminalProgressCap
	if p > terminalProgressCap {
		return terminalProgressCap
	}
	return p
}
