package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ErrNotFound reports that a backend does not hold the object. Every
// Storage implementation wraps it so callers can fall back or ignore
// with errors.Is.
var ErrNotFound = errors.New("file not found")

// Storage is the common surface of the local and MinIO backends.
type Storage interface {
	Save(ctx context.Context, reader io.Reader, objectName string, size int64) (int64, string, error)
	Open(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, objectName string) error
}

type mirrorJob struct {
	objectName string
	size       int64
	hash       string
	retries    int
}

// mirroredStore saves PDFs to local disk first and mirrors them to MinIO
// in the background. Reads prefer local disk and fall back to MinIO, so a
// restarted node can still serve documents mirrored before the restart.
type mirroredStore struct {
	local  Storage
	remote Storage

	queue      chan mirrorJob
	workerNum  int
	maxRetries int

	wg sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewMirroredStore(ctx context.Context, local, remote Storage, queueSize, workerNum, maxRetries int) *mirroredStore {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workerNum <= 0 {
		workerNum = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	s := &mirroredStore{
		local:      local,
		remote:     remote,
		queue:      make(chan mirrorJob, queueSize),
		workerNum:  workerNum,
		maxRetries: maxRetries,
	}

	s.wg.Add(workerNum)
	for i := 0; i < workerNum; i++ {
		go s.worker(ctx)
	}

	return s
}

func (s *mirroredStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	slog.Info("file mirror stopped")
	return nil
}

func (s *mirroredStore) Save(ctx context.Context, reader io.Reader, objectName string, size int64) (int64, string, error) {
	written, hash, err := s.local.Save(ctx, reader, objectName, size)
	if err != nil {
		return 0, "", err
	}

	if !s.enqueue(mirrorJob{objectName: objectName, size: written, hash: hash}) {
		slog.Error("file mirror queue full, file saved only locally",
			slog.String("object_name", objectName),
			slog.Int64("size", written),
		)
	}

	return written, hash, nil
}

func (s *mirroredStore) Open(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	rc, size, err := s.local.Open(ctx, objectName)
	if err == nil {
		return rc, size, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, 0, err
	}

	return s.remote.Open(ctx, objectName)
}

func (s *mirroredStore) Delete(ctx context.Context, objectName string) error {
	var firstErr error

	if err := s.local.Delete(ctx, objectName); err != nil {
		firstErr = err
		slog.Warn("delete local copy failed",
			slog.String("object_name", objectName),
			slog.String("error", err.Error()),
		)
	}

	if err := s.remote.Delete(ctx, objectName); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("delete remote copy failed",
			slog.String("object_name", objectName),
			slog.String("error", err.Error()),
		)
	}

	return firstErr
}

func (s *mirroredStore) enqueue(job mirrorJob) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- job:
		return true
	default:
		return false
	}
}

func (s *mirroredStore) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.queue:
			if !ok {
				return
			}
			s.handle(ctx, job)
		}
	}
}

func (s *mirroredStore) handle(ctx context.Context, job mirrorJob) {
	l := slog.With(
		slog.String("object_name", job.objectName),
		slog.Int("retries", job.retries),
	)

	if err := s.mirrorOnce(ctx, job); err != nil {
		if job.retries >= s.maxRetries {
			l.Error("mirroring failed, max retries exceeded", slog.String("error", err.Error()))
			return
		}

		job.retries++
		if !s.enqueue(job) {
			l.Error("mirroring failed and queue is full, dropping job", slog.String("error", err.Error()))
			return
		}
		l.Warn("mirroring failed, job requeued",
			slog.String("error", err.Error()),
			slog.Int("next_retry", job.retries),
		)
	}
}

func (s *mirroredStore) mirrorOnce(ctx context.Context, job mirrorJob) error {
	rc, size, err := s.local.Open(ctx, job.objectName)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer rc.Close()

	if job.size > 0 {
		size = job.size
	}

	written, remoteHash, err := s.remote.Save(ctx, rc, job.objectName, size)
	if err != nil {
		return fmt.Errorf("save to remote: %w", err)
	}

	if job.hash != "" && remoteHash != "" && job.hash != remoteHash {
		return fmt.Errorf("hash mismatch: local=%s remote=%s", job.hash, remoteHash)
	}

	slog.Debug("file mirrored",
		slog.String("object_name", job.objectName),
		slog.Int64("size", written),
	)

	return nil
}
