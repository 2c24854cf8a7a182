package client

import "fmt"

// ValidationError means the file was rejected before any network call
// was made: wrong extension or too large.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// UploadError is a non-2xx response to the upload request. Message
// carries the server-provided detail when present.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload failed: HTTP %d", e.StatusCode)
	}
	return e.Message
}

// TransportError is a network-level failure: connection refused, timeout,
// or an unreadable/unexpected response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PollTimeoutError means the attempt ceiling was reached without the
// document entering a terminal state.
type PollTimeoutError struct {
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("processing did not finish after %d status checks", e.Attempts)
}

// ServerReportedError is a terminal "failed" status from the server.
type ServerReportedError struct {
	Message string
}

func (e *ServerReportedError) Error() string {
	if e.Message == "" {
		return "processing failed"
	}
	return e.Message
}
