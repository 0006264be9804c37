package upload_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid upload state")
	ErrIncompleteUpload   = errors.New("upload incomplete")
	ErrLockNotAcquired    = errors.New("lock not acquired")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// StorageError wraps a failure from the remote object store, keeping the
// remote error code so callers can decide whether the multipart session
// itself is gone.
type StorageError struct {
	Op   string
	Code string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NoSuchUpload reports whether the remote says the multipart session does
// not exist (aborted, completed or expired on the S3 side).
func (e *StorageError) NoSuchUpload() bool {
	return e.Code == "NoSuchUpload"
}

// PersistenceError wraps a relational-store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
