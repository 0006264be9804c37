package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"uploadgate/internal/domain/upload"
	"uploadgate/internal/redis"
	"uploadgate/internal/repository"
	"uploadgate/internal/storage"
	upload_errors "uploadgate/pkg/errors"
	"uploadgate/pkg/logger"
)

// Cancel outcome statuses returned to the caller.
const (
	StatusCompleted        = "completed"
	StatusCanceled         = "canceled"
	StatusNotFound         = "not_found"
	StatusAlreadyCanceled  = "already_canceled"
	StatusAlreadyCompleted = "already_completed"
	StatusAbortFailed      = "s3_abort_failed"
)

const defaultContentType = "application/octet-stream"

type OrchestratorConfig struct {
	LockTTL         time.Duration
	S3CallTimeout   time.Duration
	SessionLifetime time.Duration
}

// UploadOrchestrator owns every upload state transition. The session and
// part repositories are passive stores; terminal transitions (complete,
// cancel) are serialized per session through the distributed lock.
type UploadOrchestrator struct {
	uploads repository.UploadRepository
	parts   repository.PartRepository
	store   storage.ObjectStore
	locker  redis.Locker
	events  *UploadEvents
	logger  *logger.Logger
	cfg     OrchestratorConfig
}

func NewUploadOrchestrator(
	uploads repository.UploadRepository,
	parts repository.PartRepository,
	store storage.ObjectStore,
	locker redis.Locker,
	events *UploadEvents,
	l *logger.Logger,
	cfg OrchestratorConfig,
) *UploadOrchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Second
	}
	return &UploadOrchestrator{
		uploads: uploads,
		parts:   parts,
		store:   store,
		locker:  locker,
		events:  events,
		logger:  l,
		cfg:     cfg,
	}
}

type InitUploadInput struct {
	UploadID *uuid.UUID

	Filename    string
	ContentType string
	Size        int64
	ChunkSize   int64

	UploadedByID   string
	UploadedByType string
	TenantID       string
	Metadata       map[string]string

	UploadIP     string
	UploadDevice string
}

type InitUploadResult struct {
	UploadID      uuid.UUID
	Bucket        string
	Key           string
	ChunkSize     int64
	TotalParts    int
	UploadedParts []upload.UploadPart
	Message       string
}

type PartCompleteResult struct {
	UploadedParts int
	TotalParts    int
}

type CompleteResult struct {
	Status   string
	UploadID uuid.UUID
	FinalKey string
	Etag     string
}

type CancelResult struct {
	Status   string
	UploadID uuid.UUID
	Error    string
}

// InitUpload starts a new upload session or resumes an existing one. Both
// paths are idempotent from the client's point of view: repeating the call
// with the same session id converges to the same visible state.
func (o *UploadOrchestrator) InitUpload(ctx context.Context, input InitUploadInput) (InitUploadResult, error) {
	if input.UploadID != nil {
		return o.resumeUpload(ctx, *input.UploadID)
	}
	return o.newUpload(ctx, input)
}

func (o *UploadOrchestrator) resumeUpload(ctx context.Context, id uuid.UUID) (InitUploadResult, error) {
	session, err := o.uploads.GetByID(ctx, id)
	if err != nil {
		return InitUploadResult{}, err
	}
	if upload.IsTerminal(session.State) {
		return InitUploadResult{}, fmt.Errorf("%w: session %s is %s", upload_errors.ErrInvalidState, id, session.State)
	}

	exists, err := o.probeRemote(ctx, session)
	if err != nil {
		return InitUploadResult{}, err
	}

	if !exists {
		// The remote multipart session is gone (expired or lost). Recreate
		// it and persist the new remote id onto the existing record; parts
		// already confirmed stay valid locally so the client re-uploads
		// only what S3 no longer has.
		contentType := session.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		created, err := o.createRemote(ctx, session.Filename, contentType, session.S3KeyPrefix)
		if err != nil {
			return InitUploadResult{}, err
		}
		if err := o.uploads.UpdateS3UploadID(ctx, session.ID, created.UploadID); err != nil {
			return InitUploadResult{}, err
		}
		session.S3UploadID = created.UploadID

		o.logger.Warnf("recovered lost multipart session for upload %s", session.ID)
		o.events.Record(ctx, session.ID, upload.EventRecovered, map[string]string{"s3_upload_id": created.UploadID})
	} else {
		o.events.Record(ctx, session.ID, upload.EventResumed, nil)
	}

	parts, err := o.parts.ListParts(ctx, session.ID)
	if err != nil {
		return InitUploadResult{}, err
	}

	return InitUploadResult{
		UploadID:      session.ID,
		Bucket:        session.S3Bucket,
		Key:           session.S3KeyPrefix,
		ChunkSize:     session.ChunkSize,
		TotalParts:    session.TotalParts,
		UploadedParts: parts,
		Message:       "Upload resumed",
	}, nil
}

func (o *UploadOrchestrator) newUpload(ctx context.Context, input InitUploadInput) (InitUploadResult, error) {
	if input.Filename == "" || input.UploadedByID == "" || input.UploadedByType == "" {
		return InitUploadResult{}, upload_errors.ErrInvalidInput
	}
	if input.Size <= 0 || input.ChunkSize <= 0 {
		return InitUploadResult{}, upload_errors.ErrInvalidInput
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	id := uuid.New()
	keyPrefix := KeyPrefix(id)
	totalParts := TotalParts(input.Size, input.ChunkSize)

	// Create the remote session before persisting the local record, so a DB
	// row can never look committed while lacking a backing remote session.
	created, err := o.createRemote(ctx, input.Filename, contentType, keyPrefix)
	if err != nil {
		return InitUploadResult{}, err
	}

	now := time.Now()
	session := upload.UploadSession{
		ID:             id,
		UploadedByID:   input.UploadedByID,
		UploadedByType: input.UploadedByType,
		Filename:       input.Filename,
		ContentType:    input.ContentType,
		Size:           input.Size,
		ChunkSize:      input.ChunkSize,
		TotalParts:     totalParts,
		S3Bucket:       created.Bucket,
		S3KeyPrefix:    keyPrefix,
		S3UploadID:     created.UploadID,
		State:          upload.StateInit,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.TenantID != "" {
		session.TenantID = sql.NullString{String: input.TenantID, Valid: true}
	}
	if input.UploadIP != "" {
		session.UploadIP = sql.NullString{String: input.UploadIP, Valid: true}
	}
	if input.UploadDevice != "" {
		session.UploadDevice = sql.NullString{String: input.UploadDevice, Valid: true}
	}
	if o.cfg.SessionLifetime > 0 {
		session.ExpiresAt = sql.NullTime{Time: now.Add(o.cfg.SessionLifetime), Valid: true}
	}

	if err := o.uploads.Create(ctx, &session); err != nil {
		return InitUploadResult{}, err
	}

	o.logger.Infof("initialized upload %s (%d parts)", id, totalParts)
	o.events.Record(ctx, id, upload.EventInitialized, map[string]string{"s3_upload_id": created.UploadID})

	return InitUploadResult{
		UploadID:      id,
		Bucket:        created.Bucket,
		Key:           created.Key,
		ChunkSize:     input.ChunkSize,
		TotalParts:    totalParts,
		UploadedParts: []upload.UploadPart{},
		Message:       "Upload initialized",
	}, nil
}

// PresignPart returns a fresh time-bounded URL for pushing one part's bytes
// directly to the object store. It never mutates session state and may be
// repeated for the same part.
func (o *UploadOrchestrator) PresignPart(ctx context.Context, id uuid.UUID, partNumber int) (string, error) {
	session, err := o.uploads.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if partNumber < 1 || partNumber > session.TotalParts {
		return "", fmt.Errorf("%w: part number %d out of range [1, %d]",
			upload_errors.ErrInvalidInput, partNumber, session.TotalParts)
	}
	if session.S3UploadID == "" {
		return "", fmt.Errorf("%w: session %s has no remote upload id", upload_errors.ErrInvalidState, id)
	}
	if upload.IsTerminal(session.State) {
		return "", fmt.Errorf("%w: session %s is %s", upload_errors.ErrInvalidState, id, session.State)
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	return o.store.PresignUploadPart(callCtx, session.S3Bucket, session.ObjectKey(), session.S3UploadID, partNumber)
}

// PartComplete records a part the client finished uploading. Resubmitting a
// part number overwrites the stored etag without touching the progress
// counter; the first confirmed part moves the session to UPLOADING.
// Completion is never triggered from here.
func (o *UploadOrchestrator) PartComplete(ctx context.Context, id uuid.UUID, partNumber int, etag string, size int64, checksum string) (PartCompleteResult, error) {
	if etag == "" {
		return PartCompleteResult{}, upload_errors.ErrInvalidInput
	}

	session, err := o.uploads.GetByID(ctx, id)
	if err != nil {
		return PartCompleteResult{}, err
	}
	if partNumber < 1 || partNumber > session.TotalParts {
		return PartCompleteResult{}, fmt.Errorf("%w: part number %d out of range [1, %d]",
			upload_errors.ErrInvalidInput, partNumber, session.TotalParts)
	}
	if upload.IsTerminal(session.State) {
		return PartCompleteResult{}, fmt.Errorf("%w: session %s is %s", upload_errors.ErrInvalidState, id, session.State)
	}

	inserted, err := o.parts.ConfirmPart(ctx, id, partNumber, etag, size, checksum)
	if err != nil {
		return PartCompleteResult{}, err
	}

	session, err = o.uploads.GetByID(ctx, id)
	if err != nil {
		return PartCompleteResult{}, err
	}

	if inserted {
		o.logger.Infof("upload %s: part %d confirmed (%d/%d)", id, partNumber, session.UploadedParts, session.TotalParts)
	}

	return PartCompleteResult{
		UploadedParts: session.UploadedParts,
		TotalParts:    session.TotalParts,
	}, nil
}

// CompleteUpload finishes the remote multipart session once every declared
// part has been confirmed. The whole protocol runs under the session's
// terminal lock so two racing completes (or a complete racing a cancel)
// cannot both reach the remote call; the loser sees ErrLockNotAcquired and
// should retry later.
func (o *UploadOrchestrator) CompleteUpload(ctx context.Context, id uuid.UUID) (CompleteResult, error) {
	var result CompleteResult

	err := o.locker.WithLock(ctx, terminalLockKey(id), o.cfg.LockTTL, func(ctx context.Context) error {
		session, err := o.uploads.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if session.State == upload.StateCompleted {
			// A finished session converges to the same answer.
			result = CompleteResult{
				Status:   StatusCompleted,
				UploadID: id,
				FinalKey: session.FinalS3Key.String,
				Etag:     session.Etag.String,
			}
			return nil
		}
		if session.State == upload.StateCanceled {
			return fmt.Errorf("%w: session %s is canceled", upload_errors.ErrInvalidState, id)
		}
		if session.S3UploadID == "" {
			return fmt.Errorf("%w: session %s has no remote upload id", upload_errors.ErrInvalidState, id)
		}

		parts, err := o.parts.ListParts(ctx, id)
		if err != nil {
			return err
		}
		if len(parts) != session.TotalParts {
			return fmt.Errorf("%w: expected %d parts, got %d",
				upload_errors.ErrIncompleteUpload, session.TotalParts, len(parts))
		}

		completed := make([]storage.CompletedPart, 0, len(parts))
		for _, p := range parts {
			completed = append(completed, storage.CompletedPart{
				PartNumber: p.PartNumber,
				Etag:       p.Etag,
			})
		}

		callCtx, cancel := o.callContext(ctx)
		defer cancel()
		etag, err := o.store.CompleteMultipartUpload(callCtx, session.ObjectKey(), session.S3UploadID, completed)
		if err != nil {
			var storageErr *upload_errors.StorageError
			if errors.As(err, &storageErr) && storageErr.NoSuchUpload() {
				// The remote session itself is gone; completion can never
				// succeed without re-initializing, so the session fails.
				if markErr := o.uploads.MarkFailed(ctx, id, err.Error()); markErr != nil {
					o.logger.Errorf("upload %s: failed to mark FAILED: %v", id, markErr)
				}
				return err
			}
			// Transient remote failure: record diagnostics, stay UPLOADING
			// so the caller can retry.
			if recErr := o.uploads.RecordError(ctx, id, err.Error()); recErr != nil {
				o.logger.Errorf("upload %s: failed to record error: %v", id, recErr)
			}
			return err
		}

		finalKey := session.ObjectKey()
		if err := o.uploads.MarkCompleted(ctx, id, etag, finalKey); err != nil {
			return err
		}

		o.logger.Infof("upload %s completed as %s", id, finalKey)
		o.events.Record(ctx, id, upload.EventCompleted, map[string]string{"etag": etag, "final_key": finalKey})

		result = CompleteResult{
			Status:   StatusCompleted,
			UploadID: id,
			FinalKey: finalKey,
			Etag:     etag,
		}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}
	return result, nil
}

// CancelUpload aborts the remote session and marks the record CANCELED. It
// is idempotent: canceling an absent or already-terminal session reports the
// fact instead of failing. An abort failure leaves the record retryable and
// is surfaced as a distinct status rather than an error.
func (o *UploadOrchestrator) CancelUpload(ctx context.Context, id uuid.UUID) (CancelResult, error) {
	var result CancelResult

	err := o.locker.WithLock(ctx, terminalLockKey(id), o.cfg.LockTTL, func(ctx context.Context) error {
		session, err := o.uploads.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, upload_errors.ErrNotFound) {
				result = CancelResult{Status: StatusNotFound, UploadID: id}
				return nil
			}
			return err
		}

		switch session.State {
		case upload.StateCanceled:
			result = CancelResult{Status: StatusAlreadyCanceled, UploadID: id}
			return nil
		case upload.StateCompleted:
			result = CancelResult{Status: StatusAlreadyCompleted, UploadID: id}
			return nil
		}

		if session.S3UploadID != "" {
			callCtx, cancel := o.callContext(ctx)
			abortErr := o.store.AbortMultipartUpload(callCtx, session.ObjectKey(), session.S3UploadID)
			cancel()
			if abortErr != nil {
				o.logger.Errorf("upload %s: remote abort failed: %v", id, abortErr)
				if recErr := o.uploads.RecordError(ctx, id, abortErr.Error()); recErr != nil {
					o.logger.Errorf("upload %s: failed to record abort error: %v", id, recErr)
				}
				result = CancelResult{Status: StatusAbortFailed, UploadID: id, Error: abortErr.Error()}
				return nil
			}
		}

		// Local part rows are bookkeeping only; failing to remove them must
		// not block the terminal transition.
		if err := o.parts.DeleteParts(ctx, id); err != nil {
			o.logger.Warnf("upload %s: failed to delete part rows: %v", id, err)
		}

		if err := o.uploads.MarkCanceled(ctx, id); err != nil {
			return err
		}

		o.logger.Infof("upload %s canceled", id)
		o.events.Record(ctx, id, upload.EventCanceled, nil)

		result = CancelResult{Status: StatusCanceled, UploadID: id}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

func (o *UploadOrchestrator) GetStaleUploads(ctx context.Context, olderThan time.Duration) ([]upload.UploadSession, error) {
	return o.uploads.GetStaleUploads(ctx, olderThan)
}

func (o *UploadOrchestrator) DeleteStaleUploads(ctx context.Context, olderThan time.Duration) (int64, error) {
	return o.uploads.DeleteStaleUploads(ctx, olderThan)
}

func (o *UploadOrchestrator) createRemote(ctx context.Context, filename, contentType, keyPrefix string) (storage.CreateResult, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	return o.store.CreateMultipartUpload(callCtx, filename, contentType, keyPrefix)
}

func (o *UploadOrchestrator) probeRemote(ctx context.Context, session upload.UploadSession) (bool, error) {
	if session.S3UploadID == "" {
		return false, nil
	}
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	return o.store.MultipartExists(callCtx, session.S3Bucket, session.ObjectKey(), session.S3UploadID)
}

func (o *UploadOrchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.S3CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.cfg.S3CallTimeout)
}

// terminalLockKey is shared by complete and cancel, so the two terminal
// operations for one session can never interleave.
func terminalLockKey(id uuid.UUID) string {
	return fmt.Sprintf("upload:%s:terminal", id)
}

// KeyPrefix derives the storage prefix from the session id; the final object
// key (prefix + filename) is therefore reproducible across retries.
func KeyPrefix(id uuid.UUID) string {
	return fmt.Sprintf("uploads/%s/", id)
}

// TotalParts is ceil(size / chunkSize).
func TotalParts(size, chunkSize int64) int {
	return int((size + chunkSize - 1) / chunkSize)
}
