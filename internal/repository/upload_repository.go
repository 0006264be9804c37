package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uploadgate/internal/domain/upload"
	upload_errors "uploadgate/pkg/errors"
)

type PostgresUploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &PostgresUploadRepository{db: db}
}

func (r *PostgresUploadRepository) Create(ctx context.Context, u *upload.UploadSession) error {
	res := r.db.WithContext(ctx).Create(u)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return upload_errors.ErrAlreadyExists
		}
		return &upload_errors.PersistenceError{Op: "create upload", Err: res.Error}
	}
	return nil
}

func (r *PostgresUploadRepository) GetByID(ctx context.Context, id uuid.UUID) (upload.UploadSession, error) {
	var u upload.UploadSession
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return upload.UploadSession{}, upload_errors.ErrNotFound
		}
		return upload.UploadSession{}, &upload_errors.PersistenceError{Op: "get upload", Err: err}
	}
	return u, nil
}

func (r *PostgresUploadRepository) UpdateS3UploadID(ctx context.Context, id uuid.UUID, s3UploadID string) error {
	res := r.db.WithContext(ctx).
		Model(&upload.UploadSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"s3_upload_id": s3UploadID,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "update s3 upload id", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return upload_errors.ErrNotFound
	}
	return nil
}

// MarkCompleted advances the session to COMPLETED with the remote etag and
// final key. The WHERE clause keeps terminal states terminal even if a
// racing writer got there first.
func (r *PostgresUploadRepository) MarkCompleted(ctx context.Context, id uuid.UUID, etag, finalS3Key string) error {
	res := r.db.WithContext(ctx).
		Model(&upload.UploadSession{}).
		Where("id = ? AND state NOT IN ?", id, []string{upload.StateCompleted, upload.StateCanceled}).
		Updates(map[string]interface{}{
			"state":        upload.StateCompleted,
			"etag":         etag,
			"final_s3_key": finalS3Key,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "mark completed", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return upload_errors.ErrInvalidState
	}
	return nil
}

func (r *PostgresUploadRepository) MarkCanceled(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&upload.UploadSession{}).
		Where("id = ? AND state NOT IN ?", id, []string{upload.StateCompleted, upload.StateCanceled}).
		Updates(map[string]interface{}{
			"state":      upload.StateCanceled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "mark canceled", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return upload_errors.ErrInvalidState
	}
	return nil
}

func (r *PostgresUploadRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&upload.UploadSession{}).
		Where("id = ? AND state NOT IN ?", id, []string{upload.StateCompleted, upload.StateCanceled}).
		Updates(map[string]interface{}{
			"state":         upload.StateFailed,
			"last_error":    lastError,
			"last_error_at": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "mark failed", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return upload_errors.ErrInvalidState
	}
	return nil
}

// RecordError persists diagnostic fields without touching the state, so the
// session stays retryable.
func (r *PostgresUploadRepository) RecordError(ctx context.Context, id uuid.UUID, lastError string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&upload.UploadSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    lastError,
			"last_error_at": now,
			"last_tried_at": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "record error", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return upload_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresUploadRepository) GetStaleUploads(ctx context.Context, olderThan time.Duration) ([]upload.UploadSession, error) {
	var sessions []upload.UploadSession
	cutoff := time.Now().Add(-olderThan)
	err := r.db.WithContext(ctx).
		Where("state IN ? AND updated_at < ?", []string{upload.StateInit, upload.StateUploading}, cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, &upload_errors.PersistenceError{Op: "get stale uploads", Err: err}
	}
	return sessions, nil
}

func (r *PostgresUploadRepository) DeleteStaleUploads(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).
		Delete(&upload.UploadSession{}, "state IN ? AND updated_at < ?",
			[]string{upload.StateInit, upload.StateUploading}, cutoff)
	if res.Error != nil {
		return 0, &upload_errors.PersistenceError{Op: "delete stale uploads", Err: res.Error}
	}
	return res.RowsAffected, nil
}
