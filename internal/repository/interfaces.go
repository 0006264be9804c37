package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"uploadgate/internal/domain/upload"
)

type UploadRepository interface {
	Create(ctx context.Context, u *upload.UploadSession) error
	GetByID(ctx context.Context, id uuid.UUID) (upload.UploadSession, error)

	UpdateS3UploadID(ctx context.Context, id uuid.UUID, s3UploadID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, etag, finalS3Key string) error
	MarkCanceled(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	RecordError(ctx context.Context, id uuid.UUID, lastError string) error

	GetStaleUploads(ctx context.Context, olderThan time.Duration) ([]upload.UploadSession, error)
	DeleteStaleUploads(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PartRepository interface {
	// ConfirmPart upserts the part row and, only when a new row is
	// inserted, increments the session's uploaded_parts counter and flips
	// INIT to UPLOADING, all in one transaction. Returns whether the part
	// number was newly recorded.
	ConfirmPart(ctx context.Context, uploadID uuid.UUID, partNumber int, etag string, size int64, checksum string) (bool, error)

	ListParts(ctx context.Context, uploadID uuid.UUID) ([]upload.UploadPart, error)
	DeleteParts(ctx context.Context, uploadID uuid.UUID) error
}

type EventRepository interface {
	Append(ctx context.Context, e *upload.UploadEvent) error
	ListByUpload(ctx context.Context, uploadID uuid.UUID) ([]upload.UploadEvent, error)
}
