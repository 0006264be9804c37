package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uploadgate/internal/domain/upload"
	upload_errors "uploadgate/pkg/errors"
)

type PostgresEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Append(ctx context.Context, e *upload.UploadEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return &upload_errors.PersistenceError{Op: "append event", Err: err}
	}
	return nil
}

func (r *PostgresEventRepository) ListByUpload(ctx context.Context, uploadID uuid.UUID) ([]upload.UploadEvent, error) {
	var events []upload.UploadEvent
	err := r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("timestamp ASC").
		Find(&events).Error
	if err != nil {
		return nil, &upload_errors.PersistenceError{Op: "list events", Err: err}
	}
	return events, nil
}
