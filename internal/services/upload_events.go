package services

import (
	"context"

	"github.com/google/uuid"

	"uploadgate/internal/domain/upload"
	"uploadgate/internal/repository"
	"uploadgate/pkg/logger"
)

// UploadEvents writes the append-only audit trail. Recording is strictly
// best-effort: an audit failure is logged and never surfaces to the caller.
type UploadEvents struct {
	repo   repository.EventRepository
	logger *logger.Logger
}

func NewUploadEvents(repo repository.EventRepository, l *logger.Logger) *UploadEvents {
	return &UploadEvents{repo: repo, logger: l}
}

func (e *UploadEvents) Record(ctx context.Context, uploadID uuid.UUID, eventType string, data map[string]string) {
	if e == nil || e.repo == nil {
		return
	}
	event := &upload.UploadEvent{
		ID:        uuid.New(),
		UploadID:  uploadID,
		EventType: eventType,
		Data:      data,
	}
	if err := e.repo.Append(ctx, event); err != nil {
		if e.logger != nil {
			e.logger.Warnf("failed to record %s event for upload %s: %v", eventType, uploadID, err)
		}
	}
}
