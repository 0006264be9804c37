package upload

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UploadSession represents uploads: one multipart-upload attempt for one
// logical file. TotalParts is computed once at creation and never changes.
type UploadSession struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UploadedByID   string         `gorm:"not null;index:idx_uploads_uploaded_by_id"`
	UploadedByType string         `gorm:"not null"`
	TenantID       sql.NullString `gorm:"index:idx_uploads_tenant_id"`

	Filename    string `gorm:"not null"`
	ContentType string
	Size        int64 `gorm:"not null"`
	ChunkSize   int64 `gorm:"not null"`
	TotalParts  int   `gorm:"not null"`

	S3Bucket    string `gorm:"not null"`
	S3KeyPrefix string `gorm:"not null"`
	S3UploadID  string `gorm:"not null"`

	State         string `gorm:"not null;default:'INIT';index:idx_uploads_state"`
	UploadedParts int    `gorm:"default:0"`

	Etag       sql.NullString
	FinalS3Key sql.NullString

	Metadata map[string]string `gorm:"serializer:json"`

	Attempts    int `gorm:"default:0"`
	RetryCount  int `gorm:"default:0"`
	LastError   sql.NullString
	LastErrorAt sql.NullTime
	LastTriedAt sql.NullTime

	UploadIP     sql.NullString
	UploadDevice sql.NullString

	DeletedAt sql.NullTime
	CreatedAt time.Time    `gorm:"default:now()"`
	UpdatedAt time.Time    `gorm:"default:now()"`
	ExpiresAt sql.NullTime `gorm:"index:idx_uploads_expires_at"`
}

func (UploadSession) TableName() string {
	return "uploads"
}

// ObjectKey is the final object key: the session key prefix joined with the
// original filename. Deterministic so retries always target the same key.
func (u UploadSession) ObjectKey() string {
	return u.S3KeyPrefix + u.Filename
}

// UploadPart represents upload_parts: one confirmed chunk of a session.
// At most one row exists per (upload_id, part_number).
type UploadPart struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UploadID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:unique_upload_part,priority:1;index:idx_upload_parts_upload_id"`

	PartNumber int    `gorm:"not null;uniqueIndex:unique_upload_part,priority:2"`
	Etag       string `gorm:"not null"`
	Size       int64  `gorm:"default:0"`
	Checksum   sql.NullString

	UploadedAt time.Time `gorm:"default:now()"`
}

func (UploadPart) TableName() string {
	return "upload_parts"
}

// UploadEvent represents upload_events, an append-only audit trail.
type UploadEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UploadID uuid.UUID `gorm:"type:uuid;not null;index:idx_upload_events_upload_id"`

	EventType string            `gorm:"not null;index:idx_upload_events_event_type"`
	Data      map[string]string `gorm:"serializer:json"`

	Timestamp time.Time `gorm:"default:now()"`
}

func (UploadEvent) TableName() string {
	return "upload_events"
}
