package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uploadgate/internal/domain/upload"
	upload_errors "uploadgate/pkg/errors"
)

type PostgresPartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) PartRepository {
	return &PostgresPartRepository{db: db}
}

// ConfirmPart is the single atomic insert-or-update for a part. The
// RETURNING (xmax = 0) test distinguishes the insert branch from the
// conflict branch, so the uploaded_parts counter is only ever incremented
// for a part number seen for the first time. Resubmitting a part overwrites
// the etag, size and checksum and leaves the counter alone.
func (r *PostgresPartRepository) ConfirmPart(ctx context.Context, uploadID uuid.UUID, partNumber int, etag string, size int64, checksum string) (bool, error) {
	var inserted bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := tx.Raw(`
			INSERT INTO upload_parts (id, upload_id, part_number, etag, size, checksum, uploaded_at)
			VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), now())
			ON CONFLICT (upload_id, part_number)
			DO UPDATE SET etag = EXCLUDED.etag, size = EXCLUDED.size, checksum = EXCLUDED.checksum, uploaded_at = now()
			RETURNING (xmax = 0) AS inserted`,
			uuid.New(), uploadID, partNumber, etag, size, checksum,
		).Row()
		if err := row.Scan(&inserted); err != nil {
			return err
		}

		if !inserted {
			return nil
		}

		res := tx.Model(&upload.UploadSession{}).
			Where("id = ?", uploadID).
			Updates(map[string]interface{}{
				"uploaded_parts": gorm.Expr("uploaded_parts + 1"),
				"state": gorm.Expr("CASE WHEN state = ? THEN ? ELSE state END",
					upload.StateInit, upload.StateUploading),
				"updated_at": gorm.Expr("now()"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, upload_errors.ErrNotFound
		}
		return false, &upload_errors.PersistenceError{Op: "confirm part", Err: err}
	}
	return inserted, nil
}

func (r *PostgresPartRepository) ListParts(ctx context.Context, uploadID uuid.UUID) ([]upload.UploadPart, error) {
	var parts []upload.UploadPart
	err := r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("part_number ASC").
		Find(&parts).Error
	if err != nil {
		return nil, &upload_errors.PersistenceError{Op: "list parts", Err: err}
	}
	return parts, nil
}

func (r *PostgresPartRepository) DeleteParts(ctx context.Context, uploadID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&upload.UploadPart{}, "upload_id = ?", uploadID)
	if res.Error != nil {
		return &upload_errors.PersistenceError{Op: "delete parts", Err: res.Error}
	}
	return nil
}
