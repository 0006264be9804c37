package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"uploadgate/internal/domain/upload"
)

// These tests need a live Postgres; they are skipped unless
// POSTGRES_TEST_DSN is set, e.g.
// POSTGRES_TEST_DSN="host=localhost user=postgres password=postgres dbname=postgres port=5432 sslmode=disable".
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping Postgres integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection so SET search_path holds for every statement
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := fmt.Sprintf("migrate_test_%d", time.Now().UnixNano())
	require.NoError(t, db.Exec("CREATE SCHEMA "+schema).Error)
	require.NoError(t, db.Exec("SET search_path TO "+schema).Error)
	t.Cleanup(func() {
		_ = db.Exec("DROP SCHEMA " + schema + " CASCADE").Error
	})
	return db
}

func TestMigrate_FreshDatabaseGetsConstraints(t *testing.T) {
	db := testDB(t)

	err := Migrate(db, filepath.Join("..", "..", "migrations"),
		&upload.UploadSession{},
		&upload.UploadPart{},
		&upload.UploadEvent{},
	)
	require.NoError(t, err)

	// one run must be enough: schemas first, then the raw constraints
	for _, conname := range []string{
		"chk_uploads_size_positive",
		"chk_uploads_chunk_positive",
		"chk_uploads_total_parts_positive",
		"chk_upload_parts_number_positive",
	} {
		var count int64
		require.NoError(t, db.Raw(
			"SELECT count(*) FROM pg_constraint WHERE conname = ?", conname,
		).Scan(&count).Error)
		assert.Equal(t, int64(1), count, "constraint %s missing after first migrate", conname)
	}

	for _, index := range []string{"idx_uploads_pending", "idx_uploads_not_deleted"} {
		var regclass sql.NullString
		require.NoError(t, db.Raw("SELECT to_regclass(?)::text", index).Scan(&regclass).Error)
		assert.True(t, regclass.Valid, "index %s missing after first migrate", index)
	}

	// the check constraints actually reject bad rows
	err = db.Exec(`
		INSERT INTO uploads (id, uploaded_by_id, uploaded_by_type, filename, size, chunk_size, total_parts,
			s3_bucket, s3_key_prefix, s3_upload_id, state)
		VALUES (gen_random_uuid(), 'u', 'user', 'f', 0, 1, 1, 'b', 'p/', 'mpu', 'INIT')`).Error
	assert.Error(t, err, "size = 0 must violate chk_uploads_size_positive")
}

func TestMigrate_Rerunnable(t *testing.T) {
	db := testDB(t)
	dir := filepath.Join("..", "..", "migrations")

	models := []interface{}{&upload.UploadSession{}, &upload.UploadPart{}, &upload.UploadEvent{}}
	require.NoError(t, Migrate(db, dir, models...))
	require.NoError(t, Migrate(db, dir, models...))
}
