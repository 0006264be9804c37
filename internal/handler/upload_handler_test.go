package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadgate/internal/domain/upload"
	upload_errors "uploadgate/pkg/errors"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", upload_errors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", errors.Join(errors.New("lookup"), upload_errors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", upload_errors.ErrInvalidInput, http.StatusBadRequest, "INVALID_REQUEST"},
		{"invalid state", upload_errors.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{"incomplete upload", upload_errors.ErrIncompleteUpload, http.StatusConflict, "INCOMPLETE_UPLOAD"},
		{"lock not acquired", upload_errors.ErrLockNotAcquired, http.StatusLocked, "LOCK_NOT_ACQUIRED"},
		{
			"storage error",
			&upload_errors.StorageError{Op: "complete multipart upload", Code: "SlowDown", Err: errors.New("throttled")},
			http.StatusBadGateway,
			"STORAGE_ERROR",
		},
		{
			"persistence error",
			&upload_errors.PersistenceError{Op: "confirm part", Err: errors.New("connection refused")},
			http.StatusInternalServerError,
			"PERSISTENCE_ERROR",
		},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Success bool   `json:"success"`
				Code    string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestHandlers_RejectMalformedUploadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewUploadHandler(nil)

	router := gin.New()
	router.POST("/v1/uploads/:id/presign-part", h.PresignPart)
	router.POST("/v1/uploads/:id/part-complete", h.PartComplete)
	router.POST("/v1/uploads/:id/complete", h.Complete)
	router.DELETE("/v1/uploads/:id", h.Cancel)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/uploads/not-a-uuid/presign-part"},
		{http.MethodPost, "/v1/uploads/not-a-uuid/part-complete"},
		{http.MethodPost, "/v1/uploads/not-a-uuid/complete"},
		{http.MethodDelete, "/v1/uploads/not-a-uuid"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(p.method, p.path, nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestStaleEndpoints_RequireOlderThanSec(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewUploadHandler(nil)

	router := gin.New()
	router.GET("/v1/admin/uploads/stale", h.ListStale)
	router.DELETE("/v1/admin/uploads/stale", h.DeleteStale)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/v1/admin/uploads/stale", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s without older_than_sec", method)
	}
}

func TestToStaleDTOs(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sessions := []upload.UploadSession{
		{
			ID:            uuid.New(),
			Filename:      "video.mp4",
			State:         upload.StateUploading,
			UploadedParts: 1,
			TotalParts:    2,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt.Add(time.Minute),
		},
	}

	dtos := toStaleDTOs(sessions)
	require.Len(t, dtos, 1)
	assert.Equal(t, sessions[0].ID.String(), dtos[0].UploadID)
	assert.Equal(t, upload.StateUploading, dtos[0].State)
	assert.Equal(t, "2026-03-14T09:00:00Z", dtos[0].CreatedAt)
	assert.Equal(t, "2026-03-14T09:01:00Z", dtos[0].UpdatedAt)

	assert.Empty(t, toStaleDTOs(nil))
}

func TestToPartDTOs(t *testing.T) {
	uploadedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	parts := []upload.UploadPart{
		{ID: uuid.New(), PartNumber: 1, Etag: `"etag-1"`, Size: 5_000_000, UploadedAt: uploadedAt},
		{ID: uuid.New(), PartNumber: 2, Etag: `"etag-2"`, Size: 123, UploadedAt: uploadedAt},
	}

	dtos := toPartDTOs(parts)
	require.Len(t, dtos, 2)
	assert.Equal(t, 1, dtos[0].PartNumber)
	assert.Equal(t, `"etag-1"`, dtos[0].Etag)
	assert.Equal(t, "2026-03-14T09:26:53Z", dtos[0].UploadedAt)

	assert.Empty(t, toPartDTOs(nil))
}
