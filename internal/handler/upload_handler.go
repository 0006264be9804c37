package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uploadgate/internal/domain/upload"
	"uploadgate/internal/services"
	"uploadgate/internal/transport/httpdto"
	upload_errors "uploadgate/pkg/errors"
)

type UploadHandler struct {
	orchestrator *services.UploadOrchestrator
}

func NewUploadHandler(orchestrator *services.UploadOrchestrator) *UploadHandler {
	return &UploadHandler{orchestrator: orchestrator}
}

func (h *UploadHandler) Init(c *gin.Context) {
	var req httpdto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	input := services.InitUploadInput{
		Filename:       req.Filename,
		ContentType:    req.ContentType,
		Size:           req.Size,
		ChunkSize:      req.ChunkSize,
		UploadedByID:   req.UploadedByID,
		UploadedByType: req.UploadedByType,
		TenantID:       req.TenantID,
		Metadata:       req.Metadata,
		UploadIP:       c.ClientIP(),
		UploadDevice:   c.Request.UserAgent(),
	}
	if req.UploadID != "" {
		id, err := uuid.Parse(req.UploadID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "INVALID_REQUEST"))
			return
		}
		input.UploadID = &id
	}

	result, err := h.orchestrator.InitUpload(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.InitUploadResponse{
		UploadID:      result.UploadID.String(),
		Bucket:        result.Bucket,
		Key:           result.Key,
		ChunkSize:     result.ChunkSize,
		TotalParts:    result.TotalParts,
		UploadedParts: toPartDTOs(result.UploadedParts),
		Message:       result.Message,
	}))
}

func (h *UploadHandler) PresignPart(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.PresignPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	url, err := h.orchestrator.PresignPart(c.Request.Context(), uploadID, req.PartNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignPartResponse{URL: url}))
}

func (h *UploadHandler) PartComplete(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.PartCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	result, err := h.orchestrator.PartComplete(c.Request.Context(), uploadID, req.PartNumber, req.Etag, req.Size, req.Checksum)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PartCompleteResponse{
		Message:       "Part uploaded successfully",
		UploadedParts: result.UploadedParts,
		TotalParts:    result.TotalParts,
	}))
}

func (h *UploadHandler) Complete(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "INVALID_REQUEST"))
		return
	}

	result, err := h.orchestrator.CompleteUpload(c.Request.Context(), uploadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CompleteUploadResponse{
		Status:   result.Status,
		UploadID: result.UploadID.String(),
		FinalKey: result.FinalKey,
		Etag:     result.Etag,
	}))
}

func (h *UploadHandler) Cancel(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "INVALID_REQUEST"))
		return
	}

	result, err := h.orchestrator.CancelUpload(c.Request.Context(), uploadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CancelUploadResponse{
		Status:   result.Status,
		UploadID: result.UploadID.String(),
		Error:    result.Error,
	}))
}

// ListStale reports sessions stuck in a non-terminal state for longer than
// older_than_sec. Operator surface, not part of the client protocol.
func (h *UploadHandler) ListStale(c *gin.Context) {
	var req httpdto.ListStaleUploadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("older_than_sec is required", "INVALID_REQUEST"))
		return
	}

	sessions, err := h.orchestrator.GetStaleUploads(c.Request.Context(), time.Duration(req.OlderThanSec)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"uploads": toStaleDTOs(sessions)}))
}

func (h *UploadHandler) DeleteStale(c *gin.Context) {
	var req httpdto.DeleteStaleUploadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("older_than_sec is required", "INVALID_REQUEST"))
		return
	}

	deleted, err := h.orchestrator.DeleteStaleUploads(c.Request.Context(), time.Duration(req.OlderThanSec)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeleteStaleUploadsResponse{Deleted: deleted}))
}

func toStaleDTOs(sessions []upload.UploadSession) []httpdto.StaleUploadDTO {
	out := make([]httpdto.StaleUploadDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, httpdto.StaleUploadDTO{
			UploadID:      s.ID.String(),
			Filename:      s.Filename,
			State:         s.State,
			UploadedParts: s.UploadedParts,
			TotalParts:    s.TotalParts,
			CreatedAt:     s.CreatedAt.Format(time.RFC3339),
			UpdatedAt:     s.UpdatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func toPartDTOs(parts []upload.UploadPart) []httpdto.PartDTO {
	out := make([]httpdto.PartDTO, 0, len(parts))
	for _, p := range parts {
		out = append(out, httpdto.PartDTO{
			PartNumber: p.PartNumber,
			Etag:       p.Etag,
			Size:       p.Size,
			UploadedAt: p.UploadedAt.Format(time.RFC3339),
		})
	}
	return out
}

// respondError maps the error taxonomy to HTTP statuses. Detail beyond the
// message never leaves the boundary.
func respondError(c *gin.Context, err error) {
	var storageErr *upload_errors.StorageError
	var persistErr *upload_errors.PersistenceError

	switch {
	case errors.Is(err, upload_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("upload not found", "NOT_FOUND"))
	case errors.Is(err, upload_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, upload_errors.ErrInvalidState):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "INVALID_STATE"))
	case errors.Is(err, upload_errors.ErrIncompleteUpload):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "INCOMPLETE_UPLOAD"))
	case errors.Is(err, upload_errors.ErrLockNotAcquired):
		c.JSON(http.StatusLocked, httpdto.NewErrorResponse("another terminal operation is in progress, retry later", "LOCK_NOT_ACQUIRED"))
	case errors.As(err, &storageErr):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse("object storage error", "STORAGE_ERROR"))
	case errors.As(err, &persistErr):
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "PERSISTENCE_ERROR"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
