package httpdto

// InitUploadRequest is used for POST /uploads/init. UploadID resumes an
// existing session; the remaining fields describe a new one.
type InitUploadRequest struct {
	UploadID string `json:"upload_id,omitempty"`

	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	ChunkSize   int64  `json:"chunk_size"`

	UploadedByID   string            `json:"uploaded_by_id"`
	UploadedByType string            `json:"uploaded_by_type"`
	TenantID       string            `json:"tenant_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// InitUploadResponse is returned for both the new and resume paths.
type InitUploadResponse struct {
	UploadID      string    `json:"upload_id"`
	Bucket        string    `json:"bucket"`
	Key           string    `json:"key"`
	ChunkSize     int64     `json:"chunk_size"`
	TotalParts    int       `json:"total_parts"`
	UploadedParts []PartDTO `json:"uploaded_parts"`
	Message       string    `json:"message"`
}

// PartDTO represents a confirmed part in API responses
type PartDTO struct {
	PartNumber int    `json:"part_number"`
	Etag       string `json:"etag"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

// PresignPartRequest is used for POST /uploads/:id/presign-part
type PresignPartRequest struct {
	PartNumber int `json:"part_number" binding:"required"`
}

// PresignPartResponse carries the presigned URL for one part
type PresignPartResponse struct {
	URL string `json:"url"`
}

// PartCompleteRequest is used for POST /uploads/:id/part-complete
type PartCompleteRequest struct {
	PartNumber int    `json:"part_number" binding:"required"`
	Etag       string `json:"etag" binding:"required"`
	Size       int64  `json:"size,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
}

// PartCompleteResponse reports progress after confirming a part
type PartCompleteResponse struct {
	Message       string `json:"message"`
	UploadedParts int    `json:"uploaded_parts"`
	TotalParts    int    `json:"total_parts"`
}

// CompleteUploadResponse is returned after a successful completion
type CompleteUploadResponse struct {
	Status   string `json:"status"`
	UploadID string `json:"upload_id"`
	FinalKey string `json:"final_key"`
	Etag     string `json:"etag"`
}

// CancelUploadResponse reports the cancellation outcome
type CancelUploadResponse struct {
	Status   string `json:"status"`
	UploadID string `json:"upload_id"`
	Error    string `json:"error,omitempty"`
}

// ListStaleUploadsRequest holds query parameters for listing stale uploads
type ListStaleUploadsRequest struct {
	OlderThanSec int `form:"older_than_sec" binding:"required"`
}

// StaleUploadDTO is the operator-facing view of an abandoned session
type StaleUploadDTO struct {
	UploadID      string `json:"upload_id"`
	Filename      string `json:"filename"`
	State         string `json:"state"`
	UploadedParts int    `json:"uploaded_parts"`
	TotalParts    int    `json:"total_parts"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// DeleteStaleUploadsRequest holds query parameters for deleting stale uploads
type DeleteStaleUploadsRequest struct {
	OlderThanSec int `form:"older_than_sec" binding:"required"`
}

// DeleteStaleUploadsResponse is returned after deleting stale uploads
type DeleteStaleUploadsResponse struct {
	Deleted int64 `json:"deleted"`
}
