package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	upload_errors "uploadgate/pkg/errors"
)

func TestNewClient_RequiresRegionAndBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestCompleteMultipartUpload_RejectsEmptyParts(t *testing.T) {
	c := &Client{}
	_, err := c.CompleteMultipartUpload(context.Background(), "uploads/abc/video.mp4", "mpu-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parts")
}

func TestWrapS3Error(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "The specified upload does not exist"}
	err := wrapS3Error("complete multipart upload", fmt.Errorf("operation error S3: %w", apiErr))

	var storageErr *upload_errors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "NoSuchUpload", storageErr.Code)
	assert.True(t, storageErr.NoSuchUpload())
	assert.ErrorIs(t, err, apiErr)
}

func TestWrapS3Error_NonAPIError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := wrapS3Error("list parts", cause)

	var storageErr *upload_errors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Empty(t, storageErr.Code)
	assert.False(t, storageErr.NoSuchUpload())
	assert.ErrorIs(t, err, cause)
}
