package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	upload_errors "uploadgate/pkg/errors"
)

// CreateResult is the remote multipart session issued by the object store.
type CreateResult struct {
	UploadID string
	Bucket   string
	Key      string
}

// CompletedPart is one confirmed part handed to CompleteMultipartUpload.
type CompletedPart struct {
	PartNumber int
	Etag       string
}

// ObjectStore is the capability interface over the remote multipart-upload
// protocol. One concrete implementation exists per backend.
type ObjectStore interface {
	CreateMultipartUpload(ctx context.Context, filename, contentType, keyPrefix string) (CreateResult, error)
	PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int) (string, error)
	// MultipartExists probes session liveness. It returns false only when
	// the remote reports the upload does not exist; any other failure
	// propagates.
	MultipartExists(ctx context.Context, bucket, key, uploadID string) (bool, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (string, error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PresignTTL time.Duration
}

type Client struct {
	cfg     S3Config
	s3      *s3.Client
	presign *s3.PresignClient
}

var _ ObjectStore = (*Client)(nil)

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})
	presignClient := s3.NewPresignClient(s3Client)

	return &Client{
		cfg:     cfg,
		s3:      s3Client,
		presign: presignClient,
	}, nil
}

func (c *Client) CreateMultipartUpload(ctx context.Context, filename, contentType, keyPrefix string) (CreateResult, error) {
	key := keyPrefix + filename

	out, err := c.s3.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return CreateResult{}, wrapS3Error("create multipart upload", err)
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return CreateResult{}, &upload_errors.StorageError{
			Op:  "create multipart upload",
			Err: errors.New("remote returned no upload id"),
		}
	}

	return CreateResult{
		UploadID: *out.UploadId,
		Bucket:   c.cfg.Bucket,
		Key:      key,
	}, nil
}

func (c *Client) PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int) (string, error) {
	if key == "" || uploadID == "" {
		return "", errors.New("object key and upload id are required")
	}

	presigned, err := c.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(partNumber)),
	}, func(po *s3.PresignOptions) {
		if c.cfg.PresignTTL > 0 {
			po.Expires = c.cfg.PresignTTL
		}
	})
	if err != nil {
		return "", wrapS3Error("presign upload part", err)
	}
	return presigned.URL, nil
}

func (c *Client) MultipartExists(ctx context.Context, bucket, key, uploadID string) (bool, error) {
	_, err := c.s3.ListParts(ctx, &s3.ListPartsInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MaxParts: aws.Int32(1),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload" {
			return false, nil
		}
		return false, wrapS3Error("list parts", err)
	}
	return true, nil
}

// CompleteMultipartUpload finishes the remote session. The remote protocol
// requires parts strictly ascending by part number, so they are sorted here
// before the call.
func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("cannot complete multipart upload %s: no parts", uploadID)
	}

	sorted := make([]CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completed := make([]types.CompletedPart, 0, len(sorted))
	for _, p := range sorted {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(int32(p.PartNumber)),
			ETag:       aws.String(p.Etag),
		})
	}

	out, err := c.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", wrapS3Error("complete multipart upload", err)
	}

	etag := ""
	if out.ETag != nil {
		etag = *out.ETag
	}
	return etag, nil
}

func (c *Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := c.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return wrapS3Error("abort multipart upload", err)
	}
	return nil
}

func wrapS3Error(op string, err error) error {
	code := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}
	return &upload_errors.StorageError{Op: op, Code: code, Err: err}
}
