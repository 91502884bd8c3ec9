package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"researchhub/internal/config"
	"researchhub/internal/models"
	"researchhub/internal/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Ensure S3Service implements AttachmentSigner
var _ models.AttachmentSigner = (*S3Service)(nil)

// S3Service stores research attachments in an S3 compatible bucket.
type S3Service struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	logger     *logger.Logger
}

func NewS3Service(ctx context.Context, cfg config.S3Config) (*S3Service, error) {
	log := logger.New("S3")

	if cfg.BucketName == "" {
		return nil, log.Error("S3 bucket is not configured", fmt.Errorf("S3_BUCKET_NAME is empty"))
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty", fmt.Errorf("accessKey or secretKey is empty"))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, log.Error("Failed to reach S3 bucket", err)
	}

	log.Success("S3 service initialized for bucket %s", cfg.BucketName)
	return &S3Service{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: cfg.BucketName,
		logger:     log,
	}, nil
}

// AttachmentKey builds the object key for an item attachment, keeping only the extension of the original name.
func AttachmentKey(itemID uint64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("research", fmt.Sprintf("%d", itemID), uuid.NewString()+ext)
}

// UploadAttachment stores body under a fresh key and returns the key.
func (s *S3Service) UploadAttachment(ctx context.Context, itemID uint64, body []byte, filename, contentType string) (string, error) {
	key := AttachmentKey(itemID, filename)
	s.logger.Info("Uploading %s (%d bytes) as %s", filename, len(body), key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s.logger.Error("Failed to upload file to storage", err)
	}
	return key, nil
}

// GetSignedURL implements AttachmentSigner
func (s *S3Service) GetSignedURL(ctx context.Context, key string, duration time.Duration) (string, error) {
	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", s.logger.Error("Failed to generate pre-signed URL", err)
	}
	return presigned.URL, nil
}
