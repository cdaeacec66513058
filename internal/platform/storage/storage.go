// Package storage issues presigned upload URLs against an S3-compatible bucket
// (AWS S3, MinIO, Supabase storage). Clients PUT files directly; the API only
// stores the resulting object key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/config"
)

// Presigner is what modules depend on for uploads.
type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (*Upload, error)
	PublicURL(key string) string
}

// Upload is a presigned PUT the client performs itself.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

var contentExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// KeyFor builds a unique object key under prefix for the content type.
// Only images and PDFs are accepted.
func KeyFor(prefix, contentType string) (string, error) {
	ext, ok := contentExt[strings.ToLower(contentType)]
	if !ok {
		return "", apperr.Invalid("unsupported content type %q", contentType)
	}
	return path.Join(prefix, uuid.NewString()+ext), nil
}

// S3 implements Presigner with aws-sdk-go-v2.
type S3 struct {
	presign  *s3.PresignClient
	bucket   string
	endpoint string
	ttl      time.Duration
}

func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3{
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(endpoint, "/"),
		ttl:      ttl,
	}, nil
}

func (s *S3) PresignUpload(ctx context.Context, key, contentType string) (*Upload, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, apperr.Unavailable(err, "could not prepare upload")
	}
	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: s.PublicURL(key),
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}

// PublicURL is the path-style address of key. Buckets are expected to allow
// anonymous reads for product images and logos.
func (s *S3) PublicURL(key string) string {
	if s.endpoint == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}
