// Package storage moves input PDFs and output workbooks through S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/taskspares/internal/config"
)

// S3Client wraps the AWS client with optional envelope encryption.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	password string
}

// NewS3Client loads the default AWS chain and applies the overrides in cfg:
// static credentials, a region, and a custom endpoint (path-style, for MinIO).
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*S3Client, error) {
	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsConf, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Client{
		client:   cli,
		uploader: manager.NewUploader(cli),
		password: cfg.Password,
	}, nil
}

// HeadBucket checks that bucket exists and is reachable with the configured credentials.
func (s *S3Client) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return s.client.HeadBucket(ctx, in, opts...)
}

// ParseURL splits s3://bucket/key.
func ParseURL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s", u)
	}
	return bucket, key, nil
}

// DownloadToTemp fetches the object into a temp file and returns its path.
// Enveloped objects are decrypted when a password is configured.
func (s *S3Client) DownloadToTemp(ctx context.Context, u string) (string, error) {
	bucket, key, err := ParseURL(u)
	if err != nil {
		return "", err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read S3 object: %w", err)
	}

	format := "none"
	if s.password != "" {
		plain, f, err := Open(data, s.password)
		switch {
		case err == nil:
			data, format = plain, f
		case errors.Is(err, ErrUnknownEnvelope):
			log.Debug().Str("key", key).Msg("object is not enveloped, using raw bytes")
		default:
			return "", fmt.Errorf("failed to decrypt data: %w", err)
		}
	}

	f, err := os.CreateTemp("", "taskspares-*"+path.Ext(key))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	log.Info().Str("bucket", bucket).Str("key", key).Str("encryption", format).Int("size", len(data)).Msg("downloaded file from S3")
	return f.Name(), nil
}

// Upload stores data at u through the multipart upload manager, sealing it
// first when a password is configured.
func (s *S3Client) Upload(ctx context.Context, u string, data []byte, contentType string) error {
	bucket, key, err := ParseURL(u)
	if err != nil {
		return err
	}

	meta := map[string]string{"name": path.Base(key)}
	if s.password != "" {
		sealed, err := Seal(data, s.password)
		if err != nil {
			return fmt.Errorf("failed to encrypt data: %w", err)
		}
		data = sealed
		meta["encrypted"] = "true"
		meta["encryption-format"] = MagicCBC
	}

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("location", out.Location).Bool("encrypted", s.password != "").Int("size", len(data)).Msg("uploaded file to S3")
	return nil
}
