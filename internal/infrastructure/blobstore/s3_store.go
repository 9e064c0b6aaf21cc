package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/infrastructure/metrics"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// S3Store keeps blobs in an S3-compatible bucket. Keys are content-addressed
// by the SHA-256 of the stored bytes, so re-uploading identical ciphertext is
// a no-op by construction.
type S3Store struct {
	bucket string
	client *s3.Client
	log    zerolog.Logger
}

func NewS3Store(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Store, error) {
	logger := log.With().Str("component", "blob-s3-store").Logger()

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Store{
		bucket: cfg.S3Bucket,
		client: client,
		log:    logger,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("blob upload failed")
		metrics.RecordBlobOperation("put", "error", time.Since(start).Seconds())
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobUpload, "blob upload failed", err, "7d4a2c9e-1f6b-4d3a-8c5e-9b2f6d4a1c7e")
	}
	metrics.RecordBlobOperation("put", "success", time.Since(start).Seconds())

	s.log.Debug().Str("blob_ref", key).Int("bytes", len(data)).Msg("blob uploaded")
	return key, nil
}

func (s *S3Store) Get(ctx context.Context, blobRef string) ([]byte, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobRef),
	})
	if err != nil {
		metrics.RecordBlobOperation("get", "error", time.Since(start).Seconds())
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobNotFound, "blob not found", err, "3b8e5d2a-6c1f-4b7e-9a4d-2f8c5b3e6d9a")
		}
		s.log.Error().Err(err).Str("blob_ref", blobRef).Msg("blob download failed")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobDownload, "blob download failed", err, "e9c6a3f1-4d8b-4e2c-7b5a-1d9f4c6e3a8b")
	}
	defer out.Body.Close()
	metrics.RecordBlobOperation("get", "success", time.Since(start).Seconds())

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobDownload, "blob download failed", err, "b1f7c4d9-2a5e-4c8f-6d3b-8e1a7f4c2d5b")
	}
	return data, nil
}
