package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/infrastructure/metrics"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// HTTPStore stores blobs through a publisher/aggregator pair. Writes go to
// the publisher, which replies with the blob reference; reads fetch the raw
// bytes from the aggregator by reference.
type HTTPStore struct {
	cfg    *config.Config
	client *req.Client
	log    zerolog.Logger
}

type publishResponse struct {
	BlobID string `json:"blobId"`
}

// NewHTTPStore creates a blob store backed by an HTTP publisher and
// aggregator.
func NewHTTPStore(cfg *config.Config, log zerolog.Logger) *HTTPStore {
	client := req.C().
		SetTimeout(cfg.BlobStoreTimeout)

	return &HTTPStore{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "blob-http-store").Logger(),
	}
}

// Put uploads data to the publisher and returns the reference the publisher
// assigned. The payload is opaque to the store.
func (s *HTTPStore) Put(ctx context.Context, data []byte) (string, error) {
	url := fmt.Sprintf("%s/v1/blobs?epochs=%d", strings.TrimSuffix(s.cfg.BlobPublisherURL, "/"), s.cfg.BlobStoreEpochs)

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		Put(url)
	if err != nil {
		s.log.Error().Err(err).Msg("blob upload request failed")
		metrics.RecordBlobOperation("put", "error", time.Since(start).Seconds())
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobUpload, "blob upload failed", err, "2c7f4a1d-9b6e-4c3f-8a2d-5e9b1c4f7a2d")
	}
	metrics.RecordBlobOperation("put", statusLabel(resp.StatusCode), time.Since(start).Seconds())
	if resp.StatusCode >= 400 {
		s.log.Error().
			Int("status", resp.StatusCode).
			Msg("blob publisher returned error")
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobUpload, "blob upload failed", fmt.Errorf("publisher returned status %d", resp.StatusCode), "6e1a8d3b-4f7c-4e2a-9d6b-3c8f1a5d9e2b")
	}

	var result publishResponse
	if err := json.Unmarshal(resp.Bytes(), &result); err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobUpload, "blob upload failed", fmt.Errorf("parse publisher response: %w", err), "9b4e2c7a-1d5f-4b8e-6a3c-7f2d9b4e1c5a")
	}
	if strings.TrimSpace(result.BlobID) == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobUpload, "blob upload failed", fmt.Errorf("publisher returned empty blob id"), "4d8c1f6b-3a9e-4d2c-8b7f-5a1e3d6c9f4b")
	}

	s.log.Debug().Str("blob_ref", result.BlobID).Int("bytes", len(data)).Msg("blob uploaded")
	return result.BlobID, nil
}

// Get downloads the blob bytes for blobRef from the aggregator. A 404 maps
// to the not-found kind so callers can tell a missing blob from a transport
// failure.
func (s *HTTPStore) Get(ctx context.Context, blobRef string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/blobs/%s", strings.TrimSuffix(s.cfg.BlobAggregatorURL, "/"), blobRef)

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		s.log.Error().Err(err).Str("blob_ref", blobRef).Msg("blob download request failed")
		metrics.RecordBlobOperation("get", "error", time.Since(start).Seconds())
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobDownload, "blob download failed", err, "8a3f6d1c-7b4e-4a9d-2c5f-9e6b3a8d1f4c")
	}
	metrics.RecordBlobOperation("get", statusLabel(resp.StatusCode), time.Since(start).Seconds())
	if resp.StatusCode == http.StatusNotFound {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobNotFound, "blob not found", fmt.Errorf("aggregator has no blob %s", blobRef), "1f5b9e4a-6d2c-4f8b-3a7e-4c9d2f5b8e1a")
	}
	if resp.StatusCode >= 400 {
		s.log.Error().
			Int("status", resp.StatusCode).
			Str("blob_ref", blobRef).
			Msg("blob aggregator returned error")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeBlobDownload, "blob download failed", fmt.Errorf("aggregator returned status %d", resp.StatusCode), "5c2e8b3f-9a6d-4c1e-7f4b-2d8a5c3e9b6f")
	}

	return resp.Bytes(), nil
}

func statusLabel(code int) string {
	if code >= 400 {
		return "error"
	}
	return "success"
}
