package sealclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/envelope"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// Client talks to the threshold-encryption seal server. Ciphertext and
// plaintext travel base64-encoded over JSON; the server never sees ledger
// state, only the conversation-scoped identity it encrypts under.
type Client struct {
	cfg    *config.Config
	client *resty.Client
	log    zerolog.Logger
}

var _ envelope.Encrypter = (*Client)(nil)

type encryptRequest struct {
	PackageID string `json:"package_id"`
	Identity  string `json:"identity"`
	Threshold int    `json:"threshold"`
	Plaintext string `json:"plaintext"`
}

type encryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

type decryptRequest struct {
	PackageID   string `json:"package_id"`
	Identity    string `json:"identity"`
	Ciphertext  string `json:"ciphertext"`
	SessionAuth string `json:"session_auth,omitempty"`
}

type decryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// NewClient creates a new seal server client.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.SealServerURL, "/")).
		SetTimeout(cfg.SealTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "seal-client").Logger(),
	}
}

// Encrypt seals plaintext under the given identity. The threshold is passed
// through to the backend unchanged.
func (c *Client) Encrypt(ctx context.Context, identity string, threshold int, plaintext []byte) ([]byte, error) {
	var respBody encryptResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(encryptRequest{
			PackageID: c.cfg.SealPackageID,
			Identity:  identity,
			Threshold: threshold,
			Plaintext: base64.StdEncoding.EncodeToString(plaintext),
		}).
		SetResult(&respBody).
		Post("/v1/encrypt")
	if err != nil {
		c.log.Error().Err(err).Msg("encrypt request failed")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "encryption backend unavailable", err, "a4d7c2e9-8b1f-4a6d-3c9e-5f2b8d4a7c1e")
	}
	if resp.IsError() {
		c.log.Error().Int("status", resp.StatusCode()).Msg("seal server rejected encrypt request")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "encryption backend unavailable", fmt.Errorf("seal server returned status %d", resp.StatusCode()), "d8b3f6a1-2c7e-4d9b-6a4f-1e8c3b6d9f2a")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(respBody.Ciphertext)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "encryption backend unavailable", fmt.Errorf("decode ciphertext: %w", err), "6f1e9c4b-7a3d-4f2e-8b6c-4d1a9f7e2c5b")
	}
	if len(ciphertext) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "encryption backend unavailable", fmt.Errorf("seal server returned empty ciphertext"), "2e8d5b1f-9c4a-4e7d-1f3b-7a5c2e8d4b1f")
	}
	return ciphertext, nil
}

// Decrypt opens ciphertext sealed under identity. sessionAuth is the
// caller's decryption credential and is forwarded verbatim.
func (c *Client) Decrypt(ctx context.Context, identity string, ciphertext []byte, sessionAuth string) ([]byte, error) {
	var respBody decryptResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(decryptRequest{
			PackageID:   c.cfg.SealPackageID,
			Identity:    identity,
			Ciphertext:  base64.StdEncoding.EncodeToString(ciphertext),
			SessionAuth: sessionAuth,
		}).
		SetResult(&respBody).
		Post("/v1/decrypt")
	if err != nil {
		c.log.Error().Err(err).Msg("decrypt request failed")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "decryption backend unavailable", err, "9c2f7e4a-1b8d-4c5f-7e2a-3d9b6f4c8a1e")
	}
	if resp.IsError() {
		c.log.Error().Int("status", resp.StatusCode()).Msg("seal server rejected decrypt request")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "decryption backend unavailable", fmt.Errorf("seal server returned status %d", resp.StatusCode()), "5b9e3c7d-6f2a-4b8e-9d4c-8a1f5b3e7c2d")
	}

	plaintext, err := base64.StdEncoding.DecodeString(respBody.Plaintext)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeEncryptionBackend, "decryption backend unavailable", fmt.Errorf("decode plaintext: %w", err), "1a6d4f8c-3e9b-4a2d-5c7f-9b2e6d1a4f8c")
	}
	return plaintext, nil
}
