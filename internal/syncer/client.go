package syncer

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
)

// Client pushes record batches to the cloud backend. It never pulls; the
// engine is the source of truth and the cloud is a mirror.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// pushRequest is the JSON body of one batch push.
type pushRequest struct {
	DeviceID string `json:"device_id"`
	Records  any    `json:"records"`
}

// NewClient creates a push client for the backend at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Push sends one kind's records to POST {base}/v1/sync/{kind}. Any
// transport or non-2xx failure comes back as a sync-unavailable error so
// callers know to retry on the next trigger rather than surface it.
func (c *Client) Push(ctx context.Context, kind, deviceID string, records any) error {
	body, err := json.Marshal(pushRequest{
		DeviceID: deviceID,
		Records:  records,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/sync/%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeSyncUnavailable, "push %s failed", kind)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.SyncUnavailable(
			fmt.Sprintf("push %s rejected with status %d", kind, resp.StatusCode))
	}

	return nil
}
