package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
)

// ErrBlobNotFound is returned when a blob never appeared within the polling budget.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the store generated certificates are uploaded to.
type BlobStore interface {
	Exists(ctx context.Context, uri string) (bool, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}

// BlobClient implements BlobStore against the artifact service.
type BlobClient struct {
	c *integration.Client
}

// NewBlobClient returns a blob store client.
func NewBlobClient(cfg config.ServiceIntegration) *BlobClient {
	return &BlobClient{c: integration.New("blob-store", cfg, logging.CategoryNotify)}
}

// Exists implements BlobStore.
func (b *BlobClient) Exists(ctx context.Context, uri string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	err := b.c.Do(ctx, http.MethodGet, "/v1/blobs/exists?uri="+url.QueryEscape(uri), nil, &resp)
	if integration.IsStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Download implements BlobStore.
func (b *BlobClient) Download(ctx context.Context, uri string) ([]byte, error) {
	var resp struct {
		Content []byte `json:"content"`
	}
	if err := b.c.Do(ctx, http.MethodGet, "/v1/blobs?uri="+url.QueryEscape(uri), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// WaitForBlob checks for uri up to attempts times, waiting interval between checks.
// Check errors count as a failed attempt. There is no backoff.
func WaitForBlob(ctx context.Context, blobs BlobStore, uri string, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := blobs.Exists(ctx, uri)
		if err == nil && ok {
			logging.Get(logging.CategoryNotify).Debug("Blob %s found on attempt %d", uri, attempt)
			return nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s after %d attempts (last error: %v)", ErrBlobNotFound, uri, attempts, lastErr)
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrBlobNotFound, uri, attempts)
}
