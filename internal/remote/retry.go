package remote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/kvalchek/pictor/internal/models"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps a SessionClient with automatic retry on transient
// errors. Edit submission is never retried: the processing backend is not
// assumed idempotent, and a duplicate edit would duplicate versions.
type RetryClient struct {
	inner  SessionClient
	config *RetryConfig
}

// NewRetryClient creates a RetryClient that wraps the given SessionClient.
func NewRetryClient(inner SessionClient, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status >= 500 || re.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rc *RetryClient) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rc.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.config.MaxRetries {
			d := rc.backoff(attempt)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.config.MaxRetries)
}

func (rc *RetryClient) FetchSession(ctx context.Context, id string) (state *models.SessionState, err error) {
	err = rc.retry(ctx, "fetch session", func() error {
		state, err = rc.inner.FetchSession(ctx, id)
		return err
	})
	return
}

func (rc *RetryClient) UploadImage(ctx context.Context, id, filename string, blob []byte) (state *models.SessionState, err error) {
	// The blob is fully buffered, so replaying the upload is safe.
	err = rc.retry(ctx, "upload image", func() error {
		state, err = rc.inner.UploadImage(ctx, id, filename, blob)
		return err
	})
	return
}

func (rc *RetryClient) SubmitEdit(ctx context.Context, id string, req *EditRequest) (*EditResponse, error) {
	// Not retried: the backend may have started processing before the
	// failure, and replaying would fork duplicate result versions.
	return rc.inner.SubmitEdit(ctx, id, req)
}

func (rc *RetryClient) SelectVersion(ctx context.Context, id, versionURL string) (state *models.SessionState, err error) {
	err = rc.retry(ctx, "select version", func() error {
		state, err = rc.inner.SelectVersion(ctx, id, versionURL)
		return err
	})
	return
}

func (rc *RetryClient) ClearSession(ctx context.Context, id string) error {
	return rc.retry(ctx, "clear session", func() error {
		return rc.inner.ClearSession(ctx, id)
	})
}

func (rc *RetryClient) UploadArtifact(ctx context.Context, blob []byte) (url string, err error) {
	err = rc.retry(ctx, "upload artifact", func() error {
		url, err = rc.inner.UploadArtifact(ctx, blob)
		return err
	})
	return
}
