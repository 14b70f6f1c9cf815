package remote

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvalchek/pictor/internal/models"
)

// flakyClient fails the first failures calls to each method with err,
// then delegates to an inner MockClient.
type flakyClient struct {
	*MockClient
	failures int
	err      error
	calls    int
}

func (f *flakyClient) FetchSession(ctx context.Context, id string) (*models.SessionState, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MockClient.FetchSession(ctx, id)
}

func (f *flakyClient) SubmitEdit(ctx context.Context, id string, req *EditRequest) (*EditResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MockClient.SubmitEdit(ctx, id, req)
}

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestRetryClient_RetriesServerErrors(t *testing.T) {
	inner := NewMockClient()
	inner.SetSession(&models.SessionState{SessionID: "s1", ActiveURL: "img://a"})

	flaky := &flakyClient{
		MockClient: inner,
		failures:   2,
		err:        &RemoteError{Code: "internal_error", Status: http.StatusInternalServerError},
	}
	rc := NewRetryClient(flaky, fastRetryConfig())

	state, err := rc.FetchSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "img://a", state.ActiveURL)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetryClient_DoesNotRetryClientErrors(t *testing.T) {
	flaky := &flakyClient{
		MockClient: NewMockClient(),
		failures:   10,
		err:        &RemoteError{Code: "bad_request", Status: http.StatusBadRequest},
	}
	rc := NewRetryClient(flaky, fastRetryConfig())

	_, err := rc.FetchSession(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, 1, flaky.calls)
}

func TestRetryClient_NotFoundIsNotTransient(t *testing.T) {
	rc := NewRetryClient(NewMockClient(), fastRetryConfig())

	_, err := rc.FetchSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryClient_GivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyClient{
		MockClient: NewMockClient(),
		failures:   10,
		err:        &RemoteError{Code: "unavailable", Status: http.StatusServiceUnavailable},
	}
	rc := NewRetryClient(flaky, fastRetryConfig())

	_, err := rc.FetchSession(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, 4, flaky.calls) // initial attempt + 3 retries
}

func TestRetryClient_NeverRetriesEdits(t *testing.T) {
	flaky := &flakyClient{
		MockClient: NewMockClient(),
		failures:   1,
		err:        &RemoteError{Code: "internal_error", Status: http.StatusInternalServerError},
	}
	rc := NewRetryClient(flaky, fastRetryConfig())

	_, err := rc.SubmitEdit(context.Background(), "s1", &EditRequest{Instruction: "add rain"})
	require.Error(t, err)
	assert.Equal(t, 1, flaky.calls)
}
