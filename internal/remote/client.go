package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kvalchek/pictor/internal/models"
)

// ErrNotFound is returned when the requested session does not exist on
// the server. Callers treat it as "fresh session", not as a failure.
var ErrNotFound = errors.New("session not found")

// SessionClient defines the contract for communicating with a
// pictor-server session store.
type SessionClient interface {
	FetchSession(ctx context.Context, id string) (*models.SessionState, error)
	UploadImage(ctx context.Context, id, filename string, blob []byte) (*models.SessionState, error)
	SubmitEdit(ctx context.Context, id string, req *EditRequest) (*EditResponse, error)
	SelectVersion(ctx context.Context, id, versionURL string) (*models.SessionState, error)
	ClearSession(ctx context.Context, id string) error
	UploadArtifact(ctx context.Context, blob []byte) (string, error)
}

// HTTPClient implements SessionClient over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP-based session client.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *HTTPClient) sessionURL(id, path string) string {
	return fmt.Sprintf("%s/api/v1/sessions/%s%s", c.baseURL, url.PathEscape(id), path)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, reqBody, respBody interface{}) error {
	var body io.Reader
	headers := map[string]string{"Content-Type": "application/json"}

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// FetchSession retrieves the authoritative state of a session.
// Returns ErrNotFound when the server has no such session.
func (c *HTTPClient) FetchSession(ctx context.Context, id string) (*models.SessionState, error) {
	var state models.SessionState
	err := c.doJSON(ctx, "GET", c.sessionURL(id, ""), nil, &state)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch session %s: %w", id, err)
	}
	return &state, nil
}

// UploadImage uploads the source image for a session, creating the
// session and its root version on the server.
func (c *HTTPClient) UploadImage(ctx context.Context, id, filename string, blob []byte) (*models.SessionState, error) {
	headers := map[string]string{
		"Content-Type":      "application/octet-stream",
		"X-Pictor-Filename": filename,
	}

	resp, err := c.do(ctx, "POST", c.sessionURL(id, "/image"), bytes.NewReader(blob), headers)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var state models.SessionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// SubmitEdit asks the processing backend to derive new versions.
func (c *HTTPClient) SubmitEdit(ctx context.Context, id string, req *EditRequest) (*EditResponse, error) {
	var resp EditResponse
	if err := c.doJSON(ctx, "POST", c.sessionURL(id, "/edits"), req, &resp); err != nil {
		return nil, fmt.Errorf("submit edit: %w", err)
	}
	return &resp, nil
}

// SelectVersion makes versionURL the session's active image and returns
// the server's authoritative session state.
func (c *HTTPClient) SelectVersion(ctx context.Context, id, versionURL string) (*models.SessionState, error) {
	req := &SelectRequest{URL: versionURL}
	var state models.SessionState
	if err := c.doJSON(ctx, "POST", c.sessionURL(id, "/select"), req, &state); err != nil {
		return nil, fmt.Errorf("select version: %w", err)
	}
	return &state, nil
}

// ClearSession removes all server-side state for a session.
func (c *HTTPClient) ClearSession(ctx context.Context, id string) error {
	resp, err := c.do(ctx, "DELETE", c.sessionURL(id, ""), nil, nil)
	if err != nil {
		return fmt.Errorf("clear session %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return nil
}

// UploadArtifact stores an opaque blob (e.g. an exported mask) and
// returns its url.
func (c *HTTPClient) UploadArtifact(ctx context.Context, blob []byte) (string, error) {
	headers := map[string]string{"Content-Type": "application/octet-stream"}

	resp, err := c.do(ctx, "POST", c.baseURL+"/api/v1/artifacts", bytes.NewReader(blob), headers)
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}

	var ar ArtifactResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("decode artifact response: %w", err)
	}
	return ar.URL, nil
}

// RemoteError represents a structured error from the server.
type RemoteError struct {
	Code    string
	Message string
	Status  int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%d) %s: %s", e.Status, e.Code, e.Message)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return &RemoteError{
			Code:    "unknown",
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	return &RemoteError{
		Code:    errResp.Error,
		Message: errResp.Message,
		Status:  resp.StatusCode,
	}
}
