package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvalchek/pictor/internal/models"
	"github.com/kvalchek/pictor/internal/remote"
	"github.com/kvalchek/pictor/internal/remote/blobstore"
	"github.com/kvalchek/pictor/internal/remote/metastore"
)

const testToken = "test-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()

	sessions, err := metastore.NewSQLiteStore(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Token = testToken

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(sessions, blobs, NewStubProcessor(blobs), logger, cfg)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, contentType string, body []byte, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)

	req.Header.Set("Authorization", "Bearer "+testToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandler_HealthSkipsAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/s1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsWrongToken(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest("GET", srv.URL+"/api/v1/sessions/s1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_GetUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, "GET", srv.URL+"/api/v1/sessions/missing", "", nil, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_UploadEditSelectFlow(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/sessions/s1"

	// Upload creates the session with a root version.
	resp := doRequest(t, "POST", base+"/image", "application/octet-stream",
		[]byte("fake-png-bytes"), map[string]string{"X-Pictor-Filename": "cat.png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	state := decodeBody[models.SessionState](t, resp)

	require.Len(t, state.Versions, 1)
	root := state.Versions[0]
	assert.Equal(t, root.URL, state.ActiveURL)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "cat.png", root.Settings["filename"])

	// Edit appends results without moving the active url.
	editBody, _ := json.Marshal(&remote.EditRequest{
		Instruction: "add a hat",
		Params:      map[string]string{"variants": "2"},
	})
	resp = doRequest(t, "POST", base+"/edits", "application/json", editBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edit := decodeBody[remote.EditResponse](t, resp)
	require.Len(t, edit.ResultURLs, 2)

	resp = doRequest(t, "GET", base, "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decodeBody[models.SessionState](t, resp)
	assert.Len(t, state.Versions, 3)
	assert.Equal(t, root.URL, state.ActiveURL)
	for _, u := range edit.ResultURLs {
		v := state.FindVersion(u)
		require.NotNil(t, v)
		assert.Equal(t, root.URL, v.ParentURL)
		assert.Equal(t, "add a hat", v.Instruction)
	}

	// Select moves the active url and returns the updated state.
	selectBody, _ := json.Marshal(&remote.SelectRequest{URL: edit.ResultURLs[0]})
	resp = doRequest(t, "POST", base+"/select", "application/json", selectBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decodeBody[models.SessionState](t, resp)
	assert.Equal(t, edit.ResultURLs[0], state.ActiveURL)

	// Delete removes the session entirely.
	resp = doRequest(t, "DELETE", base, "", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, "GET", base, "", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_EditWithoutSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	editBody, _ := json.Marshal(&remote.EditRequest{Instruction: "crop"})
	resp := doRequest(t, "POST", srv.URL+"/api/v1/sessions/ghost/edits", "application/json", editBody, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_EditRequiresInstruction(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/sessions/s1"

	resp := doRequest(t, "POST", base+"/image", "application/octet-stream", []byte("img"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	editBody, _ := json.Marshal(&remote.EditRequest{Instruction: "   "})
	resp = doRequest(t, "POST", base+"/edits", "application/json", editBody, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SelectUnknownVersionIs404(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/sessions/s1"

	resp := doRequest(t, "POST", base+"/image", "application/octet-stream", []byte("img"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	selectBody, _ := json.Marshal(&remote.SelectRequest{URL: "/api/v1/blobs/" + strings.Repeat("0", 64)})
	resp = doRequest(t, "POST", base+"/select", "application/json", selectBody, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_ArtifactUploadAndBlobFetch(t *testing.T) {
	srv := newTestServer(t)
	content := []byte("mask-png-bytes")

	resp := doRequest(t, "POST", srv.URL+"/api/v1/artifacts", "application/octet-stream", content, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ar := decodeBody[remote.ArtifactResponse](t, resp)
	require.True(t, strings.HasPrefix(ar.URL, "/api/v1/blobs/"))

	resp = doRequest(t, "GET", srv.URL+ar.URL, "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestHandler_BlobFetchRejectsBadHash(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, "GET", srv.URL+"/api/v1/blobs/not-a-hash", "", nil, nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_HTTPClientEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	client := remote.NewHTTPClient(srv.URL, testToken)
	ctx := context.Background()

	_, err := client.FetchSession(ctx, "s1")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	state, err := client.UploadImage(ctx, "s1", "cat.png", []byte("img"))
	require.NoError(t, err)
	require.Len(t, state.Versions, 1)

	edit, err := client.SubmitEdit(ctx, "s1", &remote.EditRequest{Instruction: "blur the sky"})
	require.NoError(t, err)
	require.Len(t, edit.ResultURLs, 1)

	state, err = client.SelectVersion(ctx, "s1", edit.ResultURLs[0])
	require.NoError(t, err)
	assert.Equal(t, edit.ResultURLs[0], state.ActiveURL)

	maskURL, err := client.UploadArtifact(ctx, []byte("mask"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(maskURL, "/api/v1/blobs/"))

	require.NoError(t, client.ClearSession(ctx, "s1"))
	_, err = client.FetchSession(ctx, "s1")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}
