package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/kvalchek/pictor/internal/models"
)

// MockClient is an in-memory SessionClient implementation for testing.
// Error fields can be set per operation to exercise failure paths; call
// counters record what the code under test actually did. Fire-and-forget
// persistence runs on its own goroutine, so access is mutex-guarded.
type MockClient struct {
	mu sync.Mutex

	// Sessions stores canned server-side state by session id.
	Sessions map[string]*models.SessionState
	// EditResults is returned by SubmitEdit.
	EditResults []string
	// ArtifactURL is returned by UploadArtifact.
	ArtifactURL string

	FetchErr    error
	UploadErr   error
	EditErr     error
	SelectErr   error
	ClearErr    error
	ArtifactErr error

	EditCalls     []*EditRequest
	SelectCalls   []string
	ClearCalls    int
	ArtifactCalls int
	UploadCalls   int
}

// NewMockClient creates a MockClient with no sessions.
func NewMockClient() *MockClient {
	return &MockClient{
		Sessions:    make(map[string]*models.SessionState),
		ArtifactURL: "artifact://mask",
	}
}

// SetSession installs canned state for a session id.
func (m *MockClient) SetSession(state *models.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[state.SessionID] = state
}

func (m *MockClient) FetchSession(_ context.Context, id string) (*models.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	state, ok := m.Sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (m *MockClient) UploadImage(_ context.Context, id, filename string, _ []byte) (*models.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadCalls++
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	state := &models.SessionState{
		SessionID: id,
		ActiveURL: "img://" + filename,
		Versions: []*models.VersionEntry{
			{URL: "img://" + filename, Instruction: "original upload"},
		},
	}
	m.Sessions[id] = state
	return state.Clone(), nil
}

func (m *MockClient) SubmitEdit(_ context.Context, _ string, req *EditRequest) (*EditResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EditCalls = append(m.EditCalls, req)
	if m.EditErr != nil {
		return nil, m.EditErr
	}
	return &EditResponse{ResultURLs: append([]string(nil), m.EditResults...)}, nil
}

func (m *MockClient) SelectVersion(_ context.Context, id, versionURL string) (*models.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SelectCalls = append(m.SelectCalls, versionURL)
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	state, ok := m.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("select version: %w", ErrNotFound)
	}
	state.ActiveURL = versionURL
	return state.Clone(), nil
}

func (m *MockClient) ClearSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.Sessions, id)
	return nil
}

func (m *MockClient) UploadArtifact(_ context.Context, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArtifactCalls++
	if m.ArtifactErr != nil {
		return "", m.ArtifactErr
	}
	return m.ArtifactURL, nil
}

// SelectedURLs returns a copy of the recorded select calls.
func (m *MockClient) SelectedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SelectCalls...)
}
