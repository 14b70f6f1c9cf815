package metastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvalchek/pictor/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	state := &models.SessionState{
		SessionID: "s1",
		ActiveURL: "img://b",
		Versions: []*models.VersionEntry{
			{URL: "img://a", Instruction: "original upload"},
			{URL: "img://b", Instruction: "add rain", ParentURL: "img://a", Settings: map[string]string{"strength": "0.8"}},
		},
	}
	require.NoError(t, s.PutSession(ctx, state))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "img://b", got.ActiveURL)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "img://a", got.Versions[0].URL)
	assert.Equal(t, "img://a", got.Versions[1].ParentURL)
	assert.Equal(t, "0.8", got.Versions[1].Settings["strength"])
}

func TestSQLiteStore_AppendVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.AppendVersions(ctx, "ghost", []*models.VersionEntry{{URL: "img://x"}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutSession(ctx, &models.SessionState{
		SessionID: "s1",
		ActiveURL: "img://a",
		Versions:  []*models.VersionEntry{{URL: "img://a", Instruction: "original upload"}},
	}))

	require.NoError(t, s.AppendVersions(ctx, "s1", []*models.VersionEntry{
		{URL: "img://b", Instruction: "add rain", ParentURL: "img://a"},
		{URL: "img://c", Instruction: "add rain", ParentURL: "img://a"},
	}))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Versions, 3)
	assert.Equal(t, "img://c", got.Versions[2].URL)
	// Appending does not move the active pointer.
	assert.Equal(t, "img://a", got.ActiveURL)
}

func TestSQLiteStore_AppendUpsertsByURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutSession(ctx, &models.SessionState{
		SessionID: "s1",
		Versions:  []*models.VersionEntry{{URL: "img://a", Instruction: "original upload"}},
	}))
	require.NoError(t, s.AppendVersions(ctx, "s1", []*models.VersionEntry{
		{URL: "img://a", Instruction: "reprocessed"},
	}))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, "reprocessed", got.Versions[0].Instruction)
}

func TestSQLiteStore_SetActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutSession(ctx, &models.SessionState{
		SessionID: "s1",
		ActiveURL: "img://b",
		Versions: []*models.VersionEntry{
			{URL: "img://a"},
			{URL: "img://b", ParentURL: "img://a"},
		},
	}))

	got, err := s.SetActive(ctx, "s1", "img://a")
	require.NoError(t, err)
	assert.Equal(t, "img://a", got.ActiveURL)
	assert.Len(t, got.Versions, 2)

	_, err = s.SetActive(ctx, "s1", "img://ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SetActive(ctx, "ghost", "img://a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_DeleteSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutSession(ctx, &models.SessionState{
		SessionID: "s1",
		Versions:  []*models.VersionEntry{{URL: "img://a"}},
	}))

	count, err := s.SessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.DeleteSession(ctx, "s1"))
	_, err = s.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing session is fine.
	require.NoError(t, s.DeleteSession(ctx, "s1"))
}
