package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvalchek/pictor/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "pictor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_KVRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("gallery_items")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("gallery_items", []byte(`[{"session_id":"s1"}]`)))

	val, ok, err := s.Get("gallery_items")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"session_id":"s1"}]`, string(val))

	require.NoError(t, s.Clear("gallery_items"))
	_, ok, err = s.Get("gallery_items")
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing an absent key is fine.
	require.NoError(t, s.Clear("never_set"))
}

func TestStore_SessionCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)

	assert.Nil(t, s.CachedSession("s1"))

	state := &models.SessionState{
		SessionID: "s1",
		ActiveURL: "img://b",
		Versions: []*models.VersionEntry{
			{URL: "img://a", Instruction: "upload"},
			{URL: "img://b", Instruction: "add rain", ParentURL: "img://a"},
		},
	}
	require.NoError(t, s.CacheSession(state))

	got := s.CachedSession("s1")
	require.NotNil(t, got)
	assert.Equal(t, "img://b", got.ActiveURL)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "img://a", got.Versions[1].ParentURL)

	require.NoError(t, s.DropSession("s1"))
	assert.Nil(t, s.CachedSession("s1"))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pictor.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	val, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}
