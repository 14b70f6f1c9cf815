package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvalchek/pictor/internal/models"
)

func TestStore_UpsertIsIdempotentByURL(t *testing.T) {
	s := NewStore("sess-1")

	s.Upsert("img://a", "original upload", "", nil)
	s.Upsert("img://a", "reprocessed", "", map[string]string{"strength": "0.7"})

	require.Equal(t, 1, s.Len())
	entry := s.Get("img://a")
	require.NotNil(t, entry)
	assert.Equal(t, "reprocessed", entry.Instruction)
	assert.Equal(t, "0.7", entry.Settings["strength"])
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.Upsert("img://b", "add rain", "img://a", nil)
	s.Upsert("img://c", "add fog", "img://b", nil)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "img://c", list[0].URL)
	assert.Equal(t, "img://b", list[1].URL)
	assert.Equal(t, "img://a", list[2].URL)
}

func TestStore_ListReturnsCopies(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)

	list := s.List()
	list[0].Instruction = "mutated"

	assert.Equal(t, "upload", s.Get("img://a").Instruction)
}

func TestStore_DeleteActivePromotesNextNewest(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://v3", "three", "", nil)
	s.Upsert("img://v2", "two", "img://v3", nil)
	s.Upsert("img://v1", "one", "img://v2", nil)
	s.SetActive("img://v1")

	// Display order is [v1(active), v2, v3]; deleting the active entry
	// promotes the first remaining entry in recency order.
	require.True(t, s.Delete("img://v1"))
	assert.Equal(t, "img://v2", s.ActiveURL())

	s.Delete("img://v2")
	assert.Equal(t, "img://v3", s.ActiveURL())

	s.Delete("img://v3")
	assert.Equal(t, "", s.ActiveURL())
	assert.Equal(t, 0, s.Len())
}

func TestStore_DeleteNonActiveKeepsPointer(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.Upsert("img://b", "edit", "img://a", nil)
	s.SetActive("img://b")

	s.Delete("img://a")
	assert.Equal(t, "img://b", s.ActiveURL())
}

func TestStore_DanglingParentIsTolerated(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.Upsert("img://b", "edit", "img://a", nil)

	require.True(t, s.Delete("img://a"))

	child := s.Get("img://b")
	require.NotNil(t, child)
	assert.Equal(t, "img://a", child.ParentURL)
	assert.False(t, s.HasParent(child), "deleted parent displays root-like")
	assert.False(t, child.IsRoot(), "the dangling link itself is kept")
}

func TestStore_SetActiveIgnoresUnknownURL(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.SetActive("img://a")

	s.SetActive("img://ghost")
	assert.Equal(t, "img://a", s.ActiveURL())
}

func TestStore_AdoptReplacesContentVerbatim(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://local", "local only", "", nil)
	s.SetActive("img://local")

	remote := &models.SessionState{
		SessionID: "sess-1",
		ActiveURL: "img://a",
		Versions: []*models.VersionEntry{
			{URL: "img://a", Instruction: "upload"},
			{URL: "img://b", Instruction: "add rain", ParentURL: "img://a"},
		},
	}
	s.Adopt(remote)

	assert.Equal(t, "img://a", s.ActiveURL())
	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Get("img://local"))

	// Adopted entries are copies, not aliases into the remote state.
	remote.Versions[0].Instruction = "mutated"
	assert.Equal(t, "upload", s.Get("img://a").Instruction)
}

func TestStore_AdoptFallsBackWhenActiveUnknown(t *testing.T) {
	s := NewStore("sess-1")
	s.Adopt(&models.SessionState{
		SessionID: "sess-1",
		ActiveURL: "img://ghost",
		Versions: []*models.VersionEntry{
			{URL: "img://a", Instruction: "upload"},
			{URL: "img://b", Instruction: "edit"},
		},
	})
	assert.Equal(t, "img://b", s.ActiveURL())
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.Upsert("img://b", "edit", "img://a", map[string]string{"seed": "42"})
	s.SetActive("img://b")

	state := s.Snapshot()
	assert.Equal(t, "sess-1", state.SessionID)
	assert.Equal(t, "img://b", state.ActiveURL)
	require.Len(t, state.Versions, 2)
	assert.Equal(t, "img://a", state.Versions[0].URL)

	other := NewStore("sess-1")
	other.Adopt(state)
	assert.Equal(t, "img://b", other.ActiveURL())
	assert.Equal(t, "42", other.Get("img://b").Settings["seed"])
}

func TestStore_Clear(t *testing.T) {
	s := NewStore("sess-1")
	s.Upsert("img://a", "upload", "", nil)
	s.SetActive("img://a")

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.ActiveURL())
}
