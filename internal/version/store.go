// Package version implements the in-memory per-session store of edit
// versions: an upsert-by-url forest with an active pointer.
package version

import (
	"time"

	"github.com/kvalchek/pictor/internal/models"
)

// Store holds the version history of one editing session. Entries are
// unique by url and kept in insertion order (oldest first); parent links
// form a forest that may dangle after a parent delete, which is tolerated
// rather than treated as an error.
type Store struct {
	sessionID string
	order     []string
	entries   map[string]*models.VersionEntry
	active    string
}

// NewStore creates an empty store for the given session.
func NewStore(sessionID string) *Store {
	return &Store{
		sessionID: sessionID,
		entries:   make(map[string]*models.VersionEntry),
	}
}

// SessionID returns the session this store belongs to.
func (s *Store) SessionID() string { return s.sessionID }

// Len returns the number of retained versions.
func (s *Store) Len() int { return len(s.order) }

// ActiveURL returns the current canonical version url, or "" when the
// session has no versions yet.
func (s *Store) ActiveURL() string { return s.active }

// SetActive moves the active pointer. The url must belong to a retained
// entry; unknown urls are ignored so a stale selection cannot corrupt
// the pointer.
func (s *Store) SetActive(url string) {
	if _, ok := s.entries[url]; ok {
		s.active = url
	}
}

// Upsert appends a version or, when the url already exists, replaces the
// existing entry's metadata in place. The store never holds two entries
// with the same url.
func (s *Store) Upsert(url, instruction, parentURL string, settings map[string]string) *models.VersionEntry {
	entry := &models.VersionEntry{
		URL:         url,
		Instruction: instruction,
		CreatedAt:   time.Now().UTC(),
		ParentURL:   parentURL,
		Settings:    settings,
	}
	if existing, ok := s.entries[url]; ok {
		existing.Instruction = entry.Instruction
		existing.CreatedAt = entry.CreatedAt
		existing.ParentURL = entry.ParentURL
		existing.Settings = entry.Settings
		return existing
	}
	s.entries[url] = entry
	s.order = append(s.order, url)
	return entry
}

// Get returns the entry for url, or nil.
func (s *Store) Get(url string) *models.VersionEntry {
	return s.entries[url]
}

// Delete removes the entry for url. If it was active, the first remaining
// entry in recency order becomes active, or "" when none remain. Children
// referencing the deleted entry keep their parent url; the dangling
// reference is resolved at render time, not here.
func (s *Store) Delete(url string) bool {
	if _, ok := s.entries[url]; !ok {
		return false
	}
	delete(s.entries, url)
	for i, u := range s.order {
		if u == url {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == url {
		s.active = ""
		if len(s.order) > 0 {
			s.active = s.order[len(s.order)-1]
		}
	}
	return true
}

// List returns entry copies newest-first.
func (s *Store) List() []*models.VersionEntry {
	out := make([]*models.VersionEntry, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.entries[s.order[i]].Clone())
	}
	return out
}

// HasParent reports whether the entry's parent is still retained. A false
// result for a non-root entry means the parent link dangles and the entry
// displays root-like.
func (s *Store) HasParent(entry *models.VersionEntry) bool {
	if entry == nil || entry.ParentURL == "" {
		return false
	}
	_, ok := s.entries[entry.ParentURL]
	return ok
}

// Adopt replaces the store's entire content from a remote-returned
// session state. Used when the remote wins (explicit selection).
func (s *Store) Adopt(state *models.SessionState) {
	s.order = s.order[:0]
	s.entries = make(map[string]*models.VersionEntry, len(state.Versions))
	for _, v := range state.Versions {
		if _, ok := s.entries[v.URL]; ok {
			continue
		}
		s.entries[v.URL] = v.Clone()
		s.order = append(s.order, v.URL)
	}
	s.active = ""
	if _, ok := s.entries[state.ActiveURL]; ok {
		s.active = state.ActiveURL
	} else if len(s.order) > 0 {
		s.active = s.order[len(s.order)-1]
	}
}

// Clear drops every entry and the active pointer.
func (s *Store) Clear() {
	s.order = s.order[:0]
	s.entries = make(map[string]*models.VersionEntry)
	s.active = ""
}

// Snapshot exports the store content as a SessionState (oldest-first
// versions, deep-copied).
func (s *Store) Snapshot() *models.SessionState {
	state := &models.SessionState{
		SessionID: s.sessionID,
		ActiveURL: s.active,
		UpdatedAt: time.Now().UTC(),
	}
	for _, url := range s.order {
		state.Versions = append(state.Versions, s.entries[url].Clone())
	}
	return state
}
