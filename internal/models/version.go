package models

import "time"

// VersionEntry represents one immutable edit result in a session's history.
// ParentURL references the version this one was derived from; it is empty
// for the original upload and may dangle if the parent was deleted.
type VersionEntry struct {
	URL         string            `json:"url"`
	Instruction string            `json:"instruction"`
	CreatedAt   time.Time         `json:"created_at"`
	ParentURL   string            `json:"parent_url,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// IsRoot returns true for the original upload (no parent reference).
func (v *VersionEntry) IsRoot() bool {
	return v.ParentURL == ""
}

// Clone returns a deep copy of the entry.
func (v *VersionEntry) Clone() *VersionEntry {
	c := *v
	if v.Settings != nil {
		c.Settings = make(map[string]string, len(v.Settings))
		for k, val := range v.Settings {
			c.Settings[k] = val
		}
	}
	return &c
}

// SessionState is the authoritative snapshot of one editing session as
// exchanged with the session store. Versions are unique by URL within a
// session and ordered oldest-first.
type SessionState struct {
	SessionID string          `json:"session_id"`
	ActiveURL string          `json:"active_url,omitempty"`
	Versions  []*VersionEntry `json:"versions"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the session state.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Versions = make([]*VersionEntry, len(s.Versions))
	for i, v := range s.Versions {
		c.Versions[i] = v.Clone()
	}
	return &c
}

// FindVersion returns the entry with the given url, or nil.
func (s *SessionState) FindVersion(url string) *VersionEntry {
	for _, v := range s.Versions {
		if v.URL == url {
			return v
		}
	}
	return nil
}
