package models

import "time"

// GalleryItem is the per-session projection shown in the "all edited
// images" view: exactly one item per session, bearing the most recently
// accepted version's url and instruction. Items are value copies of
// version data, never aliases into a session's version list.
type GalleryItem struct {
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url"`
	Instruction string    `json:"instruction"`
	UpdatedAt   time.Time `json:"updated_at"`
}
