// Package gallery maintains the deduplicated one-item-per-session
// projection of all editing sessions, persisted across restarts.
package gallery

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kvalchek/pictor/internal/models"
)

// MaxItems caps the recency-ordered projection.
const MaxItems = 100

// DefaultKey is the persisted-blob key used by the projector.
const DefaultKey = "gallery_items"

// PersistentStore is the durable key-value blob storage the projector
// persists through. Implemented by internal/store on bbolt.
type PersistentStore interface {
	// Get returns the blob for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set stores the blob for key.
	Set(key string, value []byte) error
	// Clear removes the blob for key.
	Clear(key string) error
}

// Projector holds the gallery item list: at most one item per session id,
// newest-first, capped at MaxItems. Every mutation persists the list;
// persistence failures are logged, never surfaced, and corrupted or
// missing stored data hydrates as an empty list.
type Projector struct {
	store  PersistentStore
	key    string
	logger *slog.Logger
	items  []models.GalleryItem
}

// NewProjector creates a projector hydrated from the store.
func NewProjector(store PersistentStore, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Projector{store: store, key: DefaultKey, logger: logger}
	p.hydrate()
	return p
}

func (p *Projector) hydrate() {
	if p.store == nil {
		return
	}
	data, ok, err := p.store.Get(p.key)
	if err != nil || !ok {
		if err != nil {
			p.logger.Warn("gallery hydrate failed, starting empty", "error", err)
		}
		return
	}
	var items []models.GalleryItem
	if err := json.Unmarshal(data, &items); err != nil {
		p.logger.Warn("gallery data corrupted, starting empty", "error", err)
		return
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	p.items = items
}

func (p *Projector) persist() {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(p.items)
	if err != nil {
		p.logger.Warn("gallery marshal failed", "error", err)
		return
	}
	if err := p.store.Set(p.key, data); err != nil {
		p.logger.Warn("gallery persist failed", "error", err)
	}
}

// Record projects an accepted edit: the session's existing item (if any)
// is removed and a fresh item is inserted at the front with the newest
// url and instruction.
func (p *Projector) Record(sessionID, url, instruction string, at time.Time) {
	p.remove(sessionID)
	item := models.GalleryItem{
		SessionID:   sessionID,
		URL:         url,
		Instruction: instruction,
		UpdatedAt:   at,
	}
	p.items = append([]models.GalleryItem{item}, p.items...)
	if len(p.items) > MaxItems {
		p.items = p.items[:MaxItems]
	}
	p.persist()
}

// Remove drops the item for a session. Other sessions are unaffected.
func (p *Projector) Remove(sessionID string) {
	if p.remove(sessionID) {
		p.persist()
	}
}

func (p *Projector) remove(sessionID string) bool {
	for i, item := range p.items {
		if item.SessionID == sessionID {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns the projection newest-first, as value copies.
func (p *Projector) Items() []models.GalleryItem {
	out := make([]models.GalleryItem, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of gallery items.
func (p *Projector) Len() int { return len(p.items) }
