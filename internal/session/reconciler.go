// Package session orchestrates one editing session: it loads remote
// state, applies optimistic local mutations, and reconciles the two with
// operation-specific merge rules (local wins on edit, remote wins on
// explicit selection).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kvalchek/pictor/internal/gallery"
	"github.com/kvalchek/pictor/internal/models"
	"github.com/kvalchek/pictor/internal/remote"
	"github.com/kvalchek/pictor/internal/version"
)

// State is the reconciler lifecycle state.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Sentinel errors for expected gating conditions.
var (
	// ErrBusy means another remote operation is in flight. Rejected
	// submissions are dropped, never queued; callers ignore this silently.
	ErrBusy = errors.New("operation already in flight")
	// ErrNotReady means the session has not finished loading.
	ErrNotReady = errors.New("session not ready")
)

// Cache is the advisory local session cache. A nil cache disables
// cache seeding and writes.
type Cache interface {
	CacheSession(state *models.SessionState) error
	CachedSession(id string) *models.SessionState
	DropSession(id string) error
}

// Options configures optional reconciler collaborators.
type Options struct {
	Gallery *gallery.Projector
	Cache   Cache
	Logger  *slog.Logger
	// Async runs fire-and-forget persistence. Defaults to a goroutine;
	// short-lived callers pass a synchronous runner so writes land
	// before the process exits.
	Async func(fn func())
}

// Reconciler drives one session. Remote calls run outside the lock; the
// Busy flag serializes them, and a load generation counter discards
// fetch results that arrive after the consumer has moved on.
type Reconciler struct {
	mu        sync.Mutex
	sessionID string
	state     State
	busy      bool
	loadGen   int

	store   *version.Store
	client  remote.SessionClient
	gallery *gallery.Projector
	cache   Cache
	logger  *slog.Logger

	errMsg        string
	pendingPrompt string

	// async runs fire-and-forget persistence. Tests replace it to run
	// synchronously.
	async func(fn func())
}

// New creates a reconciler for the given session.
func New(sessionID string, client remote.SessionClient, opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	async := opts.Async
	if async == nil {
		async = func(fn func()) { go fn() }
	}
	return &Reconciler{
		sessionID: sessionID,
		store:     version.NewStore(sessionID),
		client:    client,
		gallery:   opts.Gallery,
		cache:     opts.Cache,
		logger:    logger,
		async:     async,
	}
}

// SessionID returns the session identifier.
func (r *Reconciler) SessionID() string { return r.sessionID }

// State returns the lifecycle state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Busy reports whether a remote operation is in flight.
func (r *Reconciler) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Err returns the single current error message, or "".
func (r *Reconciler) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// DismissError clears the current error message.
func (r *Reconciler) DismissError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = ""
}

// ActiveURL returns the current canonical image url, or "".
func (r *Reconciler) ActiveURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ActiveURL()
}

// Versions returns the version list newest-first.
func (r *Reconciler) Versions() []*models.VersionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.List()
}

// HasParent reports whether the entry's parent is still present. A
// deleted parent leaves the child detached but valid.
func (r *Reconciler) HasParent(v *models.VersionEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.HasParent(v)
}

// PendingPrompt returns the instruction of the in-flight edit, or "".
func (r *Reconciler) PendingPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingPrompt
}

// Open transitions Uninitialized -> Loading -> Ready. A found remote
// session seeds the version store; a missing one is a fresh session, not
// an error, seeded from the local cache when available or else from
// sourceURL as a one-entry root. Transport failures also fall back to
// local data, with the failure surfaced.
//
// If Close is called before the fetch resolves, the result is discarded
// rather than applied to a stale consumer.
func (r *Reconciler) Open(ctx context.Context, sourceURL string) {
	r.mu.Lock()
	r.state = Loading
	r.loadGen++
	gen := r.loadGen
	r.mu.Unlock()

	state, err := r.client.FetchSession(ctx, r.sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.loadGen {
		return // a Close or newer Open superseded this load
	}

	switch {
	case err == nil:
		r.store.Adopt(state)
		r.cacheLocked()
	case errors.Is(err, remote.ErrNotFound):
		r.seedFallbackLocked(sourceURL)
	default:
		r.seedFallbackLocked(sourceURL)
		r.errMsg = operationFailed(err)
	}
	r.state = Ready
}

// seedFallbackLocked seeds the version store when the remote has nothing:
// cached session state first, else a one-entry root from sourceURL.
func (r *Reconciler) seedFallbackLocked(sourceURL string) {
	if r.cache != nil {
		if cached := r.cache.CachedSession(r.sessionID); cached != nil && len(cached.Versions) > 0 {
			r.store.Adopt(cached)
			return
		}
	}
	if sourceURL != "" {
		r.store.Upsert(sourceURL, "original upload", "", nil)
		r.store.SetActive(sourceURL)
	}
}

// Close invalidates any in-flight load so its result is discarded.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadGen++
}

// Upload sends the source image to the remote store, adopting the
// returned session state and creating the session's gallery item.
func (r *Reconciler) Upload(ctx context.Context, filename string, blob []byte) error {
	if err := r.begin(); err != nil {
		return err
	}

	state, err := r.client.UploadImage(ctx, r.sessionID, filename, blob)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	if err != nil {
		r.errMsg = operationFailed(err)
		return err
	}

	r.store.Adopt(state)
	r.projectLocked()
	r.cacheLocked()
	return nil
}

// SubmitEdit runs one edit: optional mask artifact upload, then the edit
// itself. On success the result versions are created locally, parented at
// the previous active url, and the first result becomes active
// optimistically; persistence of that selection to the remote store is
// fire-and-forget (failures logged, local state stays authoritative).
// On any failure no version is created and prior state is untouched.
func (r *Reconciler) SubmitEdit(ctx context.Context, instruction string, params map[string]string, mask []byte) error {
	if err := r.begin(); err != nil {
		return err
	}
	r.mu.Lock()
	r.pendingPrompt = instruction
	parent := r.store.ActiveURL()
	r.mu.Unlock()

	req := &remote.EditRequest{Instruction: instruction, Params: params}

	if len(mask) > 0 {
		maskURL, err := r.client.UploadArtifact(ctx, mask)
		if err != nil {
			// The whole edit aborts before any version is created.
			r.fail(fmt.Sprintf("mask upload failed: %s", operationFailed(err)))
			return err
		}
		req.MaskURL = maskURL
	}

	resp, err := r.client.SubmitEdit(ctx, r.sessionID, req)
	if err != nil {
		r.fail(operationFailed(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	r.pendingPrompt = ""

	if len(resp.ResultURLs) == 0 {
		r.errMsg = "edit produced no results"
		return errors.New(r.errMsg)
	}

	for _, url := range resp.ResultURLs {
		r.store.Upsert(url, instruction, parent, params)
	}
	active := resp.ResultURLs[0]
	r.store.SetActive(active)
	r.projectLocked()
	r.cacheLocked()

	// Local state wins for the rest of the session; the remote store is
	// brought along best-effort.
	r.async(func() {
		if _, err := r.client.SelectVersion(context.Background(), r.sessionID, active); err != nil {
			r.logger.Warn("persist selection failed", "session", r.sessionID, "url", active, "error", err)
		}
	})
	return nil
}

// Use selects an existing version. On success the server-returned state
// replaces local state verbatim: on explicit selection the remote wins,
// unlike edit submission where the local optimistic update wins.
func (r *Reconciler) Use(ctx context.Context, url string) error {
	if err := r.begin(); err != nil {
		return err
	}

	state, err := r.client.SelectVersion(ctx, r.sessionID, url)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	if err != nil {
		r.errMsg = operationFailed(err)
		return err
	}

	r.store.Adopt(state)
	r.projectLocked()
	r.cacheLocked()
	return nil
}

// Reset clears the remote session, then all local state. Fire-then-clear:
// a failed remote clear surfaces an error and leaves local versions
// intact rather than silently losing them.
func (r *Reconciler) Reset(ctx context.Context) error {
	if err := r.begin(); err != nil {
		return err
	}

	err := r.client.ClearSession(ctx, r.sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	if err != nil {
		r.errMsg = operationFailed(err)
		return err
	}

	r.store.Clear()
	r.pendingPrompt = ""
	if r.gallery != nil {
		r.gallery.Remove(r.sessionID)
	}
	if r.cache != nil {
		if err := r.cache.DropSession(r.sessionID); err != nil {
			r.logger.Warn("drop cached session failed", "session", r.sessionID, "error", err)
		}
	}
	return nil
}

// DeleteVersion removes a version locally. Children keep their parent
// reference; the gallery and cache are reprojected.
func (r *Reconciler) DeleteVersion(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.store.Delete(url) {
		return false
	}
	r.projectLocked()
	r.cacheLocked()
	return true
}

// begin gates a remote operation: the session must be Ready and idle.
// Starting an operation clears the surfaced error.
func (r *Reconciler) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Ready {
		return ErrNotReady
	}
	if r.busy {
		return ErrBusy
	}
	r.busy = true
	r.errMsg = ""
	return nil
}

// fail releases the busy gate and surfaces a message.
func (r *Reconciler) fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	r.pendingPrompt = ""
	r.errMsg = msg
}

// projectLocked refreshes the session's gallery item from the active
// version, or removes it when the session is empty.
func (r *Reconciler) projectLocked() {
	if r.gallery == nil {
		return
	}
	active := r.store.ActiveURL()
	if active == "" {
		r.gallery.Remove(r.sessionID)
		return
	}
	entry := r.store.Get(active)
	if entry == nil {
		return
	}
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	r.gallery.Record(r.sessionID, entry.URL, entry.Instruction, at)
}

// cacheLocked writes the current session snapshot to the local cache.
func (r *Reconciler) cacheLocked() {
	if r.cache == nil {
		return
	}
	if err := r.cache.CacheSession(r.store.Snapshot()); err != nil {
		r.logger.Warn("cache session failed", "session", r.sessionID, "error", err)
	}
}

// operationFailed flattens any transport failure to the single
// human-readable message surfaced to the user.
func operationFailed(err error) string {
	var re *remote.RemoteError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		return re.Code
	}
	return err.Error()
}
