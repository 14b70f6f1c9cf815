package server

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kvalchek/pictor/internal/models"
	"github.com/kvalchek/pictor/internal/remote"
	"github.com/kvalchek/pictor/internal/remote/blobstore"
	"github.com/kvalchek/pictor/internal/remote/metastore"
)

// Config holds the server's runtime settings.
type Config struct {
	// MaxRequestBody caps JSON request bodies in bytes.
	MaxRequestBody int64
	// MaxBlobSize caps image and artifact uploads in bytes.
	MaxBlobSize int64
	// Token is the raw bearer token clients must present.
	Token string
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody: 1 << 20,  // 1 MiB
		MaxBlobSize:    64 << 20, // 64 MiB
	}
}

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Handler serves the pictor-server HTTP API.
type Handler struct {
	sessions  metastore.SessionStore
	blobs     blobstore.BlobStore
	processor Processor
	logger    *slog.Logger
	cfg       *Config
}

// NewHandler creates a Handler backed by the given stores and processor.
func NewHandler(sessions metastore.SessionStore, blobs blobstore.BlobStore, processor Processor, logger *slog.Logger, cfg *Config) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Handler{
		sessions:  sessions,
		blobs:     blobs,
		processor: processor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Routes builds the full route table with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/sessions/{id}", h.handleGetSession)
	api.HandleFunc("DELETE /api/v1/sessions/{id}", h.handleDeleteSession)
	api.HandleFunc("POST /api/v1/sessions/{id}/image", h.handleUploadImage)
	api.HandleFunc("POST /api/v1/sessions/{id}/edits", h.handleSubmitEdit)
	api.HandleFunc("POST /api/v1/sessions/{id}/select", h.handleSelectVersion)
	api.HandleFunc("POST /api/v1/artifacts", h.handleUploadArtifact)
	api.HandleFunc("GET /api/v1/blobs/{hash}", h.handleGetBlob)

	authed := applyMiddleware(api,
		authMiddleware(HashToken(h.cfg.Token)),
		maxBodyMiddleware(h.cfg.MaxBlobSize),
	)
	mux.Handle("/api/v1/", authed)

	return applyMiddleware(mux,
		requestIDMiddleware,
		loggingMiddleware(h.logger),
		recoveryMiddleware(h.logger),
	)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	state, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session: "+id)
			return
		}
		h.logger.Error("get session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.sessions.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session: "+id)
			return
		}
		h.logger.Error("delete session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUploadImage stores the source image and creates the session with
// its root version. Re-uploading replaces the session wholesale.
func (h *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	filename := r.Header.Get("X-Pictor-Filename")
	if filename == "" {
		filename = "upload"
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed", "failed to read request body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty_body", "image body is empty")
		return
	}

	hash := blobstore.HashBlob(data)
	if err := h.blobs.Put(r.Context(), hash, bytes.NewReader(data)); err != nil {
		h.logger.Error("store image blob failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to store image")
		return
	}

	now := time.Now().UTC()
	state := &models.SessionState{
		SessionID: id,
		ActiveURL: BlobURL(hash),
		Versions: []*models.VersionEntry{{
			URL:         BlobURL(hash),
			Instruction: "original upload",
			CreatedAt:   now,
			Settings:    map[string]string{"filename": filename},
		}},
		UpdatedAt: now,
	}

	if err := h.sessions.PutSession(r.Context(), state); err != nil {
		h.logger.Error("put session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

// handleSubmitEdit runs the processor against the session's active image
// and appends the results as new versions. The active url does not move;
// clients select a result explicitly.
func (h *Handler) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req remote.EditRequest
	if err := decodeJSONBody(w, r, h.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "instruction must not be empty")
		return
	}

	state, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session: "+id)
			return
		}
		h.logger.Error("get session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to load session")
		return
	}
	if state.ActiveURL == "" {
		writeError(w, http.StatusConflict, "no_active_version", "session has no active image to edit")
		return
	}

	urls, err := h.processor.Process(r.Context(), &ProcessRequest{
		SessionID:   id,
		SourceURL:   state.ActiveURL,
		Instruction: req.Instruction,
		Params:      req.Params,
		MaskURL:     req.MaskURL,
	})
	if err != nil {
		h.logger.Error("edit processing failed", "session_id", id, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "processing_failed", err.Error())
		return
	}

	now := time.Now().UTC()
	versions := make([]*models.VersionEntry, 0, len(urls))
	for _, u := range urls {
		versions = append(versions, &models.VersionEntry{
			URL:         u,
			Instruction: req.Instruction,
			CreatedAt:   now,
			ParentURL:   state.ActiveURL,
			Settings:    req.Params,
		})
	}

	if err := h.sessions.AppendVersions(r.Context(), id, versions); err != nil {
		h.logger.Error("append versions failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to record edit results")
		return
	}

	writeJSON(w, http.StatusOK, &remote.EditResponse{ResultURLs: urls})
}

func (h *Handler) handleSelectVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req remote.SelectRequest
	if err := decodeJSONBody(w, r, h.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url must not be empty")
		return
	}

	state, err := h.sessions.SetActive(r.Context(), id, req.URL)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "version_not_found", "no such session or version")
			return
		}
		h.logger.Error("select version failed", "session_id", id, "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to select version")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleUploadArtifact(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed", "failed to read request body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty_body", "artifact body is empty")
		return
	}

	hash := blobstore.HashBlob(data)
	if err := h.blobs.Put(r.Context(), hash, bytes.NewReader(data)); err != nil {
		h.logger.Error("store artifact failed", "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to store artifact")
		return
	}

	writeJSON(w, http.StatusCreated, &remote.ArtifactResponse{URL: BlobURL(hash)})
}

func (h *Handler) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if !hashPattern.MatchString(hash) {
		writeError(w, http.StatusBadRequest, "invalid_hash", "hash must be 64 hex characters")
		return
	}

	rc, err := h.blobs.Get(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusNotFound, "blob_not_found", "no such blob: "+hash)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
