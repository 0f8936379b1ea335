package api

import (
	"net/http"

	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
)

type syncConfigRequest struct {
	Repo     string `json:"repo"`
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	AutoSync bool   `json:"auto_sync"`
}

func (req syncConfigRequest) input(tenantID string) gitsync.Input {
	return gitsync.Input{
		TenantID: tenantID,
		Repo:     req.Repo,
		Path:     req.Path,
		Branch:   req.Branch,
		AutoSync: req.AutoSync,
	}
}

func (h *Handler) createSyncConfig(w http.ResponseWriter, r *http.Request) {
	var req syncConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	cfg, err := h.syncs.Create(r.Context(), req.input(Caller(r.Context()).TenantID))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, cfg)
}

func (h *Handler) listSyncConfigs(w http.ResponseWriter, r *http.Request) {
	page := envelope.ParsePage(r.URL.Query())

	cfgs, err := h.syncs.List(r.Context(), Caller(r.Context()).TenantID, gitsync.ListOpts{
		Offset: page.Offset(),
		Limit:  page.Size,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, cfgs)
}

// ownedSyncConfig loads the path sync config and enforces tenant scoping.
func (h *Handler) ownedSyncConfig(w http.ResponseWriter, r *http.Request) (*gitsync.Config, bool) {
	cfgID, err := id.ParseSyncConfigID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid sync config ID", nil)
		return nil, false
	}

	cfg, err := h.syncs.Get(r.Context(), cfgID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if cfg.TenantID != Caller(r.Context()).TenantID {
		h.writeError(w, envelope.CodeNotFound, "sync config not found", nil)
		return nil, false
	}
	return cfg, true
}

func (h *Handler) getSyncConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.ownedSyncConfig(w, r)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, cfg)
}

func (h *Handler) updateSyncConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.ownedSyncConfig(w, r)
	if !ok {
		return
	}

	var req syncConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	updated, err := h.syncs.Update(r.Context(), cfg.ID, req.input(cfg.TenantID))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, updated)
}

func (h *Handler) deleteSyncConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.ownedSyncConfig(w, r)
	if !ok {
		return
	}

	if err := h.syncs.Delete(r.Context(), cfg.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// triggerSync runs one push and returns the config in its final state, which
// is always synced or error, never syncing.
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.ownedSyncConfig(w, r)
	if !ok {
		return
	}

	result, err := h.syncs.Trigger(r.Context(), cfg.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}
