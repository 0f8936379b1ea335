package api

import (
	"net/http"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/id"
)

type issueKeyRequest struct {
	Name           string   `json:"name"`
	Tier           string   `json:"tier"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

func (h *Handler) issueKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	tier, err := credential.ParseTier(req.Tier)
	if err != nil {
		h.writeError(w, envelope.CodeBadRequest, "unknown tier", map[string]string{"field": "tier"})
		return
	}

	issued, err := h.creds.Issue(r.Context(), credential.Input{
		TenantID:       Caller(r.Context()).TenantID,
		Name:           req.Name,
		Tier:           tier,
		AllowedOrigins: req.AllowedOrigins,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// The plaintext secret appears in this response and never again.
	h.writeData(w, http.StatusCreated, issued)
}

func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	page := envelope.ParsePage(r.URL.Query())
	srt := envelope.ParseSort(r.URL.Query(), []string{"created_at", "name"})

	keys, err := h.creds.List(r.Context(), Caller(r.Context()).TenantID, credential.ListOpts{
		Offset:    page.Offset(),
		Limit:     page.Size,
		SortField: srt.Field,
		SortDesc:  srt.Desc,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, keys)
}

// ownedKey loads the path credential and enforces tenant scoping.
func (h *Handler) ownedKey(w http.ResponseWriter, r *http.Request) (*credential.Credential, bool) {
	credID, err := id.ParseCredentialID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid API key ID", nil)
		return nil, false
	}

	c, err := h.creds.Get(r.Context(), credID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if c.TenantID != Caller(r.Context()).TenantID {
		h.writeError(w, envelope.CodeNotFound, "API key not found", nil)
		return nil, false
	}
	return c, true
}

func (h *Handler) getKey(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedKey(w, r)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, c)
}

func (h *Handler) revokeKey(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedKey(w, r)
	if !ok {
		return
	}

	if err := h.creds.Revoke(r.Context(), c.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
