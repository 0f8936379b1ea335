package api

import (
	"net/http"

	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/subscription"
)

type subscriptionRequest struct {
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Events        []string `json:"events"`
	PayloadFields []string `json:"payload_fields,omitempty"`
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	created, err := h.subs.Create(r.Context(), subscription.Input{
		TenantID:      Caller(r.Context()).TenantID,
		Name:          req.Name,
		URL:           req.URL,
		Events:        req.Events,
		PayloadFields: req.PayloadFields,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// The signing secret appears in this response and never again.
	h.writeData(w, http.StatusCreated, created)
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	tenantID := Caller(r.Context()).TenantID
	page := envelope.ParsePage(r.URL.Query())
	srt := envelope.ParseSort(r.URL.Query(), []string{"created_at", "name"})

	opts := subscription.ListOpts{
		Offset:    page.Offset(),
		Limit:     page.Size,
		SortField: srt.Field,
		SortDesc:  srt.Desc,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := subscription.Status(s)
		opts.Status = &status
	}

	subs, err := h.subs.List(r.Context(), tenantID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	total, err := h.subs.Count(r.Context(), tenantID, subscription.ListOpts{Status: opts.Status})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeList(w, subs, page, total)
}

// ownedSubscription loads the path subscription and enforces tenant scoping.
// A foreign tenant's subscription is indistinguishable from a missing one.
func (h *Handler) ownedSubscription(w http.ResponseWriter, r *http.Request) (*subscription.Subscription, bool) {
	subID, err := id.ParseSubscriptionID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid subscription ID", nil)
		return nil, false
	}

	sub, err := h.subs.Get(r.Context(), subID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if sub.TenantID != Caller(r.Context()).TenantID {
		h.writeError(w, envelope.CodeNotFound, "subscription not found", nil)
		return nil, false
	}
	return sub, true
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, sub)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	updated, err := h.subs.Update(r.Context(), sub.ID, subscription.Input{
		TenantID:      sub.TenantID,
		Name:          req.Name,
		URL:           req.URL,
		Events:        req.Events,
		PayloadFields: req.PayloadFields,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, updated)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	if err := h.subs.Delete(r.Context(), sub.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	toggled, err := h.subs.Toggle(r.Context(), sub.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, toggled)
}

func (h *Handler) disableSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	disabled, err := h.subs.Disable(r.Context(), sub.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, disabled)
}

type testSubscriptionRequest struct {
	EventType string `json:"event_type"`
}

func (h *Handler) testSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	var req testSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}
	if req.EventType == "" {
		req.EventType = sub.Events[0]
	}
	if !h.catalog.Valid(req.EventType) {
		h.writeError(w, envelope.CodeBadRequest, "unknown event type", map[string]string{"field": "event_type"})
		return
	}
	if !sub.Subscribed(req.EventType) {
		h.writeError(w, envelope.CodeBadRequest, "subscription does not subscribe to this event type", map[string]string{"field": "event_type"})
		return
	}

	d, err := h.engine.TestSend(r.Context(), sub, req.EventType)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, d)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.ownedSubscription(w, r)
	if !ok {
		return
	}

	page := envelope.ParsePage(r.URL.Query())
	srt := envelope.ParseSort(r.URL.Query(), []string{"attempted_at"})
	opts := delivery.ListOpts{
		Offset: page.Offset(),
		Limit:  page.Size,
		// Newest first unless the caller asks for attempted_at ascending.
		SortAsc: srt.Field != "" && !srt.Desc,
	}

	log, err := h.log.ListDeliveries(r.Context(), sub.ID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	total, err := h.log.CountDeliveries(r.Context(), sub.ID, delivery.ListOpts{})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeList(w, log, page, total)
}
