package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/id"
)

type publishEventRequest struct {
	Type       string         `json:"type"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Data       map[string]any `json:"data"`
}

// publishEvent accepts a domain event and hands it to the delivery engine.
// Fan-out is asynchronous; the 202 acknowledges acceptance, not delivery.
func (h *Handler) publishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishEventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, envelope.CodeBadRequest, "invalid request body", nil)
		return
	}

	def, ok := h.catalog.Get(req.Type)
	if !ok {
		h.writeError(w, envelope.CodeBadRequest,
			fmt.Sprintf("unknown event type %q", req.Type), map[string]string{"field": "type"})
		return
	}
	if h.validator != nil && len(def.Schema) > 0 {
		if err := h.validator.Validate(def.Schema, req.Data); err != nil {
			h.writeError(w, envelope.CodeBadRequest, "event payload failed validation", map[string]string{"field": "data"})
			return
		}
	}

	evt := &delivery.Event{
		ID:       id.NewEventID(),
		Type:     req.Type,
		TenantID: Caller(r.Context()).TenantID,
		Data:     req.Data,
	}
	if req.OccurredAt != nil {
		evt.OccurredAt = *req.OccurredAt
	}

	if err := h.engine.Publish(r.Context(), evt); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusAccepted, map[string]string{
		"event_id": evt.ID.String(),
		"type":     evt.Type,
	})
}

func (h *Handler) listEventTypes(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.catalog.Definitions())
}
