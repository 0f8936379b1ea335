package api

import (
	"errors"
	"net/http"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/envelope"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/internal/gwerr"
	"github.com/speckit/gateway/subscription"
)

// writeServiceError translates a service-layer error into the fixed envelope
// taxonomy. Validation failures carry the offending field; downstream
// failures collapse to INTERNAL_ERROR with no internals echoed to the caller.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var subVal *subscription.ValidationError
	var credVal *credential.ValidationError
	var syncVal *gitsync.ValidationError

	switch {
	case errors.As(err, &subVal):
		h.writeError(w, envelope.CodeBadRequest, subVal.Message, map[string]string{"field": subVal.Field})
	case errors.As(err, &credVal):
		h.writeError(w, envelope.CodeBadRequest, credVal.Message, map[string]string{"field": credVal.Field})
	case errors.As(err, &syncVal):
		h.writeError(w, envelope.CodeBadRequest, syncVal.Message, map[string]string{"field": syncVal.Field})
	case errors.Is(err, gwerr.ErrSubscriptionNotFound):
		h.writeError(w, envelope.CodeNotFound, "subscription not found", nil)
	case errors.Is(err, gwerr.ErrSyncConfigNotFound):
		h.writeError(w, envelope.CodeNotFound, "sync config not found", nil)
	case errors.Is(err, gwerr.ErrCredentialNotFound):
		h.writeError(w, envelope.CodeNotFound, "API key not found", nil)
	case errors.Is(err, gwerr.ErrDeliveryNotFound):
		h.writeError(w, envelope.CodeNotFound, "delivery not found", nil)
	case errors.Is(err, subscription.ErrDisabled):
		h.writeError(w, envelope.CodeBadRequest, "subscription is disabled; edit it to re-enable", nil)
	case errors.Is(err, gitsync.ErrNoConnection):
		h.writeError(w, envelope.CodeBadRequest, "no remote connection configured for this tenant", nil)
	case errors.Is(err, gwerr.ErrEventTypeUnknown):
		h.writeError(w, envelope.CodeBadRequest, "unknown event type", nil)
	case errors.Is(err, gwerr.ErrPayloadValidationFailed):
		h.writeError(w, envelope.CodeBadRequest, "event payload failed validation", nil)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, envelope.CodeInternalError, "internal server error", nil)
	}
}
