package subscription

// Input is the creation/update payload for subscriptions.
type Input struct {
	// TenantID identifies the owning tenant. Required on create.
	TenantID string `json:"tenant_id"`

	// Name is a human-readable label. Required on create.
	Name string `json:"name"`

	// URL is the delivery target. Must use the https scheme.
	URL string `json:"url"`

	// Events is the set of subscribed event types. Must be non-empty and
	// drawn from the catalog vocabulary.
	Events []string `json:"events"`

	// PayloadFields is an optional allow-list of top-level payload field
	// names. Nil leaves the existing filter unchanged on update; an empty
	// slice clears it.
	PayloadFields []string `json:"payload_fields,omitempty"`
}
