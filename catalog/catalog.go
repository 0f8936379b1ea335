// Package catalog defines the fixed vocabulary of domain event types the
// gateway publishes, plus optional JSON Schema validation of event payloads.
package catalog

import (
	"encoding/json"
	"sort"
	"sync"
)

// Event type names. The vocabulary is fixed: subscriptions may only select
// from this set, and publishes of any other type are rejected.
const (
	SpecCreated         = "spec.created"
	SpecUpdated         = "spec.updated"
	SpecDeleted         = "spec.deleted"
	EpicCreated         = "epic.created"
	EpicUpdated         = "epic.updated"
	EpicDeleted         = "epic.deleted"
	FeatureCreated      = "feature.created"
	FeatureUpdated      = "feature.updated"
	FeatureDeleted      = "feature.deleted"
	GenerationCompleted = "generation.completed"
)

// Definition describes one event type in the vocabulary.
type Definition struct {
	// Name is the dot-separated event type name, "<resource>.<action>".
	Name string `json:"name"`

	// Description is a human-readable explanation of when this event fires.
	Description string `json:"description"`

	// Group is the resource category ("spec", "epic", "feature", "generation").
	Group string `json:"group"`

	// Schema is an optional JSON Schema describing the payload shape.
	// When set, published payloads are validated against it.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Catalog is the static event type vocabulary.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns a Catalog preloaded with the standard vocabulary.
func New() *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(standard))}
	for _, d := range standard {
		c.defs[d.Name] = d
	}
	return c
}

var standard = []Definition{
	{Name: SpecCreated, Description: "A project specification was created", Group: "spec"},
	{Name: SpecUpdated, Description: "A project specification was updated", Group: "spec"},
	{Name: SpecDeleted, Description: "A project specification was deleted", Group: "spec"},
	{Name: EpicCreated, Description: "An epic was created", Group: "epic"},
	{Name: EpicUpdated, Description: "An epic was updated", Group: "epic"},
	{Name: EpicDeleted, Description: "An epic was deleted", Group: "epic"},
	{Name: FeatureCreated, Description: "A feature was created", Group: "feature"},
	{Name: FeatureUpdated, Description: "A feature was updated", Group: "feature"},
	{Name: FeatureDeleted, Description: "A feature was deleted", Group: "feature"},
	{Name: GenerationCompleted, Description: "Spec generation finished for a project", Group: "generation"},
}

// Valid reports whether name is part of the vocabulary.
func (c *Catalog) Valid(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.defs[name]
	return ok
}

// Get returns the definition for name.
func (c *Catalog) Get(name string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[name]
	return d, ok
}

// Types returns all event type names in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all definitions sorted by name.
func (c *Catalog) Definitions() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// SetSchema attaches a JSON Schema to an existing event type. Returns false
// if name is not part of the vocabulary.
func (c *Catalog) SetSchema(name string, schema json.RawMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.defs[name]
	if !ok {
		return false
	}
	d.Schema = schema
	c.defs[name] = d
	return true
}
