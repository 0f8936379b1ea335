// Package gitsync pushes a tenant's generated artifact to an external
// content-hosting repository with optimistic-concurrency conflict handling.
package gitsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// Status is the sync lifecycle state of a config.
type Status string

// Sync statuses. A triggered sync moves idle→syncing, then always lands on
// synced or error before the triggering call returns.
const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

// Config is a tenant's destination for pushed content.
type Config struct {
	entity.Entity

	// ID is the unique TypeID for this sync config.
	ID id.ID `json:"id"`

	// TenantID identifies the owning tenant.
	TenantID string `json:"tenant_id"`

	// Repo is the target repository in "owner/name" form.
	Repo string `json:"repo"`

	// Path is the destination path. Starts with "/", no traversal.
	Path string `json:"path"`

	// Branch is the target branch name.
	Branch string `json:"branch"`

	// AutoSync pushes on every artifact change when true.
	AutoSync bool `json:"auto_sync"`

	// Status is the current sync state.
	Status Status `json:"status"`

	// LastSyncAt is when the last sync completed, success or failure.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	// LastSyncError holds the failure reason after an errored sync. Cleared
	// on any non-error transition.
	LastSyncError *string `json:"last_sync_error,omitempty"`
}

// Input carries the caller-supplied fields for creating or updating a config.
type Input struct {
	TenantID string `json:"tenant_id"`
	Repo     string `json:"repo"`
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	AutoSync bool   `json:"auto_sync"`
}

// ValidationError reports an invalid sync config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gitsync: invalid %s: %s", e.Field, e.Message)
}

// Validate checks the input against the destination rules. Path traversal and
// malformed branch names are rejected here, before anything reaches the
// remote host.
func (in *Input) Validate() error {
	if in.TenantID == "" {
		return &ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}

	owner, name, ok := strings.Cut(in.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return &ValidationError{Field: "repo", Message: `must be in "owner/name" form`}
	}

	if !strings.HasPrefix(in.Path, "/") {
		return &ValidationError{Field: "path", Message: `must start with "/"`}
	}
	if strings.Contains(in.Path, "..") {
		return &ValidationError{Field: "path", Message: "must not contain path traversal"}
	}

	if in.Branch == "" {
		return &ValidationError{Field: "branch", Message: "must not be empty"}
	}
	if strings.ContainsAny(in.Branch, " \t\n") {
		return &ValidationError{Field: "branch", Message: "must not contain whitespace"}
	}
	if strings.HasPrefix(in.Branch, "-") {
		return &ValidationError{Field: "branch", Message: `must not start with "-"`}
	}
	if strings.Contains(in.Branch, "..") {
		return &ValidationError{Field: "branch", Message: `must not contain ".."`}
	}

	return nil
}

// ListOpts configures pagination for sync config listing.
type ListOpts struct {
	Offset int
	Limit  int
}
