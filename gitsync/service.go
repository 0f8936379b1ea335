package gitsync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/observability"
)

// ErrNoConnection is returned when a sync is triggered for a tenant without a
// stored remote credential.
var ErrNoConnection = errors.New("gitsync: no remote connection configured")

// TokenSource resolves a tenant's stored remote credential. A missing
// credential returns ErrNoConnection.
type TokenSource interface {
	Token(ctx context.Context, tenantID string) (string, error)
}

// Artifact is the generated content a sync pushes.
type Artifact struct {
	Name    string
	Content []byte
}

// ArtifactSource fetches a tenant's current generated artifact.
type ArtifactSource interface {
	FetchArtifact(ctx context.Context, tenantID string) (*Artifact, error)
}

// Service owns sync config lifecycle and the push state machine.
type Service struct {
	store     Store
	host      Host
	tokens    TokenSource
	artifacts ArtifactSource
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    *slog.Logger
}

// NewService creates a sync service.
func NewService(store Store, host Host, tokens TokenSource, artifacts ArtifactSource, metrics *observability.Metrics, tracer *observability.Tracer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		host:      host,
		tokens:    tokens,
		artifacts: artifacts,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
	}
}

// Create validates and persists a new sync config in the idle state.
func (s *Service) Create(ctx context.Context, in Input) (*Config, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Entity:   entity.New(),
		ID:       id.NewSyncConfigID(),
		TenantID: in.TenantID,
		Repo:     in.Repo,
		Path:     in.Path,
		Branch:   in.Branch,
		AutoSync: in.AutoSync,
		Status:   StatusIdle,
	}
	if err := s.store.CreateSyncConfig(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sync config created",
		"sync_config_id", cfg.ID, "tenant_id", cfg.TenantID, "repo", cfg.Repo)
	return cfg, nil
}

// Update revalidates and modifies destination fields. Sync state is owned by
// Trigger and left untouched.
func (s *Service) Update(ctx context.Context, cfgID id.ID, in Input) (*Config, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.store.GetSyncConfig(ctx, cfgID)
	if err != nil {
		return nil, err
	}

	cfg.Repo = in.Repo
	cfg.Path = in.Path
	cfg.Branch = in.Branch
	cfg.AutoSync = in.AutoSync
	cfg.Touch()

	if err := s.store.UpdateSyncConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns a sync config by ID.
func (s *Service) Get(ctx context.Context, cfgID id.ID) (*Config, error) {
	return s.store.GetSyncConfig(ctx, cfgID)
}

// Delete removes a sync config.
func (s *Service) Delete(ctx context.Context, cfgID id.ID) error {
	return s.store.DeleteSyncConfig(ctx, cfgID)
}

// List returns a tenant's sync configs.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOpts) ([]*Config, error) {
	return s.store.ListSyncConfigs(ctx, tenantID, opts)
}

// Trigger runs one sync push for the config. The state machine is
// idle→syncing→{synced|error}: a missing remote credential fails with
// ErrNoConnection before entering syncing; any failure after that lands the
// config on error with the reason stored, so syncing is never the state a
// caller observes after Trigger returns. The config is returned in its final
// state.
func (s *Service) Trigger(ctx context.Context, cfgID id.ID) (*Config, error) {
	cfg, err := s.store.GetSyncConfig(ctx, cfgID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Token(ctx, cfg.TenantID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoConnection
	}

	if err := s.store.SetSyncStatus(ctx, cfg.ID, StatusSyncing, nil, time.Time{}); err != nil {
		return nil, err
	}

	if pushErr := s.push(ctx, cfg, token); pushErr != nil {
		msg := pushErr.Error()
		now := time.Now().UTC()
		if err := s.store.SetSyncStatus(ctx, cfg.ID, StatusError, &msg, now); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.RecordSyncPush("error")
		}
		s.logger.WarnContext(ctx, "sync failed",
			"sync_config_id", cfg.ID, "repo", cfg.Repo, "error", pushErr)
		return s.store.GetSyncConfig(ctx, cfg.ID)
	}

	now := time.Now().UTC()
	if err := s.store.SetSyncStatus(ctx, cfg.ID, StatusSynced, nil, now); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSyncPush("synced")
	}
	s.logger.InfoContext(ctx, "sync completed",
		"sync_config_id", cfg.ID, "repo", cfg.Repo, "path", cfg.Path)
	return s.store.GetSyncConfig(ctx, cfg.ID)
}

// push fetches the artifact, reads the remote version marker, and writes the
// content, conditionally when the file already exists.
func (s *Service) push(ctx context.Context, cfg *Config, token string) (err error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.StartSyncSpan(ctx, cfg.ID.String(), cfg.Repo)
		defer func() {
			outcome := "synced"
			msg := ""
			if err != nil {
				outcome = "error"
				msg = err.Error()
			}
			s.tracer.EndSyncSpan(span, outcome, msg)
		}()
	}

	artifact, err := s.artifacts.FetchArtifact(ctx, cfg.TenantID)
	if err != nil {
		return err
	}

	sha, exists, err := s.host.GetFileSHA(ctx, token, cfg.Repo, cfg.Path, cfg.Branch)
	if err != nil {
		return err
	}
	if !exists {
		sha = ""
	}

	return s.host.PutFile(ctx, token, cfg.Repo, cfg.Path, cfg.Branch, artifact.Content, sha)
}
