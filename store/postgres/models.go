package postgres

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/subscription"
)

// --- Credential models ---

type credentialModel struct {
	grove.BaseModel `grove:"table:gw_credentials"`

	ID             string     `grove:"id,pk"`
	KeyPrefix      string     `grove:"key_prefix"`
	SecretHash     string     `grove:"secret_hash,unique"`
	TenantID       string     `grove:"tenant_id"`
	Name           string     `grove:"name"`
	Tier           string     `grove:"tier"`
	AllowedOrigins []string   `grove:"allowed_origins,array"`
	Status         string     `grove:"status"`
	LastUsedAt     *time.Time `grove:"last_used_at"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toCredentialModel(c *credential.Credential) *credentialModel {
	return &credentialModel{
		ID:             c.ID.String(),
		KeyPrefix:      c.KeyPrefix,
		SecretHash:     c.SecretHash,
		TenantID:       c.TenantID,
		Name:           c.Name,
		Tier:           c.Tier.String(),
		AllowedOrigins: c.AllowedOrigins,
		Status:         string(c.Status),
		LastUsedAt:     c.LastUsedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromCredentialModel(m *credentialModel) (*credential.Credential, error) {
	credID, err := id.ParseCredentialID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse credential ID %q: %w", m.ID, err)
	}
	tier, err := credential.ParseTier(m.Tier)
	if err != nil {
		return nil, err
	}
	return &credential.Credential{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             credID,
		KeyPrefix:      m.KeyPrefix,
		SecretHash:     m.SecretHash,
		TenantID:       m.TenantID,
		Name:           m.Name,
		Tier:           tier,
		AllowedOrigins: m.AllowedOrigins,
		Status:         credential.Status(m.Status),
		LastUsedAt:     m.LastUsedAt,
	}, nil
}

// --- Subscription models ---

type subscriptionModel struct {
	grove.BaseModel `grove:"table:gw_subscriptions"`

	ID                 string     `grove:"id,pk"`
	TenantID           string     `grove:"tenant_id"`
	Name               string     `grove:"name"`
	URL                string     `grove:"url"`
	Events             []string   `grove:"events,array"`
	PayloadFields      []string   `grove:"payload_fields,array"`
	Secret             string     `grove:"secret"`
	Status             string     `grove:"status"`
	LastDeliveryAt     *time.Time `grove:"last_delivery_at"`
	LastDeliveryStatus *int       `grove:"last_delivery_status"`
	CreatedAt          time.Time  `grove:"created_at"`
	UpdatedAt          time.Time  `grove:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 sub.ID.String(),
		TenantID:           sub.TenantID,
		Name:               sub.Name,
		URL:                sub.URL,
		Events:             sub.Events,
		PayloadFields:      sub.PayloadFields,
		Secret:             sub.Secret,
		Status:             string(sub.Status),
		LastDeliveryAt:     sub.LastDeliveryAt,
		LastDeliveryStatus: sub.LastDeliveryStatus,
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}
	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		TenantID:           m.TenantID,
		Name:               m.Name,
		URL:                m.URL,
		Events:             m.Events,
		PayloadFields:      m.PayloadFields,
		Secret:             m.Secret,
		Status:             subscription.Status(m.Status),
		LastDeliveryAt:     m.LastDeliveryAt,
		LastDeliveryStatus: m.LastDeliveryStatus,
	}, nil
}

// --- Sync config models ---

type syncConfigModel struct {
	grove.BaseModel `grove:"table:gw_sync_configs"`

	ID            string     `grove:"id,pk"`
	TenantID      string     `grove:"tenant_id"`
	Repo          string     `grove:"repo"`
	Path          string     `grove:"path"`
	Branch        string     `grove:"branch"`
	AutoSync      bool       `grove:"auto_sync"`
	Status        string     `grove:"status"`
	LastSyncAt    *time.Time `grove:"last_sync_at"`
	LastSyncError *string    `grove:"last_sync_error"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toSyncConfigModel(cfg *gitsync.Config) *syncConfigModel {
	return &syncConfigModel{
		ID:            cfg.ID.String(),
		TenantID:      cfg.TenantID,
		Repo:          cfg.Repo,
		Path:          cfg.Path,
		Branch:        cfg.Branch,
		AutoSync:      cfg.AutoSync,
		Status:        string(cfg.Status),
		LastSyncAt:    cfg.LastSyncAt,
		LastSyncError: cfg.LastSyncError,
		CreatedAt:     cfg.CreatedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}
}

func fromSyncConfigModel(m *syncConfigModel) (*gitsync.Config, error) {
	cfgID, err := id.ParseSyncConfigID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse sync config ID %q: %w", m.ID, err)
	}
	return &gitsync.Config{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            cfgID,
		TenantID:      m.TenantID,
		Repo:          m.Repo,
		Path:          m.Path,
		Branch:        m.Branch,
		AutoSync:      m.AutoSync,
		Status:        gitsync.Status(m.Status),
		LastSyncAt:    m.LastSyncAt,
		LastSyncError: m.LastSyncError,
	}, nil
}

// --- Delivery models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:gw_deliveries"`

	ID             string    `grove:"id,pk"`
	SubscriptionID string    `grove:"subscription_id"`
	EventID        string    `grove:"event_id"`
	EventType      string    `grove:"event_type"`
	TenantID       string    `grove:"tenant_id"`
	StatusCode     int       `grove:"status_code"`
	Error          string    `grove:"error"`
	Response       string    `grove:"response"`
	LatencyMs      int       `grove:"latency_ms"`
	Manual         bool      `grove:"manual"`
	AttemptedAt    time.Time `grove:"attempted_at"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		EventID:        d.EventID.String(),
		EventType:      d.EventType,
		TenantID:       d.TenantID,
		StatusCode:     d.StatusCode,
		Error:          d.Error,
		Response:       d.Response,
		LatencyMs:      d.LatencyMs,
		Manual:         d.Manual,
		AttemptedAt:    d.AttemptedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             delID,
		SubscriptionID: subID,
		EventID:        evtID,
		EventType:      m.EventType,
		TenantID:       m.TenantID,
		StatusCode:     m.StatusCode,
		Error:          m.Error,
		Response:       m.Response,
		LatencyMs:      m.LatencyMs,
		Manual:         m.Manual,
		AttemptedAt:    m.AttemptedAt,
	}, nil
}

// --- Rate counter models ---

type counterModel struct {
	grove.BaseModel `grove:"table:gw_rate_counters"`

	Key     string    `grove:"key,pk"`
	Count   int       `grove:"count"`
	ResetAt time.Time `grove:"reset_at"`
}
