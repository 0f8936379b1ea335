package gateway

import (
	"time"

	"github.com/speckit/gateway/credential"
)

// Config holds the configuration for a Gateway instance.
type Config struct {
	// Quotas maps each credential tier to its per-minute request quota.
	Quotas credential.Quotas

	// Concurrency is the number of webhook delivery worker goroutines.
	Concurrency int

	// DeliveryTimeout is the HTTP timeout per webhook delivery attempt.
	DeliveryTimeout time.Duration

	// SyncTimeout is the HTTP timeout per remote sync call.
	SyncTimeout time.Duration

	// APIVersion is stamped into every response envelope.
	APIVersion string

	// SweepInterval is how often expired rate-limit windows are cleaned up
	// when the counter store needs in-process sweeping.
	SweepInterval time.Duration

	// SyncBaseURL overrides the content-hosting API root. Empty means the
	// GitHub public API.
	SyncBaseURL string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Quotas:          credential.DefaultQuotas,
		Concurrency:     10,
		DeliveryTimeout: 10 * time.Second,
		SyncTimeout:     15 * time.Second,
		APIVersion:      "v1",
		SweepInterval:   5 * time.Minute,
	}
}
