package redis

// Key prefixes for primary entity storage.
const (
	prefixCredential   = "gw:cred:"
	prefixSubscription = "gw:sub:"
	prefixSyncConfig   = "gw:sync:"
	prefixDelivery     = "gw:del:"
)

// Key prefixes for unique indexes.
const (
	uniqueCredentialHash = "gw:u:cred:hash:"
)

// Key prefixes for sorted set indexes.
const (
	zCredentialTenant = "gw:z:cred:tenant:" // + tenant ID
	zSubTenant        = "gw:z:sub:tenant:"  // + tenant ID
	zSyncTenant       = "gw:z:sync:tenant:" // + tenant ID
	zDeliverySub      = "gw:z:del:sub:"     // + subscription ID
)

// Key prefixes for set indexes.
const (
	sSubActive = "gw:s:sub:tenant:" // + tenantID + ":active"
)

// Key prefix for rate limit window counters.
const (
	prefixCounter = "gw:rl:"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// activeSetKey returns the set key for active subscriptions of a tenant.
func activeSetKey(tenantID string) string {
	return sSubActive + tenantID + ":active"
}
