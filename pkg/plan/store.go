package plan

import "context"

// Store is the persistence port for plan records. The engine treats it as
// a keyed record store: one slot per key, values are opaque strings
// (JSON-encoded records). Implementations exist for memory, Redis and
// Postgres; the interface is injected explicitly so there is no hidden
// global state and tests can swap in doubles.
type Store interface {
	// Get returns the raw value at key, or ErrRecordNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value at key, unconditionally overwriting.
	Set(ctx context.Context, key, value string) error

	// SetVersioned writes value at key only if the stored record's version
	// still equals expectedVersion (0 means "must not exist yet").
	// Returns ErrVersionConflict when another writer got there first.
	SetVersioned(ctx context.Context, key, value string, expectedVersion int64) error

	// Remove deletes the slot at key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// CustomerIndex resolves a payment-processor customer id back to a tenant.
// Webhook reconciliation needs it for subscription lifecycle events, which
// carry the processor's customer id rather than our tenant id.
type CustomerIndex interface {
	// LinkCustomer associates a processor customer id with a tenant.
	LinkCustomer(ctx context.Context, customerID, tenantID string) error

	// TenantByCustomer returns the tenant for a processor customer id,
	// or ErrRecordNotFound when no link exists.
	TenantByCustomer(ctx context.Context, customerID string) (string, error)
}

// ProcessedEventStore tracks which processor events have already been
// applied. Payment processors deliver at-least-once, so reconciliation
// keys idempotency on the processor's event id.
type ProcessedEventStore interface {
	// MarkProcessed records the event id. Returns false when the id was
	// already present, meaning the event is a redelivery.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)

	// Forget drops the event id so a failed application can be retried
	// on the processor's next delivery.
	Forget(ctx context.Context, eventID string) error
}
