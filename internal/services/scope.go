package services

// RequestScope is the explicit per-request tenant/owner context. It is an
// immutable value passed through every call — never ambient state.
type RequestScope struct {
	TenantID string

	// OwnerExternalID identifies the acting owner in the caller's system.
	// Empty means the per-tenant system owner.
	OwnerExternalID string
}
