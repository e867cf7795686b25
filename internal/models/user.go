package models

// SystemOwnerExternalID identifies the per-tenant fallback owner used
// when an upload arrives without an owner id.
const SystemOwnerExternalID = "system"

// User is an owner of media records inside a tenant. Provisioned
// idempotently by external id; authentication lives elsewhere.
type User struct {
	BaseModel
	TenantID   string `gorm:"type:uuid;not null;index:idx_users_tenant_external,unique"`
	ExternalID string `gorm:"not null;index:idx_users_tenant_external,unique"`
}
