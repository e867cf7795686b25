package models

// Tenant is the isolation boundary for storage and metadata. Its storage
// namespace is the domain when one is set, otherwise the tenant id itself.
type Tenant struct {
	BaseModel
	Name   string  `gorm:"not null"`
	Domain *string `gorm:"uniqueIndex"`
}

// Namespace returns the string used as the tenant's on-disk namespace root.
func (t *Tenant) Namespace() string {
	if t.Domain != nil && *t.Domain != "" {
		return *t.Domain
	}
	return t.ID
}
