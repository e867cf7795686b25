package models

import (
	"time"

	"gorm.io/datatypes"
)

// MediaRecord is the metadata row backing one stored entity. Its variants
// (original, thumb) are a filename convention under BasePath, not rows.
type MediaRecord struct {
	BaseModel
	TenantID string `gorm:"type:uuid;not null;index"`
	OwnerID  string `gorm:"type:uuid;not null;index"`
	Kind     string `gorm:"not null;default:'image'"` // "image" or "avatar"

	BasePath string `gorm:"not null"` // Entity directory relative to the storage root
	Format   string `gorm:"not null"` // Canonical encoded format, e.g. "jpeg"
	Width    int
	Height   int
	Size     int64
	MimeType string

	Optimized   bool `gorm:"default:false;index"`
	OptimizedAt *time.Time

	IsPublic bool           `gorm:"default:true"`
	Tags     datatypes.JSON `gorm:"type:jsonb"`

	ViewCount     int64 `gorm:"default:0"`
	DownloadCount int64 `gorm:"default:0"`
}
