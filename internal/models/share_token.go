package models

import "time"

// ShareToken grants time-bounded read access to a single entity.
// A nil ExpiresAt never expires. Expired rows are swept periodically,
// but validation always re-checks expiry itself.
type ShareToken struct {
	BaseModel
	Token     string `gorm:"uniqueIndex;not null"`
	TargetID  string `gorm:"type:uuid;not null;index"`
	ExpiresAt *time.Time
}
