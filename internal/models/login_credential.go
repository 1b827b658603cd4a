package models

import "time"

// LoginCredentialRecord is an append-only audit row for raw hotspot
// credentials submitted through the standalone credential form. It has no
// relation to EmailRecord and is never read back by the service.
type LoginCredentialRecord struct {
	BaseModel

	Username  string    `gorm:"not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	LoginTime time.Time `gorm:"not null" json:"login_time"`
}

func (LoginCredentialRecord) TableName() string {
	return "hotspot_credentials"
}
