package models

import "time"

// EmailRecord is one collected visitor address. The table name is kept from
// the deployed captive-portal schema so existing data keeps working.
//
// VerifyTokenHash holds the SHA-256 digest of the outstanding verification
// token while the record is pending; it is cleared when the token is consumed
// or swept after expiry. Email identity is case-sensitive and unique.
type EmailRecord struct {
	BaseModel

	Email           string     `gorm:"uniqueIndex;not null" json:"email"`
	IsVerified      bool       `gorm:"not null;default:false" json:"is_verified"`
	VerifyTokenHash *string    `gorm:"uniqueIndex" json:"-"`
	TokenExpiresAt  *time.Time `json:"-"`
}

// TableName keeps the original trial_emails table.
func (EmailRecord) TableName() string {
	return "trial_emails"
}
