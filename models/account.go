package models

import "gorm.io/gorm"

// Account is one connected mailbox. Created on a successful OAuth round-trip,
// destroyed on explicit disconnect.
type Account struct {
	ID        uint         `json:"id"`
	Email     string       `json:"email"`
	Type      ProviderKind `json:"type"`
	AuthState string       `json:"auth_state,omitempty"`
}

// CachedAccount persists a user's connected-account list locally so a
// restart does not force a full re-authentication round-trip. The refresh
// token is encrypted at rest; a reload still revalidates against the provider.
type CachedAccount struct {
	gorm.Model
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	AccountID      uint         `gorm:"not null;index" json:"account_id"`
	Email          string       `gorm:"not null" json:"email"`
	Type           ProviderKind `gorm:"not null" json:"type"`
	EncryptedToken string       `json:"-"`
}

// StarFlag caches per-message star state so list views survive a reload
// before the provider round-trip confirms.
type StarFlag struct {
	gorm.Model
	AccountID uint   `gorm:"not null;index" json:"account_id"`
	MessageID string `gorm:"not null;index" json:"message_id"`
	Starred   bool   `gorm:"default:false" json:"starred"`
}

// SnoozedMail hides a message from list views until the wake time passes.
type SnoozedMail struct {
	gorm.Model
	AccountID uint   `gorm:"not null;index" json:"account_id"`
	MessageID string `gorm:"not null;index" json:"message_id"`
	WakeAt    string `gorm:"not null" json:"wake_at"` // ISO-8601
}
