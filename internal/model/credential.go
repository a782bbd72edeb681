package model

import "time"

// ProviderCredentialID is the row holding the active generation credential.
const ProviderCredentialID = 1

type ProviderCredential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Provider     string    `gorm:"size:32;not null" json:"provider"`
	Model        string    `gorm:"size:128;not null" json:"model"`
	SealedAPIKey string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}
