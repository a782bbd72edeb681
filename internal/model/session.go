package model

import "time"

type Session struct {
	SessionID  string    `gorm:"primaryKey;size:64" json:"session_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	LastActive time.Time `gorm:"not null" json:"last_active"`

	Links []SessionDocument `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// SessionDocument links a session to a document. A pair is linked at most once.
type SessionDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:64;not null;uniqueIndex:idx_session_document;index" json:"session_id"`
	DocumentID string    `gorm:"size:32;not null;uniqueIndex:idx_session_document;index" json:"document_id"`
	LinkedAt   time.Time `gorm:"not null" json:"linked_at"`
}

type SessionStats struct {
	MessageCount  int64 `json:"message_count"`
	DocumentCount int64 `json:"document_count"`
}
