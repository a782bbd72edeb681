package model

import "time"

const (
	DocumentStatusPending   = "pending"
	DocumentStatusCompleted = "completed"
	DocumentStatusFailed    = "failed"
)

// Document is the canonical record for one unique file content.
// ChunkCount stays nil until Status is completed.
type Document struct {
	DocumentID  string    `gorm:"primaryKey;size:32" json:"document_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	ContentHash string    `gorm:"size:64;not null;uniqueIndex" json:"content_hash"`
	ChunkCount  *int      `json:"chunk_count"`
	IndexHandle string    `gorm:"size:64;not null" json:"index_handle"`
	Status      string    `gorm:"size:16;not null;index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Links []SessionDocument `gorm:"foreignKey:DocumentID;references:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *Document) Completed() bool {
	return d.Status == DocumentStatusCompleted
}
