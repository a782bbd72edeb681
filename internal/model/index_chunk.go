package model

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// IndexChunk is one embedded chunk stored by the relational vector index.
// The embedding is a JSON array of float32 so any SQL driver can hold it.
type IndexChunk struct {
	ChunkID    string         `gorm:"primaryKey;size:96" json:"chunk_id"`
	Handle     string         `gorm:"size:64;not null;index" json:"handle"`
	DocumentID string         `gorm:"size:32;not null" json:"document_id"`
	ChunkIndex int            `gorm:"not null" json:"chunk_index"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Embedding  datatypes.JSON `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding; nil on parse error.
func (c *IndexChunk) EmbeddingVector() []float32 {
	if len(c.Embedding) == 0 {
		return nil
	}
	var v []float32
	if err := json.Unmarshal(c.Embedding, &v); err != nil {
		return nil
	}
	return v
}

func (c *IndexChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = datatypes.JSON("[]")
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = datatypes.JSON(b)
}

// VectorChunk is the pgvector-backed variant of IndexChunk.
type VectorChunk struct {
	ChunkID    string          `gorm:"primaryKey;size:96"`
	Handle     string          `gorm:"size:64;not null;index"`
	DocumentID string          `gorm:"size:32;not null"`
	ChunkIndex int             `gorm:"not null"`
	Content    string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time
}

func (VectorChunk) TableName() string {
	return "vector_chunks"
}
