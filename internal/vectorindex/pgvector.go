package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-docqa/internal/model"
)

// PGVector ranks chunks inside Postgres with the pgvector cosine operator.
type PGVector struct {
	db *gorm.DB
}

func NewPGVector(db *gorm.DB) *PGVector {
	return &PGVector{db: db}
}

func (p *PGVector) Insert(ctx context.Context, handle string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.VectorChunk{}).Where("chunk_id IN ?", recordIDs(records)).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrChunksExist
		}
		return tx.CreateInBatches(toVectorChunks(handle, records), insertBatchSize).Error
	})
	if errors.Is(err, ErrChunksExist) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrChunksExist
	}
	if err != nil {
		return fmt.Errorf("insert vector chunks failed: %w", err)
	}
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, handle string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "document_id", "chunk_index", "content", "embedding"}),
	}).CreateInBatches(toVectorChunks(handle, records), insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert vector chunks failed: %w", err)
	}
	return nil
}

func (p *PGVector) Query(ctx context.Context, handle string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	var rows []struct {
		model.VectorChunk
		Distance float32
	}
	err := p.db.WithContext(ctx).
		Model(&model.VectorChunk{}).
		Select("vector_chunks.*, embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("handle = ?", handle).
		Order("distance ASC").Order("chunk_index ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query vector chunks failed: %w", err)
	}

	matches := make([]Match, len(rows))
	for i, row := range rows {
		matches[i] = Match{
			ID:   row.ChunkID,
			Text: row.Content,
			Metadata: Metadata{
				DocumentID: row.DocumentID,
				ChunkIndex: row.ChunkIndex,
			},
			Distance: row.Distance,
		}
	}
	return matches, nil
}

func (p *PGVector) Count(ctx context.Context, handle string) (int, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&model.VectorChunk{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count vector chunks failed: %w", err)
	}
	return int(count), nil
}

func toVectorChunks(handle string, records []Record) []model.VectorChunk {
	rows := make([]model.VectorChunk, len(records))
	for i, r := range records {
		rows[i] = model.VectorChunk{
			ChunkID:    r.ID,
			Handle:     handle,
			DocumentID: r.Metadata.DocumentID,
			ChunkIndex: r.Metadata.ChunkIndex,
			Content:    r.Text,
			Embedding:  pgvector.NewVector(r.Vector),
		}
	}
	return rows
}
