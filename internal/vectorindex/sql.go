package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-docqa/internal/model"
)

const insertBatchSize = 100

// SQL stores chunks in the relational database and ranks them in Go. It suits
// per-document handles, where a query only scans one document's chunks.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Insert(ctx context.Context, handle string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := toIndexChunks(handle, records)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.IndexChunk{}).Where("chunk_id IN ?", recordIDs(records)).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrChunksExist
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if errors.Is(err, ErrChunksExist) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrChunksExist
	}
	if err != nil {
		return fmt.Errorf("insert index chunks failed: %w", err)
	}
	return nil
}

func (s *SQL) Upsert(ctx context.Context, handle string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle", "document_id", "chunk_index", "content", "embedding"}),
	}).CreateInBatches(toIndexChunks(handle, records), insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert index chunks failed: %w", err)
	}
	return nil
}

func (s *SQL) Query(ctx context.Context, handle string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	var rows []model.IndexChunk
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load index chunks failed: %w", err)
	}

	matches := make([]Match, len(rows))
	for i := range rows {
		matches[i] = Match{
			ID:   rows[i].ChunkID,
			Text: rows[i].Content,
			Metadata: Metadata{
				DocumentID: rows[i].DocumentID,
				ChunkIndex: rows[i].ChunkIndex,
			},
			Distance: 1 - cosineSimilarity(vector, rows[i].EmbeddingVector()),
		}
	}
	return rank(matches, k), nil
}

func (s *SQL) Count(ctx context.Context, handle string) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.IndexChunk{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count index chunks failed: %w", err)
	}
	return int(count), nil
}

func toIndexChunks(handle string, records []Record) []model.IndexChunk {
	rows := make([]model.IndexChunk, len(records))
	for i, r := range records {
		rows[i] = model.IndexChunk{
			ChunkID:    r.ID,
			Handle:     handle,
			DocumentID: r.Metadata.DocumentID,
			ChunkIndex: r.Metadata.ChunkIndex,
			Content:    r.Text,
		}
		rows[i].SetEmbedding(r.Vector)
	}
	return rows
}

func recordIDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
