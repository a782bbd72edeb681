package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/contentaddr"
)

var ErrDocumentMissing = errors.New("document record missing")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// RegisterOrReuse inserts a pending document for contentHash unless one already
// exists. The insert is a single INSERT ... ON CONFLICT DO NOTHING, so racing
// callers all end up with the same row and only one of them sees reused=false.
func (r *DocumentRepository) RegisterOrReuse(ctx context.Context, contentHash, filename string) (*model.Document, bool, error) {
	documentID := contentaddr.DocumentID(contentHash)
	doc := &model.Document{
		DocumentID:  documentID,
		Filename:    filename,
		ContentHash: contentHash,
		IndexHandle: contentaddr.IndexHandle(documentID),
		Status:      model.DocumentStatusPending,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(doc)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("register document failed: %w", result.Error)
	}
	if result.Error == nil && result.RowsAffected == 1 {
		return doc, false, nil
	}

	existing, err := r.Find(ctx, documentID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("register document failed: %w: %s", ErrDocumentMissing, documentID)
	}
	return existing, true, nil
}

// MarkCompleted is safe to repeat with the same chunk count.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, documentID string, chunkCount int) error {
	result := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"status":      model.DocumentStatusCompleted,
			"chunk_count": chunkCount,
		})
	if result.Error != nil {
		return fmt.Errorf("mark document completed failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.ensureExists(ctx, documentID)
	}
	return nil
}

// MarkFailed never downgrades a completed document.
func (r *DocumentRepository) MarkFailed(ctx context.Context, documentID string) error {
	result := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("document_id = ? AND status <> ?", documentID, model.DocumentStatusCompleted).
		Updates(map[string]interface{}{
			"status":      model.DocumentStatusFailed,
			"chunk_count": gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return fmt.Errorf("mark document failed failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.ensureExists(ctx, documentID)
	}
	return nil
}

func (r *DocumentRepository) Find(ctx context.Context, documentID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check document exists failed: %w", err)
	}
	return count > 0, nil
}

func (r *DocumentRepository) CountByContentHash(ctx context.Context, contentHash string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("content_hash = ?", contentHash).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) ensureExists(ctx context.Context, documentID string) error {
	ok, err := r.Exists(ctx, documentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentMissing, documentID)
	}
	return nil
}
