package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-docqa/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		SessionID:  uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// Touch bumps last_active and reports whether the session exists.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ?", sessionID).
		Update("last_active", time.Now())
	if result.Error != nil {
		return false, fmt.Errorf("touch session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Link binds documentID to sessionID, creating the session row if needed.
// Linking an existing pair again is a no-op.
func (r *SessionRepository) Link(ctx context.Context, sessionID, documentID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		session := &model.Session{SessionID: sessionID, CreatedAt: now, LastActive: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(session).Error; err != nil {
			return err
		}
		link := &model.SessionDocument{SessionID: sessionID, DocumentID: documentID, LinkedAt: now}
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error
	})
	if err != nil {
		return fmt.Errorf("link session document failed: %w", err)
	}
	return nil
}

// CurrentDocument returns the most recently linked document ID, or "" if none.
func (r *SessionRepository) CurrentDocument(ctx context.Context, sessionID string) (string, error) {
	var link model.SessionDocument
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("linked_at DESC").Order("id DESC").
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get current document failed: %w", err)
	}
	return link.DocumentID, nil
}

func (r *SessionRepository) Stats(ctx context.Context, sessionID string) (*model.SessionStats, error) {
	var stats model.SessionStats
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM messages WHERE session_id = ?) AS message_count,
			(SELECT COUNT(*) FROM session_documents WHERE session_id = ?) AS document_count`,
		sessionID, sessionID,
	).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("session stats failed: %w", err)
	}
	return &stats, nil
}
