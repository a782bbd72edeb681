package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
)

// ConversationLog is the append-only message history of each session.
// Writes go straight to the store; the cache is only ever invalidated.
type ConversationLog struct {
	store  MessageStore
	cache  HistoryCache
	logger *zap.Logger
}

// NewConversationLog accepts a nil cache.
func NewConversationLog(store MessageStore, cache HistoryCache, logger *zap.Logger) *ConversationLog {
	return &ConversationLog{store: store, cache: cache, logger: logger.Named("conversation_log")}
}

func (l *ConversationLog) Append(ctx context.Context, sessionID, role, content string) (uint, error) {
	if role != model.RoleUser && role != model.RoleAssistant {
		return 0, ErrInvalidRole
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, ErrEmptySessionID
	}

	msg := &model.Message{SessionID: sessionID, Role: role, Content: content}
	if err := l.store.Create(ctx, msg); err != nil {
		return 0, err
	}

	if l.cache != nil {
		if err := l.cache.DeleteHistory(ctx, sessionID); err != nil {
			l.logger.Warn("drop cached history failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		if err := l.cache.MarkDirty(ctx, sessionID); err != nil {
			l.logger.Warn("mark history dirty failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return msg.ID, nil
}

// All returns the full history, oldest first. While a session is marked
// dirty the cache is neither read nor refilled.
func (l *ConversationLog) All(ctx context.Context, sessionID string) ([]model.Message, error) {
	cacheable := false
	if l.cache != nil {
		msgs, ok, dirty := l.fromCache(ctx, sessionID)
		if ok {
			return msgs, nil
		}
		cacheable = !dirty
	}

	msgs, err := l.store.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := l.cache.SetHistory(ctx, sessionID, msgs); err != nil {
			l.logger.Warn("cache history failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return msgs, nil
}

// Recent returns the last n messages, oldest first.
func (l *ConversationLog) Recent(ctx context.Context, sessionID string, n int) ([]model.Message, error) {
	return l.store.ListRecentBySessionID(ctx, sessionID, n)
}

func (l *ConversationLog) fromCache(ctx context.Context, sessionID string) (msgs []model.Message, ok, dirty bool) {
	dirty, err := l.cache.IsDirty(ctx, sessionID)
	if err != nil {
		l.logger.Warn("check history dirty marker failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, false, true
	}
	if dirty {
		return nil, false, true
	}
	msgs, ok, err = l.cache.GetHistory(ctx, sessionID)
	if err != nil {
		l.logger.Warn("read cached history failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, false, false
	}
	return msgs, ok, false
}
