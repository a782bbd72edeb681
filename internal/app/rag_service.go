package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/contentaddr"
)

type RAGOptions struct {
	DefaultNResults int
	MaxNResults     int
}

// RAGService is the entry point used by the HTTP and CLI layers.
type RAGService struct {
	extractor    TextExtractor
	documents    DocumentRegistry
	sessions     SessionStore
	conversation *ConversationLog
	coordinator  *IndexCoordinator
	orchestrator *RetrievalOrchestrator
	docCache     DocumentCache
	retry        IngestRetryPublisher
	opts         RAGOptions
	logger       *zap.Logger

	// one ingestion per document id at a time within this process
	inflight singleflight.Group
}

type RAGServiceDeps struct {
	Extractor    TextExtractor
	Documents    DocumentRegistry
	Sessions     SessionStore
	Conversation *ConversationLog
	Coordinator  *IndexCoordinator
	Orchestrator *RetrievalOrchestrator
	// optional
	DocCache DocumentCache
	Retry    IngestRetryPublisher
}

func NewRAGService(deps RAGServiceDeps, opts RAGOptions, logger *zap.Logger) *RAGService {
	if opts.DefaultNResults <= 0 {
		opts.DefaultNResults = 3
	}
	if opts.MaxNResults < opts.DefaultNResults {
		opts.MaxNResults = opts.DefaultNResults
	}
	return &RAGService{
		extractor:    deps.Extractor,
		documents:    deps.Documents,
		sessions:     deps.Sessions,
		conversation: deps.Conversation,
		coordinator:  deps.Coordinator,
		orchestrator: deps.Orchestrator,
		docCache:     deps.DocCache,
		retry:        deps.Retry,
		opts:         opts,
		logger:       logger.Named("rag_service"),
	}
}

type UploadInput struct {
	Filename  string
	Data      []byte
	SessionID string // empty creates a new session
}

type UploadResult struct {
	DocumentID  string `json:"document_id"`
	SessionID   string `json:"session_id"`
	Reused      bool   `json:"reused"`
	ChunkCount  int    `json:"chunk_count"`
	Filename    string `json:"filename"`
	IndexHandle string `json:"index_handle"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// Upload registers the file content once, indexes it if needed and links it
// to the session. Identical bytes are never extracted or indexed twice.
func (s *RAGService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "RAGService.Upload")
	defer span.End()

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if len(input.Data) == 0 {
		return nil, ErrEmptyFile
	}

	contentHash, documentID := contentaddr.Identify(input.Data)
	span.SetAttributes(attribute.String("document_id", documentID))

	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	reused := doc != nil

	if doc == nil || !doc.Completed() {
		text, err := s.extractor.Extract(filename, input.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}

		doc, reused, err = s.documents.RegisterOrReuse(ctx, contentHash, filename)
		if err != nil {
			return nil, err
		}
		if !doc.Completed() {
			if err := s.ingest(ctx, doc, text); err != nil {
				return nil, err
			}
		}
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		session, err := s.sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = session.SessionID
	}
	if err := s.sessions.Link(ctx, sessionID, doc.DocumentID); err != nil {
		return nil, err
	}
	s.touch(ctx, sessionID)

	result := &UploadResult{
		DocumentID:  doc.DocumentID,
		SessionID:   sessionID,
		Reused:      reused,
		Filename:    doc.Filename,
		IndexHandle: doc.IndexHandle,
		Status:      doc.Status,
		Message:     "Document processed and indexed.",
	}
	if doc.ChunkCount != nil {
		result.ChunkCount = *doc.ChunkCount
	}
	if reused {
		result.Message = "Document already processed, using cached version."
	}
	s.logger.Info("document uploaded",
		zap.String("document_id", doc.DocumentID),
		zap.String("session_id", sessionID),
		zap.Bool("reused", reused),
	)
	return result, nil
}

func (s *RAGService) ingest(ctx context.Context, doc *model.Document, text string) error {
	v, err, shared := s.inflight.Do(doc.DocumentID, func() (interface{}, error) {
		// an earlier flight may have finished between our read and now
		current, err := s.documents.Find(ctx, doc.DocumentID)
		if err != nil {
			return 0, err
		}
		if current != nil && current.Completed() && current.ChunkCount != nil {
			return *current.ChunkCount, nil
		}

		n, err := s.coordinator.Ingest(ctx, doc.DocumentID, text, doc.IndexHandle)
		if err != nil {
			if errors.Is(err, ErrDependency) && s.retry != nil {
				job := model.IngestJob{DocumentID: doc.DocumentID, IndexHandle: doc.IndexHandle, Text: text, Attempt: 1}
				if pubErr := s.retry.Publish(ctx, job); pubErr != nil {
					s.logger.Warn("enqueue ingest retry failed", zap.String("document_id", doc.DocumentID), zap.Error(pubErr))
				} else {
					s.logger.Info("ingest retry enqueued", zap.String("document_id", doc.DocumentID))
				}
			}
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return err
	}
	if shared {
		s.logger.Debug("joined in-flight ingestion", zap.String("document_id", doc.DocumentID))
	}

	n := v.(int)
	doc.Status = model.DocumentStatusCompleted
	doc.ChunkCount = &n
	if s.docCache != nil {
		s.docCache.Put(doc)
	}
	return nil
}

func (s *RAGService) findDocument(ctx context.Context, documentID string) (*model.Document, error) {
	if s.docCache != nil {
		if doc, ok := s.docCache.Get(documentID); ok {
			return doc, nil
		}
	}
	doc, err := s.documents.Find(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc != nil && doc.Completed() && s.docCache != nil {
		s.docCache.Put(doc)
	}
	return doc, nil
}

type AskInput struct {
	SessionID string
	Question  string
	NResults  int
}

func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AnswerResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return &AnswerResult{Status: StatusError, SessionID: input.SessionID, Sources: []string{}, Error: ErrEmptyQuestion.Error()}, ErrEmptyQuestion
	}
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return &AnswerResult{Status: StatusError, Sources: []string{}, Error: ErrEmptySessionID.Error()}, ErrEmptySessionID
	}

	n := input.NResults
	if n <= 0 {
		n = s.opts.DefaultNResults
	}
	if n > s.opts.MaxNResults {
		n = s.opts.MaxNResults
	}

	s.touch(ctx, sessionID)
	return s.orchestrator.Answer(ctx, sessionID, question, n)
}

// History returns the whole log when limit <= 0, otherwise the last limit messages.
func (s *RAGService) History(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	if limit <= 0 {
		return s.conversation.All(ctx, sessionID)
	}
	return s.conversation.Recent(ctx, sessionID, limit)
}

// AppendMessage records a message outside the question flow.
func (s *RAGService) AppendMessage(ctx context.Context, sessionID, role, content string) (uint, error) {
	return s.conversation.Append(ctx, sessionID, role, content)
}

func (s *RAGService) DocumentInfo(ctx context.Context, sessionID string) (*model.Document, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	documentID, err := s.sessions.CurrentDocument(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, ErrNoActiveSession
	}
	doc, err := s.findDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	model.SessionStats
}

func (s *RAGService) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	stats, err := s.sessions.Stats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		SessionID:    session.SessionID,
		CreatedAt:    session.CreatedAt,
		LastActive:   session.LastActive,
		SessionStats: *stats,
	}, nil
}

func (s *RAGService) touch(ctx context.Context, sessionID string) {
	found, err := s.sessions.Touch(ctx, sessionID)
	if err != nil {
		s.logger.Warn("touch session failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if !found {
		s.logger.Warn("touch on unknown session", zap.String("session_id", sessionID))
	}
}
