package app

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
)

const (
	StatusSuccess      = "success"
	StatusNoResults    = "no_results"
	StatusEmptyContext = "empty_context"
	StatusError        = "error"

	noResultsAnswer    = "I couldn't find any relevant information in the document to answer your question."
	emptyContextAnswer = "The retrieved context was empty. Please try rephrasing your question."
	contextSeparator   = "\n\n"
)

// MessageLog is the slice of ConversationLog the orchestrator writes to.
type MessageLog interface {
	Append(ctx context.Context, sessionID, role, content string) (uint, error)
}

type AnswerResult struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Status    string   `json:"status"`
	SessionID string   `json:"session_id"`
	Error     string   `json:"error,omitempty"`
}

type RetrievalOrchestrator struct {
	generators *GeneratorSlot
	sessions   SessionStore
	documents  DocumentRegistry
	embedder   EmbeddingProvider
	index      VectorIndex
	log        MessageLog
	logger     *zap.Logger
}

func NewRetrievalOrchestrator(
	generators *GeneratorSlot,
	sessions SessionStore,
	documents DocumentRegistry,
	embedder EmbeddingProvider,
	index VectorIndex,
	log MessageLog,
	logger *zap.Logger,
) *RetrievalOrchestrator {
	return &RetrievalOrchestrator{
		generators: generators,
		sessions:   sessions,
		documents:  documents,
		embedder:   embedder,
		index:      index,
		log:        log,
		logger:     logger.Named("retrieval"),
	}
}

// Answer always returns a result. When err is non-nil the result carries
// StatusError and the error text.
func (o *RetrievalOrchestrator) Answer(ctx context.Context, sessionID, question string, nResults int) (result *AnswerResult, err error) {
	ctx, span := tracer.Start(ctx, "RetrievalOrchestrator.Answer")
	span.SetAttributes(attribute.String("session_id", sessionID), attribute.Int("n_results", nResults))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result = &AnswerResult{Status: StatusError, SessionID: sessionID, Sources: []string{}, Error: err.Error()}
		} else {
			span.SetAttributes(attribute.String("status", result.Status))
		}
		span.End()
	}()

	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	generator, _, ok := o.generators.Current()
	if !ok {
		return nil, ErrNotConfigured
	}
	handle, err := o.resolveHandle(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	o.appendBestEffort(ctx, sessionID, model.RoleUser, question)

	vectors, err := o.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, dependencyError(o.embedder.Name(), "embed", err)
	}
	if len(vectors) != 1 {
		return nil, dependencyError(o.embedder.Name(), "embed", errEmbeddingShape)
	}

	matches, err := o.index.Query(ctx, handle, vectors[0], nResults)
	if err != nil {
		return nil, dependencyError(vectorIndexProvider, "query", err)
	}
	if len(matches) == 0 {
		return o.shortCircuit(ctx, sessionID, StatusNoResults, noResultsAnswer), nil
	}

	sources := make([]string, len(matches))
	blank := true
	for i, m := range matches {
		sources[i] = m.Text
		if strings.TrimSpace(m.Text) != "" {
			blank = false
		}
	}
	if blank {
		return o.shortCircuit(ctx, sessionID, StatusEmptyContext, emptyContextAnswer), nil
	}

	answer, err := generator.Generate(ctx, strings.Join(sources, contextSeparator), question)
	if err != nil {
		return nil, dependencyError(generator.Provider(), "generate", err)
	}

	o.appendBestEffort(ctx, sessionID, model.RoleAssistant, answer)
	return &AnswerResult{
		Answer:    answer,
		Sources:   sources,
		Status:    StatusSuccess,
		SessionID: sessionID,
	}, nil
}

func (o *RetrievalOrchestrator) resolveHandle(ctx context.Context, sessionID string) (string, error) {
	documentID, err := o.sessions.CurrentDocument(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if documentID == "" {
		return "", ErrNoActiveSession
	}
	doc, err := o.documents.Find(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", ErrDocumentNotFound
	}
	return doc.IndexHandle, nil
}

func (o *RetrievalOrchestrator) shortCircuit(ctx context.Context, sessionID, status, answer string) *AnswerResult {
	o.appendBestEffort(ctx, sessionID, model.RoleAssistant, answer)
	return &AnswerResult{Answer: answer, Sources: []string{}, Status: status, SessionID: sessionID}
}

func (o *RetrievalOrchestrator) appendBestEffort(ctx context.Context, sessionID, role, content string) {
	if _, err := o.log.Append(ctx, sessionID, role, content); err != nil {
		o.logger.Warn("log message failed",
			zap.String("session_id", sessionID),
			zap.String("role", role),
			zap.Error(err),
		)
	}
}
