package app

import (
	"context"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/vectorindex"
)

type DocumentRegistry interface {
	RegisterOrReuse(ctx context.Context, contentHash, filename string) (*model.Document, bool, error)
	MarkCompleted(ctx context.Context, documentID string, chunkCount int) error
	MarkFailed(ctx context.Context, documentID string) error
	Find(ctx context.Context, documentID string) (*model.Document, error)
	Exists(ctx context.Context, documentID string) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context) (*model.Session, error)
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Touch(ctx context.Context, sessionID string) (bool, error)
	Link(ctx context.Context, sessionID, documentID string) error
	CurrentDocument(ctx context.Context, sessionID string) (string, error)
	Stats(ctx context.Context, sessionID string) (*model.SessionStats, error)
}

type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	ListBySessionID(ctx context.Context, sessionID string) ([]model.Message, error)
	ListRecentBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

type CredentialStore interface {
	Save(ctx context.Context, cred *model.ProviderCredential) error
	Active(ctx context.Context) (*model.ProviderCredential, error)
}

// HistoryCache is an optional read-through cache in front of MessageStore.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// DocumentCache holds completed documents, which never change again.
type DocumentCache interface {
	Get(documentID string) (*model.Document, bool)
	Put(doc *model.Document)
}

type TextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

type Splitter interface {
	Split(text string) []string
}

// EmbeddingProvider must return the same vector for the same text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

type VectorIndex interface {
	Insert(ctx context.Context, handle string, records []vectorindex.Record) error
	Upsert(ctx context.Context, handle string, records []vectorindex.Record) error
	Query(ctx context.Context, handle string, vector []float32, k int) ([]vectorindex.Match, error)
	Count(ctx context.Context, handle string) (int, error)
}

type AnswerGenerator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
	Provider() string
}

type IngestRetryPublisher interface {
	Publish(ctx context.Context, job model.IngestJob) error
}
