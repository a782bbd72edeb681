package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/extract"
	"gopherai-docqa/internal/pkg/textsplit"
	"gopherai-docqa/internal/platform/database"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/vectorindex"
)

var testBinding = ai.Binding{Provider: ai.ProviderOpenAI, Model: "gpt-4o-mini"}

// fakeEmbedder maps text to [rune count, count of 'a', 1].
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len([]rune(t))), float32(strings.Count(t, "a")), 1}
	}
	return out, nil
}

func (e *fakeEmbedder) Name() string { return "fake-embedder" }

func (e *fakeEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeGenerator struct {
	mu          sync.Mutex
	calls       int
	lastContext string
	answer      string
	err         error
}

func (g *fakeGenerator) Generate(_ context.Context, contextText, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastContext = contextText
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *fakeGenerator) Provider() string { return "fake:model" }

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// stubIndex returns fixed matches and records calls.
type stubIndex struct {
	matches  []vectorindex.Match
	queryErr error
	queries  int
}

func (s *stubIndex) Insert(context.Context, string, []vectorindex.Record) error { return nil }
func (s *stubIndex) Upsert(context.Context, string, []vectorindex.Record) error { return nil }
func (s *stubIndex) Count(context.Context, string) (int, error)                 { return len(s.matches), nil }
func (s *stubIndex) Query(context.Context, string, []float32, int) ([]vectorindex.Match, error) {
	s.queries++
	return s.matches, s.queryErr
}

// emptyQueryIndex stores chunks but never finds anything.
type emptyQueryIndex struct {
	*vectorindex.Memory
}

func (emptyQueryIndex) Query(context.Context, string, []float32, int) ([]vectorindex.Match, error) {
	return nil, nil
}

type failingLog struct{ calls int }

func (f *failingLog) Append(context.Context, string, string, string) (uint, error) {
	f.calls++
	return 0, errors.New("database is locked")
}

type recordingPublisher struct {
	jobs []model.IngestJob
}

func (p *recordingPublisher) Publish(_ context.Context, job model.IngestJob) error {
	p.jobs = append(p.jobs, job)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewTestDB(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db           *gorm.DB
	documents    *repository.DocumentRepository
	sessions     *repository.SessionRepository
	messages     *repository.MessageRepository
	embedder     *fakeEmbedder
	generator    *fakeGenerator
	index        VectorIndex
	slot         *GeneratorSlot
	conversation *ConversationLog
	coordinator  *IndexCoordinator
	orchestrator *RetrievalOrchestrator
	retry        *recordingPublisher
	service      *RAGService
}

func newTestEnv(t *testing.T, index VectorIndex) *testEnv {
	t.Helper()
	if index == nil {
		index = vectorindex.NewMemory()
	}
	logger := zap.NewNop()
	db := newTestDB(t)
	env := &testEnv{
		db:        db,
		documents: repository.NewDocumentRepository(db),
		sessions:  repository.NewSessionRepository(db),
		messages:  repository.NewMessageRepository(db),
		embedder:  &fakeEmbedder{},
		generator: &fakeGenerator{answer: "It is a gopher."},
		index:     index,
		slot:      NewGeneratorSlot(),
		retry:     &recordingPublisher{},
	}
	env.slot.Set(testBinding, env.generator)
	env.conversation = NewConversationLog(env.messages, nil, logger)
	env.coordinator = NewIndexCoordinator(env.documents, textsplit.NewRecursive(40, 5), env.embedder, index, logger)
	env.orchestrator = NewRetrievalOrchestrator(env.slot, env.sessions, env.documents, env.embedder, index, env.conversation, logger)
	env.service = NewRAGService(RAGServiceDeps{
		Extractor:    extract.New(),
		Documents:    env.documents,
		Sessions:     env.sessions,
		Conversation: env.conversation,
		Coordinator:  env.coordinator,
		Orchestrator: env.orchestrator,
		Retry:        env.retry,
	}, RAGOptions{DefaultNResults: 3, MaxNResults: 20}, logger)
	return env
}
