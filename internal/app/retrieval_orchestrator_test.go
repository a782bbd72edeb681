package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/vectorindex"
)

func linkedSession(t *testing.T, env *testEnv, body string) (string, *model.Document) {
	t.Helper()
	doc := registerDocument(t, env, body)
	sessionID := "session-" + doc.IndexHandle
	require.NoError(t, env.sessions.Link(context.Background(), sessionID, doc.DocumentID))
	return sessionID, doc
}

func TestAnswerWithoutGenerator(t *testing.T) {
	env := newTestEnv(t, nil)
	sessionID, _ := linkedSession(t, env, gopherText)
	orchestrator := NewRetrievalOrchestrator(NewGeneratorSlot(), env.sessions, env.documents, env.embedder, env.index, env.conversation, zap.NewNop())

	result, err := orchestrator.Answer(context.Background(), sessionID, "where do gophers live?", 3)
	assert.ErrorIs(t, err, ErrNotConfigured)
	require.NotNil(t, result)
	assert.Equal(t, StatusError, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestAnswerUnlinkedSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	result, err := env.orchestrator.Answer(ctx, "nobody", "hello?", 3)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "nobody", result.SessionID)
	assert.Zero(t, env.embedder.Calls())

	msgs, err := env.conversation.All(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	sessionID, _ := linkedSession(t, env, gopherText)

	for _, question := range []string{"", "   \n\t"} {
		result, err := env.orchestrator.Answer(ctx, sessionID, question, 3)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		assert.ErrorIs(t, err, ErrValidation)
		assert.NotErrorIs(t, err, ErrDependency)
		require.NotNil(t, result)
		assert.Equal(t, StatusError, result.Status)
	}
	assert.Zero(t, env.embedder.Calls())

	msgs, err := env.conversation.All(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAnswerNoResults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, emptyQueryIndex{vectorindex.NewMemory()})
	sessionID, doc := linkedSession(t, env, gopherText)
	_, err := env.coordinator.Ingest(ctx, doc.DocumentID, gopherText, doc.IndexHandle)
	require.NoError(t, err)

	result, err := env.orchestrator.Answer(ctx, sessionID, "what is the capital of France?", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, result.Status)
	assert.Equal(t, noResultsAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, env.generator.Calls())

	msgs, err := env.conversation.All(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, noResultsAnswer, msgs[1].Content)
}

func TestAnswerEmptyContext(t *testing.T) {
	ctx := context.Background()
	index := &stubIndex{matches: []vectorindex.Match{{ID: "a:0", Text: "  "}, {ID: "a:1", Text: "\n"}}}
	env := newTestEnv(t, index)
	sessionID, _ := linkedSession(t, env, gopherText)

	result, err := env.orchestrator.Answer(ctx, sessionID, "anything?", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusEmptyContext, result.Status)
	assert.Equal(t, emptyContextAnswer, result.Answer)
	assert.Zero(t, env.generator.Calls())
}

func TestAnswerSuccess(t *testing.T) {
	ctx := context.Background()
	index := &stubIndex{matches: []vectorindex.Match{
		{ID: "h:2", Text: "Gophers live in burrows.", Distance: 0.1},
		{ID: "h:0", Text: "They eat roots.", Distance: 0.3},
	}}
	env := newTestEnv(t, index)
	sessionID, _ := linkedSession(t, env, gopherText)

	result, err := env.orchestrator.Answer(ctx, sessionID, "where do gophers live?", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "It is a gopher.", result.Answer)
	assert.Equal(t, []string{"Gophers live in burrows.", "They eat roots."}, result.Sources)
	assert.Equal(t, "Gophers live in burrows.\n\nThey eat roots.", env.generator.lastContext)
	assert.Equal(t, 1, index.queries)

	msgs, err := env.conversation.All(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "where do gophers live?", msgs[0].Content)
	assert.Equal(t, "It is a gopher.", msgs[1].Content)
}

func TestAnswerUsesMostRecentLink(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	first := registerDocument(t, env, gopherText)
	second := registerDocument(t, env, "Moles are not gophers. "+gopherText)
	_, err := env.coordinator.Ingest(ctx, second.DocumentID, "Moles are not gophers.", second.IndexHandle)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Link(ctx, "s1", first.DocumentID))
	require.NoError(t, env.sessions.Link(ctx, "s1", second.DocumentID))

	result, err := env.orchestrator.Answer(ctx, "s1", "moles?", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, []string{"Moles are not gophers."}, result.Sources)
}

func TestAnswerGenerationFailure(t *testing.T) {
	ctx := context.Background()
	index := &stubIndex{matches: []vectorindex.Match{{ID: "h:0", Text: "Gophers live in burrows."}}}
	env := newTestEnv(t, index)
	env.generator.err = errors.New("upstream timeout")
	sessionID, _ := linkedSession(t, env, gopherText)

	result, err := env.orchestrator.Answer(ctx, sessionID, "where?", 1)
	require.Error(t, err)
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "fake:model", depErr.Provider)
	assert.Equal(t, "generate", depErr.Op)
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "upstream timeout")
}

func TestAnswerQueryFailure(t *testing.T) {
	index := &stubIndex{queryErr: errors.New("connection reset")}
	env := newTestEnv(t, index)
	sessionID, _ := linkedSession(t, env, gopherText)

	_, err := env.orchestrator.Answer(context.Background(), sessionID, "where?", 1)
	assert.ErrorIs(t, err, ErrDependency)
	assert.Zero(t, env.generator.Calls())
}

func TestAnswerSurvivesLogFailure(t *testing.T) {
	index := &stubIndex{matches: []vectorindex.Match{{ID: "h:0", Text: "Gophers live in burrows."}}}
	env := newTestEnv(t, index)
	sessionID, _ := linkedSession(t, env, gopherText)
	log := &failingLog{}
	orchestrator := NewRetrievalOrchestrator(env.slot, env.sessions, env.documents, env.embedder, index, log, zap.NewNop())

	result, err := orchestrator.Answer(context.Background(), sessionID, "where?", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, log.calls)
}
