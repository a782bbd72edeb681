package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/pkg/extract"
	"gopherai-docqa/internal/pkg/secret"
	"gopherai-docqa/internal/pkg/textsplit"
	"gopherai-docqa/internal/platform/database"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/transport/http/response"
	"gopherai-docqa/internal/vectorindex"
)

type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (lengthEmbedder) Name() string { return "length" }

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _, question string) (string, error) {
	return "answer to: " + question, nil
}

func (echoGenerator) Provider() string { return "echo:test" }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, configured bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewTestDB(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop()
	documents := repository.NewDocumentRepository(db)
	sessions := repository.NewSessionRepository(db)
	index := vectorindex.NewMemory()
	slot := app.NewGeneratorSlot()
	if configured {
		slot.Set(ai.Binding{Provider: ai.ProviderOpenAI, Model: "gpt-4o-mini"}, echoGenerator{})
	}
	conversation := app.NewConversationLog(repository.NewMessageRepository(db), nil, logger)
	coordinator := app.NewIndexCoordinator(documents, textsplit.NewRecursive(60, 10), lengthEmbedder{}, index, logger)
	orchestrator := app.NewRetrievalOrchestrator(slot, sessions, documents, lengthEmbedder{}, index, conversation, logger)
	rag := app.NewRAGService(app.RAGServiceDeps{
		Extractor:    extract.New(),
		Documents:    documents,
		Sessions:     sessions,
		Conversation: conversation,
		Coordinator:  coordinator,
		Orchestrator: orchestrator,
	}, app.RAGOptions{DefaultNResults: 3, MaxNResults: 20}, logger)

	box, err := secret.NewBox("test")
	require.NoError(t, err)
	credentials := app.NewCredentialService(repository.NewCredentialRepository(db), box, slot,
		func(ai.Binding, string) (app.AnswerGenerator, error) { return echoGenerator{}, nil }, logger)

	ragHandler := NewRAGHandler(rag, 1, logger)
	credentialHandler := NewCredentialHandler(credentials, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/upload", ragHandler.Upload)
	v1.POST("/query", ragHandler.Query)
	v1.POST("/messages", ragHandler.SendMessage)
	v1.GET("/messages/:session_id", ragHandler.History)
	v1.GET("/document/:session_id", ragHandler.Document)
	v1.GET("/sessions/:session_id", ragHandler.Session)
	v1.POST("/api-key", credentialHandler.SetAPIKey)
	v1.GET("/api-key-status", credentialHandler.Status)
	return router
}

func do(t *testing.T, router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte, sessionID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if sessionID != "" {
		require.NoError(t, mw.WriteField("session_id", sessionID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const sampleDoc = "Gophers are burrowing rodents.\n\nThey live in North America and dig long tunnels."

func TestUploadQueryAndHistory(t *testing.T) {
	router := newTestRouter(t, true)

	w, env := do(t, router, uploadRequest(t, "gophers.txt", []byte(sampleDoc), ""))
	require.Equal(t, http.StatusOK, w.Code)
	var uploaded app.UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	assert.False(t, uploaded.Reused)
	assert.Positive(t, uploaded.ChunkCount)

	w, env = do(t, router, uploadRequest(t, "copy.txt", []byte(sampleDoc), "second"))
	require.Equal(t, http.StatusOK, w.Code)
	var again app.UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.True(t, again.Reused)
	assert.Equal(t, uploaded.DocumentID, again.DocumentID)

	w, env = do(t, router, jsonRequest(http.MethodPost, "/api/v1/query",
		QueryRequest{SessionID: uploaded.SessionID, Question: "Where do gophers live?"}))
	require.Equal(t, http.StatusOK, w.Code)
	var answer app.AnswerResult
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, app.StatusSuccess, answer.Status)
	assert.Equal(t, "answer to: Where do gophers live?", answer.Answer)

	w, env = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/messages/"+uploaded.SessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history []messageView
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.NotNil(t, history[0].Timestamp)

	w, env = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/document/second", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), uploaded.DocumentID)

	w, env = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uploaded.SessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"message_count":2`)
}

func TestHistoryGreetingForEmptySession(t *testing.T) {
	router := newTestRouter(t, true)

	w, env := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/messages/fresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history []messageView
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "assistant", history[0].Role)
	assert.Equal(t, greeting, history[0].Content)
	assert.Nil(t, history[0].Timestamp)

	w, _ = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/messages/fresh?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t, false)

	tests := []struct {
		name     string
		req      func() *http.Request
		status   int
		code     int
		contains string
	}{
		{
			name:   "unsupported upload",
			req:    func() *http.Request { return uploadRequest(t, "notes.docx", []byte("x"), "") },
			status: http.StatusBadRequest,
			code:   response.CodeBadRequest,
		},
		{
			name:   "upload too large",
			req:    func() *http.Request { return uploadRequest(t, "big.txt", bytes.Repeat([]byte("a"), 2<<20), "") },
			status: http.StatusRequestEntityTooLarge,
			code:   response.CodeFileTooLarge,
		},
		{
			name: "query without llm",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/api/v1/query", QueryRequest{SessionID: "s", Question: "q"})
			},
			status:   http.StatusBadRequest,
			code:     response.CodeNotConfigured,
			contains: `"status":"error"`,
		},
		{
			name:   "query missing fields",
			req:    func() *http.Request { return jsonRequest(http.MethodPost, "/api/v1/query", map[string]string{}) },
			status: http.StatusBadRequest,
			code:   response.CodeBadRequest,
		},
		{
			name: "blank message",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/api/v1/messages", SendMessageRequest{SessionID: "s", Content: "  "})
			},
			status: http.StatusBadRequest,
			code:   response.CodeBadRequest,
		},
		{
			name:   "document for unknown session",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/document/nope", nil) },
			status: http.StatusNotFound,
			code:   response.CodeNoActiveSession,
		},
		{
			name:   "unknown session",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil) },
			status: http.StatusNotFound,
			code:   response.CodeSessionNotFound,
		},
		{
			name: "unknown provider",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/api/v1/api-key", SetAPIKeyRequest{APIKey: "k", Provider: "acme"})
			},
			status: http.StatusBadRequest,
			code:   response.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, tt.req())
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
			if tt.contains != "" {
				assert.Contains(t, string(env.Data), tt.contains)
			}
		})
	}
}

func TestAPIKeyFlow(t *testing.T) {
	router := newTestRouter(t, false)

	_, env := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/api-key-status", nil))
	assert.JSONEq(t, `{"has_api_key":false}`, string(env.Data))

	w, env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/api-key", SetAPIKeyRequest{APIKey: "gsk", Provider: "groq"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"has_api_key":true,"provider":"groq","model":"llama-3.1-8b-instant"}`, string(env.Data))

	_, env = do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/api-key-status", nil))
	assert.True(t, strings.Contains(string(env.Data), `"has_api_key":true`))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{app.ErrEmptyQuestion, http.StatusBadRequest},
		{app.ErrNotConfigured, http.StatusBadRequest},
		{app.ErrDocumentNotFound, http.StatusNotFound},
		{&app.DependencyError{Provider: "p", Op: "embed", Err: errors.New("x")}, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
	assert.Equal(t, "boom", publicMessage(errors.New("boom"), http.StatusBadRequest, "fallback"))
	assert.Equal(t, "fallback", publicMessage(errors.New("boom"), http.StatusInternalServerError, "fallback"))
}
