package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/transport/http/response"
)

const greeting = "Hello! I've loaded your document and I'm ready to help. Ask me anything about its contents!"

type RAGHandler struct {
	ragService     *app.RAGService
	maxUploadBytes int64
	logger         *zap.Logger
}

type QueryRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
	NResults  int    `json:"n_results"`
}

type SendMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type messageView struct {
	ID        uint    `json:"id,omitempty"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Timestamp *string `json:"timestamp"`
}

func NewRAGHandler(ragService *app.RAGService, maxUploadMB int, logger *zap.Logger) *RAGHandler {
	return &RAGHandler{
		ragService:     ragService,
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger.Named("rag_handler"),
	}
}

// Upload accepts a multipart form with "file" and an optional "session_id".
func (h *RAGHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
			fmt.Sprintf("file too large (max %dMB)", h.maxUploadBytes>>20))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.ragService.Upload(c.Request.Context(), app.UploadInput{
		Filename:  file.Filename,
		Data:      data,
		SessionID: c.PostForm("session_id"),
	})
	if err != nil {
		h.fail(c, err, "upload failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		SessionID: req.SessionID,
		Question:  req.Question,
		NResults:  req.NResults,
	})
	if err != nil {
		status, code := statusFor(err)
		response.ErrorWithData(c, status, code, publicMessage(err, status, "query failed"), result)
		return
	}
	response.OK(c, result)
}

// SendMessage is the chat-style variant of Query that only returns the answer.
func (h *RAGHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "message cannot be empty")
		return
	}

	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		SessionID: req.SessionID,
		Question:  req.Content,
	})
	if err != nil {
		h.fail(c, err, "send message failed")
		return
	}
	response.OK(c, gin.H{"content": result.Answer, "status": result.Status})
}

func (h *RAGHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.ragService.History(c.Request.Context(), c.Param("session_id"), limit)
	if err != nil {
		h.fail(c, err, "get history failed")
		return
	}
	if len(messages) == 0 {
		response.OK(c, []messageView{{Role: model.RoleAssistant, Content: greeting}})
		return
	}

	out := make([]messageView, 0, len(messages))
	for _, m := range messages {
		ts := m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
		out = append(out, messageView{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: &ts})
	}
	response.OK(c, out)
}

func (h *RAGHandler) Document(c *gin.Context) {
	doc, err := h.ragService.DocumentInfo(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *RAGHandler) Session(c *gin.Context) {
	info, err := h.ragService.SessionInfo(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err, "get session failed")
		return
	}
	response.OK(c, info)
}

func (h *RAGHandler) fail(c *gin.Context, err error, fallback string) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.Error(c, status, code, publicMessage(err, status, fallback))
}
