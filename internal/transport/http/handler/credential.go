package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/transport/http/response"
)

type CredentialHandler struct {
	credentials *app.CredentialService
	logger      *zap.Logger
}

type SetAPIKeyRequest struct {
	APIKey   string `json:"api_key" binding:"required"`
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model"`
}

func NewCredentialHandler(credentials *app.CredentialService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, logger: logger.Named("credential_handler")}
}

func (h *CredentialHandler) SetAPIKey(c *gin.Context) {
	var req SetAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "api_key and provider are required")
		return
	}

	status, err := h.credentials.Set(c.Request.Context(), app.SetCredentialInput{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		code, envelope := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("save api key failed", zap.Error(err))
		}
		response.Error(c, code, envelope, publicMessage(err, code, "save api key failed"))
		return
	}
	response.OK(c, status)
}

func (h *CredentialHandler) Status(c *gin.Context) {
	response.OK(c, h.credentials.Status())
}
