package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cowrite/internal/app"
	"cowrite/internal/pkg/logger"
	"cowrite/internal/transport/http/middleware"
	"cowrite/internal/transport/http/response"
)

type PDFHandler struct {
	pdfService *app.PDFService
	log        *logger.Logger
}

type SavePDFRequest struct {
	URL    string `json:"url" binding:"required"`
	ChatID string `json:"chatId" binding:"required"`
}

type UpdatePDFRequest struct {
	ID     string `json:"id" binding:"required"`
	URL    string `json:"url" binding:"required"`
	ChatID string `json:"chatId" binding:"required"`
}

type savePDFResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

func NewPDFHandler(pdfService *app.PDFService, log *logger.Logger) *PDFHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PDFHandler{pdfService: pdfService, log: log.With("component", "PDFHandler")}
}

// Get writes the chat's PDF reference, or a JSON null when it has none.
func (h *PDFHandler) Get(c *gin.Context) {
	if _, ok := middleware.UserID(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	chatID := c.Query("chatId")
	if chatID == "" {
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, "Not Found")
		return
	}

	pdf, err := h.pdfService.Get(c.Request.Context(), chatID)
	if err != nil {
		h.log.Error("get pdf failed", "chat_id", chatID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "An error occurred while processing your request")
		return
	}
	if pdf == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, pdf)
}

func (h *PDFHandler) Save(c *gin.Context) {
	if _, ok := middleware.UserID(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req SavePDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	id, err := h.pdfService.Save(c.Request.Context(), req.ChatID, req.URL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, savePDFResponse{Success: true, ID: id})
}

func (h *PDFHandler) Update(c *gin.Context) {
	if _, ok := middleware.UserID(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req UpdatePDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	id, err := h.pdfService.Update(c.Request.Context(), req.ID, req.ChatID, req.URL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, savePDFResponse{Success: true, ID: id})
}

func (h *PDFHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrPDFNotFound):
		response.Error(c, http.StatusNotFound, response.CodePDFNotFound, err.Error())
	default:
		h.log.Error("save pdf failed", "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "An error occurred while processing your request")
	}
}
