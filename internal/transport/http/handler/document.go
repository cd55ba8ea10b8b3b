package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cowrite/internal/app"
	"cowrite/internal/transport/http/middleware"
	"cowrite/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService   *app.DocumentService
	suggestionService *app.SuggestionService
}

type SaveDocumentRequest struct {
	Title   string `json:"title" binding:"max=256"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

func NewDocumentHandler(documentService *app.DocumentService, suggestionService *app.SuggestionService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, suggestionService: suggestionService}
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), userID, c.Query("id"))
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	response.OK(c, doc)
}

// Save is the autosave target of the editor.
func (h *DocumentHandler) Save(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req SaveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	doc, err := h.documentService.Save(c.Request.Context(), userID, app.SaveDocumentInput{
		ID:      c.Query("id"),
		Title:   req.Title,
		Kind:    req.Kind,
		Content: req.Content,
	})
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) ListSuggestions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	list, err := h.suggestionService.List(c.Request.Context(), userID, c.Query("documentId"))
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *DocumentHandler) AcceptSuggestion(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.suggestionService.Accept(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) DeclineSuggestion(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.suggestionService.Decline(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeDocumentError(c, err)
		return
	}
	response.OK(c, doc)
}

func writeDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrSuggestionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSuggestionNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "An error occurred while processing your request")
	}
}
