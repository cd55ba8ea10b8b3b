package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"cowrite/internal/app"
	"cowrite/internal/pkg/logger"
	"cowrite/internal/stream"
	"cowrite/internal/transport/http/middleware"
	"cowrite/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	bufferSize  int
	log         *logger.Logger
}

type ChatRequest struct {
	ID                string                `json:"id" binding:"required"`
	Messages          []app.IncomingMessage `json:"messages"`
	SelectedChatModel string                `json:"selectedChatModel"`
}

type VisibilityRequest struct {
	ChatID     string `json:"chatId" binding:"required"`
	Visibility string `json:"visibility" binding:"required,oneof=private public"`
}

func NewChatHandler(chatService *app.ChatService, bufferSize int, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{chatService: chatService, bufferSize: bufferSize, log: log.With("component", "ChatHandler")}
}

// Stream answers one chat turn as a data stream. Everything that can be
// rejected is rejected before the first byte is written.
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	ctx := c.Request.Context()
	turn, err := h.chatService.PrepareTurn(ctx, app.TurnInput{
		UserID:            userID,
		ChatID:            req.ID,
		Messages:          req.Messages,
		SelectedChatModel: req.SelectedChatModel,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		case errors.Is(err, app.ErrNoUserMessage):
			response.Error(c, http.StatusBadRequest, response.CodeNoUserMessage, "No user message found")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			h.log.Error("prepare turn failed", "chat_id", req.ID, "error", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "An error occurred while processing your request")
		}
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Vercel-AI-Data-Stream", "v1")
	c.Status(http.StatusOK)

	w := stream.NewWriter(c.Writer, h.bufferSize)
	var g errgroup.Group
	g.Go(w.Run)
	g.Go(func() error {
		defer w.Close()
		h.chatService.StreamTurn(ctx, turn, w)
		return nil
	})
	if err := g.Wait(); err != nil {
		h.log.Warn("data stream interrupted", "chat_id", turn.Chat.ID, "error", err)
	}
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	chatID := c.Query("id")
	if chatID == "" {
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, "Not Found")
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), userID, chatID); err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized), errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, "Not Found")
		default:
			h.log.Error("delete chat failed", "chat_id", chatID, "error", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "An error occurred while processing your request")
		}
		return
	}

	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	chats, err := h.chatService.ListChats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chats failed")
		return
	}

	response.OK(c, chats)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), userID, c.Query("chatId"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get messages failed")
		}
		return
	}

	response.OK(c, messages)
}

func (h *ChatHandler) UpdateVisibility(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.chatService.UpdateVisibility(c.Request.Context(), userID, req.ChatID, req.Visibility); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update visibility failed")
		}
		return
	}

	response.OK(c, gin.H{"chatId": req.ChatID, "visibility": req.Visibility})
}
