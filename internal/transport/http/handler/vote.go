package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cowrite/internal/app"
	"cowrite/internal/transport/http/middleware"
	"cowrite/internal/transport/http/response"
)

type VoteHandler struct {
	voteService *app.VoteService
}

type VoteRequest struct {
	ChatID    string `json:"chatId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=up down"`
}

func NewVoteHandler(voteService *app.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

func (h *VoteHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	votes, err := h.voteService.List(c.Request.Context(), userID, c.Query("chatId"))
	if err != nil {
		writeVoteError(c, err)
		return
	}
	response.OK(c, votes)
}

func (h *VoteHandler) Vote(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.voteService.Vote(c.Request.Context(), userID, req.ChatID, req.MessageID, req.Type); err != nil {
		writeVoteError(c, err)
		return
	}
	response.OK(c, gin.H{"chatId": req.ChatID, "messageId": req.MessageID, "type": req.Type})
}

func writeVoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "vote failed")
	}
}
