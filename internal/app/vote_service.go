package app

import (
	"context"

	"cowrite/internal/model"
)

const (
	VoteUp   = "up"
	VoteDown = "down"
)

type VoteStore interface {
	ListByChatID(ctx context.Context, chatID string) ([]model.Vote, error)
	Upsert(ctx context.Context, vote *model.Vote) error
}

type MessageLookup interface {
	GetByID(ctx context.Context, id string) (*model.Message, error)
}

type VoteService struct {
	chats    ChatStore
	messages MessageLookup
	votes    VoteStore
}

func NewVoteService(chats ChatStore, messages MessageLookup, votes VoteStore) *VoteService {
	return &VoteService{chats: chats, messages: messages, votes: votes}
}

func (s *VoteService) List(ctx context.Context, userID, chatID string) ([]model.Vote, error) {
	if err := s.checkOwner(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.votes.ListByChatID(ctx, chatID)
}

func (s *VoteService) Vote(ctx context.Context, userID, chatID, messageID, voteType string) error {
	if messageID == "" || (voteType != VoteUp && voteType != VoteDown) {
		return ErrInvalidInput
	}
	if err := s.checkOwner(ctx, userID, chatID); err != nil {
		return err
	}
	// Only messages of the voted chat can carry its votes.
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.ChatID != chatID {
		return ErrInvalidInput
	}
	return s.votes.Upsert(ctx, &model.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: voteType == VoteUp})
}

func (s *VoteService) checkOwner(ctx context.Context, userID, chatID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if chatID == "" {
		return ErrInvalidInput
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if chat.UserID != userID {
		return ErrForbidden
	}
	return nil
}
