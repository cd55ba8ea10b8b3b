package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cowrite/internal/ai"
	"cowrite/internal/config"
	"cowrite/internal/model"
	"cowrite/internal/pkg/logger"
	"cowrite/internal/stream"
	"cowrite/internal/tools"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoUserMessage = errors.New("no user message found")
	ErrChatNotFound  = errors.New("chat not found")
	ErrForbidden     = errors.New("chat belongs to another user")
)

type ChatStore interface {
	Create(ctx context.Context, chat *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Chat, error)
	UpdateVisibility(ctx context.Context, id, visibility string) error
	DeleteByID(ctx context.Context, id string) error
}

type MessageStore interface {
	CreateBatch(ctx context.Context, messages []model.Message) error
	ListByChatID(ctx context.Context, chatID string) ([]model.Message, error)
}

type BatchPublisher interface {
	PublishBatch(ctx context.Context, batch model.MessageBatch) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID string) error
	MarkDirty(ctx context.Context, chatID string) error
	IsDirty(ctx context.Context, chatID string) (bool, error)
}

type ChatOptions struct {
	MaxSteps     int
	TurnTimeout  time.Duration
	SmoothDelay  time.Duration
	AsyncPersist bool
	// ModelID maps a public model alias to the provider model id.
	ModelID func(alias string) string
}

type ChatService struct {
	chats     ChatStore
	messages  MessageStore
	publisher BatchPublisher
	cache     HistoryCache
	gen       ai.Generator
	toolDeps  tools.Deps
	opts      ChatOptions
	log       *logger.Logger
	now       func() time.Time
}

type TurnInput struct {
	UserID            string
	ChatID            string
	Messages          []IncomingMessage
	SelectedChatModel string
}

// Turn is a validated request whose chat exists and whose user message has
// been persisted. Only a Turn can be streamed.
type Turn struct {
	Input       TurnInput
	Chat        *model.Chat
	UserMessage IncomingMessage
}

func NewChatService(
	chats ChatStore,
	messages MessageStore,
	publisher BatchPublisher,
	cache HistoryCache,
	gen ai.Generator,
	toolDeps tools.Deps,
	opts ChatOptions,
	log *logger.Logger,
) *ChatService {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 5
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 60 * time.Second
	}
	if opts.ModelID == nil {
		opts.ModelID = func(alias string) string { return alias }
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		chats:     chats,
		messages:  messages,
		publisher: publisher,
		cache:     cache,
		gen:       gen,
		toolDeps:  toolDeps,
		opts:      opts,
		log:       log.With("component", "ChatService"),
		now:       time.Now,
	}
}

// PrepareTurn runs every check and write that must succeed before anything
// is streamed: identity, user message, chat resolution and persistence of
// the inbound message.
func (s *ChatService) PrepareTurn(ctx context.Context, in TurnInput) (*Turn, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrUnauthorized
	}
	userMessage, ok := lastUserMessage(in.Messages)
	if !ok {
		return nil, ErrNoUserMessage
	}
	if strings.TrimSpace(in.ChatID) == "" {
		return nil, ErrInvalidInput
	}

	chat, err := s.chats.GetByID(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		chat = &model.Chat{
			ID:         in.ChatID,
			UserID:     in.UserID,
			Title:      s.generateTitle(ctx, userMessage.Content),
			Visibility: model.VisibilityPrivate,
			CreatedAt:  s.now(),
		}
		if err := s.chats.Create(ctx, chat); err != nil {
			return nil, err
		}
	} else if chat.UserID != in.UserID {
		return nil, ErrForbidden
	}

	if userMessage.ID == "" {
		userMessage.ID = uuid.NewString()
	}
	s.markDirty(ctx, chat.ID)
	if err := s.messages.CreateBatch(ctx, []model.Message{{
		ID:        userMessage.ID,
		ChatID:    chat.ID,
		Role:      model.RoleUser,
		Content:   model.TextContent(userMessage.Content),
		CreatedAt: s.now(),
	}}); err != nil {
		return nil, err
	}

	return &Turn{Input: in, Chat: chat, UserMessage: userMessage}, nil
}

// StreamTurn drives the model for a prepared turn and writes the result to
// w. It returns when the turn completes or its time budget runs out; on
// timeout an error frame is written and w is closed. Tool calls already
// running are left to finish on their own.
func (s *ChatService) StreamTurn(ctx context.Context, turn *Turn, w *stream.Writer) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- s.runTurn(ctx, turn, w)
	}()

	var completed bool
	select {
	case completed = <-done:
	case <-ctx.Done():
	}
	if completed || ctx.Err() == nil {
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.Warn("turn timed out", "chat_id", turn.Chat.ID, "timeout", s.opts.TurnTimeout)
		w.Error(stream.ErrorText)
	}
	w.Close()
}

// responseMessage is an assistant or tool message produced during a turn,
// identified at emission time.
type responseMessage struct {
	ID    string
	Role  string
	Parts []model.Part
}

// runTurn reports whether the turn ran to its finish frame.
func (s *ChatService) runTurn(ctx context.Context, turn *Turn, w *stream.Writer) bool {
	selected := turn.Input.SelectedChatModel
	var active []string
	if selected != config.ModelReasoning {
		active = tools.AllNames()
	}
	toolset := tools.ForTurn(s.toolDeps, turn.Input.UserID, w)
	definitions := toolset.Definitions(active)
	history := toAIMessages(turn.Input.Messages)

	var response []responseMessage
	finishReason := "stop"
	for step := 0; step < s.opts.MaxSteps; step++ {
		messageID := uuid.NewString()
		w.StartStep(messageID)

		smoother := stream.NewSmoother(w, s.opts.SmoothDelay)
		var text, reasoning strings.Builder
		var calls []ai.ToolCall
		stepFinish := "stop"
		err := s.gen.Stream(ctx, ai.Request{
			Model:    s.opts.ModelID(selected),
			System:   SystemPrompt(selected),
			Messages: history,
			Tools:    definitions,
		}, func(ev ai.StreamEvent) error {
			switch ev.Type {
			case ai.EventTextDelta:
				text.WriteString(ev.Text)
				smoother.Write(ev.Text)
			case ai.EventReasoningDelta:
				smoother.Flush()
				reasoning.WriteString(ev.Text)
				w.Reasoning(ev.Text)
			case ai.EventToolCall:
				smoother.Flush()
				calls = append(calls, *ev.ToolCall)
				w.ToolCall(ev.ToolCall.ID, ev.ToolCall.Function.Name, []byte(ev.ToolCall.Function.Arguments))
			case ai.EventFinish:
				stepFinish = ev.FinishReason
			}
			return nil
		})
		smoother.Flush()
		if err != nil {
			s.log.Error("model stream failed", "chat_id", turn.Chat.ID, "step", step, "error", err)
			if ctx.Err() == nil {
				w.Error(stream.ErrorText)
			}
			return false
		}

		assistant := responseMessage{ID: messageID, Role: model.RoleAssistant}
		if reasoning.Len() > 0 {
			assistant.Parts = append(assistant.Parts, model.Part{Type: model.PartReasoning, Text: reasoning.String()})
		}
		assistant.Parts = append(assistant.Parts, model.Part{Type: model.PartText, Text: text.String()})
		for _, call := range calls {
			assistant.Parts = append(assistant.Parts, model.Part{
				Type:       model.PartToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Args:       rawArgs(call.Function.Arguments),
			})
		}
		response = append(response, assistant)
		history = append(history, ai.ChatMessage{Role: model.RoleAssistant, Content: text.String(), ToolCalls: calls})
		finishReason = stepFinish

		if len(calls) == 0 {
			w.FinishStep(stepFinish)
			break
		}

		toolMessage := responseMessage{ID: uuid.NewString(), Role: model.RoleTool}
		for _, call := range calls {
			// Tools outlive a disconnected client so no document is left half written.
			result, execErr := toolset.Execute(context.WithoutCancel(ctx), call.Function.Name, call.Function.Arguments)
			if execErr != nil {
				s.log.Warn("tool execution failed", "chat_id", turn.Chat.ID, "tool", call.Function.Name, "error", execErr)
			}
			w.ToolResult(call.ID, result)
			toolMessage.Parts = append(toolMessage.Parts, model.Part{
				Type:       model.PartToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Result:     result,
				IsError:    execErr != nil,
			})
			history = append(history, ai.ChatMessage{Role: model.RoleTool, ToolCallID: call.ID, Content: string(result)})
		}
		response = append(response, toolMessage)
		w.FinishStep(stepFinish)

		if ctx.Err() != nil {
			return false
		}
	}

	w.FinishMessage(finishReason)
	s.persistResponse(context.WithoutCancel(ctx), turn.Chat.ID, response)
	return true
}

// persistResponse saves the sanitized response in one batch. Failures are
// logged only: the client already has the content.
func (s *ChatService) persistResponse(ctx context.Context, chatID string, response []responseMessage) {
	sanitized := sanitizeResponse(response)
	if len(sanitized) == 0 {
		return
	}

	now := s.now()
	rows := make([]model.Message, 0, len(sanitized))
	for _, msg := range sanitized {
		rows = append(rows, model.Message{
			ID:        msg.ID,
			ChatID:    chatID,
			Role:      msg.Role,
			Content:   model.PartsContent(msg.Parts),
			CreatedAt: now,
		})
	}

	if s.opts.AsyncPersist && s.publisher != nil {
		err := s.publisher.PublishBatch(ctx, model.MessageBatch{ChatID: chatID, Messages: rows})
		if err == nil {
			return
		}
		s.log.Error("publish message batch failed, saving inline", "chat_id", chatID, "error", err)
	}

	if err := s.messages.CreateBatch(ctx, rows); err != nil {
		s.log.Error("failed to save chat", "chat_id", chatID, "count", len(rows), "error", err)
		return
	}
	if s.cache != nil {
		_ = s.cache.DeleteHistory(ctx, chatID)
	}
}

// sanitizeResponse drops tool calls that never got a result, empty text
// parts, and messages left with nothing a user can see.
func sanitizeResponse(messages []responseMessage) []responseMessage {
	answered := map[string]bool{}
	for _, msg := range messages {
		if msg.Role != model.RoleTool {
			continue
		}
		for _, p := range msg.Parts {
			if p.Type == model.PartToolResult {
				answered[p.ToolCallID] = true
			}
		}
	}

	out := make([]responseMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == model.RoleAssistant {
			kept := make([]model.Part, 0, len(msg.Parts))
			for _, p := range msg.Parts {
				switch p.Type {
				case model.PartToolCall:
					if !answered[p.ToolCallID] {
						continue
					}
				case model.PartText:
					if p.Text == "" {
						continue
					}
				}
				kept = append(kept, p)
			}
			msg.Parts = kept
		}
		if !hasVisiblePart(msg.Parts) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func hasVisiblePart(parts []model.Part) bool {
	for _, p := range parts {
		if p.Type != model.PartReasoning {
			return true
		}
	}
	return false
}

func (s *ChatService) generateTitle(ctx context.Context, userText string) string {
	title, err := s.gen.Complete(ctx, ai.Request{
		Model:    s.opts.ModelID(config.ModelTitle),
		System:   titlePrompt,
		Messages: []ai.ChatMessage{{Role: model.RoleUser, Content: userText}},
	})
	if err != nil {
		s.log.Warn("generate title failed", "error", err)
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		title = strings.TrimSpace(userText)
	}
	return truncateRunes(title, 80)
}

func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.chats.ListByUserID(ctx, userID)
}

// GetMessages returns the persisted history of a chat. Private chats are only
// visible to their owner.
func (s *ChatService) GetMessages(ctx context.Context, userID, chatID string) ([]model.Message, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.Visibility != model.VisibilityPublic && chat.UserID != userID {
		return nil, ErrForbidden
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, chatID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, chatID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messages.ListByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, chatID); dirtyErr == nil && !dirty {
			_ = s.cache.SetHistory(ctx, chatID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) UpdateVisibility(ctx context.Context, userID, chatID, visibility string) error {
	if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
		return ErrInvalidInput
	}
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.chats.UpdateVisibility(ctx, chatID, visibility)
}

// DeleteChat removes a chat owned by userID together with its messages,
// votes and PDF reference.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.chats.DeleteByID(ctx, chatID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.DeleteHistory(ctx, chatID)
	}
	return nil
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if chatID == "" {
		return nil, ErrChatNotFound
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.UserID != userID {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *ChatService) markDirty(ctx context.Context, chatID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.MarkDirty(ctx, chatID)
	_ = s.cache.DeleteHistory(ctx, chatID)
}

func lastUserMessage(messages []IncomingMessage) (IncomingMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i], true
		}
	}
	return IncomingMessage{}, false
}

func rawArgs(args string) json.RawMessage {
	if !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
