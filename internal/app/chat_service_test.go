package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"cowrite/internal/ai"
	"cowrite/internal/ai/aitest"
	"cowrite/internal/config"
	"cowrite/internal/document"
	"cowrite/internal/model"
	"cowrite/internal/repository"
	"cowrite/internal/stream"
	"cowrite/internal/testutil"
	"cowrite/internal/tools"
)

type fakePublisher struct {
	mu      sync.Mutex
	err     error
	batches []model.MessageBatch
}

func (p *fakePublisher) PublishBatch(_ context.Context, batch model.MessageBatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

type chatFixture struct {
	chats     *repository.ChatRepository
	messages  *repository.MessageRepository
	docs      *repository.DocumentRepository
	gen       *aitest.Fake
	publisher *fakePublisher
	opts      ChatOptions
	deps      tools.Deps
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := testutil.NewDB(t)
	gen := &aitest.Fake{}
	reg, err := document.NewRegistry(document.NewTextHandler(gen, "block"), document.NewCodeHandler(gen, "block"))
	require.NoError(t, err)

	f := &chatFixture{
		chats:     repository.NewChatRepository(db),
		messages:  repository.NewMessageRepository(db),
		docs:      repository.NewDocumentRepository(db),
		gen:       gen,
		publisher: &fakePublisher{},
		opts:      ChatOptions{MaxSteps: 5, TurnTimeout: 5 * time.Second},
	}
	f.deps = tools.Deps{
		Documents:   f.docs,
		Suggestions: repository.NewSuggestionRepository(db),
		Registry:    reg,
		Generator:   gen,
		BlockModel:  "block",
	}
	return f
}

func (f *chatFixture) service() *ChatService {
	return NewChatService(f.chats, f.messages, f.publisher, nil, f.gen, f.deps, f.opts, nil)
}

// run prepares and streams one turn, returning the decoded frames.
func run(t *testing.T, svc *ChatService, in TurnInput) []stream.Frame {
	t.Helper()
	ctx := context.Background()
	turn, err := svc.PrepareTurn(ctx, in)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := stream.NewWriter(&buf, 16)
	var g errgroup.Group
	g.Go(w.Run)
	svc.StreamTurn(ctx, turn, w)
	w.Close()
	require.NoError(t, g.Wait())

	var frames []stream.Frame
	require.NoError(t, stream.Decode(&buf, func(f stream.Frame) error {
		frames = append(frames, f)
		return nil
	}))
	return frames
}

func codes(frames []stream.Frame) string {
	out := make([]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Code)
	}
	return string(out)
}

func streamedText(frames []stream.Frame) string {
	var out string
	for _, f := range frames {
		if f.Code == stream.CodeText {
			out += f.Text()
		}
	}
	return out
}

func userTurn(chatID, content string) TurnInput {
	return TurnInput{
		UserID:            "user-1",
		ChatID:            chatID,
		Messages:          []IncomingMessage{{ID: "m-" + chatID, Role: model.RoleUser, Content: content}},
		SelectedChatModel: config.ModelSmall,
	}
}

func TestChatService_PersistsUserAndAssistantMessages(t *testing.T) {
	f := newChatFixture(t)
	f.gen.Steps = [][]ai.StreamEvent{aitest.Text("Hello there, friend.")}

	frames := run(t, f.service(), userTurn("chat-1", "hi"))
	assert.Equal(t, "Hello there, friend.", streamedText(frames))
	assert.Equal(t, byte(stream.CodeStartStep), frames[0].Code)
	assert.Equal(t, byte(stream.CodeFinishMessage), frames[len(frames)-1].Code)

	chat, err := f.chats.GetByID(context.Background(), "chat-1")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "user-1", chat.UserID)
	assert.Equal(t, "A title", chat.Title)

	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Text())
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there, friend.", msgs[1].Text())
	for _, m := range msgs {
		assert.Equal(t, "chat-1", m.ChatID)
	}
	assert.False(t, msgs[1].CreatedAt.Before(msgs[0].CreatedAt))
}

func TestChatService_RejectsRequestWithoutUserMessage(t *testing.T) {
	f := newChatFixture(t)
	svc := f.service()

	_, err := svc.PrepareTurn(context.Background(), TurnInput{
		UserID:   "user-1",
		ChatID:   "chat-1",
		Messages: []IncomingMessage{{Role: model.RoleAssistant, Content: "hello"}},
	})
	assert.ErrorIs(t, err, ErrNoUserMessage)
	assert.Empty(t, f.gen.Requests)

	chat, err := f.chats.GetByID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestChatService_RejectsAnonymousRequest(t *testing.T) {
	f := newChatFixture(t)
	in := userTurn("chat-1", "hi")
	in.UserID = ""

	_, err := f.service().PrepareTurn(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestChatService_ForeignChatIsForbidden(t *testing.T) {
	f := newChatFixture(t)
	require.NoError(t, f.chats.Create(context.Background(), &model.Chat{ID: "chat-1", UserID: "someone-else", Title: "x"}))

	_, err := f.service().PrepareTurn(context.Background(), userTurn("chat-1", "hi"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChatService_ToolLoop(t *testing.T) {
	f := newChatFixture(t)
	f.gen.Steps = [][]ai.StreamEvent{
		aitest.ToolCall("call-1", tools.NameCreateDocument, `{"title":"Essay","kind":"text"}`),
		aitest.Text("Document body"),
		aitest.Text("I wrote it."),
	}

	frames := run(t, f.service(), userTurn("chat-1", "write an essay"))
	c := codes(frames)
	assert.Contains(t, c, string(rune(stream.CodeToolCall)))
	assert.Contains(t, c, string(rune(stream.CodeToolResult)))
	assert.Equal(t, "I wrote it.", streamedText(frames))

	var kinds []string
	for _, fr := range frames {
		for _, ev := range fr.Events() {
			kinds = append(kinds, ev.Type)
		}
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, stream.EventKind, kinds[0])
	assert.Equal(t, stream.EventFinish, kinds[len(kinds)-1])

	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant}, roles)

	var parts []model.Part
	require.NoError(t, json.Unmarshal(msgs[1].Content, &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, model.PartToolCall, parts[0].Type)
	assert.Equal(t, "call-1", parts[0].ToolCallID)
}

func TestChatService_FollowUpTurnSeesEarlierToolResults(t *testing.T) {
	f := newChatFixture(t)
	f.gen.Steps = [][]ai.StreamEvent{
		aitest.ToolCall("call-1", tools.NameCreateDocument, `{"title":"Essay","kind":"text"}`),
		aitest.Text("Document body"),
		aitest.Text("I wrote it."),
	}
	svc := f.service()
	run(t, svc, userTurn("chat-1", "write an essay"))

	history, err := svc.GetMessages(context.Background(), "user-1", "chat-1")
	require.NoError(t, err)
	raw, err := json.Marshal(history)
	require.NoError(t, err)

	// The client replays the history endpoint's payload as-is.
	var replay []IncomingMessage
	require.NoError(t, json.Unmarshal(raw, &replay))
	replay = append(replay, IncomingMessage{ID: "m-2", Role: model.RoleUser, Content: "add suggestions"})

	var result model.Part
	for _, p := range replay[2].Parts {
		if p.Type == model.PartToolResult {
			result = p
		}
	}
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(result.Result, &created))
	require.NotEmpty(t, created.ID)

	in := userTurn("chat-1", "")
	in.Messages = replay
	run(t, svc, in)

	last := f.gen.Requests[len(f.gen.Requests)-1]
	var sawCall, sawResult bool
	for _, m := range last.Messages {
		for _, c := range m.ToolCalls {
			if c.ID == "call-1" && c.Function.Name == tools.NameCreateDocument {
				sawCall = true
			}
		}
		if m.Role == model.RoleTool && m.ToolCallID == "call-1" {
			sawResult = true
			assert.Contains(t, m.Content, created.ID)
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawResult)
	assert.Equal(t, model.RoleUser, last.Messages[len(last.Messages)-1].Role)
}

func TestChatService_StopsAtMaxSteps(t *testing.T) {
	f := newChatFixture(t)
	f.opts.MaxSteps = 2
	call := aitest.ToolCall("call", tools.NameGetWeather, `{}`)
	f.gen.Steps = [][]ai.StreamEvent{call, call, call}

	run(t, f.service(), userTurn("chat-1", "weather?"))
	assert.Equal(t, 2, f.gen.Calls())
}

func TestChatService_ReasoningModelGetsNoTools(t *testing.T) {
	f := newChatFixture(t)
	in := userTurn("chat-1", "think")
	in.SelectedChatModel = config.ModelReasoning

	run(t, f.service(), in)
	last := f.gen.Requests[len(f.gen.Requests)-1]
	assert.Empty(t, last.Tools)

	f2 := newChatFixture(t)
	run(t, f2.service(), userTurn("chat-2", "hi"))
	last = f2.gen.Requests[len(f2.gen.Requests)-1]
	assert.Len(t, last.Tools, len(tools.AllNames()))
}

func TestChatService_ModelFailureWritesErrorFrame(t *testing.T) {
	f := newChatFixture(t)
	f.gen.StreamErr = errors.New("upstream exploded")

	frames := run(t, f.service(), userTurn("chat-1", "hi"))
	last := frames[len(frames)-1]
	assert.Equal(t, byte(stream.CodeError), last.Code)
	assert.Equal(t, stream.ErrorText, last.Text())

	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestChatService_TimeoutEndsStream(t *testing.T) {
	f := newChatFixture(t)
	f.opts.TurnTimeout = 50 * time.Millisecond
	f.gen.Block = true

	frames := run(t, f.service(), userTurn("chat-1", "hi"))
	last := frames[len(frames)-1]
	assert.Equal(t, byte(stream.CodeError), last.Code)
	assert.Equal(t, stream.ErrorText, last.Text())

	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestChatService_AsyncPersistPublishesBatch(t *testing.T) {
	f := newChatFixture(t)
	f.opts.AsyncPersist = true
	f.gen.Steps = [][]ai.StreamEvent{aitest.Text("queued answer")}

	run(t, f.service(), userTurn("chat-1", "hi"))
	require.Len(t, f.publisher.batches, 1)
	assert.Equal(t, "chat-1", f.publisher.batches[0].ChatID)
	require.Len(t, f.publisher.batches[0].Messages, 1)

	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestChatService_AsyncPersistFallsBackInline(t *testing.T) {
	f := newChatFixture(t)
	f.opts.AsyncPersist = true
	f.publisher.err = errors.New("broker down")
	f.gen.Steps = [][]ai.StreamEvent{aitest.Text("answer")}

	run(t, f.service(), userTurn("chat-1", "hi"))
	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSanitizeResponse(t *testing.T) {
	in := []responseMessage{
		{ID: "a1", Role: model.RoleAssistant, Parts: []model.Part{
			{Type: model.PartReasoning, Text: "hmm"},
			{Type: model.PartText, Text: ""},
		}},
		{ID: "a2", Role: model.RoleAssistant, Parts: []model.Part{
			{Type: model.PartText, Text: "calling"},
			{Type: model.PartToolCall, ToolCallID: "answered"},
			{Type: model.PartToolCall, ToolCallID: "dangling"},
		}},
		{ID: "t1", Role: model.RoleTool, Parts: []model.Part{
			{Type: model.PartToolResult, ToolCallID: "answered"},
		}},
	}

	out := sanitizeResponse(in)
	require.Len(t, out, 2)
	assert.Equal(t, "a2", out[0].ID)
	require.Len(t, out[0].Parts, 2)
	assert.Equal(t, "answered", out[0].Parts[1].ToolCallID)
	assert.Equal(t, "t1", out[1].ID)
}

func TestChatService_DeleteForeignChatKeepsEverything(t *testing.T) {
	f := newChatFixture(t)
	f.gen.Steps = [][]ai.StreamEvent{aitest.Text("hello")}
	svc := f.service()
	run(t, svc, userTurn("chat-1", "hi"))

	err := svc.DeleteChat(context.Background(), "intruder", "chat-1")
	assert.ErrorIs(t, err, ErrForbidden)

	chat, err := f.chats.GetByID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.NotNil(t, chat)
	msgs, err := f.messages.ListByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.NoError(t, svc.DeleteChat(context.Background(), "user-1", "chat-1"))
	chat, err = f.chats.GetByID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestChatService_GetMessagesRespectsVisibility(t *testing.T) {
	f := newChatFixture(t)
	svc := f.service()
	run(t, svc, userTurn("chat-1", "hi"))

	_, err := svc.GetMessages(context.Background(), "other", "chat-1")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.UpdateVisibility(context.Background(), "user-1", "chat-1", model.VisibilityPublic))
	msgs, err := svc.GetMessages(context.Background(), "other", "chat-1")
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)

	assert.ErrorIs(t, svc.UpdateVisibility(context.Background(), "user-1", "chat-1", "shared"), ErrInvalidInput)
}
