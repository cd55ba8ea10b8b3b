package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cowrite/internal/config"
	"cowrite/internal/model"
)

type fakeStore struct {
	saved [][]model.Message
	err   error
}

func (f *fakeStore) CreateBatch(_ context.Context, messages []model.Message) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, messages)
	return nil
}

type fakeInvalidator struct {
	deleted []string
}

func (f *fakeInvalidator) DeleteHistory(_ context.Context, chatID string) error {
	f.deleted = append(f.deleted, chatID)
	return nil
}

func TestHandle_PersistsWholeBatchOnce(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeInvalidator{}
	w := NewMessagePersistWorker(nil, store, cache, config.RabbitMQConfig{MessagePersistQueue: "q"}, nil)

	body, err := json.Marshal(model.MessageBatch{
		ChatID: "chat-1",
		Messages: []model.Message{
			{ID: "m1", ChatID: "chat-1", Role: model.RoleAssistant, Content: model.TextContent("hello")},
			{ID: "m2", ChatID: "chat-1", Role: model.RoleTool, Content: model.TextContent("result")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))
	require.Len(t, store.saved, 1)
	assert.Len(t, store.saved[0], 2)
	assert.Equal(t, "m1", store.saved[0][0].ID)
	assert.Equal(t, []string{"chat-1"}, cache.deleted)
}

func TestHandle_RejectsGarbage(t *testing.T) {
	w := NewMessagePersistWorker(nil, &fakeStore{}, nil, config.RabbitMQConfig{MessagePersistQueue: "q"}, nil)
	assert.Error(t, w.Handle(context.Background(), []byte("{not json")))
}

func TestHandle_PropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	w := NewMessagePersistWorker(nil, store, nil, config.RabbitMQConfig{MessagePersistQueue: "q"}, nil)

	body, _ := json.Marshal(model.MessageBatch{ChatID: "c", Messages: []model.Message{{ID: "m"}}})
	assert.Error(t, w.Handle(context.Background(), body))
}

func TestRunning_FalseUntilStarted(t *testing.T) {
	w := NewMessagePersistWorker(nil, &fakeStore{}, nil, config.RabbitMQConfig{MessagePersistQueue: "q", Prefetch: 4}, nil)
	assert.False(t, w.Running())
	w.Close()
	assert.False(t, w.Running())
}
