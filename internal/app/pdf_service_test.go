package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cowrite/internal/model"
	"cowrite/internal/repository"
	"cowrite/internal/testutil"
)

func TestPDFService_SaveGetUpdateRoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPDFService(repository.NewPDFRepository(db))
	ctx := context.Background()

	id, err := svc.Save(ctx, "chat-1", "https://files.example/a.pdf")
	require.NoError(t, err)

	pdf, err := svc.Get(ctx, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, pdf)
	assert.Equal(t, id, pdf.ID)
	assert.Equal(t, "https://files.example/a.pdf", pdf.URL)
	assert.Equal(t, "chat-1", pdf.ChatID)

	updated, err := svc.Update(ctx, id, "chat-1", "https://files.example/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, id, updated)

	pdf, err = svc.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, id, pdf.ID)
	assert.Equal(t, "https://files.example/b.pdf", pdf.URL)

	var count int64
	require.NoError(t, db.Model(&model.PDF{}).Where("chat_id = ?", "chat-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPDFService_SaveTwiceKeepsOneRow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPDFService(repository.NewPDFRepository(db))
	ctx := context.Background()

	first, err := svc.Save(ctx, "chat-1", "https://files.example/a.pdf")
	require.NoError(t, err)
	second, err := svc.Save(ctx, "chat-1", "https://files.example/c.pdf")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	pdf, err := svc.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/c.pdf", pdf.URL)
}

func TestPDFService_MissingAndInvalid(t *testing.T) {
	svc := NewPDFService(repository.NewPDFRepository(testutil.NewDB(t)))
	ctx := context.Background()

	pdf, err := svc.Get(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Nil(t, pdf)

	_, err = svc.Update(ctx, "missing", "chat-1", "https://files.example/a.pdf")
	assert.ErrorIs(t, err, ErrPDFNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Save(ctx, "chat-1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
