package tools

import (
	"context"
	"net/http"
	"time"

	"cowrite/internal/ai"
	"cowrite/internal/document"
	"cowrite/internal/model"
	"cowrite/internal/stream"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	UpdateContent(ctx context.Context, id, content string) error
}

type SuggestionStore interface {
	CreateBatch(ctx context.Context, suggestions []model.Suggestion) error
}

// Deps are the process-wide collaborators shared by every turn's tools.
type Deps struct {
	Documents      DocumentStore
	Suggestions    SuggestionStore
	Registry       *document.Registry
	Generator      ai.Generator
	BlockModel     string
	WeatherBaseURL string
	HTTPClient     *http.Client
	Now            func() time.Time
}

// ForTurn builds the toolset of one turn, bound to the requesting user and
// the turn's event channel.
func ForTurn(deps Deps, userID string, emit stream.Emitter) *Toolset {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if emit == nil {
		emit = stream.Discard
	}
	return NewToolset(
		NewGetWeather(deps.HTTPClient, deps.WeatherBaseURL),
		NewCreateDocument(deps, userID, emit),
		NewUpdateDocument(deps, emit),
		NewRequestSuggestions(deps, userID, emit),
	)
}
