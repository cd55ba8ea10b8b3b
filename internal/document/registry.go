package document

import (
	"context"
	"fmt"

	"cowrite/internal/model"
	"cowrite/internal/stream"
)

type CreateInput struct {
	Title string
	Task  string
	// Chat is the full conversation text the document is written from.
	Chat string
}

type UpdateInput struct {
	Document    *model.Document
	Description string
}

// Handler produces document content for one kind. Both operations emit
// text-delta events as content is generated and return the assembled text.
type Handler interface {
	Kind() Kind
	OnCreate(ctx context.Context, in CreateInput, emit stream.Emitter) (string, error)
	OnUpdate(ctx context.Context, in UpdateInput, emit stream.Emitter) (string, error)
}

// Registry maps kinds to handlers. It is built once and never mutated.
type Registry struct {
	handlers map[Kind]Handler
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	table := make(map[Kind]Handler, len(handlers))
	for _, h := range handlers {
		if _, err := ParseKind(string(h.Kind())); err != nil {
			return nil, err
		}
		if _, dup := table[h.Kind()]; dup {
			return nil, fmt.Errorf("duplicate handler for document kind %q", h.Kind())
		}
		table[h.Kind()] = h
	}
	return &Registry{handlers: table}, nil
}

func (r *Registry) Lookup(kind Kind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %q", ErrUnknownKind, kind)
	}
	return h, nil
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.handlers))
	for _, k := range Kinds() {
		if _, ok := r.handlers[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
