package editor

import (
	"errors"
	"sync"
	"time"

	"cowrite/internal/document"
	"cowrite/internal/model"
)

var ErrSuggestionNotFound = errors.New("suggestion not found")

type Options struct {
	// Debounce delays ordinary saves; edits inside the window are coalesced.
	Debounce time.Duration
	OnSave   func(content string) error
	// OnResolve runs in its own goroutine after an accept or decline.
	OnResolve func(suggestionID string, accepted bool)
}

// Editor is the single-writer editing surface of one document: content plus
// suggestion decorations, changed only through Dispatch.
type Editor struct {
	mu      sync.Mutex
	kind    document.Kind
	content string
	state   State
	opts    Options

	timer   *time.Timer
	pending bool
}

func New(kind document.Kind, content string, opts Options) *Editor {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	return &Editor{kind: kind, content: content, opts: opts}
}

func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Apply(e.state, Transaction{Meta: &e.state})
}

// SetSuggestions projects suggestions onto the current content and replaces
// the decoration set with them.
func (e *Editor) SetSuggestions(list []model.Suggestion) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := State{Decorations: DecorationsFor(Project(e.kind, e.content, list))}
	_ = e.dispatchLocked(Transaction{Meta: &next})
}

// Dispatch applies a transaction to the content and the decoration state.
// A step outside the document rejects the whole transaction.
func (e *Editor) Dispatch(tr Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchLocked(tr)
}

func (e *Editor) dispatchLocked(tr Transaction) error {
	content := e.content
	for _, s := range tr.Steps {
		var err error
		if content, err = s.apply(content); err != nil {
			return err
		}
	}
	e.content = content
	e.state = Apply(e.state, tr)

	if len(tr.Steps) == 0 {
		return nil
	}
	if tr.NoDebounce {
		e.stopTimerLocked()
		return e.saveLocked()
	}
	e.scheduleLocked()
	return nil
}

// Accept replaces the suggestion's anchored span with the suggested text and
// drops its decoration in the same transaction, saving immediately.
func (e *Editor) Accept(id string) error {
	e.mu.Lock()
	dec, ok := e.state.Find(id)
	if !ok {
		e.mu.Unlock()
		return ErrSuggestionNotFound
	}
	err := e.dispatchLocked(Transaction{
		Steps:      []Step{{From: dec.From, To: dec.To, Text: dec.Suggestion.SuggestedText}},
		Resolved:   id,
		NoDebounce: true,
	})
	e.mu.Unlock()
	if errors.Is(err, ErrInvalidStep) {
		return err
	}
	e.resolve(id, true)
	return err
}

// Decline removes the suggestion's decoration and leaves the text alone.
func (e *Editor) Decline(id string) error {
	e.mu.Lock()
	_, ok := e.state.Find(id)
	if ok {
		_ = e.dispatchLocked(Transaction{Resolved: id})
	}
	e.mu.Unlock()
	if !ok {
		return ErrSuggestionNotFound
	}
	e.resolve(id, false)
	return nil
}

// Flush saves a pending debounced edit now.
func (e *Editor) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.pending {
		return nil
	}
	e.stopTimerLocked()
	return e.saveLocked()
}

func (e *Editor) resolve(id string, accepted bool) {
	if e.opts.OnResolve == nil {
		return
	}
	go e.opts.OnResolve(id, accepted)
}

func (e *Editor) scheduleLocked() {
	e.pending = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.opts.Debounce, func() {
		_ = e.Flush()
	})
}

func (e *Editor) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Editor) saveLocked() error {
	e.pending = false
	if e.opts.OnSave == nil {
		return nil
	}
	return e.opts.OnSave(e.content)
}
