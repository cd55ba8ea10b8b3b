package editor

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var ErrInvalidStep = errors.New("invalid step")

// Step replaces the character range [From, To) with Text.
type Step struct {
	From int
	To   int
	Text string
}

// Map moves a position from before the step to after it. assoc decides
// which side a position touching the replaced range sticks to: negative
// keeps it before inserted text, positive moves it after.
func (s Step) Map(pos, assoc int) int {
	oldSize := s.To - s.From
	newSize := utf8.RuneCountInString(s.Text)
	if pos < s.From {
		return pos
	}
	if pos > s.To {
		return pos + newSize - oldSize
	}
	side := assoc
	if oldSize > 0 {
		switch pos {
		case s.From:
			side = -1
		case s.To:
			side = 1
		}
	}
	if side < 0 {
		return s.From
	}
	return s.From + newSize
}

func (s Step) apply(content string) (string, error) {
	runes := []rune(content)
	if s.From < 0 || s.To < s.From || s.To > len(runes) {
		return "", fmt.Errorf("%w: [%d, %d) outside document of length %d", ErrInvalidStep, s.From, s.To, len(runes))
	}
	return string(runes[:s.From]) + s.Text + string(runes[s.To:]), nil
}

// Transaction is one edit of the editor surface. A non-nil Meta replaces
// the suggestion state outright instead of mapping it through Steps.
type Transaction struct {
	Steps []Step
	Meta  *State
	// Resolved drops the decorations of that suggestion once the others
	// have been mapped.
	Resolved string
	// NoDebounce saves the resulting content immediately.
	NoDebounce bool
}

// MapPos maps a position through every step of the transaction.
func (tr Transaction) MapPos(pos, assoc int) int {
	for _, s := range tr.Steps {
		pos = s.Map(pos, assoc)
	}
	return pos
}

// Decoration is the widget shown for one suggestion. From and To track the
// anchored span; the widget itself sits at To.
type Decoration struct {
	ID         string
	From       int
	To         int
	Suggestion UISuggestion
}

type State struct {
	Decorations []Decoration
	Selected    string
}

// Apply is the decoration state transition. It never mutates prev.
func Apply(prev State, tr Transaction) State {
	if tr.Meta != nil {
		return State{
			Decorations: append([]Decoration(nil), tr.Meta.Decorations...),
			Selected:    tr.Meta.Selected,
		}
	}
	next := State{
		Decorations: make([]Decoration, 0, len(prev.Decorations)),
		Selected:    prev.Selected,
	}
	for _, d := range prev.Decorations {
		d.From = tr.MapPos(d.From, 1)
		d.To = tr.MapPos(d.To, 1)
		if d.From > d.To {
			d.From = d.To
		}
		next.Decorations = append(next.Decorations, d)
	}
	if tr.Resolved != "" {
		next = next.Without(tr.Resolved)
		if prev.Selected != tr.Resolved {
			next.Selected = prev.Selected
		}
	}
	return next
}

// Without returns a copy of s with the decorations for id removed and the
// selection cleared.
func (s State) Without(id string) State {
	out := State{Decorations: make([]Decoration, 0, len(s.Decorations))}
	for _, d := range s.Decorations {
		if d.ID != id {
			out.Decorations = append(out.Decorations, d)
		}
	}
	return out
}

// Find returns the decoration registered last for id.
func (s State) Find(id string) (Decoration, bool) {
	for i := len(s.Decorations) - 1; i >= 0; i-- {
		if s.Decorations[i].ID == id {
			return s.Decorations[i], true
		}
	}
	return Decoration{}, false
}

// DecorationsFor builds the decoration set of projected suggestions.
func DecorationsFor(list []UISuggestion) []Decoration {
	out := make([]Decoration, 0, len(list))
	for _, s := range list {
		out = append(out, Decoration{ID: s.ID, From: s.SelectionStart, To: s.SelectionEnd, Suggestion: s})
	}
	return out
}
