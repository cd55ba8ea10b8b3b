package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// StreamObjects runs a text generation that is expected to contain a JSON
// array and calls onObject for every element as soon as it is complete.
// Generation is cancelled after limit elements when limit > 0.
func StreamObjects(ctx context.Context, g Generator, req Request, limit int, onObject func(json.RawMessage) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dec ArrayDecoder
	count := 0
	err := g.Stream(ctx, req, func(ev StreamEvent) error {
		if ev.Type != EventTextDelta {
			return nil
		}
		for _, obj := range dec.Write(ev.Text) {
			if limit > 0 && count >= limit {
				return errLimitReached
			}
			count++
			if err := onObject(obj); err != nil {
				return err
			}
		}
		if limit > 0 && count >= limit {
			return errLimitReached
		}
		return nil
	})
	if errors.Is(err, errLimitReached) {
		return nil
	}
	return err
}

var errLimitReached = errors.New("object limit reached")

// ArrayDecoder incrementally splits the first JSON array found in a text
// stream into its elements. Text before the opening bracket, such as an
// enclosing object key, is skipped.
type ArrayDecoder struct {
	started  bool
	done     bool
	depth    int
	inString bool
	escaped  bool
	buf      []byte
}

// Write feeds the next chunk and returns the elements completed by it.
func (d *ArrayDecoder) Write(chunk string) []json.RawMessage {
	var out []json.RawMessage
	for i := 0; i < len(chunk) && !d.done; i++ {
		c := chunk[i]
		if !d.started {
			if c == '[' {
				d.started = true
			}
			continue
		}
		if d.inString {
			d.buf = append(d.buf, c)
			switch {
			case d.escaped:
				d.escaped = false
			case c == '\\':
				d.escaped = true
			case c == '"':
				d.inString = false
			}
			continue
		}
		switch c {
		case '"':
			d.inString = true
			d.buf = append(d.buf, c)
		case '{', '[':
			d.depth++
			d.buf = append(d.buf, c)
		case '}', ']':
			if d.depth == 0 {
				out = d.flush(out)
				d.done = true
				continue
			}
			d.depth--
			d.buf = append(d.buf, c)
			if d.depth == 0 {
				out = d.flush(out)
			}
		case ',':
			if d.depth == 0 {
				out = d.flush(out)
				continue
			}
			d.buf = append(d.buf, c)
		default:
			d.buf = append(d.buf, c)
		}
	}
	return out
}

func (d *ArrayDecoder) flush(out []json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(d.buf)
	d.buf = d.buf[:0]
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return out
	}
	elem := make(json.RawMessage, len(trimmed))
	copy(elem, trimmed)
	return append(out, elem)
}
