package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Frame is one decoded line of the data stream.
type Frame struct {
	Code    byte
	Payload json.RawMessage
}

// Text returns the string payload of text, reasoning and error frames.
func (f Frame) Text() string {
	var s string
	_ = json.Unmarshal(f.Payload, &s)
	return s
}

// Events returns the data events of a `2:` frame. Elements that are not
// events are skipped.
func (f Frame) Events() []Event {
	if f.Code != CodeData {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(f.Payload, &raw); err != nil {
		return nil
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal(item, &ev); err != nil || ev.Type == "" {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// Decode reads frames from r and calls fn for each well-formed one. Lines
// that are not frames are skipped.
func Decode(r io.Reader, fn func(Frame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) < 2 || line[1] != ':' {
			continue
		}
		payload := line[2:]
		if !json.Valid(payload) {
			continue
		}
		frame := Frame{Code: line[0], Payload: append(json.RawMessage(nil), payload...)}
		if err := fn(frame); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan data stream failed: %w", err)
	}
	return nil
}
