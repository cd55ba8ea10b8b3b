package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Frame codes of the data stream line protocol.
const (
	CodeText          = '0'
	CodeData          = '2'
	CodeError         = '3'
	CodeToolCall      = '9'
	CodeToolResult    = 'a'
	CodeFinishStep    = 'e'
	CodeStartStep     = 'f'
	CodeFinishMessage = 'd'
	CodeReasoning     = 'g'
)

// ErrorText is the only error detail ever written to a client.
const ErrorText = "Oops, an error occurred!"

type flusher interface {
	Flush()
}

// Writer serializes frames onto a transport in emission order. Producers
// enqueue into a bounded queue; Run drains it on a single goroutine. Once a
// transport write fails every later frame is dropped without error.
type Writer struct {
	out io.Writer

	mu     sync.Mutex
	closed bool
	queue  chan []byte

	stopped  chan struct{}
	stopOnce sync.Once
	err      error
}

func NewWriter(out io.Writer, size int) *Writer {
	if size <= 0 {
		size = 64
	}
	return &Writer{
		out:     out,
		queue:   make(chan []byte, size),
		stopped: make(chan struct{}),
	}
}

// Run writes queued frames until Close is called and the queue is drained,
// or until the transport fails. It returns the transport error, if any.
func (w *Writer) Run() error {
	for frame := range w.queue {
		if w.isStopped() {
			continue
		}
		if _, err := w.out.Write(frame); err != nil {
			w.stop(err)
			continue
		}
		if f, ok := w.out.(flusher); ok {
			f.Flush()
		}
	}
	return w.err
}

// Close ends the stream. Frames enqueued before Close are still written.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}

// Stopped is closed once the transport has failed.
func (w *Writer) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *Writer) stop(err error) {
	w.stopOnce.Do(func() {
		w.err = err
		close(w.stopped)
	})
}

func (w *Writer) isStopped() bool {
	select {
	case <-w.stopped:
		return true
	default:
		return false
	}
}

func (w *Writer) enqueue(code byte, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(fmt.Sprintf("unencodable payload: %v", err))
		code = CodeError
	}
	frame := make([]byte, 0, len(raw)+3)
	frame = append(frame, code, ':')
	frame = append(frame, raw...)
	frame = append(frame, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.isStopped() {
		return
	}
	select {
	case w.queue <- frame:
	case <-w.stopped:
	}
}

func (w *Writer) Text(delta string) {
	if delta == "" {
		return
	}
	w.enqueue(CodeText, delta)
}

func (w *Writer) Reasoning(delta string) {
	if delta == "" {
		return
	}
	w.enqueue(CodeReasoning, delta)
}

// Emit writes one data event. It implements Emitter.
func (w *Writer) Emit(ev Event) {
	w.enqueue(CodeData, []Event{ev})
}

func (w *Writer) ToolCall(id, name string, args json.RawMessage) {
	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage("{}")
	}
	w.enqueue(CodeToolCall, map[string]interface{}{
		"toolCallId": id,
		"toolName":   name,
		"args":       args,
	})
}

func (w *Writer) ToolResult(id string, result json.RawMessage) {
	w.enqueue(CodeToolResult, map[string]interface{}{
		"toolCallId": id,
		"result":     result,
	})
}

func (w *Writer) StartStep(messageID string) {
	w.enqueue(CodeStartStep, map[string]string{"messageId": messageID})
}

func (w *Writer) FinishStep(reason string) {
	w.enqueue(CodeFinishStep, map[string]interface{}{"finishReason": reason, "isContinued": false})
}

func (w *Writer) FinishMessage(reason string) {
	w.enqueue(CodeFinishMessage, map[string]string{"finishReason": reason})
}

func (w *Writer) Error(message string) {
	w.enqueue(CodeError, message)
}
