package stream

// Data event types carried in `2:` frames.
const (
	EventKind       = "kind"
	EventID         = "id"
	EventTitle      = "title"
	EventTask       = "task"
	EventChat       = "chat"
	EventClear      = "clear"
	EventTextDelta  = "text-delta"
	EventSuggestion = "suggestion"
	EventFinish     = "finish"
)

// Event is a structured side-channel message. Consumers ignore types they do
// not know.
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Emitter is the producer side of the event channel handed to tools and
// document handlers.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})
