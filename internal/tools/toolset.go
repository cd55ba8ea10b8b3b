package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	lctools "github.com/tmc/langchaingo/tools"

	"cowrite/internal/ai"
)

const (
	NameGetWeather         = "getWeather"
	NameCreateDocument     = "createDocument"
	NameUpdateDocument     = "updateDocument"
	NameRequestSuggestions = "requestSuggestions"
)

// AllNames lists every tool the chat model may be offered.
func AllNames() []string {
	return []string{NameGetWeather, NameCreateDocument, NameUpdateDocument, NameRequestSuggestions}
}

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrInvalidArgs  = errors.New("invalid tool arguments")
	errToolPanicked = errors.New("tool panicked")
)

// Tool is a langchaingo tool that also declares a JSON schema for its input.
type Tool interface {
	lctools.Tool
	Parameters() json.RawMessage
}

// ExecutionError wraps any failure raised while running a tool. It is fed
// back to the model as a failed result and never ends the turn.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// decodeArgs unmarshals a tool input and checks its validate tags.
func decodeArgs(input string, dst interface{}) error {
	if strings.TrimSpace(input) == "" {
		input = "{}"
	}
	if err := json.Unmarshal([]byte(input), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// Toolset is the set of tools available to one turn.
type Toolset struct {
	tools map[string]Tool
}

func NewToolset(list ...Tool) *Toolset {
	table := make(map[string]Tool, len(list))
	for _, t := range list {
		table[t.Name()] = t
	}
	return &Toolset{tools: table}
}

// Definitions returns the schemas of the named tools, in name order. Names
// with no tool behind them are ignored.
func (s *Toolset) Definitions(active []string) []ai.ToolDefinition {
	names := append([]string(nil), active...)
	sort.Strings(names)
	defs := make([]ai.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := s.tools[name]
		if !ok {
			continue
		}
		defs = append(defs, ai.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs one tool call. The returned result is always valid JSON; on
// failure it is an {"error": ...} object and err is an *ExecutionError.
func (s *Toolset) Execute(ctx context.Context, name, args string) (result json.RawMessage, err error) {
	t, ok := s.tools[name]
	if !ok {
		return failure(name, ErrUnknownTool)
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = failure(name, fmt.Errorf("%w: %v", errToolPanicked, r))
		}
	}()

	out, callErr := t.Call(ctx, args)
	if callErr != nil {
		return failure(name, callErr)
	}
	if !json.Valid([]byte(out)) {
		quoted, _ := json.Marshal(out)
		return quoted, nil
	}
	return json.RawMessage(out), nil
}

func failure(name string, err error) (json.RawMessage, error) {
	execErr := &ExecutionError{Tool: name, Err: err}
	raw, _ := json.Marshal(map[string]string{"error": execErr.Error()})
	return raw, execErr
}

func marshalResult(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result failed: %w", err)
	}
	return string(raw), nil
}
