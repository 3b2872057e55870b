package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownTool = errors.New("unknown tool")

// ToolFunc local function callable by a run. arguments is the raw JSON sent by the model.
type ToolFunc func(ctx context.Context, arguments json.RawMessage) (any, error)

// ToolRegistry name -> function table consulted on requires_action
type ToolRegistry struct {
	mu    sync.RWMutex
	funcs map[string]ToolFunc
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{funcs: make(map[string]ToolFunc)}
}

func (r *ToolRegistry) Register(name string, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs name and returns its result as a tool output string
func (r *ToolRegistry) Invoke(ctx context.Context, name, arguments string) (string, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	raw := json.RawMessage(arguments)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	result, err := fn(ctx, raw)
	if err != nil {
		return "", err
	}
	return CoerceOutput(result)
}

// CoerceOutput strings pass through, everything else is JSON with non-ASCII kept as is
func CoerceOutput(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case json.RawMessage:
		return string(val), nil
	case nil:
		return "null", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode tool output: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ErrorOutput tool output reporting err to the model
func ErrorOutput(err error) string {
	out, _ := CoerceOutput(map[string]string{"error": err.Error()})
	return out
}
