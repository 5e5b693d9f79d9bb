package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	ErrToolExecutorAlreadyRegistered = errors.New("tool executor already registered")
	ErrToolExecutorNotRegistered     = errors.New("tool executor not registered")
	ErrToolValidationFailed          = errors.New("tool params validation failed")
)

type registeredTool struct {
	def      ToolDefinition
	resolved *jsonschema.Resolved
	executor ToolExecutor
}

// ToolRegistry holds tool definitions and their executors.
// It is filled at startup and read concurrently afterwards.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*registeredTool)}
}

// Register adds def with its executor. The input schema, when present, is
// resolved once here so invalid schemas fail at startup.
func (r *ToolRegistry) Register(def ToolDefinition, executor ToolExecutor) error {
	name := strings.TrimSpace(def.Name)
	if name == "" || executor == nil {
		return ErrToolExecutorNotRegistered
	}
	def.Name = name

	entry := &registeredTool{def: def, executor: executor}
	if def.InputSchema != nil {
		resolved, err := def.InputSchema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolve schema for %s: %w", name, err)
		}
		entry.resolved = resolved
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return ErrToolExecutorAlreadyRegistered
	}
	r.tools[name] = entry
	r.order = append(r.order, name)
	return nil
}

func (r *ToolRegistry) Get(name string) (ToolExecutor, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.executor, nil
}

// Definition returns the definition registered under name.
func (r *ToolRegistry) Definition(name string) (ToolDefinition, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return ToolDefinition{}, err
	}
	return entry.def, nil
}

// List returns all definitions in registration order.
func (r *ToolRegistry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// ValidateParams checks params against the tool's input schema.
// Empty params are treated as {}.
func (r *ToolRegistry) ValidateParams(name string, params json.RawMessage) error {
	entry, err := r.lookup(name)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	var input map[string]any
	if err := json.Unmarshal(params, &input); err != nil || input == nil {
		return fmt.Errorf("%w: params must be a json object", ErrToolValidationFailed)
	}
	if entry.resolved == nil {
		return nil
	}
	if err := entry.resolved.Validate(input); err != nil {
		return fmt.Errorf("%w: %v", ErrToolValidationFailed, err)
	}
	return nil
}

// Execute validates params and runs the tool.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (json.RawMessage, error) {
	if err := r.ValidateParams(name, params); err != nil {
		return nil, err
	}
	executor, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx, params)
}

func (r *ToolRegistry) lookup(name string) (*registeredTool, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolExecutorNotRegistered, name)
	}
	return entry, nil
}
