package tools

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/store"
)

// Recorder persists tool calls. *store.Store implements it.
type Recorder interface {
	Write(ctx context.Context, e store.Entry) (store.Entry, error)
}

// Registry manages tool registration, lookup and invocation.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	recorder Recorder
	logger   *zap.Logger
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithRecorder records every Call.
func WithRecorder(r Recorder) RegistryOption {
	return func(reg *Registry) { reg.recorder = r }
}

// WithRegistryLogger sets the logger used for call tracing.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(reg *Registry) { reg.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tool names in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListTools returns all registered tools ordered by name.
func (r *Registry) ListTools() []Tool {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Call validates args, executes the named tool and records the call.
//
// Call never returns a nil Result. An unknown tool or invalid arguments
// produce a KindInvalidArgument failure without executing anything.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) *Result {
	start := time.Now()

	var res *Result
	tool, ok := r.Get(name)
	switch {
	case !ok:
		res = Failure(airtable.NewInvalidArgument(name, "unknown tool "+name))
	default:
		fail := Failure
		if _, ok := tool.(textOutput); ok {
			fail = TextFailure
		}
		if err := ValidateArgs(tool.InputSchema(), args); err != nil {
			res = fail(airtable.NewInvalidArgument(name, err.Error()))
		} else {
			res = tool.Execute(ctx, args)
		}
	}
	if res == nil {
		res = Failure(airtable.NewInvalidArgument(name, "tool returned no result"))
	}
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("tool", name),
		zap.Bool("success", res.Success),
		zap.Duration("elapsed", elapsed),
	}
	if res.Error != nil {
		fields = append(fields, zap.String("error_kind", res.Error.Kind))
		r.logger.Warn("tool call failed", fields...)
	} else {
		r.logger.Info("tool call", fields...)
	}

	r.record(ctx, name, args, res, elapsed)
	return res
}

func (r *Registry) record(ctx context.Context, name string, args map[string]any, res *Result, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	argsJSON, err := store.MarshalArgs(args)
	if err != nil {
		argsJSON = "{}"
	}
	entry := store.Entry{
		Tool:     name,
		Args:     argsJSON,
		Status:   store.StatusSuccess,
		Output:   res.Text,
		Duration: elapsed,
	}
	if res.Error != nil {
		entry.Status = store.StatusError
		entry.ErrorKind = res.Error.Kind
	}
	if _, err := r.recorder.Write(ctx, entry); err != nil {
		r.logger.Warn("audit write failed", zap.String("tool", name), zap.Error(err))
	}
}
