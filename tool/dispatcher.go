package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tool executes one diagnostic operation.
type Tool interface {
	Spec() Spec
	Execute(ctx context.Context, args Args) (string, error)
}

// Validator decides whether args are acceptable for the named operation.
// Implementations must be pure.
type Validator func(operation string, args map[string]any) bool

// DispatcherConfig wires the dispatcher's collaborators.
type DispatcherConfig struct {
	Validator Validator
	Observer  Observer
	Logger    *slog.Logger
}

type entry struct {
	name string
	tool Tool
}

// Dispatcher maps operation names to tools. Registration happens once at
// startup; afterwards the table is read-only and safe for concurrent use.
type Dispatcher struct {
	entries   []entry
	index     map[string]int
	validator Validator
	observer  Observer
	logger    *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		index:     make(map[string]int),
		validator: cfg.Validator,
		observer:  observerOrNop(cfg.Observer),
		logger:    logger,
	}
}

// Register adds t under name. Registering one tool under two names creates an
// alias whose listing carries the alias name.
func (d *Dispatcher) Register(name string, t Tool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("tool: register: name is required")
	}
	if t == nil {
		return fmt.Errorf("tool: register %q: tool is nil", name)
	}
	if _, exists := d.index[name]; exists {
		return fmt.Errorf("tool: register %q: already registered", name)
	}
	d.index[name] = len(d.entries)
	d.entries = append(d.entries, entry{name: name, tool: t})
	return nil
}

// MustRegister is Register that panics on error.
func (d *Dispatcher) MustRegister(name string, t Tool) {
	if err := d.Register(name, t); err != nil {
		panic(err)
	}
}

// List returns the operation catalog in registration order.
func (d *Dispatcher) List() []Spec {
	specs := make([]Spec, 0, len(d.entries))
	for _, e := range d.entries {
		specs = append(specs, e.tool.Spec().WithName(e.name))
	}
	return specs
}

// Lookup returns the spec registered under name.
func (d *Dispatcher) Lookup(name string) (Spec, bool) {
	i, ok := d.index[name]
	if !ok {
		return Spec{}, false
	}
	e := d.entries[i]
	return e.tool.Spec().WithName(e.name), true
}

// Invoke runs the named operation. Unknown names fail with
// CodeUnknownOperation, rejected arguments with CodeInvalidArguments. Any other
// outcome is the tool's own text.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	invocationID := uuid.NewString()
	start := time.Now()
	logger := d.logger.With("invocation_id", invocationID, "operation", name)

	text, err := d.invoke(ctx, name, args)

	durationMS := time.Since(start).Milliseconds()
	d.observer.ObserveInvoke(InvokeObservation{
		InvocationID: invocationID,
		Operation:    name,
		DurationMS:   durationMS,
		Success:      err == nil,
		ErrorCode:    ErrorCode(err),
	})
	if err != nil {
		logger.Warn("invocation rejected", "error", err, "duration_ms", durationMS)
		return "", err
	}
	logger.Info("invocation completed", "duration_ms", durationMS)
	return text, nil
}

func (d *Dispatcher) invoke(ctx context.Context, name string, args map[string]any) (text string, err error) {
	i, ok := d.index[name]
	if !ok {
		return "", NewError(CodeUnknownOperation, "Unknown tool: "+name, ErrUnknownOperation)
	}
	if args == nil {
		args = map[string]any{}
	}
	if d.validator != nil && !d.validator(name, args) {
		return "", WithDetails(
			NewError(CodeInvalidArguments, "Invalid arguments for tool: "+name, ErrInvalidArguments),
			map[string]any{"operation": name},
		)
	}

	e := d.entries[i]
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "operation", name, "panic", r)
			text = fmt.Sprintf("❌ %s failed: internal error: %v", name, r)
			err = nil
		}
	}()
	return e.tool.Execute(ctx, Args(args).Clone())
}
