package engine

import (
	"fmt"

	"github.com/hupe1980/statefx/core"
)

// HookType defines the specific lifecycle points where hooks can be executed.
//
// Hooks provide a flexible mechanism for observing the binder's coordination
// pipeline without modifying core logic. Each type represents a specific
// point in the connection lifecycle where custom logic can be injected.
//
// Available hook types:
//   - BeforeConnect/AfterConnect: Around the whole connection setup
//   - BeforeEffect/AfterEffect: Around each individual effect invocation
//   - BeforeDestroy/AfterDestroy: Around connection teardown
//
// Hooks are executed synchronously. A BeforeConnect hook returning an error
// aborts the connect; errors from the remaining hook types are forwarded to
// the binder's error handler without interrupting the lifecycle step.
type HookType string

const (
	// HookBeforeConnect is triggered before a host's effects are wired.
	// Use for validation, setup, or instrumentation; an error aborts the
	// connect.
	HookBeforeConnect HookType = "before_connect"

	// HookAfterConnect is triggered once all non-gated effects have run.
	// Use for metrics collection or post-processing.
	HookAfterConnect HookType = "after_connect"

	// HookBeforeEffect is triggered before each effect invocation. An error
	// skips that invocation only.
	HookBeforeEffect HookType = "before_effect"

	// HookAfterEffect is triggered after each effect invocation and result
	// classification.
	HookAfterEffect HookType = "after_effect"

	// HookBeforeDestroy is triggered before a connection is torn down.
	// Use for cleanup coordination or auditing.
	HookBeforeDestroy HookType = "before_destroy"

	// HookAfterDestroy is triggered after teardown finished and the host was
	// released for reconnection.
	HookAfterDestroy HookType = "after_destroy"
)

// HookContext provides context information for hook execution.
//
// The context is populated by the binder and passed to each hook, allowing
// hooks to inspect the lifecycle step they fire on. Effect, Kind, and
// Target are set only on the per-effect hook types.
type HookContext struct {
	// Ref identifies the connection the hook fires for.
	Ref core.HostRef

	// Host is the connected instance itself.
	Host any

	// Effect names the effect being invoked. Empty for connection-level
	// hooks.
	Effect string

	// Kind is the finalized binding mode of the effect being invoked.
	Kind core.BindingKind

	// Target is the resolved binding target of the effect being invoked.
	Target string

	// HookType indicates which hook type triggered this execution. Allows
	// shared hook implementations to behave differently per phase.
	HookType HookType

	// Metadata provides extensible storage for custom hook data.
	Metadata map[string]any
}

// Hook defines the interface for lifecycle hooks.
//
// Implementations should be:
//   - Fast: Hooks run synchronously and can block coordination
//   - Safe: Handle errors gracefully and avoid panics
//   - Stateless: Don't rely on mutable state between invocations
//
// Error Handling:
// A hook returning an error terminates the hook chain for that lifecycle
// point. Whether the surrounding operation aborts depends on the hook type;
// see the HookType constants.
type Hook interface {
	// Type returns the hook type this implementation handles. Used by the
	// hook manager to route execution.
	Type() HookType

	// Execute performs the hook logic with the provided context.
	Execute(hookCtx *HookContext) error
}

// FunctionHook wraps a function as a hook implementation.
//
// This is a convenience wrapper that allows simple functions to be used as
// hooks without implementing the full Hook interface.
//
// Example:
//
//	auditHook := NewFunctionHook(
//	    HookBeforeConnect,
//	    func(hookCtx *HookContext) error {
//	        log.Printf("connecting host: %s", hookCtx.Ref.ID)
//	        return nil
//	    },
//	)
type FunctionHook struct {
	hookType HookType
	fn       func(hookCtx *HookContext) error
}

// NewFunctionHook creates a new function-based hook for the given type.
func NewFunctionHook(hookType HookType, fn func(hookCtx *HookContext) error) *FunctionHook {
	return &FunctionHook{
		hookType: hookType,
		fn:       fn,
	}
}

// Type returns the hook type this function handles.
func (h *FunctionHook) Type() HookType {
	return h.hookType
}

// Execute calls the wrapped function with the provided context.
func (h *FunctionHook) Execute(hookCtx *HookContext) error {
	return h.fn(hookCtx)
}

// HookManager orchestrates hook execution throughout the binder lifecycle.
//
// The manager provides a centralized registry for hooks and ensures they are
// executed at the appropriate points during coordination. It supports:
//   - Multiple hooks per hook type
//   - Sequential execution with error propagation
//   - Type-safe hook routing
//
// Hooks are executed in registration order; a hook returning an error stops
// the chain and prevents subsequent hooks from running.
//
// Thread Safety:
// The HookManager is not inherently thread-safe for registration. Register
// all hooks before connecting hosts; once registration is complete,
// execution is safe for concurrent use.
type HookManager struct {
	hooks map[HookType][]Hook
}

// NewHookManager creates a new hook manager instance.
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookType][]Hook),
	}
}

// RegisterHook adds a hook to the manager for its declared type.
//
// Multiple hooks can be registered for the same type and will be executed
// in registration order.
//
// Example:
//
//	manager := NewHookManager()
//	manager.RegisterHook(auditHook)
//	manager.RegisterHook(metricsHook)
func (hm *HookManager) RegisterHook(hook Hook) {
	hookType := hook.Type()
	hm.hooks[hookType] = append(hm.hooks[hookType], hook)
}

// ExecuteHooks executes all registered hooks for the specified type.
//
// Hooks run sequentially in registration order. If any hook returns an
// error, execution stops immediately and the error is returned; subsequent
// hooks will not be executed.
func (hm *HookManager) ExecuteHooks(hookType HookType, hookCtx *HookContext) error {
	hooks, exists := hm.hooks[hookType]
	if !exists {
		return nil
	}

	for _, hook := range hooks {
		if err := hook.Execute(hookCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingHook provides structured logging for binder lifecycle events.
//
// This hook implementation captures lifecycle events and forwards them to a
// logging function. It's useful for debugging, monitoring, and audit trails.
//
// Example:
//
//	logger := func(message string) {
//	    log.Printf("[BINDER] %s", message)
//	}
//	hook := NewLoggingHook(HookBeforeEffect, logger)
type LoggingHook struct {
	hookType HookType
	logger   func(message string)
}

// NewLoggingHook creates a new logging hook.
//
// The logger function will be called with formatted messages containing the
// hook type, host identity, and effect name when available.
func NewLoggingHook(hookType HookType, logger func(message string)) *LoggingHook {
	return &LoggingHook{
		hookType: hookType,
		logger:   logger,
	}
}

// Type returns the hook type this logger handles.
func (h *LoggingHook) Type() HookType {
	return h.hookType
}

// Execute logs the lifecycle event with context information. If no logger
// function is configured, the hook silently succeeds.
func (h *LoggingHook) Execute(hookCtx *HookContext) error {
	if h.logger != nil {
		message := fmt.Sprintf("[%s] host: %s, effect: %s",
			h.hookType, hookCtx.Ref.ID, hookCtx.Effect)
		h.logger(message)
	}
	return nil
}
