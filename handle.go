package hsm

import "context"

// StateHolder is the capability a context type must provide to be driven by
// a Handle: a place to read and write the single S value that names its
// current state (spec §2.8). Implementations are not expected to be safe
// for concurrent use; the engine itself does not parallelize access to one
// Handle's holder.
type StateHolder[S comparable] interface {
	State() S
	SetState(S)
}

// Handle binds a shared Engine to one context's StateHolder (spec §2.7,
// §4.13). All client-facing operations — firing triggers, querying
// permitted triggers, activation — go through a Handle, never through the
// Engine directly.
type Handle[S comparable, T comparable] struct {
	engine *Engine[S, T]
	holder StateHolder[S]
}

// CreateHandle binds engine to holder, writes initial into holder, and runs
// initial's own initial-transition descent (if configured) so the handle
// starts inside its innermost configured substate. It does not run initial's
// entry actions: spec §4.2 treats the starting state as already entered.
func (e *Engine[S, T]) CreateHandle(holder StateHolder[S], initial S) (*Handle[S, T], error) {
	holder.SetState(initial)
	rep := e.stateRepresentation(initial)
	for rep.HasInitialState {
		valid := false
		for _, sub := range rep.Substates {
			if sub.State == rep.InitialTransitionTarget {
				valid = true
				break
			}
		}
		if !valid {
			return nil, &BadInitialTransitionError{State: rep.State, Target: rep.InitialTransitionTarget}
		}
		rep = e.stateRepresentation(rep.InitialTransitionTarget)
		holder.SetState(rep.State)
	}
	return &Handle[S, T]{engine: e, holder: holder}, nil
}

// State returns the handle's current state.
func (h *Handle[S, T]) State() S {
	return h.holder.State()
}

// Fire dispatches trigger against the handle's current state, per spec
// §4.6-§4.10. Under FiringQueued (the default), a fire issued from within an
// action is queued and runs only after the in-progress fire completes.
func (h *Handle[S, T]) Fire(ctx context.Context, trigger T, args ...any) error {
	return h.engine.internalFire(ctx, h.holder, trigger, args...)
}

// CanFire reports whether trigger currently resolves to a handler whose
// guards all pass.
func (h *Handle[S, T]) CanFire(ctx context.Context, trigger T, args ...any) bool {
	return h.engine.stateRepresentation(h.holder.State()).CanHandle(ctx, trigger, args...)
}

// CanFireWithUnmet is CanFire plus the descriptions of any guards that
// rejected the trigger, for diagnostics (spec §4.5).
func (h *Handle[S, T]) CanFireWithUnmet(ctx context.Context, trigger T, args ...any) (bool, []string) {
	result, ok, err := h.engine.stateRepresentation(h.holder.State()).FindHandler(ctx, trigger, args...)
	if err != nil {
		return false, nil
	}
	return ok, result.UnmetGuards
}

// IsInState reports whether state is the current state or one of its
// ancestors (spec glossary's is_included_in).
func (h *Handle[S, T]) IsInState(state S) bool {
	return h.engine.stateRepresentation(h.holder.State()).isIncludedInState(state)
}

// Activate runs the activation actions for the current state and its
// ancestors, outermost first. Idempotent while already active.
func (h *Handle[S, T]) Activate(ctx context.Context) error {
	return h.engine.stateRepresentation(h.holder.State()).Activate(ctx)
}

// Deactivate runs the deactivation actions for the current state and its
// ancestors, innermost first. Idempotent while already inactive.
func (h *Handle[S, T]) Deactivate(ctx context.Context) error {
	return h.engine.stateRepresentation(h.holder.State()).Deactivate(ctx)
}

// PermittedTriggers returns every trigger with at least one passing guard
// in the current state or its ancestors.
func (h *Handle[S, T]) PermittedTriggers(ctx context.Context, args ...any) []T {
	return h.engine.stateRepresentation(h.holder.State()).PermittedTriggers(ctx, args...)
}

// GetDetailedPermittedTriggers is PermittedTriggers with each trigger paired
// against its registered parameter descriptor, if any (spec §4.5, §4.13).
func (h *Handle[S, T]) GetDetailedPermittedTriggers(ctx context.Context, args ...any) []DetailedTrigger[T] {
	return h.engine.GetDetailedPermittedTriggers(ctx, h.holder, args...)
}

// GetInfo returns a reflection snapshot of the Engine's entire
// configuration (spec §4.14, §6), independent of this handle's own state.
func (h *Handle[S, T]) GetInfo() Info[S, T] {
	return h.engine.GetInfo()
}
