package hsm

import (
	"context"
	"fmt"
	"reflect"
)

// FiringMode selects the queuing discipline used when a trigger is fired
// (spec §4.6).
type FiringMode uint8

const (
	// FiringQueued gives run-to-completion semantics: triggers fired by an
	// in-progress action are queued and processed strictly after the
	// current top-level fire finishes. This is the default and the
	// recommended mode.
	FiringQueued FiringMode = iota
	// FiringImmediate processes nested fires synchronously, with no
	// run-to-completion guarantee. Only use this when the client accepts
	// the resulting reentrant call stack.
	FiringImmediate
)

func (m FiringMode) String() string {
	switch m {
	case FiringQueued:
		return "Queued"
	case FiringImmediate:
		return "Immediate"
	default:
		return fmt.Sprintf("FiringMode(%d)", uint8(m))
	}
}

// TransitionFunc observes a transition. The two observer lists on Engine
// differ only in when they run (spec §4.11): OnTransitioned fires after
// the exit actions but before any entry action; OnTransitionCompleted fires
// once every entry action and initial-transition descent has run. For a
// transition to another state (and for each initial-transition step) the
// state has already been written when OnTransitioned fires; for a reentry
// the state is written after the entry actions.
type TransitionFunc[S comparable, T comparable] func(ctx context.Context, transition Transition[S, T])

// UnhandledTriggerFunc is invoked when a fired trigger resolves to no
// handler in the current state or any of its ancestors.
type UnhandledTriggerFunc[S comparable, T comparable] func(ctx context.Context, state S, trigger T, unmetGuards []string) error

// DefaultUnhandledTriggerAction is the UnhandledTriggerFunc every Engine
// starts with: UnmetGuardsError if some behaviour existed for the trigger
// but every guard rejected it, NoTransitionsPermittedError otherwise.
func DefaultUnhandledTriggerAction[S comparable, T comparable](_ context.Context, state S, trigger T, unmetGuards []string) error {
	if len(unmetGuards) != 0 {
		return &UnmetGuardsError{State: state, Trigger: trigger, UnmetGuards: unmetGuards}
	}
	return &NoTransitionsPermittedError{State: state, Trigger: trigger}
}

// Engine is the Dispatch Engine of spec §2.7: the reusable, shared object
// that owns the state-configuration map, the trigger-parameter registry,
// the firing mode, the pending event queue, and the two observer lists.
// One Engine can drive many Handles, each bound to its own context.
//
// Engine makes no thread-safety guarantees beyond the FIFO event queue's own
// bookkeeping (spec §5): it assumes at most one goroutine at a time fires
// triggers against it, and configuration (Configure, SetTriggerParameters)
// must never run concurrently with a fire.
type Engine[S comparable, T comparable] struct {
	stateConfig            map[S]*StateRepresentation[S, T]
	triggerConfig          map[T]triggerParameters[T]
	unhandledTriggerAction UnhandledTriggerFunc[S, T]
	onTransitioned         []TransitionFunc[S, T]
	onTransitionCompleted  []TransitionFunc[S, T]
	firingMode             FiringMode
	mode                   fireMode[S, T]
	stateOrder             []S
}

// NewEngine returns an Engine using FiringQueued, the recommended mode.
func NewEngine[S comparable, T comparable]() *Engine[S, T] {
	return NewEngineWithMode[S, T](FiringQueued)
}

// NewEngineWithMode returns an Engine using the given firing mode.
func NewEngineWithMode[S comparable, T comparable](firingMode FiringMode) *Engine[S, T] {
	e := &Engine[S, T]{
		stateConfig:            make(map[S]*StateRepresentation[S, T]),
		triggerConfig:          make(map[T]triggerParameters[T]),
		unhandledTriggerAction: DefaultUnhandledTriggerAction[S, T],
		firingMode:             firingMode,
	}
	switch firingMode {
	case FiringImmediate:
		e.mode = &fireModeImmediate[S, T]{engine: e}
	default:
		e.mode = &fireModeQueued[S, T]{engine: e}
	}
	return e
}

// Configure begins configuration of the entry/exit actions and allowed
// transitions for state, lazily creating its representation on first
// reference.
func (e *Engine[S, T]) Configure(state S) *StateConfiguration[S, T] {
	if e.Firing() {
		panic(&ConfigurationDuringFireError{Operation: "Configure"})
	}
	return &StateConfiguration[S, T]{engine: e, sr: e.stateRepresentation(state), lookup: e.stateRepresentation}
}

// SetTriggerParameters registers the argument types required when firing
// trigger (spec §4.1). Registering the same trigger twice panics.
func (e *Engine[S, T]) SetTriggerParameters(trigger T, argumentTypes ...reflect.Type) {
	if e.Firing() {
		panic(&ConfigurationDuringFireError{Operation: "SetTriggerParameters"})
	}
	if _, ok := e.triggerConfig[trigger]; ok {
		panic(&ReconfigurationError{Trigger: trigger})
	}
	e.triggerConfig[trigger] = triggerParameters[T]{Trigger: trigger, ArgumentTypes: argumentTypes}
}

// OnUnhandledTrigger overrides the policy invoked when a fired trigger has
// no handler. The default is DefaultUnhandledTriggerAction.
func (e *Engine[S, T]) OnUnhandledTrigger(fn UnhandledTriggerFunc[S, T]) {
	if fn == nil {
		panic(&NullCallbackError{Kind: "unhandled-trigger policy"})
	}
	e.unhandledTriggerAction = fn
}

// OnTransitioned registers an observer invoked after a transition's exit
// actions, before its entry actions run (see TransitionFunc for when the
// state write happens relative to it).
func (e *Engine[S, T]) OnTransitioned(fn TransitionFunc[S, T]) {
	if fn == nil {
		panic(&NullCallbackError{Kind: "on-transitioned observer"})
	}
	e.onTransitioned = append(e.onTransitioned, fn)
}

// OnTransitionCompleted registers an observer invoked once a transition's
// entry actions, and any initial-transition descent, have fully run.
func (e *Engine[S, T]) OnTransitionCompleted(fn TransitionFunc[S, T]) {
	if fn == nil {
		panic(&NullCallbackError{Kind: "on-transition-completed observer"})
	}
	e.onTransitionCompleted = append(e.onTransitionCompleted, fn)
}

// Firing reports whether the engine is currently processing a trigger,
// including any queued up by a nested fire.
func (e *Engine[S, T]) Firing() bool {
	return e.mode != nil && e.mode.Firing()
}

// GetDetailedPermittedTriggers returns the triggers permitted from holder's
// current state, each paired with its parameter descriptor if one was
// registered via SetTriggerParameters (spec §4.5, §4.13).
func (e *Engine[S, T]) GetDetailedPermittedTriggers(ctx context.Context, holder StateHolder[S], args ...any) []DetailedTrigger[T] {
	triggers := e.stateRepresentation(holder.State()).permittedTriggersOrdered(ctx, args...)
	detailed := make([]DetailedTrigger[T], len(triggers))
	for i, trig := range triggers {
		params, ok := e.triggerConfig[trig]
		detailed[i] = DetailedTrigger[T]{Trigger: trig, HasParameters: ok}
		if ok {
			detailed[i].ArgumentTypes = params.ArgumentTypes
		}
	}
	return detailed
}

func (e *Engine[S, T]) stateRepresentation(state S) *StateRepresentation[S, T] {
	sr, ok := e.stateConfig[state]
	if !ok {
		sr = newStateRepresentation[S, T](state)
		e.stateConfig[state] = sr
		e.stateOrder = append(e.stateOrder, state)
	}
	return sr
}

func (e *Engine[S, T]) internalFire(ctx context.Context, holder StateHolder[S], trigger T, args ...any) error {
	return e.mode.Fire(ctx, holder, trigger, args...)
}

// fireOne implements spec §4.7: validate parameters, resolve a handler
// against the current state's representation, and dispatch on its kind.
func (e *Engine[S, T]) fireOne(ctx context.Context, holder StateHolder[S], trigger T, args ...any) error {
	if params, ok := e.triggerConfig[trigger]; ok {
		if err := params.validate(args); err != nil {
			return err
		}
	}
	source := holder.State()
	sourceRep := e.stateRepresentation(source)
	result, ok, err := sourceRep.FindHandler(ctx, trigger, args...)
	if err != nil {
		return err
	}
	if !ok {
		return e.unhandledTriggerAction(ctx, source, trigger, result.UnmetGuards)
	}
	switch b := result.Handler.(type) {
	case *ignoredTriggerBehaviour[S, T]:
		return nil
	case *reentryTriggerBehaviour[S, T]:
		transition := Transition[S, T]{Source: source, Destination: b.Destination, Trigger: trigger, Args: args}
		return e.handleReentry(ctx, holder, sourceRep, transition)
	case *dynamicTriggerBehaviour[S, T]:
		destination, err := b.Selector(ctx, args...)
		if err != nil {
			return err
		}
		transition := Transition[S, T]{Source: source, Destination: destination, Trigger: trigger, Args: args}
		return e.handleTransitioning(ctx, holder, sourceRep, transition)
	case *transitioningTriggerBehaviour[S, T]:
		transition := Transition[S, T]{Source: source, Destination: b.Destination, Trigger: trigger, Args: args}
		return e.handleTransitioning(ctx, holder, sourceRep, transition)
	case *internalTriggerBehaviour[S, T]:
		// Re-read the current state: a guard or an earlier validation step
		// could have fired a nested trigger that already moved it.
		currentRep := e.stateRepresentation(holder.State())
		transition := Transition[S, T]{Source: source, Destination: source, Trigger: trigger, Args: args}
		return currentRep.InternalAction(ctx, transition, args...)
	}
	return nil
}

// handleReentry implements spec §4.8.
func (e *Engine[S, T]) handleReentry(ctx context.Context, holder StateHolder[S], sourceRep *StateRepresentation[S, T], transition Transition[S, T]) error {
	if err := sourceRep.Exit(ctx, transition, transition.Args...); err != nil {
		return err
	}
	destRep := e.stateRepresentation(transition.Destination)
	if !transition.IsReentry() {
		// A reentry fired from within a substate must still exit the
		// destination's own scope: the ascent above stopped one level
		// short of it (StateRepresentation.Exit never exits the state it is
		// about to land back inside).
		selfExit := Transition[S, T]{Source: transition.Destination, Destination: transition.Destination, Trigger: transition.Trigger, Args: transition.Args}
		if err := destRep.Exit(ctx, selfExit, transition.Args...); err != nil {
			return err
		}
		// An inherited PermitReentry fired from within a substate must look,
		// from here on, like a true self-transition on the destination: if
		// transition.Source stays the substate, Enter's includesState(Source)
		// check sees the destination already covers it and skips the
		// destination's own entry actions.
		transition = Transition[S, T]{Source: transition.Destination, Destination: transition.Destination, Trigger: transition.Trigger, Args: transition.Args}
	}
	callTransitionFuncs(e.onTransitioned, ctx, transition)
	finalRep, err := e.enterState(ctx, destRep, transition, holder)
	if err != nil {
		return err
	}
	holder.SetState(finalRep.State)
	callTransitionFuncs(e.onTransitionCompleted, ctx, Transition[S, T]{Source: transition.Source, Destination: finalRep.State, Trigger: transition.Trigger, Args: transition.Args})
	return nil
}

// handleTransitioning implements spec §4.9.
func (e *Engine[S, T]) handleTransitioning(ctx context.Context, holder StateHolder[S], sourceRep *StateRepresentation[S, T], transition Transition[S, T]) error {
	if err := sourceRep.Exit(ctx, transition, transition.Args...); err != nil {
		return err
	}
	holder.SetState(transition.Destination)
	callTransitionFuncs(e.onTransitioned, ctx, transition)
	destRep := e.stateRepresentation(transition.Destination)
	finalRep, err := e.enterState(ctx, destRep, transition, holder)
	if err != nil {
		return err
	}
	if finalRep.State != holder.State() {
		holder.SetState(finalRep.State)
	}
	callTransitionFuncs(e.onTransitionCompleted, ctx, Transition[S, T]{Source: transition.Source, Destination: holder.State(), Trigger: transition.Trigger, Args: transition.Args})
	return nil
}

// enterState implements spec §4.4's entry traversal and §4.10's
// mid-transition rebind: it runs rep's entry actions (which walk
// superstates outside-in internally), rebinds to whatever state a user
// action left the context in (FiringImmediate only), then recurses through
// any initial-transition chain.
func (e *Engine[S, T]) enterState(ctx context.Context, rep *StateRepresentation[S, T], transition Transition[S, T], holder StateHolder[S]) (*StateRepresentation[S, T], error) {
	if err := rep.Enter(ctx, transition, transition.Args...); err != nil {
		return nil, err
	}
	if e.firingMode == FiringImmediate {
		if observed := holder.State(); observed != rep.State {
			rep = e.stateRepresentation(observed)
		}
	}
	if !rep.HasInitialState {
		return rep, nil
	}
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
	targetRep := e.stateRepresentation(rep.InitialTransitionTarget)
	holder.SetState(targetRep.State)
	callTransitionFuncs(e.onTransitioned, ctx, Transition[S, T]{Source: rep.State, Destination: targetRep.State, Trigger: transition.Trigger, Args: transition.Args})
	initialTransition := Transition[S, T]{Source: transition.Destination, Destination: targetRep.State, Trigger: transition.Trigger, Args: transition.Args, initial: true}
	return e.enterState(ctx, targetRep, initialTransition, holder)
}

// callTransitionFuncs invokes every observer in fns, recovering a panic
// from any one of them so the rest still run (spec §4.11), then
// re-panicking with the first captured value once all have executed.
func callTransitionFuncs[S comparable, T comparable](fns []TransitionFunc[S, T], ctx context.Context, transition Transition[S, T]) {
	var captured any
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil && captured == nil {
					captured = r
				}
			}()
			fn(ctx, transition)
		}()
	}
	if captured != nil {
		panic(captured)
	}
}
