package hsm

import (
	"context"
	"reflect"
)

// DestinationSelectorFunc computes a dynamic transition's destination from
// the trigger's arguments. It must be deterministic given args.
type DestinationSelectorFunc[S comparable] func(ctx context.Context, args ...any) (S, error)

// triggerBehaviour is the tagged family described in spec §3: every
// configured (state, trigger) pairing resolves to exactly one of these
// variants at dispatch time.
type triggerBehaviour[S comparable, T comparable] interface {
	trigger() T
	guard() Guard
}

type baseTriggerBehaviour[T comparable] struct {
	Trigger T
	Guard   Guard
}

func (b baseTriggerBehaviour[T]) trigger() T { return b.Trigger }

// ignoredTriggerBehaviour consumes the trigger silently when its guard
// passes.
type ignoredTriggerBehaviour[S comparable, T comparable] struct {
	baseTriggerBehaviour[T]
}

func (b *ignoredTriggerBehaviour[S, T]) guard() Guard { return b.Guard }

// reentryTriggerBehaviour exits and re-enters Destination, which may equal
// the source state.
type reentryTriggerBehaviour[S comparable, T comparable] struct {
	baseTriggerBehaviour[T]
	Destination S
}

func (b *reentryTriggerBehaviour[S, T]) guard() Guard { return b.Guard }

// transitioningTriggerBehaviour exits the current subtree and enters
// Destination's chain.
type transitioningTriggerBehaviour[S comparable, T comparable] struct {
	baseTriggerBehaviour[T]
	Destination S
}

func (b *transitioningTriggerBehaviour[S, T]) guard() Guard { return b.Guard }

// dynamicTriggerBehaviour computes its destination from the fire's
// arguments, then behaves as transitioningTriggerBehaviour.
type dynamicTriggerBehaviour[S comparable, T comparable] struct {
	baseTriggerBehaviour[T]
	Selector             DestinationSelectorFunc[S]
	SelectorDescription  invocationInfo
	PossibleDestinations []S
}

func (b *dynamicTriggerBehaviour[S, T]) guard() Guard { return b.Guard }

// internalTriggerBehaviour runs Action without exit/entry; the state is
// unchanged.
type internalTriggerBehaviour[S comparable, T comparable] struct {
	baseTriggerBehaviour[T]
	Action ActionFunc[S, T]
}

func (b *internalTriggerBehaviour[S, T]) guard() Guard { return b.Guard }

// triggerBehaviourResult is the outcome of searching a state (and its
// ancestors) for a handler of a given trigger.
type triggerBehaviourResult[S comparable, T comparable] struct {
	Handler     triggerBehaviour[S, T]
	UnmetGuards []string
}

// triggerParameters is the Trigger Parameter Registry entry for one
// trigger: the ordered list of argument types required when firing it.
type triggerParameters[T comparable] struct {
	Trigger       T
	ArgumentTypes []reflect.Type
}

// DetailedTrigger pairs a permitted trigger with its parameter descriptor,
// if one was registered for it via Engine.SetTriggerParameters (spec §4.5).
type DetailedTrigger[T comparable] struct {
	Trigger       T
	ArgumentTypes []reflect.Type
	HasParameters bool
}

// validate checks args against the registered arity and per-position
// types, per spec §4.1.
func (p triggerParameters[T]) validate(args []any) error {
	if len(args) != len(p.ArgumentTypes) {
		return &ArityMismatchError{Trigger: p.Trigger, Expected: len(p.ArgumentTypes), Got: len(args)}
	}
	for i, want := range p.ArgumentTypes {
		got := reflect.TypeOf(args[i])
		if got == nil || !got.AssignableTo(want) {
			return &TypeMismatchError{Trigger: p.Trigger, Position: i, Want: want, Got: got}
		}
	}
	return nil
}
