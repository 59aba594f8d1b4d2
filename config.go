package hsm

// StateConfiguration is the fluent configuration surface for a single
// state value, returned by Engine.Configure (spec §4.12).
type StateConfiguration[S comparable, T comparable] struct {
	engine *Engine[S, T]
	sr     *StateRepresentation[S, T]
	lookup func(S) *StateRepresentation[S, T]
}

// State returns the state value this configuration applies to.
func (sc *StateConfiguration[S, T]) State() S {
	return sc.sr.State
}

// Permit configures trigger to transition to destinationState, optionally
// gated by guards. destinationState must differ from the configured state;
// use PermitReentry for the identity case.
func (sc *StateConfiguration[S, T]) Permit(trigger T, destinationState S, guards ...GuardCondition) *StateConfiguration[S, T] {
	if destinationState == sc.sr.State {
		panic("hsm: Permit requires destinationState to differ from the configured state; use PermitReentry for identity transitions")
	}
	sc.sr.addTriggerBehaviour(&transitioningTriggerBehaviour[S, T]{
		baseTriggerBehaviour: baseTriggerBehaviour[T]{Trigger: trigger, Guard: newGuard(guards)},
		Destination:          destinationState,
	})
	return sc
}

// PermitReentry configures trigger to exit and re-enter this state. Entry
// and exit actions both run exactly once, even when fired from this exact
// state (spec §4.7, §8 property 7).
func (sc *StateConfiguration[S, T]) PermitReentry(trigger T, guards ...GuardCondition) *StateConfiguration[S, T] {
	sc.sr.addTriggerBehaviour(&reentryTriggerBehaviour[S, T]{
		baseTriggerBehaviour: baseTriggerBehaviour[T]{Trigger: trigger, Guard: newGuard(guards)},
		Destination:          sc.sr.State,
	})
	return sc
}

// Ignore configures trigger to be silently consumed, with no exit/entry
// and no state change, when its guards pass.
func (sc *StateConfiguration[S, T]) Ignore(trigger T, guards ...GuardCondition) *StateConfiguration[S, T] {
	sc.sr.addTriggerBehaviour(&ignoredTriggerBehaviour[S, T]{
		baseTriggerBehaviour: baseTriggerBehaviour[T]{Trigger: trigger, Guard: newGuard(guards)},
	})
	return sc
}

// InternalTransition configures trigger to run action without exiting or
// re-entering this state.
func (sc *StateConfiguration[S, T]) InternalTransition(trigger T, action ActionFunc[S, T], guards ...GuardCondition) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "internal transition action"})
	}
	sc.sr.addTriggerBehaviour(&internalTriggerBehaviour[S, T]{
		baseTriggerBehaviour: baseTriggerBehaviour[T]{Trigger: trigger, Guard: newGuard(guards)},
		Action:               action,
	})
	return sc
}

// PermitDynamic configures trigger to transition to a destination computed
// at fire time by selector. possibleDestinations is recorded for
// reflection only (GetInfo); it is never consulted at fire time.
func (sc *StateConfiguration[S, T]) PermitDynamic(trigger T, selector DestinationSelectorFunc[S], possibleDestinations []S, guards ...GuardCondition) *StateConfiguration[S, T] {
	if selector == nil {
		panic(&NullCallbackError{Kind: "dynamic destination selector"})
	}
	sc.sr.addTriggerBehaviour(&dynamicTriggerBehaviour[S, T]{
		baseTriggerBehaviour: baseTriggerBehaviour[T]{Trigger: trigger, Guard: newGuard(guards)},
		Selector:             selector,
		SelectorDescription:  newInvocationInfo(selector, ""),
		PossibleDestinations: possibleDestinations,
	})
	return sc
}

// InitialTransition declares that entering this state is immediately
// followed by a synthetic transition into target, which must resolve to a
// direct substate at fire time (spec §4.4).
func (sc *StateConfiguration[S, T]) InitialTransition(target S) *StateConfiguration[S, T] {
	sc.sr.setInitialTransition(target)
	return sc
}

// SubstateOf declares this state a substate of superstate. Substates
// inherit the permitted triggers of their ancestors and, unless entered
// directly, trigger their ancestors' entry/exit actions at the boundary.
func (sc *StateConfiguration[S, T]) SubstateOf(superstate S) *StateConfiguration[S, T] {
	state := sc.sr.State
	if state == superstate {
		panic(&CyclicHierarchyError{State: state, Superstate: superstate})
	}
	seen := map[S]struct{}{state: {}}
	for walk := sc.lookup(superstate); walk.Superstate != nil; walk = sc.lookup(walk.Superstate.State) {
		if _, ok := seen[walk.Superstate.State]; ok {
			panic(&CyclicHierarchyError{State: state, Superstate: superstate})
		}
		seen[walk.Superstate.State] = struct{}{}
	}
	super := sc.lookup(superstate)
	sc.sr.Superstate = super
	super.Substates = append(super.Substates, sc.sr)
	return sc
}

// OnEntry registers an action executed whenever this state is entered,
// regardless of which trigger caused the transition.
func (sc *StateConfiguration[S, T]) OnEntry(action ActionFunc[S, T]) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "entry action"})
	}
	sc.sr.EntryActions = append(sc.sr.EntryActions, entryExitAction[S, T]{Action: action, Description: newInvocationInfo(action, "")})
	return sc
}

// OnEntryFrom registers an action executed only when this state is
// entered via the given trigger.
func (sc *StateConfiguration[S, T]) OnEntryFrom(trigger T, action ActionFunc[S, T]) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "entry action"})
	}
	sc.sr.EntryActions = append(sc.sr.EntryActions, entryExitAction[S, T]{Action: action, Description: newInvocationInfo(action, ""), Trigger: &trigger})
	return sc
}

// OnExit registers an action executed whenever this state is exited,
// regardless of which trigger caused the transition.
func (sc *StateConfiguration[S, T]) OnExit(action ActionFunc[S, T]) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "exit action"})
	}
	sc.sr.ExitActions = append(sc.sr.ExitActions, entryExitAction[S, T]{Action: action, Description: newInvocationInfo(action, "")})
	return sc
}

// OnExitWith registers an action executed only when this state is exited
// via the given trigger.
func (sc *StateConfiguration[S, T]) OnExitWith(trigger T, action ActionFunc[S, T]) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "exit action"})
	}
	sc.sr.ExitActions = append(sc.sr.ExitActions, entryExitAction[S, T]{Action: action, Description: newInvocationInfo(action, ""), Trigger: &trigger})
	return sc
}

// OnActivate registers an action executed when this state (or a substate
// of it) is activated.
func (sc *StateConfiguration[S, T]) OnActivate(action SteadyActionFunc) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "activate action"})
	}
	sc.sr.ActivateActions = append(sc.sr.ActivateActions, steadyAction{Action: action, Description: newInvocationInfo(action, "")})
	return sc
}

// OnDeactivate registers an action executed when this state (or a
// substate of it) is deactivated.
func (sc *StateConfiguration[S, T]) OnDeactivate(action SteadyActionFunc) *StateConfiguration[S, T] {
	if action == nil {
		panic(&NullCallbackError{Kind: "deactivate action"})
	}
	sc.sr.DeactivateActions = append(sc.sr.DeactivateActions, steadyAction{Action: action, Description: newInvocationInfo(action, "")})
	return sc
}
