package hsm

import "context"

// StateRepresentation is the structural and behavioral record for one
// state: its superstate and substates, its trigger-behaviour table, its
// action lists, its optional initial-substate target, and its activation
// flag. It implements handler resolution, entry/exit traversal and
// permitted-trigger enumeration (spec §4.3-§4.5).
type StateRepresentation[S comparable, T comparable] struct {
	State                   S
	Superstate              *StateRepresentation[S, T]
	Substates               []*StateRepresentation[S, T]
	TriggerBehaviours       map[T][]triggerBehaviour[S, T]
	triggerOrder            []T
	EntryActions            []entryExitAction[S, T]
	ExitActions             []entryExitAction[S, T]
	ActivateActions         []steadyAction
	DeactivateActions       []steadyAction
	InitialTransitionTarget S
	HasInitialState         bool
	active                  bool
}

func newStateRepresentation[S comparable, T comparable](state S) *StateRepresentation[S, T] {
	return &StateRepresentation[S, T]{
		State:             state,
		TriggerBehaviours: make(map[T][]triggerBehaviour[S, T]),
	}
}

func (sr *StateRepresentation[S, T]) setInitialTransition(target S) {
	sr.InitialTransitionTarget = target
	sr.HasInitialState = true
}

func (sr *StateRepresentation[S, T]) addTriggerBehaviour(b triggerBehaviour[S, T]) {
	t := b.trigger()
	if _, seen := sr.TriggerBehaviours[t]; !seen {
		sr.triggerOrder = append(sr.triggerOrder, t)
	}
	sr.TriggerBehaviours[t] = append(sr.TriggerBehaviours[t], b)
}

// CanHandle reports whether trigger resolves to a handler in this state or
// one of its ancestors.
func (sr *StateRepresentation[S, T]) CanHandle(ctx context.Context, trigger T, args ...any) bool {
	_, ok, _ := sr.FindHandler(ctx, trigger, args...)
	return ok
}

// FindHandler implements spec §4.3: search this state, then delegate to the
// superstate, merging unmet-guard descriptions along the way.
func (sr *StateRepresentation[S, T]) FindHandler(ctx context.Context, trigger T, args ...any) (triggerBehaviourResult[S, T], bool, error) {
	result, ok, err := sr.findHandler(ctx, trigger, args...)
	if err != nil {
		return result, false, err
	}
	if ok || sr.Superstate == nil {
		return result, ok, nil
	}
	superResult, superOK, err := sr.Superstate.FindHandler(ctx, trigger, args...)
	if err != nil {
		return result, false, err
	}
	if superOK {
		return superResult, true, nil
	}
	merged := triggerBehaviourResult[S, T]{Handler: result.Handler}
	if merged.Handler == nil {
		merged.Handler = superResult.Handler
	}
	merged.UnmetGuards = append(append([]string{}, result.UnmetGuards...), superResult.UnmetGuards...)
	return merged, false, nil
}

func (sr *StateRepresentation[S, T]) findHandler(ctx context.Context, trigger T, args ...any) (triggerBehaviourResult[S, T], bool, error) {
	behaviours, ok := sr.TriggerBehaviours[trigger]
	if !ok {
		return triggerBehaviourResult[S, T]{}, false, nil
	}
	var result triggerBehaviourResult[S, T]
	var unmet []string
	for _, b := range behaviours {
		unmet = b.guard().unmet(ctx, unmet[:0], args...)
		if len(unmet) == 0 {
			if result.Handler != nil && len(result.UnmetGuards) == 0 {
				return result, false, &MultiplePermittedError{State: sr.State, Trigger: trigger}
			}
			result.Handler = b
			result.UnmetGuards = nil
		} else if result.Handler == nil {
			result.Handler = b
			result.UnmetGuards = append([]string(nil), unmet...)
		}
	}
	return result, result.Handler != nil && len(result.UnmetGuards) == 0, nil
}

// includesState reports whether state is this state or a descendant of it
// (subtree membership).
func (sr *StateRepresentation[S, T]) includesState(state S) bool {
	if state == sr.State {
		return true
	}
	for _, sub := range sr.Substates {
		if sub.includesState(state) {
			return true
		}
	}
	return false
}

// isIncludedInState reports whether state is this state or an ancestor of
// it (spec glossary's is_included_in).
func (sr *StateRepresentation[S, T]) isIncludedInState(state S) bool {
	if state == sr.State {
		return true
	}
	if sr.Superstate != nil {
		return sr.Superstate.isIncludedInState(state)
	}
	return false
}

// Enter implements spec §4.4: walk superstates outside-in when entering
// from outside this state's chain, then run this state's own entry
// actions.
func (sr *StateRepresentation[S, T]) Enter(ctx context.Context, transition Transition[S, T], args ...any) error {
	if transition.IsReentry() {
		return sr.executeEntryActions(ctx, transition, args...)
	}
	if sr.includesState(transition.Source) {
		return nil
	}
	if sr.Superstate != nil && !transition.initial {
		if err := sr.Superstate.Enter(ctx, transition, args...); err != nil {
			return err
		}
	}
	return sr.executeEntryActions(ctx, transition, args...)
}

// Exit implements spec §4.4: run this state's exit actions, then ascend to
// the superstate and repeat while the destination lies outside this
// state's subtree.
func (sr *StateRepresentation[S, T]) Exit(ctx context.Context, transition Transition[S, T], args ...any) error {
	isReentry := transition.IsReentry()
	if !isReentry && sr.includesState(transition.Destination) {
		return nil
	}
	if err := sr.executeExitActions(ctx, transition, args...); err != nil {
		return err
	}
	if isReentry || sr.Superstate == nil {
		return nil
	}
	if sr.isIncludedInState(transition.Destination) {
		if sr.Superstate.State == transition.Destination {
			return nil
		}
		return sr.Superstate.Exit(ctx, transition, args...)
	}
	return sr.Superstate.Exit(ctx, transition, args...)
}

// InternalAction runs the internal-transition action configured for
// trigger, searching this state and its ancestors the same way
// FindHandler does.
func (sr *StateRepresentation[S, T]) InternalAction(ctx context.Context, transition Transition[S, T], args ...any) error {
	for rep := sr; rep != nil; rep = rep.Superstate {
		result, ok, err := rep.findHandler(ctx, transition.Trigger, args...)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		internal, isInternal := result.Handler.(*internalTriggerBehaviour[S, T])
		if !isInternal {
			continue
		}
		return internal.Action(ctx, transition, args...)
	}
	return &NoTransitionsPermittedError{State: sr.State, Trigger: transition.Trigger}
}

// Activate runs this state's activation actions, and its superstate's
// first if it has one. Repeated activation without an intervening
// Deactivate is a no-op.
func (sr *StateRepresentation[S, T]) Activate(ctx context.Context) error {
	if sr.active {
		return nil
	}
	if sr.Superstate != nil {
		if err := sr.Superstate.Activate(ctx); err != nil {
			return err
		}
	}
	for _, a := range sr.ActivateActions {
		if err := a.execute(ctx); err != nil {
			return err
		}
	}
	sr.active = true
	return nil
}

// Deactivate runs this state's deactivation actions, then its superstate's.
// Repeated deactivation without an intervening Activate is a no-op.
func (sr *StateRepresentation[S, T]) Deactivate(ctx context.Context) error {
	if !sr.active {
		return nil
	}
	for _, a := range sr.DeactivateActions {
		if err := a.execute(ctx); err != nil {
			return err
		}
	}
	sr.active = false
	if sr.Superstate != nil {
		return sr.Superstate.Deactivate(ctx)
	}
	return nil
}

// PermittedTriggers returns the union, over this state and its ancestors,
// of triggers with at least one passing guard (spec §4.5).
func (sr *StateRepresentation[S, T]) PermittedTriggers(ctx context.Context, args ...any) []T {
	seen := make(map[T]struct{})
	var triggers []T
	var unmet []string
	for rep := sr; rep != nil; rep = rep.Superstate {
		for trig, behaviours := range rep.TriggerBehaviours {
			if _, dup := seen[trig]; dup {
				continue
			}
			for _, b := range behaviours {
				unmet = b.guard().unmet(ctx, unmet[:0], args...)
				if len(unmet) == 0 {
					seen[trig] = struct{}{}
					triggers = append(triggers, trig)
					break
				}
			}
		}
	}
	return triggers
}

// permittedTriggersOrdered is PermittedTriggers walked in declaration order
// (triggerOrder) instead of Go's unordered map iteration, for callers that
// need a stable enumeration (GetDetailedPermittedTriggers).
func (sr *StateRepresentation[S, T]) permittedTriggersOrdered(ctx context.Context, args ...any) []T {
	seen := make(map[T]struct{})
	var triggers []T
	var unmet []string
	for rep := sr; rep != nil; rep = rep.Superstate {
		for _, trig := range rep.triggerOrder {
			if _, dup := seen[trig]; dup {
				continue
			}
			for _, b := range rep.TriggerBehaviours[trig] {
				unmet = b.guard().unmet(ctx, unmet[:0], args...)
				if len(unmet) == 0 {
					seen[trig] = struct{}{}
					triggers = append(triggers, trig)
					break
				}
			}
		}
	}
	return triggers
}

func (sr *StateRepresentation[S, T]) executeEntryActions(ctx context.Context, transition Transition[S, T], args ...any) error {
	for _, a := range sr.EntryActions {
		if err := a.execute(ctx, transition, args...); err != nil {
			return err
		}
	}
	return nil
}

func (sr *StateRepresentation[S, T]) executeExitActions(ctx context.Context, transition Transition[S, T], args ...any) error {
	for _, a := range sr.ExitActions {
		if err := a.execute(ctx, transition, args...); err != nil {
			return err
		}
	}
	return nil
}
