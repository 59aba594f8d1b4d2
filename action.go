package hsm

import "context"

// ActionFunc is an entry, exit or internal-transition action. It may mutate
// the client's context and may fire further triggers on the same engine.
type ActionFunc[S comparable, T comparable] func(ctx context.Context, transition Transition[S, T], args ...any) error

// SteadyActionFunc is an activate or deactivate action. Unlike entry/exit
// actions it is not associated with any particular transition.
type SteadyActionFunc func(ctx context.Context) error

// entryExitAction wraps an ActionFunc with its description and an optional
// trigger filter: when Trigger is non-nil the action only runs for entries
// or exits caused by that specific trigger (OnEntryFrom / OnExitWith).
type entryExitAction[S comparable, T comparable] struct {
	Action      ActionFunc[S, T]
	Description invocationInfo
	Trigger     *T
}

func (a entryExitAction[S, T]) execute(ctx context.Context, transition Transition[S, T], args ...any) error {
	if a.Trigger != nil && *a.Trigger != transition.Trigger {
		return nil
	}
	return a.Action(ctx, transition, args...)
}

// steadyAction wraps a SteadyActionFunc (activate/deactivate) with its
// description.
type steadyAction struct {
	Action      SteadyActionFunc
	Description invocationInfo
}

func (a steadyAction) execute(ctx context.Context) error {
	return a.Action(ctx)
}
