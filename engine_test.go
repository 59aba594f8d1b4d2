package hsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHolder struct {
	state string
}

func (h *testHolder) State() string      { return h.state }
func (h *testHolder) SetState(s string)  { h.state = s }

func TestEngineFireTransitioning(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateB)
	e.Configure(stateB)

	h := &testHolder{}
	handle, err := e.CreateHandle(h, stateA)
	require.NoError(t, err)

	require.NoError(t, handle.Fire(context.Background(), triggerX))
	assert.Equal(t, stateB, handle.State())
}

func TestEngineFireReentryRunsEntryAndExitOnce(t *testing.T) {
	entries, exits := 0, 0
	e := NewEngine[string, string]()
	e.Configure(stateA).
		PermitReentry(triggerX).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error { entries++; return nil }).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error { exits++; return nil })

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.Equal(t, 1, entries)
	assert.Equal(t, 1, exits)
	assert.Equal(t, stateA, handle.State())
}

func TestEngineFireIgnoredLeavesStateUnchanged(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateB).SubstateOf(stateC)
	e.Configure(stateC).Ignore(triggerX)

	handle, err := e.CreateHandle(&testHolder{}, stateB)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))
	assert.Equal(t, stateB, handle.State())
}

func TestEngineFireInternalTransitionRunsActionWithoutExitOrEntry(t *testing.T) {
	ran, exited := false, false
	e := NewEngine[string, string]()
	e.Configure(stateA).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error { exited = true; return nil }).
		InternalTransition(triggerX, func(ctx context.Context, tr Transition[string, string], args ...any) error {
			ran = true
			return nil
		})

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.True(t, ran)
	assert.False(t, exited)
	assert.Equal(t, stateA, handle.State())
}

func TestEngineFireDynamicSelectsDestinationAtFireTime(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).PermitDynamic(triggerX, func(ctx context.Context, args ...any) (string, error) {
		if args[0].(int) > 0 {
			return stateB, nil
		}
		return stateC, nil
	}, []string{stateB, stateC})
	e.Configure(stateB)
	e.Configure(stateC)

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX, 5))
	assert.Equal(t, stateB, handle.State())
}

func TestEngineFireUnhandledTriggerReturnsNoTransitionsPermitted(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA)
	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)

	err = handle.Fire(context.Background(), triggerX)
	var noTrans *NoTransitionsPermittedError
	require.ErrorAs(t, err, &noTrans)
}

func TestEngineFireUnmetGuardsReturnsUnmetGuardsError(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateB, WhenDescribed("never", falseGuard))
	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)

	err = handle.Fire(context.Background(), triggerX)
	var unmet *UnmetGuardsError
	require.ErrorAs(t, err, &unmet)
	assert.Contains(t, unmet.UnmetGuards, "never")
}

func TestEngineCreateHandleDescendsInitialTransition(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).InitialTransition(stateB)
	e.Configure(stateB).SubstateOf(stateA)

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	assert.Equal(t, stateB, handle.State())
}

func TestEngineCreateHandleBadInitialTransition(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).InitialTransition(stateB)

	_, err := e.CreateHandle(&testHolder{}, stateA)
	var badInitial *BadInitialTransitionError
	require.ErrorAs(t, err, &badInitial)
}

func TestEngineFireDescendsThroughInitialTransitionOnEntry(t *testing.T) {
	var order []string
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateC)
	e.Configure(stateC).
		InitialTransition(stateD).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "C")
			return nil
		})
	e.Configure(stateD).
		SubstateOf(stateC).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "D")
			return nil
		})

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.Equal(t, []string{"C", "D"}, order)
	assert.Equal(t, stateD, handle.State())
}

func TestEngineQueuedFireIsRunToCompletion(t *testing.T) {
	var order []string
	e := NewEngine[string, string]() // FiringQueued is the zero value
	var handle *Handle[string, string]

	e.Configure(stateA).
		Permit(triggerX, stateB).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "exitA")
			// fired while A is still exiting: must queue, not run nested.
			return handle.Fire(ctx, triggerY)
		})
	e.Configure(stateB).
		Permit(triggerY, stateC).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "enterB")
			return nil
		})
	e.Configure(stateC).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "enterC")
			return nil
		})

	var err error
	handle, err = e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)

	require.NoError(t, handle.Fire(context.Background(), triggerX))
	assert.Equal(t, []string{"exitA", "enterB", "enterC"}, order)
	assert.Equal(t, stateC, handle.State())
}

func TestEngineOnTransitionedFiresBeforeEntryOnTransitionCompletedAfter(t *testing.T) {
	var order []string
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateB)
	e.Configure(stateB).OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
		order = append(order, "entry")
		return nil
	})
	e.OnTransitioned(func(ctx context.Context, tr Transition[string, string]) { order = append(order, "transitioned") })
	e.OnTransitionCompleted(func(ctx context.Context, tr Transition[string, string]) { order = append(order, "completed") })

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.Equal(t, []string{"transitioned", "entry", "completed"}, order)
}

func TestEngineOnUnhandledTriggerOverridesDefaultPolicy(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA)
	sentinel := errors.New("custom policy")
	e.OnUnhandledTrigger(func(ctx context.Context, state, trigger string, unmetGuards []string) error {
		return sentinel
	})

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	assert.ErrorIs(t, handle.Fire(context.Background(), triggerX), sentinel)
}

func TestEngineConfigureDuringFirePanics(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateB)
	e.Configure(stateB).OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
		assert.Panics(t, func() { e.Configure(stateC) })
		return nil
	})

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)
	require.NoError(t, handle.Fire(context.Background(), triggerX))
}

func TestEngineSetTriggerParametersRejectsReconfiguration(t *testing.T) {
	e := NewEngine[string, string]()
	e.SetTriggerParameters(triggerX)
	assert.Panics(t, func() { e.SetTriggerParameters(triggerX) })
}

func TestHandleCanFireWithUnmetReportsGuardDescriptions(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateA).Permit(triggerX, stateB, WhenDescribed("not allowed", falseGuard))

	handle, err := e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)

	ok, unmet := handle.CanFireWithUnmet(context.Background(), triggerX)
	assert.False(t, ok)
	assert.Equal(t, []string{"not allowed"}, unmet)
}

func TestHandleIsInStateChecksAncestors(t *testing.T) {
	e := NewEngine[string, string]()
	e.Configure(stateB).SubstateOf(stateC)
	e.Configure(stateC)

	handle, err := e.CreateHandle(&testHolder{}, stateB)
	require.NoError(t, err)
	assert.True(t, handle.IsInState(stateC))
	assert.True(t, handle.IsInState(stateB))
	assert.False(t, handle.IsInState(stateD))
}

// TestEngineInheritedReentryFromSubstateReentersSuperstate reproduces an
// inherited PermitReentry fired while the context sits in a substate:
// spec §4.8 requires the superstate itself to be exited and re-entered, not
// silently skipped because the dispatch's original Source is the substate.
func TestEngineInheritedReentryFromSubstateReentersSuperstate(t *testing.T) {
	var order []string
	e := NewEngine[string, string]()
	e.Configure(stateA).
		PermitReentry(triggerX).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "enterA")
			return nil
		}).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "exitA")
			return nil
		})
	e.Configure(stateB).
		SubstateOf(stateA).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "enterB")
			return nil
		}).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			order = append(order, "exitB")
			return nil
		})

	handle, err := e.CreateHandle(&testHolder{}, stateB)
	require.NoError(t, err)

	order = nil
	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.Equal(t, []string{"exitB", "exitA", "enterA"}, order)
	assert.Equal(t, stateA, handle.State())
}

// TestEngineImmediateNestedFireRebindsToRedirectedDestination reproduces
// spec §8's "Immediate nested fire": B's own entry action fires a second
// trigger synchronously (FiringImmediate has no run-to-completion queue),
// landing the context in C before B's entry action returns. The outer
// fire's own on_transition_completed must report the context's actual
// final state, C, not the B it originally dispatched toward.
func TestEngineImmediateNestedFireRebindsToRedirectedDestination(t *testing.T) {
	var completed []Transition[string, string]
	e := NewEngineWithMode[string, string](FiringImmediate)
	var handle *Handle[string, string]

	e.Configure(stateA).Permit(triggerX, stateB)
	e.Configure(stateB).
		Permit(triggerY, stateC).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			return handle.Fire(ctx, triggerY)
		})
	e.Configure(stateC)
	e.OnTransitionCompleted(func(ctx context.Context, tr Transition[string, string]) {
		completed = append(completed, tr)
	})

	var err error
	handle, err = e.CreateHandle(&testHolder{}, stateA)
	require.NoError(t, err)

	require.NoError(t, handle.Fire(context.Background(), triggerX))

	assert.Equal(t, stateC, handle.State())
	require.Len(t, completed, 2)
	assert.Equal(t, stateC, completed[0].Destination, "inner fire's own completion reports C")
	assert.Equal(t, stateC, completed[1].Destination, "outer fire rebinds to C, not its original destination B")
}
