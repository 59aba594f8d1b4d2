package hsm

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the bug-tracker scenario from spec §8: Assigned is a substate
// of Open, reentry on a second Assign runs both exit-of-Assigned and the
// OnEntryFrom handler observing the previous assignee, and Defer ascends
// through both Assigned and Open on its way to Deferred.
func TestBugTrackerScenario(t *testing.T) {
	const (
		ticketOpen     = "Open"
		ticketAssigned = "Assigned"
		ticketDeferred = "Deferred"
		ticketClosed   = "Closed"

		assign = "Assign"
		defer_ = "Defer"
		close_ = "Close"
	)

	var assignee string
	var events []string

	e := NewEngine[string, string]()
	e.SetTriggerParameters(assign, reflect.TypeOf(""))

	e.Configure(ticketOpen).
		Permit(assign, ticketAssigned).
		Permit(defer_, ticketDeferred)

	e.Configure(ticketAssigned).
		SubstateOf(ticketOpen).
		Permit(close_, ticketClosed).
		OnExit(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			events = append(events, "off the hook")
			return nil
		}).
		OnEntryFrom(assign, func(ctx context.Context, tr Transition[string, string], args ...any) error {
			if assignee != "" {
				events = append(events, fmt.Sprintf("help the new employee (was %s)", assignee))
			}
			assignee = args[0].(string)
			events = append(events, "you own it")
			return nil
		})

	e.Configure(ticketDeferred).
		Permit(assign, ticketAssigned).
		OnEntry(func(ctx context.Context, tr Transition[string, string], args ...any) error {
			assignee = ""
			return nil
		})

	e.Configure(ticketClosed)

	handle, err := e.CreateHandle(&testHolder{}, ticketOpen)
	require.NoError(t, err)

	require.NoError(t, handle.Fire(context.Background(), assign, "alice"))
	assert.Equal(t, ticketAssigned, handle.State())
	assert.Equal(t, "alice", assignee)
	assert.Equal(t, []string{"you own it"}, events)

	events = nil
	require.NoError(t, handle.Fire(context.Background(), assign, "bob"))
	assert.Equal(t, ticketAssigned, handle.State())
	assert.Equal(t, "bob", assignee)
	assert.Equal(t, []string{"off the hook", "help the new employee (was alice)", "you own it"}, events)

	require.NoError(t, handle.Fire(context.Background(), defer_))
	assert.Equal(t, ticketDeferred, handle.State())
	assert.Equal(t, "", assignee)

	require.NoError(t, handle.Fire(context.Background(), assign, "carol"))
	assert.Equal(t, ticketAssigned, handle.State())
	assert.Equal(t, "carol", assignee)
}
