package hsm_test

import (
	"context"
	"fmt"

	"github.com/nullstate/hsm"
)

const (
	ticketOpen     = "Open"
	ticketAssigned = "Assigned"
	ticketClosed   = "Closed"

	triggerAssign = "Assign"
	triggerClose  = "Close"
	triggerReopen = "Reopen"
)

type ticket struct {
	state  string
	holder string
}

func (t *ticket) State() string     { return t.state }
func (t *ticket) SetState(s string) { t.state = s }

func Example() {
	engine := hsm.NewEngine[string, string]()

	engine.Configure(ticketOpen).
		Permit(triggerAssign, ticketAssigned)

	engine.Configure(ticketAssigned).
		OnEntryFrom(triggerAssign, func(_ context.Context, _ hsm.Transition[string, string], args ...any) error {
			fmt.Println("assigned to", args[0].(string))
			return nil
		}).
		Permit(triggerClose, ticketClosed)

	engine.Configure(ticketClosed).
		PermitReentry(triggerClose).
		Permit(triggerReopen, ticketOpen)

	t := &ticket{}
	handle, err := engine.CreateHandle(t, ticketOpen)
	if err != nil {
		fmt.Println("setup error:", err)
		return
	}

	ctx := context.Background()
	if err := handle.Fire(ctx, triggerAssign, "nia"); err != nil {
		fmt.Println("fire error:", err)
		return
	}
	if err := handle.Fire(ctx, triggerClose); err != nil {
		fmt.Println("fire error:", err)
		return
	}
	fmt.Println("final state:", handle.State())

	// Output:
	// assigned to nia
	// final state: Closed
}
