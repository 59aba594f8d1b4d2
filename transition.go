package hsm

// Transition describes a state transition in progress or completed. It is
// passed to entry/exit/internal actions and to the two observer lists.
type Transition[S comparable, T comparable] struct {
	Source      S
	Destination S
	Trigger     T
	Args        []any

	initial bool // true for the synthetic transition produced by an initial-transition descent
}

// IsReentry reports whether the transition's source and destination are
// the same state — the identity transition fired by PermitReentry, or by a
// Permit/PermitDynamic whose destination happens to equal the source.
func (t Transition[S, T]) IsReentry() bool {
	return t.Source == t.Destination
}
