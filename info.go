package hsm

// TransitionKind classifies one outgoing transition in a reflection
// snapshot (spec §4.14).
type TransitionKind int

const (
	// TransitionFixed is a Transitioning or Reentry behaviour: its
	// destination is known without firing.
	TransitionFixed TransitionKind = iota
	// TransitionDynamic is a PermitDynamic behaviour: its destination is
	// computed at fire time, so only the selector's description is known.
	TransitionDynamic
	// TransitionIgnored is an Ignore or InternalTransition behaviour: the
	// trigger is consumed with no state change.
	TransitionIgnored
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionFixed:
		return "Fixed"
	case TransitionDynamic:
		return "Dynamic"
	case TransitionIgnored:
		return "Ignored"
	default:
		return "Unknown"
	}
}

// TransitionInfo describes one trigger-behaviour attached to a state, per
// spec §4.14's FixedTransitionInfo / DynamicTransitionInfo /
// IgnoredTransitionInfo.
type TransitionInfo[S comparable, T comparable] struct {
	Kind                 TransitionKind
	Trigger              T
	GuardDescriptions    []string
	Destination          S    // valid only when Kind == TransitionFixed
	HasDestination       bool
	SelectorDescription  string // valid only when Kind == TransitionDynamic
}

// StateInfo is one node of a GetInfo snapshot: a state's actions, its
// position in the superstate/substate graph, and its outgoing transitions.
type StateInfo[S comparable, T comparable] struct {
	UnderlyingState    S
	EntryActions       []string
	ExitActions        []string
	ActivateActions    []string
	DeactivateActions  []string
	Superstate         S
	HasSuperstate      bool
	Substates          []S
	Transitions        []TransitionInfo[S, T]
}

// Info is the full reflection snapshot returned by Engine.GetInfo and
// Handle.GetInfo: one StateInfo per configured state, in declaration order.
type Info[S comparable, T comparable] struct {
	States []StateInfo[S, T]
}

// GetInfo walks the configuration map in declaration order and builds a
// snapshot graph, consumed by diagram generators and other introspection
// tooling (spec §4.14, §6).
func (e *Engine[S, T]) GetInfo() Info[S, T] {
	info := Info[S, T]{States: make([]StateInfo[S, T], 0, len(e.stateOrder))}
	for _, state := range e.stateOrder {
		sr := e.stateConfig[state]
		si := StateInfo[S, T]{
			UnderlyingState:   sr.State,
			EntryActions:      describeEntryExit(sr.EntryActions),
			ExitActions:       describeEntryExit(sr.ExitActions),
			ActivateActions:   describeSteady(sr.ActivateActions),
			DeactivateActions: describeSteady(sr.DeactivateActions),
		}
		if sr.Superstate != nil {
			si.Superstate = sr.Superstate.State
			si.HasSuperstate = true
		}
		for _, sub := range sr.Substates {
			si.Substates = append(si.Substates, sub.State)
		}
		for _, trig := range sr.triggerOrder {
			for _, b := range sr.TriggerBehaviours[trig] {
				si.Transitions = append(si.Transitions, transitionInfoFor[S, T](b))
			}
		}
		info.States = append(info.States, si)
	}
	return info
}

func transitionInfoFor[S comparable, T comparable](b triggerBehaviour[S, T]) TransitionInfo[S, T] {
	ti := TransitionInfo[S, T]{Trigger: b.trigger(), GuardDescriptions: b.guard().descriptions()}
	switch v := b.(type) {
	case *transitioningTriggerBehaviour[S, T]:
		ti.Kind = TransitionFixed
		ti.Destination = v.Destination
		ti.HasDestination = true
	case *reentryTriggerBehaviour[S, T]:
		ti.Kind = TransitionFixed
		ti.Destination = v.Destination
		ti.HasDestination = true
	case *dynamicTriggerBehaviour[S, T]:
		ti.Kind = TransitionDynamic
		ti.SelectorDescription = v.SelectorDescription.String()
	case *ignoredTriggerBehaviour[S, T]:
		ti.Kind = TransitionIgnored
	case *internalTriggerBehaviour[S, T]:
		ti.Kind = TransitionIgnored
	}
	return ti
}

func describeEntryExit[S comparable, T comparable](actions []entryExitAction[S, T]) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Description.String()
	}
	return out
}

func describeSteady(actions []steadyAction) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Description.String()
	}
	return out
}
