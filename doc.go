// Package hsm implements a reusable hierarchical finite-state-machine
// engine. Client code declares states, triggers, substate relationships,
// guards, entry/exit actions and transition observers through Engine and
// StateConfiguration, then drives a context's state field through the
// declared graph by firing triggers against a Handle.
//
// The engine is single-threaded-cooperative: none of its own operations
// suspend, and it makes no attempt at guarding a single Engine+context pair
// against concurrent use from multiple goroutines. See Engine's doc comment
// for the exact guarantee.
package hsm
