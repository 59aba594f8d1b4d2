package hsm

import (
	"context"
	"sync"
	"sync/atomic"
)

// fireMode is the firing-mode strategy behind Engine.internalFire: it owns
// whatever reentrancy bookkeeping its mode requires and ultimately calls
// back into Engine.fireOne.
type fireMode[S comparable, T comparable] interface {
	Fire(ctx context.Context, holder StateHolder[S], trigger T, args ...any) error
	Firing() bool
}

// fireModeImmediate processes every fire synchronously, including ones
// triggered reentrantly from inside an action. There is no run-to-completion
// guarantee: a nested fire's effects are visible to the outer fire's own
// in-flight entry/exit actions.
type fireModeImmediate[S comparable, T comparable] struct {
	engine *Engine[S, T]
	depth  atomic.Int64
}

func (f *fireModeImmediate[S, T]) Firing() bool {
	return f.depth.Load() > 0
}

func (f *fireModeImmediate[S, T]) Fire(ctx context.Context, holder StateHolder[S], trigger T, args ...any) error {
	f.depth.Add(1)
	defer f.depth.Add(-1)
	return f.engine.fireOne(ctx, holder, trigger, args...)
}

// queuedTrigger is one pending entry in a fireModeQueued's FIFO.
type queuedTrigger[S comparable, T comparable] struct {
	Context context.Context
	Holder  StateHolder[S]
	Trigger T
	Args    []any
}

// fireModeQueued gives run-to-completion semantics (spec §4.6, §5): a fire
// issued while another is already in progress is appended to a FIFO and
// runs only after every fire ahead of it in the queue has completed. The
// queue and the firing flag are owned by the Engine, not by any one Handle,
// so triggers fired against different Handles sharing this Engine still
// serialize against each other.
type fireModeQueued[S comparable, T comparable] struct {
	engine   *Engine[S, T]
	firing   atomic.Bool
	mu       sync.Mutex
	pending  []queuedTrigger[S, T]
}

func (f *fireModeQueued[S, T]) Firing() bool {
	return f.firing.Load()
}

func (f *fireModeQueued[S, T]) Fire(ctx context.Context, holder StateHolder[S], trigger T, args ...any) error {
	f.enqueue(queuedTrigger[S, T]{Context: ctx, Holder: holder, Trigger: trigger, Args: args})
	for {
		qt, ok := f.dequeue()
		if !ok {
			return nil
		}
		if err := f.execute(qt); err != nil {
			return err
		}
	}
}

func (f *fireModeQueued[S, T]) enqueue(qt queuedTrigger[S, T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, qt)
}

// dequeue claims the firing flag and pops the head of the queue in one
// locked step, so a goroutine that loses the claim (because the fire it
// just enqueued is already being drained by whichever call claimed the flag
// first) simply returns and lets that call process its entry.
func (f *fireModeQueued[S, T]) dequeue() (queuedTrigger[S, T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return queuedTrigger[S, T]{}, false
	}
	if !f.firing.CompareAndSwap(false, true) {
		return queuedTrigger[S, T]{}, false
	}
	qt := f.pending[0]
	f.pending = f.pending[1:]
	return qt, true
}

func (f *fireModeQueued[S, T]) execute(qt queuedTrigger[S, T]) error {
	defer f.firing.Store(false)
	return f.engine.fireOne(qt.Context, qt.Holder, qt.Trigger, qt.Args...)
}
