package barrier

import (
	"context"
	"fmt"
	"sync"
)

// Group is a collective barrier shared by a fixed set of participants.
// Barrier blocks until every participant has arrived, then releases them
// all; the same Group can be used for any number of successive rounds.
// Abort poisons the group: current and future waiters return a LeaderError
// instead of blocking forever on a participant that will never arrive.
type Group interface {
	Barrier(ctx context.Context) error
	Abort(err error)
}

// LeaderError reports that the barrier leader failed its guarded work and
// aborted the group.
type LeaderError struct {
	Err error
}

func (e *LeaderError) Error() string {
	return fmt.Sprintf("barrier: leader failed: %v", e.Err)
}

func (e *LeaderError) Unwrap() error { return e.Err }

// LocalGroup is an in-process Group for participants scheduled as
// goroutines, keyed by group size. It is the reference implementation and
// the test double for process-group collectives.
type LocalGroup struct {
	size int

	mu      sync.Mutex
	arrived int
	gen     int
	release chan struct{}
	abort   error
}

// NewLocalGroup creates a reusable barrier for size participants.
// Sizes below 1 are treated as 1.
func NewLocalGroup(size int) *LocalGroup {
	if size < 1 {
		size = 1
	}
	return &LocalGroup{
		size:    size,
		release: make(chan struct{}),
	}
}

// Size returns the number of participants.
func (g *LocalGroup) Size() int { return g.size }

// Barrier blocks until all participants of the current round have arrived,
// the context is done, or the group is aborted. A caller that leaves on
// context cancellation is no longer counted towards the round.
func (g *LocalGroup) Barrier(ctx context.Context) error {
	g.mu.Lock()
	if g.abort != nil {
		err := g.abort
		g.mu.Unlock()
		return &LeaderError{Err: err}
	}

	g.arrived++
	if g.arrived == g.size {
		close(g.release)
		g.release = make(chan struct{})
		g.arrived = 0
		g.gen++
		g.mu.Unlock()
		return nil
	}

	myGen := g.gen
	release := g.release
	g.mu.Unlock()

	select {
	case <-release:
		g.mu.Lock()
		err := g.abort
		g.mu.Unlock()
		if err != nil {
			return &LeaderError{Err: err}
		}
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		// Withdraw from the round unless it already completed.
		if g.gen == myGen && g.arrived > 0 {
			g.arrived--
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Abort poisons the group with err and wakes every waiter. Used when the
// leader's guarded work fails, so followers do not wait indefinitely.
func (g *LocalGroup) Abort(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abort != nil {
		return
	}
	g.abort = err
	g.arrived = 0
	g.gen++
	close(g.release)
	g.release = make(chan struct{})
}

// LeaderOnce executes work exactly once across the process group, on the
// participant whose rank is 0, before any other participant proceeds.
//
// The signal is symmetric and two-phase: an entry barrier gathers all
// ranks before the leader starts, and an exit barrier holds the followers
// until the leader has finished, so a follower can never observe partial
// results of the guarded work.
//
// Rank -1 means "no distributed group": work runs inline with no
// coordination. If the leader's work fails, the group is aborted and every
// follower receives a LeaderError.
func LeaderOnce(ctx context.Context, rank int, g Group, work func(context.Context) error) error {
	if rank < 0 || g == nil {
		return work(ctx)
	}

	if err := g.Barrier(ctx); err != nil {
		return err
	}

	if rank == 0 {
		if err := work(ctx); err != nil {
			g.Abort(err)
			return err
		}
	}

	return g.Barrier(ctx)
}
