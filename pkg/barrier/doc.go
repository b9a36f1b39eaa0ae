// Package barrier provides rank-ordered coordination for groups of
// cooperating workers with no shared state beyond the barrier itself.
//
// LeaderOnce is the primary entry point: rank 0 performs a guarded block
// of work exactly once while every other rank waits, which is how
// expensive per-machine initialization (dataset index builds, cache
// warming) is kept from running N times when N workers start together.
//
// The Group interface abstracts the collective; LocalGroup implements it
// in-process for goroutine-scheduled workers and for tests. A process
// launcher that provides a real collective (e.g. over a training
// communicator) plugs in behind the same interface.
package barrier
