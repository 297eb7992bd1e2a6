// Package maintenance implements the MaintenanceLoop: the periodic tick
// that drives idle-worker reclamation, per-task timeout enforcement, and
// AdaptiveController recomputation (spec §4.5, §4.6). The loop owns no
// state of its own beyond its stop/done channels and a one-shot timer
// re-armed each iteration; every mutation runs through the
// callback supplied at construction, which the Pool wires to its own
// locked methods.
package maintenance

import (
	"context"
	"time"

	"github.com/wendelmax/tasklets-go/internal/clock"
)

// Tick is everything the loop needs the Pool to do once per interval.
// The Pool implements this under its own lock; MaintenanceLoop itself
// holds no lock and touches no shared state directly.
type Tick func()

// IntervalFunc is consulted before scheduling each tick's timer, so the
// cadence can change at runtime (e.g. to pick up a configure() call).
type IntervalFunc func() time.Duration

// Loop is the MaintenanceLoop component.
type Loop struct {
	clock    clock.Clock
	interval IntervalFunc
	onTick   Tick
	stop     chan struct{}
	done     chan struct{}
}

// DefaultInterval is the tick cadence spec §4.5 names as the default.
const DefaultInterval = 2000 * time.Millisecond

// New builds a Loop.
func New(c clock.Clock, intervalFn IntervalFunc, onTick Tick) *Loop {
	return &Loop{clock: c, interval: intervalFn, onTick: onTick, stop: make(chan struct{}), done: make(chan struct{})}
}

// Run drives the tick loop until ctx is cancelled or Stop is called.
// Intended to be launched with `go loop.Run(ctx)`.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		timer := l.clock.After(l.interval())
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-timer:
			l.onTick()
		}
	}
}

// Stop requests the loop to exit and blocks until it has.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}
