// Package service holds the pieces that sit between HTTP handlers and
// repositories: availability snapshot computation, the single-flight
// refresh coordinator, the hold-expiry sweeper, outbound webhooks and
// the message-queue publisher.
package service

import "sync"

// Refresher serializes refreshes of one piece of derived state.  Only
// one run proceeds at a time; a Trigger arriving mid-flight is coalesced
// into exactly one trailing re-run after the in-flight call settles.
// That gives the ordering guarantee availability needs: the last
// completed run always observed every mutation that preceded it, so a
// slow older refresh can never overwrite fresher state.  There is no
// cancellation of an in-flight run; staleness is handled entirely by
// the trailing re-run.
type Refresher struct {
	mu    sync.Mutex
	run   func()
	busy  bool
	again bool
}

// NewRefresher wraps the given refresh function.  run must be safe to
// call from an arbitrary goroutine.
func NewRefresher(run func()) *Refresher {
	return &Refresher{run: run}
}

// Trigger requests a refresh.  If none is in flight one starts
// immediately on a new goroutine; otherwise a single trailing re-run is
// scheduled no matter how many triggers pile up meanwhile.
func (r *Refresher) Trigger() {
	r.mu.Lock()
	if r.busy {
		r.again = true
		r.mu.Unlock()
		return
	}
	r.busy = true
	r.mu.Unlock()

	go r.loop()
}

func (r *Refresher) loop() {
	for {
		r.run()

		r.mu.Lock()
		if !r.again {
			r.busy = false
			r.mu.Unlock()
			return
		}
		r.again = false
		r.mu.Unlock()
	}
}
