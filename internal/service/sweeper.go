package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/repository"
)

// sweepGrace pushes the timer slightly past the expiry boundary so the
// DELETE's UTC_TIMESTAMP() comparison is guaranteed to see the row as
// expired.
const sweepGrace = time.Second

// Sweeper is the single scheduled reconciliation task for hold expiry.
// Instead of ad-hoc polling, one timer per process is keyed to the
// nearest upcoming expires_at and re-armed after every hold state
// change.  Firing deletes expired rows and invalidates availability
// snapshots.  The timer is advisory; availability reads filter expired
// holds by wall clock regardless, so a late or missed sweep only delays
// garbage collection, never correctness.
type Sweeper struct {
	holds *repository.HoldRepo
	avail *AvailabilityService

	mu    sync.Mutex
	timer *time.Timer
	next  time.Time
}

// NewSweeper wires a Sweeper.  Call Rearm once at startup to pick up
// holds that survived a restart.
func NewSweeper(holds *repository.HoldRepo, avail *AvailabilityService) *Sweeper {
	return &Sweeper{holds: holds, avail: avail}
}

// ArmFor ensures the timer fires no later than just past expiresAt.
// Called with the expiry of every newly created hold.
func (s *Sweeper) ArmFor(expiresAt time.Time) {
	deadline := expiresAt.Add(sweepGrace)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil && !s.next.IsZero() && !deadline.Before(s.next) {
		return // an earlier firing is already scheduled
	}
	s.armLocked(deadline)
}

// Rearm queries the store for the nearest upcoming expiry and schedules
// the timer for it, or stops the timer when nothing is pending.  Called
// after every sweep and after hold releases.
func (s *Sweeper) Rearm(ctx context.Context) {
	next, ok, err := s.holds.NearestExpiry(ctx)
	if err != nil {
		log.Printf("sweeper: nearest expiry: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
			s.next = time.Time{}
		}
		return
	}
	s.armLocked(next.Add(sweepGrace))
}

func (s *Sweeper) armLocked(deadline time.Time) {
	if s.timer != nil {
		s.timer.Stop()
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	s.next = deadline
	s.timer = time.AfterFunc(d, s.fire)
}

func (s *Sweeper) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := s.holds.SweepExpired(ctx)
	if err != nil {
		log.Printf("sweeper: sweep expired holds: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: removed %d expired holds", n)
		s.avail.InvalidateAll()
	}
	s.Rearm(ctx)
}

// Sweep runs one opportunistic sweep outside the timer, used after
// availability refreshes.  Errors are logged, never surfaced: a failed
// sweep costs nothing but disk.
func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.holds.SweepExpired(ctx); err != nil {
		log.Printf("sweeper: sweep expired holds: %v", err)
	} else if n > 0 {
		s.avail.InvalidateAll()
	}
}
