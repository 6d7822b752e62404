package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rcastrillon77/photoloft-booking/internal/booking"
	"github.com/rcastrillon77/photoloft-booking/internal/model"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
)

// SnapshotKey identifies one availability view: a listing, the tier
// whose schedule applies, a calendar date in the listing zone, and the
// duration the visitor is asking about.
type SnapshotKey struct {
	ListingID   uint64
	Tier        string
	Date        string // YYYY-MM-DD
	DurationMin int
}

// Snapshot is the computed availability for one key: the ordered slot
// list (free and on-hold), the day's operating window, the longest
// bookable run and the pricing summary for the requested duration.
type Snapshot struct {
	Closed      bool              `json:"closed"`
	OpenMin     int               `json:"open,omitempty"`
	CloseMin    int               `json:"close,omitempty"`
	Slots       []booking.Slot    `json:"slots"`
	MaxDuration int               `json:"max_duration"`
	Pricing     booking.Selection `json:"pricing"`
	ComputedAt  time.Time         `json:"computed_at"`
}

// AvailabilityService computes availability snapshots from the store.
// Mutations (hold create/release, sweep) proactively re-derive recorded
// views through a single-flight refresher per key, and every key
// carries a generation bumped on invalidation so a computation started
// before a mutation can never overwrite the snapshot recorded after it.
type AvailabilityService struct {
	listings *repository.ListingRepo
	events   *repository.EventRepo
	holds    *repository.HoldRepo
	rates    *repository.SpecialRateRepo

	now func() time.Time

	// onInvalidate, when set, is called after a mutation invalidates a
	// listing's snapshots so outer caches can drop their copies too.
	onInvalidate func(listingID uint64)

	mu         sync.Mutex
	snapshots  map[SnapshotKey]*Snapshot
	gens       map[SnapshotKey]uint64
	refreshers map[SnapshotKey]*Refresher
}

// NewAvailabilityService wires an AvailabilityService.  All repositories
// must be non-nil.
func NewAvailabilityService(listings *repository.ListingRepo, events *repository.EventRepo, holds *repository.HoldRepo, rates *repository.SpecialRateRepo) *AvailabilityService {
	if listings == nil || events == nil || holds == nil || rates == nil {
		panic("nil repository passed to NewAvailabilityService")
	}
	return &AvailabilityService{
		listings:   listings,
		events:     events,
		holds:      holds,
		rates:      rates,
		now:        func() time.Time { return time.Now().UTC() },
		snapshots:  map[SnapshotKey]*Snapshot{},
		gens:       map[SnapshotKey]uint64{},
		refreshers: map[SnapshotKey]*Refresher{},
	}
}

// OnInvalidate registers a hook run whenever a listing's snapshots are
// invalidated.  Used to purge the HTTP response cache alongside the
// in-process one.  Not safe to call after serving starts.
func (s *AvailabilityService) OnInvalidate(fn func(listingID uint64)) { s.onInvalidate = fn }

// snapshotTTL bounds how long a refresher-warmed snapshot may be served
// before Day recomputes from the store.  Mutations through this API
// re-derive affected snapshots immediately; the TTL only covers writes
// that bypass the service entirely.
const snapshotTTL = 5 * time.Second

// Day returns the availability snapshot for a listing, tier, date and
// duration.  A snapshot recently recorded by a mutation-driven refresh
// is served as is; otherwise one is computed fresh and recorded so
// later invalidations know which views to re-derive.  A closed day or a
// tier without a schedule yields an empty snapshot, never an error.
func (s *AvailabilityService) Day(ctx context.Context, listingID uint64, tier string, date time.Time, durationMin int) (*Snapshot, error) {
	l, ws, err := s.loadListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	k := snapshotKey(l, tier, date, durationMin)
	if snap := s.Cached(k); snap != nil && s.now().Sub(snap.ComputedAt) < snapshotTTL {
		return snap, nil
	}
	gen := s.beginCompute(k)
	snap, err := s.compute(ctx, l, ws, tier, date, durationMin)
	if err != nil {
		return nil, err
	}
	s.record(k, snap, gen)
	return snap, nil
}

// MaxDuration returns the longest bookable run for a date, 0 when the
// day is closed or fully booked.
func (s *AvailabilityService) MaxDuration(ctx context.Context, listingID uint64, tier string, date time.Time) (int, error) {
	l, ws, err := s.loadListing(ctx, listingID)
	if err != nil {
		return 0, err
	}
	bctx, open := booking.NewContext(l, ws, tier, date, s.now())
	if !open {
		return 0, nil
	}
	eventsIv, holdsIv, err := s.busyIntervals(ctx, l, bctx)
	if err != nil {
		return 0, err
	}
	return bctx.MaxDuration(eventsIv, holdsIv), nil
}

// HasAny reports whether a date has at least one bookable slot of the
// minimum duration.  Used by calendar date validation and the forward
// date scan.
func (s *AvailabilityService) HasAny(ctx context.Context, l *model.Listing, ws model.WeeklySchedule, tier string, date time.Time) (bool, error) {
	bctx, open := booking.NewContext(l, ws, tier, date, s.now())
	if !open {
		return false, nil
	}
	eventsIv, holdsIv, err := s.busyIntervals(ctx, l, bctx)
	if err != nil {
		return false, err
	}
	return bctx.HasAny(eventsIv, holdsIv), nil
}

// NextDate scans forward from a date, inclusive, up to maxDays days and
// returns the first date with availability.  A zero from means today on
// the listing's wall clock.  ok is false when the whole window is
// closed or booked.
func (s *AvailabilityService) NextDate(ctx context.Context, listingID uint64, tier string, from time.Time, maxDays int) (time.Time, bool, error) {
	l, ws, err := s.loadListing(ctx, listingID)
	if err != nil {
		return time.Time{}, false, err
	}
	if w := l.Rules.WindowDays; w > 0 && maxDays > w {
		maxDays = w
	}
	if from.IsZero() {
		from = s.now().In(l.Location())
	}
	from = booking.DateIn(from, l.Location())
	return booking.NextAvailableDate(from, maxDays, func(d time.Time) (bool, error) {
		return s.HasAny(ctx, l, ws, tier, d)
	})
}

// Invalidate re-derives every recorded snapshot touching a listing
// through its single-flight refresher.  Called after hold mutations and
// sweeps.  Bumping the key's generation first means any computation
// already in flight, request-path or refresher, carries a stale
// generation and is dropped at record time instead of overwriting the
// post-mutation state.
func (s *AvailabilityService) Invalidate(listingID uint64) {
	s.mu.Lock()
	for k := range s.gens {
		if listingID == 0 || k.ListingID == listingID {
			s.gens[k]++
		}
	}
	var keys []SnapshotKey
	for k := range s.snapshots {
		if listingID == 0 || k.ListingID == listingID {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	for _, k := range keys {
		s.refresherFor(k).Trigger()
	}
	if s.onInvalidate != nil {
		s.onInvalidate(listingID)
	}
}

// InvalidateAll re-derives every recorded snapshot.  Used by the sweeper,
// which does not know which listings the expired rows belonged to.
func (s *AvailabilityService) InvalidateAll() { s.Invalidate(0) }

// Cached returns the recorded snapshot for a key, nil when the view has
// never been computed.
func (s *AvailabilityService) Cached(k SnapshotKey) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[k]
}

func (s *AvailabilityService) refresherFor(k SnapshotKey) *Refresher {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refreshers[k]
	if !ok {
		r = NewRefresher(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			gen := s.beginCompute(k)
			l, ws, err := s.loadListing(ctx, k.ListingID)
			if err != nil {
				log.Printf("availability: refresh %v: load listing: %v", k, err)
				return
			}
			date, err := time.ParseInLocation("2006-01-02", k.Date, l.Location())
			if err != nil {
				return
			}
			snap, err := s.compute(ctx, l, ws, k.Tier, date, k.DurationMin)
			if err != nil {
				// Keep the previous snapshot; the next request recomputes anyway.
				log.Printf("availability: refresh %v: %v", k, err)
				return
			}
			// A drop here means another mutation landed mid-run; the
			// refresher's coalesced trailing run picks it up.
			s.record(k, snap, gen)
		})
		s.refreshers[k] = r
	}
	return r
}

// beginCompute registers k and returns the mutation generation the
// caller's computation will be based on.  Pass the value to record.
func (s *AvailabilityService) beginCompute(k SnapshotKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gens[k]
	if !ok {
		s.gens[k] = 0
	}
	return g
}

// record stores snap unless a mutation invalidated the key after gen
// was taken; a slow pre-mutation computation must never overwrite the
// post-mutation snapshot.  Reports whether the store happened.
func (s *AvailabilityService) record(k SnapshotKey, snap *Snapshot, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[k] != gen {
		return false
	}
	s.snapshots[k] = snap
	return true
}

func (s *AvailabilityService) loadListing(ctx context.Context, listingID uint64) (*model.Listing, model.WeeklySchedule, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	ws, err := s.listings.WeeklySchedule(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	return l, ws, nil
}

// BusyIntervals groups a day's occupancy for slot checks: confirmed
// events and everyone's live holds, both reduced to day-relative minute
// intervals.
type BusyIntervals struct {
	Events []booking.Interval
	Holds  []booking.Interval
}

// DayIntervals loads the occupancy of the context's date.  Handlers use
// it to re-check a specific slot right before taking a hold.
func (s *AvailabilityService) DayIntervals(ctx context.Context, l *model.Listing, bctx *booking.Context) (*BusyIntervals, error) {
	events, holds, err := s.busyIntervals(ctx, l, bctx)
	if err != nil {
		return nil, err
	}
	return &BusyIntervals{Events: events, Holds: holds}, nil
}

func (s *AvailabilityService) busyIntervals(ctx context.Context, l *model.Listing, bctx *booking.Context) (events, holds []booking.Interval, err error) {
	from := bctx.Date
	to := from.Add(24 * time.Hour)
	evs, err := s.events.ListForRange(ctx, l.ID, l.LocationID, from, to)
	if err != nil {
		return nil, nil, err
	}
	hds, err := s.holds.ActiveForRange(ctx, l.ID, l.LocationID, from, to)
	if err != nil {
		return nil, nil, err
	}
	events = booking.EventIntervals(repository.Ranges(evs), from)
	holds = booking.HoldIntervals(hds, from, s.now())
	return events, holds, nil
}

func (s *AvailabilityService) compute(ctx context.Context, l *model.Listing, ws model.WeeklySchedule, tier string, date time.Time, durationMin int) (*Snapshot, error) {
	now := s.now()
	bctx, open := booking.NewContext(l, ws, tier, date, now)
	if !open {
		return &Snapshot{Closed: true, Slots: []booking.Slot{}, ComputedAt: now}, nil
	}
	eventsIv, holdsIv, err := s.busyIntervals(ctx, l, bctx)
	if err != nil {
		return nil, err
	}
	sr, err := s.rates.ForDate(ctx, l.ID, bctx.Date)
	if err != nil {
		return nil, err
	}

	// durationMin <= 0 falls back to the listing's default via the
	// selection transition, which also clamps and grid-snaps the value.
	sel := booking.NewSelection(bctx)
	if durationMin > 0 {
		sel = sel.WithDuration(bctx, durationMin)
	}
	sel = sel.Priced(bctx, sr)

	slots := bctx.StartTimes(sel.DurationMin, eventsIv, holdsIv)
	if slots == nil {
		slots = []booking.Slot{}
	}

	return &Snapshot{
		OpenMin:     bctx.OpenMin,
		CloseMin:    bctx.CloseMin,
		Slots:       slots,
		MaxDuration: bctx.MaxDuration(eventsIv, holdsIv),
		Pricing:     sel,
		ComputedAt:  now,
	}, nil
}

func snapshotKey(l *model.Listing, tier string, date time.Time, durationMin int) SnapshotKey {
	loc := l.Location()
	return SnapshotKey{
		ListingID:   l.ID,
		Tier:        tier,
		Date:        booking.DateIn(date, loc).Format("2006-01-02"),
		DurationMin: durationMin,
	}
}
