// Package dashboard reconciles the local seat grid with the ticketing
// service and drives the single-seat reservation lifecycle.
//
// All state lives on one event-loop goroutine.  Poll ticks, user
// actions, network responses and hold expiry are each delivered to the
// loop as a closure and run to completion there, so the seat collection
// and the selection are never touched concurrently.  Network calls run
// on their own goroutines and post their results back.  After Stop,
// results still in flight are dropped: the request context is
// cancelled, the loop no longer accepts events, and every result
// carries the generation it was issued in.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/clock"
	"github.com/iliyamo/ticketctl/internal/logger"
	"github.com/iliyamo/ticketctl/internal/model"
)

// Service is the part of the ticketing API the dashboard needs.
// *apiclient.Client satisfies it.
type Service interface {
	Profile(ctx context.Context) (model.Profile, error)
	Seats(ctx context.Context) ([]model.Seat, error)
	Reserve(ctx context.Context, seatID int64) error
	Pay(ctx context.Context, seatID int64, idempotencyKey string) (model.PaymentReceipt, error)
}

// Credentials yields the session token.  *session.Session satisfies it.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// Options tunes a Dashboard.  Zero values select the defaults noted on
// each field.
type Options struct {
	PollInterval time.Duration  // synchronizer period; 2s
	HoldDuration time.Duration  // hold the service grants; 120s
	Price        float64        // seat price shown with the selection
	Clock        clock.Clock    // time source; clock.Real()
	Logger       *logger.Logger // discarded when nil
	NewKey       func() string  // idempotency key generator; uuid.NewString
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.HoldDuration <= 0 {
		o.HoldDuration = 120 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	if o.NewKey == nil {
		o.NewKey = uuid.NewString
	}
}

// Dashboard is the seat synchronizer and reservation lifecycle
// controller of one dashboard view.  Create it with New, call Start
// once, and Stop when the view goes away.
type Dashboard struct {
	svc   Service
	creds Credentials
	opts  Options
	log   *logger.Logger

	events   chan func()
	done     chan struct{}
	loopDone chan struct{}
	updates  chan Snapshot

	ctx    context.Context
	cancel context.CancelFunc
	gen    atomic.Uint64
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	lastMu sync.Mutex
	last   Snapshot

	// owned by the loop goroutine
	seats        []model.Seat
	selection    *model.Seat
	phase        Phase
	sync         SyncState
	message      string
	user         string
	noCredential bool
	ticker       *clock.Ticker
	holdTimer    *clock.Timer
	holdDeadline time.Time
	holdGen      uint64
	payKey       string
	pollSeq      uint64
	appliedSeq   uint64
	version      uint64
}

// New returns a stopped dashboard.
func New(svc Service, creds Credentials, opts Options) *Dashboard {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		svc:      svc,
		creds:    creds,
		opts:     opts,
		log:      opts.Logger.WithComponent("dashboard"),
		events:   make(chan func()),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		updates:  make(chan Snapshot, 1),
		ctx:      ctx,
		cancel:   cancel,
		user:     DefaultUser,
	}
	d.last = d.snapshot()
	return d
}

// Updates delivers a Snapshot after every change.  Only the newest
// snapshot is buffered; a slow reader skips intermediate ones.  The
// channel is closed by Stop.
func (d *Dashboard) Updates() <-chan Snapshot { return d.updates }

// Snapshot returns the most recently published state.  It may be called
// from any goroutine, including after Stop.
func (d *Dashboard) Snapshot() Snapshot {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	return d.last
}

// Start mounts the view: it checks the session credential, loads the
// profile, refreshes the seats immediately and starts the periodic
// poll.  Without a credential the view stays inert, shows
// StatusNoToken and Start returns ErrNoCredential.
func (d *Dashboard) Start() error {
	first := false
	d.startOnce.Do(func() {
		first = true
		d.started.Store(true)
		go d.run()
	})
	if !first {
		return ErrStarted
	}

	token, err := d.creds.Token(d.ctx)
	if err != nil {
		d.log.WithError(err).Warn("read session credential")
		token = ""
	}
	return d.call(func() error { return d.mount(token) })
}

// Stop tears the view down.  The periodic poll and any hold timer are
// cancelled exactly once; later calls are no-ops.  Stop waits for
// requests in flight to observe the cancellation.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.gen.Add(1)
		d.cancel()
		close(d.done)
		if d.started.Load() {
			<-d.loopDone
		}
		// the loop has exited; its fields are safe to touch here
		if d.ticker != nil {
			d.ticker.Stop()
			d.ticker = nil
		}
		d.releaseHold()
		d.wg.Wait()
		close(d.updates)
	})
}

// Refresh requests an out-of-band poll.  It does not reset the
// periodic timer.
func (d *Dashboard) Refresh() error {
	return d.call(func() error {
		if d.noCredential {
			return ErrNoCredential
		}
		d.refresh()
		return nil
	})
}

// AttemptLock asks the service to lock seatID.  The seat must be
// AVAILABLE in the current grid and no other seat may be selected or
// pending; otherwise nothing is sent and an error says why.  The
// outcome arrives asynchronously through Updates.
func (d *Dashboard) AttemptLock(seatID int64) error {
	return d.call(func() error { return d.attemptLock(seatID) })
}

// ConfirmPayment pays for the held seat.  Without a held seat it is a
// no-op returning ErrNoSelection.  The outcome arrives asynchronously
// through Updates.
func (d *Dashboard) ConfirmPayment() error {
	return d.call(d.confirmPayment)
}

// ClearSelection drops the held seat locally and stops the countdown.
// The service keeps the lock until it expires there.
func (d *Dashboard) ClearSelection() error {
	return d.call(d.clearSelection)
}

// run is the event loop.
func (d *Dashboard) run() {
	defer close(d.loopDone)
	for {
		var tick <-chan time.Time
		if d.ticker != nil {
			tick = d.ticker.C
		}
		select {
		case <-d.done:
			return
		case fn := <-d.events:
			fn()
		case <-tick:
			d.refresh()
		}
	}
}

// post hands fn to the loop.  It reports false once the dashboard is
// closed.
func (d *Dashboard) post(fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.events <- fn:
		return true
	case <-d.done:
		return false
	}
}

// call runs fn on the loop and waits for its result.
func (d *Dashboard) call(fn func() error) error {
	if !d.started.Load() {
		return ErrNotStarted
	}
	errc := make(chan error, 1)
	if !d.post(func() { errc <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-d.done:
		return ErrClosed
	}
}

// async runs req off the loop and delivers its completion back to the
// loop, unless the view was torn down in the meantime.
func (d *Dashboard) async(req func(ctx context.Context) func()) {
	gen := d.gen.Load()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		complete := req(d.ctx)
		if d.gen.Load() != gen {
			return
		}
		d.post(func() {
			if d.gen.Load() != gen {
				return
			}
			complete()
		})
	}()
}

func (d *Dashboard) mount(token string) error {
	if token == "" {
		d.noCredential = true
		d.message = StatusNoToken
		d.publish()
		return ErrNoCredential
	}

	d.loadProfile()
	d.refresh()
	d.ticker = d.opts.Clock.NewTicker(d.opts.PollInterval)
	d.publish()
	return nil
}

func (d *Dashboard) loadProfile() {
	d.async(func(ctx context.Context) func() {
		p, err := d.svc.Profile(ctx)
		return func() {
			if err != nil {
				d.log.WithError(err).Warn("load profile")
				d.message = StatusProfileFailed
				d.publish()
				return
			}
			d.user = p.User
			d.publish()
		}
	})
}

// refresh issues one poll.  Only a response newer than the last applied
// one replaces the grid, so a slow poll can never roll it back.
func (d *Dashboard) refresh() {
	if d.noCredential {
		return
	}
	d.pollSeq++
	seq := d.pollSeq
	d.async(func(ctx context.Context) func() {
		seats, err := d.svc.Seats(ctx)
		return func() { d.applySeats(seq, seats, err) }
	})
}

func (d *Dashboard) applySeats(seq uint64, seats []model.Seat, err error) {
	if err != nil {
		d.log.WithError(err).Debug("poll seats", "seq", seq)
		return
	}
	if seq <= d.appliedSeq {
		return
	}
	d.appliedSeq = seq

	changed := d.sync != SyncLive || !seatsEqual(d.seats, seats)
	d.sync = SyncLive
	if !changed {
		return
	}
	d.seats = model.CloneSeats(seats)
	d.publish()
}

func (d *Dashboard) findSeat(id int64) (model.Seat, bool) {
	for _, s := range d.seats {
		if s.ID == id {
			return s, true
		}
	}
	return model.Seat{}, false
}

func (d *Dashboard) attemptLock(seatID int64) error {
	if d.noCredential {
		return ErrNoCredential
	}
	seat, ok := d.findSeat(seatID)
	if !ok || !seat.IsAvailable() {
		return ErrSeatUnavailable
	}
	if d.phase != PhaseIdle {
		return ErrSelectionActive
	}

	d.phase = PhaseLockPending
	d.message = fmt.Sprintf(statusLockingFormat, seat.Label)
	d.publish()

	d.async(func(ctx context.Context) func() {
		err := d.svc.Reserve(ctx, seat.ID)
		return func() { d.lockDone(seat, err) }
	})
	return nil
}

func (d *Dashboard) lockDone(seat model.Seat, err error) {
	log := d.log.WithSeat(seat.ID, seat.Label)
	switch {
	case err == nil:
		selected := seat
		d.selection = &selected
		d.phase = PhaseHeld
		d.payKey = d.opts.NewKey()
		d.holdDeadline = d.opts.Clock.Now().Add(d.opts.HoldDuration)
		d.message = fmt.Sprintf(statusReservedFormat, seat.Label, int(d.opts.HoldDuration/time.Second))
		log.Info("seat locked", "deadline", d.holdDeadline)
		d.armHold()
		d.refresh()
	case errors.Is(err, apiclient.ErrConflict):
		log.Info("seat lock conflict")
		if d.selection != nil && d.selection.ID == seat.ID {
			d.selection = nil
		}
		d.phase = PhaseIdle
		d.message = StatusConflict
		d.refresh()
	default:
		log.WithError(err).Warn("seat lock failed")
		d.phase = PhaseIdle
		d.message = StatusReserveFailed
	}
	d.publish()
}

func (d *Dashboard) confirmPayment() error {
	if d.noCredential {
		return ErrNoCredential
	}
	if d.selection == nil || d.phase != PhaseHeld {
		return ErrNoSelection
	}

	seat := *d.selection
	key := d.payKey
	d.releaseHold()
	d.phase = PhasePayPending
	d.message = StatusPaying
	d.publish()

	d.async(func(ctx context.Context) func() {
		receipt, err := d.svc.Pay(ctx, seat.ID, key)
		return func() { d.payDone(seat, receipt, err) }
	})
	return nil
}

func (d *Dashboard) payDone(seat model.Seat, receipt model.PaymentReceipt, err error) {
	log := d.log.WithSeat(seat.ID, seat.Label)
	if err != nil {
		log.WithError(err).Warn("payment failed")
		d.phase = PhaseHeld
		d.message = StatusPayFailed
		if errors.Is(err, apiclient.ErrHoldExpired) {
			d.message = StatusPayHoldExpired
		}
		d.publish()
		d.armHold()
		return
	}

	log.Info("payment accepted", "status", receipt.Status)
	d.selection = nil
	d.phase = PhaseIdle
	d.payKey = ""
	d.holdDeadline = time.Time{}
	d.message = StatusPaid
	d.refresh()
	d.publish()
}

func (d *Dashboard) clearSelection() error {
	switch d.phase {
	case PhaseLockPending, PhasePayPending:
		return ErrRequestPending
	case PhaseHeld:
	default:
		return ErrNoSelection
	}
	d.releaseHold()
	d.selection = nil
	d.phase = PhaseIdle
	d.payKey = ""
	d.holdDeadline = time.Time{}
	d.message = ""
	d.publish()
	return nil
}

// armHold starts the countdown to holdDeadline.  It must only be called
// on entering HELD.
func (d *Dashboard) armHold() {
	d.releaseHold()
	remaining := d.holdDeadline.Sub(d.opts.Clock.Now())
	if remaining <= 0 {
		d.holdExpired(d.holdGen)
		return
	}
	gen := d.holdGen
	d.holdTimer = d.opts.Clock.AfterFunc(remaining, func() {
		d.post(func() { d.holdExpired(gen) })
	})
}

// releaseHold stops the countdown.  A callback already queued is
// recognised as stale by its generation.
func (d *Dashboard) releaseHold() {
	d.holdGen++
	if d.holdTimer != nil {
		d.holdTimer.Stop()
		d.holdTimer = nil
	}
}

func (d *Dashboard) holdExpired(gen uint64) {
	if gen != d.holdGen || d.phase != PhaseHeld || d.selection == nil {
		return
	}
	label := d.selection.Label
	d.log.WithSeat(d.selection.ID, label).Info("hold expired")
	d.releaseHold()
	d.selection = nil
	d.phase = PhaseIdle
	d.payKey = ""
	d.holdDeadline = time.Time{}
	d.message = fmt.Sprintf(statusHoldEndedFormat, label)
	d.refresh()
	d.publish()
}

func (d *Dashboard) snapshot() Snapshot {
	var sel *model.Seat
	if d.selection != nil {
		s := *d.selection
		sel = &s
	}
	return Snapshot{
		Seats:        model.CloneSeats(d.seats),
		Selection:    sel,
		Phase:        d.phase,
		Sync:         d.sync,
		Message:      d.message,
		User:         d.user,
		HoldDeadline: d.holdDeadline,
		Price:        d.opts.Price,
		NoCredential: d.noCredential,
		Version:      d.version,
	}
}

// publish records the current state and offers it on Updates,
// replacing a snapshot the reader has not taken yet.
func (d *Dashboard) publish() {
	d.version++
	snap := d.snapshot()

	d.lastMu.Lock()
	d.last = snap
	d.lastMu.Unlock()

	select {
	case d.updates <- snap:
		return
	default:
	}
	select {
	case <-d.updates:
	default:
	}
	d.updates <- snap
}
