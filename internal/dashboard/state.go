package dashboard

import (
	"fmt"
	"time"

	"github.com/iliyamo/ticketctl/internal/model"
)

// Phase is the reservation lifecycle state.
//
//	IDLE -> LOCK_PENDING -> HELD -> PAY_PENDING -> IDLE  (payment accepted)
//	                     \-> IDLE (lock refused)  \-> HELD (payment failed)
//	HELD -> IDLE on hold expiry or explicit clear
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLockPending
	PhaseHeld
	PhasePayPending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseLockPending:
		return "LOCK_PENDING"
	case PhaseHeld:
		return "HELD"
	case PhasePayPending:
		return "PAY_PENDING"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// SyncState tracks the synchronizer independently of the lifecycle.
type SyncState int

const (
	SyncLoading SyncState = iota // no poll has succeeded yet
	SyncLive                     // at least one poll succeeded
)

// Status texts shown to the user.
const (
	StatusLoading         = "Loading..."
	StatusLive            = "Live Updates Active"
	StatusNoToken         = "No Token Found. Please Login again."
	StatusProfileFailed   = "Failed to load profile. (Is the backend running?)"
	StatusConflict        = "Seat was just taken by someone else!"
	StatusReserveFailed   = "Reservation failed"
	StatusPaying          = "Sending to payment queue..."
	StatusPaid            = "Payment processing! Ticket generating..."
	StatusPayFailed       = "Payment failed"
	StatusPayHoldExpired  = "Payment failed: hold expired"
	statusLockingFormat   = "Locking seat %s..."
	statusReservedFormat  = "Seat %s Reserved! %ds to pay."
	statusHoldEndedFormat = "Hold on seat %s expired."
)

// DefaultUser is shown until the profile has loaded.
const DefaultUser = "Guest"

// Snapshot is an immutable copy of the dashboard state, published after
// every change.
type Snapshot struct {
	Seats        []model.Seat // as last returned by the service, in service order
	Selection    *model.Seat  // seat captured when the lock succeeded; nil when none
	Phase        Phase
	Sync         SyncState
	Message      string    // most recent lifecycle message; empty when none
	User         string    // DefaultUser until the profile loads
	HoldDeadline time.Time // zero unless a hold is running
	Price        float64   // price of one seat
	NoCredential bool      // the session held no token at Start
	Version      uint64    // incremented on every change
}

// StatusLine is the single status text to display: the lifecycle
// message when one is set, otherwise the synchronizer indicator.
func (s Snapshot) StatusLine() string {
	if s.Message != "" {
		return s.Message
	}
	if s.Sync == SyncLive {
		return StatusLive
	}
	return StatusLoading
}

// HoldRemaining returns the time left on the hold at now, clamped to 0.
func (s Snapshot) HoldRemaining(now time.Time) time.Duration {
	if s.HoldDeadline.IsZero() {
		return 0
	}
	if d := s.HoldDeadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Seat colors.
const (
	ColorBooked    = "#FF6347"
	ColorHeld      = "#FFA500"
	ColorAvailable = "#90EE90"
)

// Appearance describes how one seat control is rendered.
type Appearance struct {
	Color   string
	Enabled bool // clicking the control may issue a reserve request
	Held    bool // the seat is this client's selection
}

// SeatAppearance derives the rendering of seat from its status and the
// current selection.  A booked seat is always disabled, even if it is
// the selection.
func SeatAppearance(seat model.Seat, selection *model.Seat) Appearance {
	switch {
	case seat.IsBooked():
		return Appearance{Color: ColorBooked}
	case selection != nil && selection.ID == seat.ID:
		return Appearance{Color: ColorHeld, Held: true}
	default:
		return Appearance{Color: ColorAvailable, Enabled: seat.IsAvailable()}
	}
}

// Appearance is SeatAppearance against the snapshot's selection.
func (s Snapshot) Appearance(seat model.Seat) Appearance {
	return SeatAppearance(seat, s.Selection)
}

func seatsEqual(a, b []model.Seat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
