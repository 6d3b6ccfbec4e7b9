package model

// SeatStatus is the availability state the ticketing service asserts
// for a seat.  The service only distinguishes seats that can still be
// claimed from seats that have been sold; a seat held by another user
// is reported as AVAILABLE until it is booked.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // seat can be locked
	SeatBooked    SeatStatus = "BOOKED"    // seat has been paid for
)

// Seat describes one seat of the grid as returned by GET /seats.
// Seats are identified by ID, which stays stable across polls; only
// Status changes between two fetches of the same seat.
//
// Fields:
//
//	ID     – opaque identifier assigned by the service.
//	Label  – display string such as "A1".
//	Status – AVAILABLE or BOOKED.
type Seat struct {
	ID     int64      `json:"id"`
	Label  string     `json:"label"`
	Status SeatStatus `json:"status"`
}

// IsAvailable reports whether the seat can be locked.
func (s Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

// IsBooked reports whether the seat has been sold.
func (s Seat) IsBooked() bool {
	return s.Status == SeatBooked
}

// CloneSeats returns a copy of seats so that callers holding the
// result cannot observe later replacements of the collection.
func CloneSeats(seats []Seat) []Seat {
	if seats == nil {
		return nil
	}
	out := make([]Seat, len(seats))
	copy(out, seats)
	return out
}
