package model

// ReserveRequest is the body of POST /reserve.  A successful response
// means the service granted this client a time-limited lock on the
// seat.
type ReserveRequest struct {
	SeatID int64 `json:"seat_id"`
}

// PayRequest is the body of POST /pay.  It converts the caller's lock
// on SeatID into a booking.
type PayRequest struct {
	SeatID int64 `json:"seat_id"`
}

// Payment states reported by the service.  PROCESSING means the order
// was queued for fulfilment; CONFIRMED means it was written directly.
const (
	PaymentProcessing = "PROCESSING"
	PaymentConfirmed  = "CONFIRMED"
)

// PaymentReceipt is the optional JSON body of a successful POST /pay.
// Status is empty when the service answered with a non-JSON body.
type PaymentReceipt struct {
	Status string `json:"status"`
}

// Booking is one entry of GET /my-bookings.
//
// Fields:
//
//	ID     – booking identifier.
//	Amount – total charged, in currency units.
//	Status – booking state (PENDING, CONFIRMED, ...).
type Booking struct {
	ID     int64   `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}
