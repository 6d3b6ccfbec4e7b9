package stubserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ticketctl/internal/clock"
	"github.com/iliyamo/ticketctl/internal/model"
)

// Errors returned by Store.  Handlers translate them into HTTP statuses.
var (
	// ErrSeatNotFound maps to 404 "Invalid Seat".
	ErrSeatNotFound = errors.New("seat not found")
	// ErrSeatTaken maps to 409: another user holds or bought the seat.
	ErrSeatTaken = errors.New("seat taken")
	// ErrHoldExpired maps to 403 "Expired": the caller has no live hold.
	ErrHoldExpired = errors.New("hold expired")
	// ErrEmailExists maps to 409 on signup.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials maps to 401 on login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// hold is a time-limited claim on one seat.
type hold struct {
	Owner     string    // e-mail of the user who reserved the seat
	ExpiresAt time.Time // after this instant the seat is free again
}

// user mirrors what the service keeps per account.
type user struct {
	Username     string
	Email        string
	PasswordHash []byte
}

// cachedResponse is a payment answer kept for idempotent replays.
type cachedResponse struct {
	Status int
	Body   model.PaymentReceipt
}

// Store is the in-memory state of the stub service.  All methods are
// safe for concurrent use; reserve is atomic in the way SET NX EX is.
type Store struct {
	clock      clock.Clock
	holdTTL    time.Duration
	price      float64
	bcryptCost int

	mu          sync.Mutex
	seats       []model.Seat
	index       map[int64]int
	holds       map[int64]hold
	users       map[string]user
	bookings    map[string][]model.Booking
	nextBooking int64
	idempotency map[string]cachedResponse
}

// NewStore seeds a store with seats.
func NewStore(c clock.Clock, holdTTL time.Duration, price float64, bcryptCost int, seats []model.Seat) *Store {
	s := &Store{
		clock:       c,
		holdTTL:     holdTTL,
		price:       price,
		bcryptCost:  bcryptCost,
		seats:       model.CloneSeats(seats),
		index:       make(map[int64]int, len(seats)),
		holds:       make(map[int64]hold),
		users:       make(map[string]user),
		bookings:    make(map[string][]model.Booking),
		idempotency: make(map[string]cachedResponse),
	}
	for i, seat := range s.seats {
		s.index[seat.ID] = i
	}
	return s
}

// DefaultSeats builds a rows x cols grid labelled A1, A2, ... with ids
// starting at 1.
func DefaultSeats(rows, cols int) []model.Seat {
	seats := make([]model.Seat, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			seats = append(seats, model.Seat{
				ID:     int64(r*cols + c),
				Label:  fmt.Sprintf("%c%d", 'A'+r, c),
				Status: model.SeatAvailable,
			})
		}
	}
	return seats
}

// Seats returns the current grid.  Held seats are reported AVAILABLE,
// as the real service does.
func (s *Store) Seats() []model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSeats(s.seats)
}

// Reserve places a hold on seatID for owner.
func (s *Store) Reserve(owner string, seatID int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[seatID]
	if !ok {
		return time.Time{}, ErrSeatNotFound
	}
	if s.seats[i].IsBooked() {
		return time.Time{}, ErrSeatTaken
	}
	now := s.clock.Now()
	if h, held := s.holds[seatID]; held && now.Before(h.ExpiresAt) {
		return time.Time{}, ErrSeatTaken
	}
	expiresAt := now.Add(s.holdTTL)
	s.holds[seatID] = hold{Owner: owner, ExpiresAt: expiresAt}
	return expiresAt, nil
}

// Pay converts owner's live hold on seatID into a booking.
func (s *Store) Pay(owner string, seatID int64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, held := s.holds[seatID]
	if !held || h.Owner != owner || !s.clock.Now().Before(h.ExpiresAt) {
		return model.Booking{}, ErrHoldExpired
	}
	i, ok := s.index[seatID]
	if !ok {
		return model.Booking{}, ErrSeatNotFound
	}
	delete(s.holds, seatID)
	s.seats[i].Status = model.SeatBooked

	s.nextBooking++
	b := model.Booking{ID: s.nextBooking, Amount: s.price, Status: model.PaymentConfirmed}
	s.bookings[owner] = append(s.bookings[owner], b)
	return b, nil
}

// Book marks a seat sold without a hold, as if another channel sold it.
func (s *Store) Book(seatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[seatID]
	if !ok {
		return ErrSeatNotFound
	}
	s.seats[i].Status = model.SeatBooked
	delete(s.holds, seatID)
	return nil
}

// Bookings lists owner's bookings, newest first.
func (s *Store) Bookings(owner string) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.bookings[owner]
	out := make([]model.Booking, len(list))
	for i := range list {
		out[len(list)-1-i] = list[i]
	}
	return out
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Store) CreateUser(username, email, password string) error {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return ErrEmailExists
	}
	s.users[email] = user{Username: username, Email: email, PasswordHash: hash}
	return nil
}

// Authenticate checks credentials and returns the normalized e-mail.
func (s *Store) Authenticate(email, password string) (string, error) {
	email = normalizeEmail(email)
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return u.Email, nil
}

// replay returns the cached answer for an idempotency key.
func (s *Store) replay(key string) (cachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.idempotency[key]
	return r, ok
}

// remember caches a payment answer under key.
func (s *Store) remember(key string, r cachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotency[key] = r
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
