package stubserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketctl/internal/clock"
	"github.com/iliyamo/ticketctl/internal/model"
)

var epoch = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestStore() (*Store, *clock.FakeClock) {
	c := clock.Fake(epoch)
	return NewStore(c, 120*time.Second, 50, 4, DefaultSeats(2, 3)), c
}

func TestDefaultSeats(t *testing.T) {
	seats := DefaultSeats(2, 3)
	require.Len(t, seats, 6)
	assert.Equal(t, model.Seat{ID: 1, Label: "A1", Status: model.SeatAvailable}, seats[0])
	assert.Equal(t, model.Seat{ID: 6, Label: "B3", Status: model.SeatAvailable}, seats[5])
}

func TestReserveConflictsUntilExpiry(t *testing.T) {
	s, c := newTestStore()

	expires, err := s.Reserve("ann@example.com", 2)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(120*time.Second), expires)

	_, err = s.Reserve("bob@example.com", 2)
	assert.ErrorIs(t, err, ErrSeatTaken)
	_, err = s.Reserve("ann@example.com", 2)
	assert.ErrorIs(t, err, ErrSeatTaken, "a second lock by the holder is also rejected")

	c.Advance(120 * time.Second)
	_, err = s.Reserve("bob@example.com", 2)
	assert.NoError(t, err, "lapsed hold frees the seat")
}

func TestReserveUnknownSeat(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Reserve("ann@example.com", 99)
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestPayBooksSeat(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Reserve("ann@example.com", 3)
	require.NoError(t, err)

	_, err = s.Pay("bob@example.com", 3)
	assert.ErrorIs(t, err, ErrHoldExpired, "only the holder may pay")

	b, err := s.Pay("ann@example.com", 3)
	require.NoError(t, err)
	assert.Equal(t, model.Booking{ID: 1, Amount: 50, Status: model.PaymentConfirmed}, b)
	assert.Equal(t, model.SeatBooked, s.Seats()[2].Status)

	_, err = s.Reserve("bob@example.com", 3)
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.Equal(t, []model.Booking{b}, s.Bookings("ann@example.com"))
	assert.Empty(t, s.Bookings("bob@example.com"))
}

func TestPayAfterExpiry(t *testing.T) {
	s, c := newTestStore()
	_, err := s.Reserve("ann@example.com", 1)
	require.NoError(t, err)
	c.Advance(121 * time.Second)

	_, err = s.Pay("ann@example.com", 1)
	assert.ErrorIs(t, err, ErrHoldExpired)
	assert.Equal(t, model.SeatAvailable, s.Seats()[0].Status)
}

func TestBookingsNewestFirst(t *testing.T) {
	s, _ := newTestStore()
	for _, id := range []int64{1, 2} {
		_, err := s.Reserve("ann@example.com", id)
		require.NoError(t, err)
		_, err = s.Pay("ann@example.com", id)
		require.NoError(t, err)
	}
	got := s.Bookings("ann@example.com")
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestUsers(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.CreateUser("Ann", " Ann@Example.com ", "pw"))
	assert.ErrorIs(t, s.CreateUser("Ann", "ann@example.com", "other"), ErrEmailExists)

	email, err := s.Authenticate("ANN@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", email)

	_, err = s.Authenticate("ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSeatsIsACopy(t *testing.T) {
	s, _ := newTestStore()
	seats := s.Seats()
	seats[0].Status = model.SeatBooked
	assert.Equal(t, model.SeatAvailable, s.Seats()[0].Status)
}
