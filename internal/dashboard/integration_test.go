package dashboard_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/clock"
	"github.com/iliyamo/ticketctl/internal/dashboard"
	"github.com/iliyamo/ticketctl/internal/model"
	"github.com/iliyamo/ticketctl/internal/session"
	"github.com/iliyamo/ticketctl/internal/stubserver"
)

const waitFor = 3 * time.Second

// client logs email in against baseURL and returns a mounted dashboard.
func client(t *testing.T, srv *stubserver.Server, baseURL, email string) *dashboard.Dashboard {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, srv.AddUser("", email, "secret"))

	sess := session.New(session.NewFileStore(t.TempDir() + "/session"))
	require.NoError(t, sess.Load(ctx))
	token, err := apiclient.New(baseURL).Login(ctx, model.Credentials{Email: email, Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, sess.Set(ctx, token))

	api := apiclient.New(baseURL, apiclient.WithTokenSource(sess))
	d := dashboard.New(api, sess, dashboard.Options{Clock: clock.Fake(time.Now())})
	t.Cleanup(d.Stop)
	require.NoError(t, d.Start())
	require.Eventually(t, func() bool {
		s := d.Snapshot()
		return s.Sync == dashboard.SyncLive && s.User == email
	}, waitFor, 10*time.Millisecond)
	return d
}

func TestTwoClientsRaceForOneSeat(t *testing.T) {
	srv := stubserver.New(stubserver.Options{Seats: stubserver.DefaultSeats(1, 5)})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	baseURL := ts.URL + "/api"

	ann := client(t, srv, baseURL, "ann@example.com")
	bob := client(t, srv, baseURL, "bob@example.com")

	var wg sync.WaitGroup
	for _, d := range []*dashboard.Dashboard{ann, bob} {
		wg.Add(1)
		go func(d *dashboard.Dashboard) {
			defer wg.Done()
			assert.NoError(t, d.AttemptLock(3))
		}(d)
	}
	wg.Wait()

	settled := func(s dashboard.Snapshot) bool {
		return s.Phase == dashboard.PhaseHeld || s.Message == dashboard.StatusConflict
	}
	require.Eventually(t, func() bool { return settled(ann.Snapshot()) && settled(bob.Snapshot()) }, waitFor, 10*time.Millisecond)

	winner, loser := ann, bob
	if bob.Snapshot().Phase == dashboard.PhaseHeld {
		winner, loser = bob, ann
	}
	require.Equal(t, dashboard.PhaseHeld, winner.Snapshot().Phase)
	assert.Equal(t, int64(3), winner.Snapshot().Selection.ID)

	ls := loser.Snapshot()
	assert.Equal(t, dashboard.PhaseIdle, ls.Phase)
	assert.Nil(t, ls.Selection)
	assert.Equal(t, dashboard.StatusConflict, ls.StatusLine())

	// the winner pays; the loser's next refresh shows the seat sold
	require.NoError(t, winner.ConfirmPayment())
	require.Eventually(t, func() bool { return winner.Snapshot().Message == dashboard.StatusPaid }, waitFor, 10*time.Millisecond)
	require.NoError(t, loser.Refresh())
	require.Eventually(t, func() bool {
		seats := loser.Snapshot().Seats
		return len(seats) == 5 && seats[2].Status == model.SeatBooked
	}, waitFor, 10*time.Millisecond)
	assert.ErrorIs(t, loser.AttemptLock(3), dashboard.ErrSeatUnavailable)
}

func TestPaymentScenarioEndToEnd(t *testing.T) {
	srv := stubserver.New(stubserver.Options{})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	d := client(t, srv, ts.URL+"/api", "ann@example.com")
	require.NoError(t, d.AttemptLock(5))
	require.Eventually(t, func() bool { return d.Snapshot().Phase == dashboard.PhaseHeld }, waitFor, 10*time.Millisecond)
	assert.Equal(t, "Seat A5 Reserved! 120s to pay.", d.Snapshot().StatusLine())

	require.NoError(t, d.ConfirmPayment())
	require.Eventually(t, func() bool {
		s := d.Snapshot()
		return s.Phase == dashboard.PhaseIdle && len(s.Seats) > 4 && s.Seats[4].IsBooked()
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, dashboard.StatusPaid, d.Snapshot().StatusLine())
	assert.Nil(t, d.Snapshot().Selection)
	assert.Equal(t, int64(1), srv.PaymentAttempts())
}

func TestSeatSoldElsewhereShowsBooked(t *testing.T) {
	srv := stubserver.New(stubserver.Options{Seats: stubserver.DefaultSeats(1, 5)})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	d := client(t, srv, ts.URL+"/api", "ann@example.com")
	require.True(t, d.Snapshot().Seats[1].IsAvailable())

	require.NoError(t, srv.Store().Book(2))
	require.NoError(t, d.Refresh())
	require.Eventually(t, func() bool {
		seats := d.Snapshot().Seats
		return len(seats) == 5 && seats[1].IsBooked()
	}, waitFor, 10*time.Millisecond)

	snap := d.Snapshot()
	assert.Equal(t, dashboard.PhaseIdle, snap.Phase)
	assert.Equal(t, dashboard.StatusLive, snap.StatusLine(), "no conflict surfaced")
	assert.False(t, snap.Appearance(snap.Seats[1]).Enabled)
	assert.ErrorIs(t, d.AttemptLock(2), dashboard.ErrSeatUnavailable)
	assert.ErrorIs(t, srv.Store().Book(99), stubserver.ErrSeatNotFound)
}
