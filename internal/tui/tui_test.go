package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/dashboard"
	"github.com/iliyamo/ticketctl/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeController struct {
	mu       sync.Mutex
	updates  chan dashboard.Snapshot
	snap     dashboard.Snapshot
	locked   []int64
	paid     int
	cleared  int
	refresh  int
	started  int
	stopped  int
	lockErr  error
	startErr error
}

func newFakeController(seats ...model.Seat) *fakeController {
	return &fakeController{
		updates: make(chan dashboard.Snapshot, 1),
		snap:    dashboard.Snapshot{Seats: seats, User: dashboard.DefaultUser, Price: 50},
	}
}

func (f *fakeController) Updates() <-chan dashboard.Snapshot { return f.updates }
func (f *fakeController) Snapshot() dashboard.Snapshot      { return f.snap }

func (f *fakeController) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeController) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh++
	return nil
}

func (f *fakeController) AttemptLock(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, id)
	return f.lockErr
}

func (f *fakeController) ConfirmPayment() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid++
	return nil
}

func (f *fakeController) ClearSelection() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

type fakeAuth struct {
	token     string
	loginErr  error
	signupErr error
	logins    []model.Credentials
	signups   []model.Signup
}

func (f *fakeAuth) Login(_ context.Context, creds model.Credentials) (string, error) {
	f.logins = append(f.logins, creds)
	return f.token, f.loginErr
}

func (f *fakeAuth) Signup(_ context.Context, s model.Signup) error {
	f.signups = append(f.signups, s)
	return f.signupErr
}

type fakeSession struct {
	token   string
	cleared int
}

func (f *fakeSession) Set(_ context.Context, token string) error {
	f.token = token
	return nil
}

func (f *fakeSession) Clear(context.Context) error {
	f.token = ""
	f.cleared++
	return nil
}

func testSeats() []model.Seat {
	var seats []model.Seat
	for i := 1; i <= 7; i++ {
		seats = append(seats, model.Seat{
			ID:     int64(i),
			Label:  "A" + string(rune('0'+i)),
			Status: model.SeatAvailable,
		})
	}
	seats[2].Status = model.SeatBooked
	return seats
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testBoard(ctrl *fakeController) Board {
	return newBoard(ctrl, 1, DefaultKeyMap, DefaultTheme, func() time.Time { return testNow })
}

// typeText feeds s to the focused login field one rune at a time.
func typeText(l Login, s string) Login {
	for _, r := range s {
		l, _ = l.Update(runes(string(r)))
	}
	return l
}

func TestBoardCursorNavigation(t *testing.T) {
	b := testBoard(newFakeController(testSeats()...))

	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, b.cursor)
	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 6, b.cursor)
	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 6, b.cursor, "no row below")
	b, _ = b.Update(runes("k"))
	assert.Equal(t, 1, b.cursor)
	b, _ = b.Update(runes("h"))
	b, _ = b.Update(runes("h"))
	assert.Equal(t, 0, b.cursor)
}

func TestBoardLockSendsSeatUnderCursor(t *testing.T) {
	ctrl := newFakeController(testSeats()...)
	b := testBoard(ctrl)

	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyRight})
	b, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, []int64{2}, ctrl.locked)
	b, _ = b.Update(msg)
	assert.Empty(t, b.notice)
}

func TestBoardLockRejectionShowsNotice(t *testing.T) {
	ctrl := newFakeController(testSeats()...)
	ctrl.lockErr = dashboard.ErrSeatUnavailable
	b := testBoard(ctrl)

	b.cursor = 2
	b, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	b, _ = b.Update(cmd())

	assert.Equal(t, "Seat A3 is not available.", b.notice)
	assert.Contains(t, b.View(), "Seat A3 is not available.")

	b, _ = b.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Empty(t, b.notice, "any key dismisses the notice")
}

func TestBoardPayClearRefreshKeys(t *testing.T) {
	ctrl := newFakeController(testSeats()...)
	b := testBoard(ctrl)

	for _, k := range []tea.KeyMsg{runes("p"), {Type: tea.KeyEscape}, runes("r")} {
		var cmd tea.Cmd
		b, cmd = b.Update(k)
		require.NotNil(t, cmd)
		b, _ = b.Update(cmd())
	}
	assert.Equal(t, 1, ctrl.paid)
	assert.Equal(t, 1, ctrl.cleared)
	assert.Equal(t, 1, ctrl.refresh)
	assert.Empty(t, b.notice, "paying without a selection is silent")
}

func TestBoardRendersSnapshot(t *testing.T) {
	ctrl := newFakeController()
	b := testBoard(ctrl)
	assert.Contains(t, b.View(), "Welcome, Guest")
	assert.Contains(t, b.View(), dashboard.StatusLoading)
	assert.Contains(t, b.View(), "No seats loaded.")

	seats := testSeats()
	sel := seats[1]
	snap := dashboard.Snapshot{
		Seats:        seats,
		Selection:    &sel,
		Phase:        dashboard.PhaseHeld,
		Sync:         dashboard.SyncLive,
		Message:      "Seat A2 Reserved! 120s to pay.",
		User:         "alice@example.com",
		HoldDeadline: testNow.Add(90 * time.Second),
		Price:        50,
	}
	b, cmd := b.Update(snapshotMsg{board: 1, snap: snap})
	assert.NotNil(t, cmd, "listening continues after a snapshot")

	view := b.View()
	assert.Contains(t, view, "Welcome, alice@example.com")
	assert.Contains(t, view, "Seat A2 Reserved! 120s to pay.")
	assert.Contains(t, view, "$50.00")
	assert.Contains(t, view, "Time left: 90s")
	assert.Contains(t, view, "A7")
}

func TestBoardIgnoresMessagesFromOtherBoards(t *testing.T) {
	b := testBoard(newFakeController())
	b, cmd := b.Update(snapshotMsg{board: 2, snap: dashboard.Snapshot{User: "other"}})
	assert.Nil(t, cmd)
	assert.Equal(t, dashboard.DefaultUser, b.snap.User)

	_, cmd = b.Update(countdownMsg{board: 2})
	assert.Nil(t, cmd)
	_, cmd = b.Update(countdownMsg{board: 1})
	assert.NotNil(t, cmd)
}

func TestBoardCursorClampedWhenGridShrinks(t *testing.T) {
	b := testBoard(newFakeController(testSeats()...))
	b.cursor = 6
	b, _ = b.Update(snapshotMsg{board: 1, snap: dashboard.Snapshot{Seats: testSeats()[:3]}})
	assert.Equal(t, 2, b.cursor)
}

func TestListenForUpdates(t *testing.T) {
	ch := make(chan dashboard.Snapshot, 1)
	ch <- dashboard.Snapshot{Version: 3}
	msg := listenForUpdates(4, ch)()
	assert.Equal(t, snapshotMsg{board: 4, snap: dashboard.Snapshot{Version: 3}}, msg)

	close(ch)
	assert.Nil(t, listenForUpdates(4, ch)())
}

func TestNoticeFor(t *testing.T) {
	assert.Empty(t, noticeFor(nil, ""))
	assert.Empty(t, noticeFor(dashboard.ErrNoSelection, ""))
	assert.Equal(t, "Pay for or clear the held seat first.", noticeFor(dashboard.ErrSelectionActive, "A1"))
	assert.Equal(t, dashboard.StatusNoToken, noticeFor(dashboard.ErrNoCredential, ""))
	assert.Equal(t, "boom", noticeFor(errors.New("boom"), ""))
}

func newTestApp(loggedIn bool, auth *fakeAuth, sess *fakeSession, ctrls *[]*fakeController) App {
	return NewApp(Options{
		Auth:    auth,
		Session: sess,
		NewController: func() Controller {
			c := newFakeController(testSeats()...)
			*ctrls = append(*ctrls, c)
			return c
		},
		LoggedIn: loggedIn,
		Now:      func() time.Time { return testNow },
	})
}

func TestAppLoginOpensDashboard(t *testing.T) {
	auth := &fakeAuth{token: "tok-1"}
	sess := &fakeSession{}
	var ctrls []*fakeController
	app := newTestApp(false, auth, sess, &ctrls)
	assert.Equal(t, screenLogin, app.screen)
	assert.Contains(t, app.View(), "Login")

	app.login = typeText(app.login, "alice@example.com")
	app.login, _ = app.login.Update(tea.KeyMsg{Type: tea.KeyDown})
	app.login = typeText(app.login, "secret")

	updated, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = updated.(App)
	require.NotNil(t, cmd)
	updated, initCmd := app.Update(cmd())
	app = updated.(App)

	require.Len(t, auth.logins, 1)
	assert.Equal(t, model.Credentials{Email: "alice@example.com", Password: "secret"}, auth.logins[0])
	assert.Equal(t, "tok-1", sess.token)
	assert.Equal(t, screenDashboard, app.screen)
	assert.NotNil(t, initCmd)
	require.Len(t, ctrls, 1)
	assert.Contains(t, app.View(), "Welcome, Guest")
}

func TestAppLoginFailureStaysOnForm(t *testing.T) {
	auth := &fakeAuth{loginErr: &apiclient.APIError{Op: "login", StatusCode: 401, Message: "Invalid Credentials"}}
	sess := &fakeSession{}
	var ctrls []*fakeController
	app := newTestApp(false, auth, sess, &ctrls)

	app.login = typeText(app.login, "alice@example.com")
	app.login, _ = app.login.Update(tea.KeyMsg{Type: tea.KeyDown})
	app.login = typeText(app.login, "wrong")

	updated, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = updated.(App)
	updated, _ = app.Update(cmd())
	app = updated.(App)

	assert.Equal(t, screenLogin, app.screen)
	assert.Empty(t, ctrls)
	assert.Empty(t, sess.token)
	assert.Contains(t, app.View(), "Error: Invalid Credentials")
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	auth := &fakeAuth{}
	l := newLogin(auth, &fakeSession{}, DefaultKeyMap, DefaultTheme, time.Second)
	l, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, l.failed)
	assert.Empty(t, auth.logins)
}

func TestSignupReturnsToLogin(t *testing.T) {
	auth := &fakeAuth{}
	l := newLogin(auth, &fakeSession{}, DefaultKeyMap, DefaultTheme, time.Second)

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, modeSignup, l.mode)
	assert.Contains(t, l.View(), "Sign Up")

	l = typeText(l, "bob")
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l = typeText(l, "bob@example.com")
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l = typeText(l, "pw")

	l, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, l.busy)
	l, _ = l.Update(cmd())

	require.Len(t, auth.signups, 1)
	assert.Equal(t, model.Signup{Username: "bob", Email: "bob@example.com", Password: "pw"}, auth.signups[0])
	assert.Equal(t, modeLogin, l.mode)
	assert.Equal(t, MessageAccountCreated, l.message)
	assert.Equal(t, "bob@example.com", l.inputs[fieldEmail].Value())
	assert.Empty(t, l.inputs[fieldPassword].Value())
}

func TestAppLogoutStopsDashboardAndClearsSession(t *testing.T) {
	sess := &fakeSession{token: "tok"}
	var ctrls []*fakeController
	app := newTestApp(true, &fakeAuth{}, sess, &ctrls)
	require.Len(t, ctrls, 1)
	assert.Equal(t, screenDashboard, app.screen)

	updated, cmd := app.Update(runes("L"))
	app = updated.(App)
	require.NotNil(t, cmd)
	assert.Equal(t, 1, ctrls[0].stopped)
	assert.Equal(t, screenLogin, app.screen)

	updated, _ = app.Update(cmd())
	app = updated.(App)
	assert.Equal(t, 1, sess.cleared)
	assert.Contains(t, app.View(), MessageLoggedOut)

	// leftovers of the torn-down board are ignored
	_, _ = app.Update(snapshotMsg{board: 1, snap: dashboard.Snapshot{User: "stale"}})
	assert.NotContains(t, app.View(), "stale")
}

func TestAppQuitStopsDashboard(t *testing.T) {
	var ctrls []*fakeController
	app := newTestApp(true, &fakeAuth{}, &fakeSession{}, &ctrls)

	updated, cmd := app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, ctrls[0].stopped)

	updated.(App).Close()
	assert.Equal(t, 1, ctrls[0].stopped, "stop happens once")
}

func TestAppQuitKeyIsTextOnLoginForm(t *testing.T) {
	var ctrls []*fakeController
	app := newTestApp(false, &fakeAuth{}, &fakeSession{}, &ctrls)

	updated, _ := app.Update(runes("q"))
	app = updated.(App)
	assert.Equal(t, "q", app.login.inputs[fieldEmail].Value())

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
