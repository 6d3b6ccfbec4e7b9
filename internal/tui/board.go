package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/ticketctl/internal/dashboard"
	"github.com/iliyamo/ticketctl/internal/model"
)

// gridColumns is the number of seats per row.
const gridColumns = 5

const countdownInterval = time.Second

// Controller drives one dashboard view.  *dashboard.Dashboard
// satisfies it.
type Controller interface {
	Updates() <-chan dashboard.Snapshot
	Snapshot() dashboard.Snapshot
	Start() error
	Stop()
	Refresh() error
	AttemptLock(seatID int64) error
	ConfirmPayment() error
	ClearSelection() error
}

// Messages of the dashboard screen carry the id of the board that
// produced them so that leftovers from a board torn down by logout are
// ignored by its successor.
type (
	snapshotMsg struct {
		board int
		snap  dashboard.Snapshot
	}
	countdownMsg struct{ board int }
	startedMsg   struct {
		board int
		err   error
	}
	actionMsg struct {
		board int
		seat  string
		err   error
	}
)

// Board is the live seat dashboard.
type Board struct {
	ctrl  Controller
	keys  KeyMap
	theme Theme
	now   func() time.Time
	id    int

	snap    dashboard.Snapshot
	cursor  int
	notice  string
	stopped bool
}

func newBoard(ctrl Controller, id int, keys KeyMap, theme Theme, now func() time.Time) Board {
	return Board{
		ctrl:  ctrl,
		keys:  keys,
		theme: theme,
		now:   now,
		id:    id,
		snap:  ctrl.Snapshot(),
	}
}

// Init mounts the controller and starts listening for snapshots.
func (b Board) Init() tea.Cmd {
	ctrl, id := b.ctrl, b.id
	start := func() tea.Msg {
		return startedMsg{board: id, err: ctrl.Start()}
	}
	return tea.Batch(start, listenForUpdates(id, ctrl.Updates()), scheduleCountdown(id))
}

// listenForUpdates returns a tea.Cmd that blocks until the controller
// publishes a snapshot.  It yields nil once the channel is closed.
func listenForUpdates(board int, updates <-chan dashboard.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg{board: board, snap: snap}
	}
}

func scheduleCountdown(board int) tea.Cmd {
	return tea.Tick(countdownInterval, func(time.Time) tea.Msg {
		return countdownMsg{board: board}
	})
}

// Stop tears the controller down.
func (b *Board) Stop() {
	if b.stopped {
		return
	}
	b.stopped = true
	b.ctrl.Stop()
}

// Update handles one message for the dashboard screen.
func (b Board) Update(msg tea.Msg) (Board, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.board != b.id {
			return b, nil
		}
		b.snap = msg.snap
		b.clampCursor()
		return b, listenForUpdates(b.id, b.ctrl.Updates())

	case countdownMsg:
		if msg.board != b.id || b.stopped {
			return b, nil
		}
		return b, scheduleCountdown(b.id)

	case startedMsg:
		if msg.board != b.id {
			return b, nil
		}
		if msg.err != nil && !errors.Is(msg.err, dashboard.ErrNoCredential) {
			b.notice = msg.err.Error()
		}
		return b, nil

	case actionMsg:
		if msg.board != b.id {
			return b, nil
		}
		b.notice = noticeFor(msg.err, msg.seat)
		return b, nil

	case tea.KeyMsg:
		b.notice = ""
		return b.handleKeys(msg)
	}
	return b, nil
}

func (b Board) handleKeys(msg tea.KeyMsg) (Board, tea.Cmd) {
	n := len(b.snap.Seats)
	switch {
	case key.Matches(msg, b.keys.Up):
		if b.cursor-gridColumns >= 0 {
			b.cursor -= gridColumns
		}
	case key.Matches(msg, b.keys.Down):
		if b.cursor+gridColumns < n {
			b.cursor += gridColumns
		}
	case key.Matches(msg, b.keys.Left):
		if b.cursor > 0 {
			b.cursor--
		}
	case key.Matches(msg, b.keys.Right):
		if b.cursor+1 < n {
			b.cursor++
		}
	case key.Matches(msg, b.keys.Lock):
		seat, ok := b.cursorSeat()
		if !ok {
			return b, nil
		}
		return b, b.action(seat.Label, func(c Controller) error { return c.AttemptLock(seat.ID) })
	case key.Matches(msg, b.keys.Pay):
		return b, b.action("", Controller.ConfirmPayment)
	case key.Matches(msg, b.keys.Clear):
		return b, b.action("", Controller.ClearSelection)
	case key.Matches(msg, b.keys.Refresh):
		return b, b.action("", Controller.Refresh)
	}
	return b, nil
}

// action runs fn against the controller off the update goroutine.
func (b Board) action(seat string, fn func(Controller) error) tea.Cmd {
	ctrl, id := b.ctrl, b.id
	return func() tea.Msg {
		return actionMsg{board: id, seat: seat, err: fn(ctrl)}
	}
}

func (b Board) cursorSeat() (model.Seat, bool) {
	if b.cursor < 0 || b.cursor >= len(b.snap.Seats) {
		return model.Seat{}, false
	}
	return b.snap.Seats[b.cursor], true
}

func (b *Board) clampCursor() {
	if b.cursor >= len(b.snap.Seats) {
		b.cursor = len(b.snap.Seats) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

// noticeFor turns a rejected action into a one-line hint.  Outcomes
// of accepted actions arrive through the snapshot status instead.
func noticeFor(err error, seat string) string {
	switch {
	case err == nil,
		errors.Is(err, dashboard.ErrNoSelection),
		errors.Is(err, dashboard.ErrClosed),
		errors.Is(err, dashboard.ErrNotStarted):
		return ""
	case errors.Is(err, dashboard.ErrSeatUnavailable):
		return fmt.Sprintf("Seat %s is not available.", seat)
	case errors.Is(err, dashboard.ErrSelectionActive):
		return "Pay for or clear the held seat first."
	case errors.Is(err, dashboard.ErrRequestPending):
		return "Request in progress..."
	case errors.Is(err, dashboard.ErrNoCredential):
		return dashboard.StatusNoToken
	default:
		return err.Error()
	}
}

// View renders the header, status line, grid and payment panel.
func (b Board) View() string {
	snap := b.snap
	sections := []string{
		lipgloss.NewStyle().Bold(true).Foreground(b.theme.Header).Render("ticketctl · Welcome, " + snap.User),
		lipgloss.NewStyle().Foreground(b.statusColor()).Render(snap.StatusLine()),
		"",
		b.renderGrid(),
		"",
		b.renderLegend(),
	}
	if panel := b.renderSelection(); panel != "" {
		sections = append(sections, "", panel)
	}
	if b.notice != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(b.theme.Error).Render(b.notice))
	}
	sections = append(sections, "", lipgloss.NewStyle().Foreground(b.theme.Faint).Render(
		helpLine(b.keys.Lock, b.keys.Pay, b.keys.Clear, b.keys.Refresh, b.keys.Logout, b.keys.Quit)))
	return strings.Join(sections, "\n")
}

func (b Board) statusColor() lipgloss.Color {
	switch b.snap.Message {
	case dashboard.StatusConflict, dashboard.StatusReserveFailed, dashboard.StatusPayFailed,
		dashboard.StatusPayHoldExpired, dashboard.StatusNoToken, dashboard.StatusProfileFailed:
		return b.theme.Error
	}
	return b.theme.Status
}

func (b Board) renderGrid() string {
	if len(b.snap.Seats) == 0 {
		return lipgloss.NewStyle().Foreground(b.theme.Faint).Render("No seats loaded.")
	}
	var rows []string
	var row []string
	for i, seat := range b.snap.Seats {
		row = append(row, b.renderSeat(seat, i == b.cursor))
		if len(row) == gridColumns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (b Board) renderSeat(seat model.Seat, cursor bool) string {
	look := b.snap.Appearance(seat)
	label := " " + seat.Label + " "
	if cursor {
		label = "[" + seat.Label + "]"
	}
	style := lipgloss.NewStyle().
		Width(6).
		Align(lipgloss.Center).
		MarginRight(1).
		Foreground(b.theme.SeatText).
		Background(lipgloss.Color(look.Color))
	if cursor {
		style = style.Bold(true).Underline(true)
	}
	if !look.Enabled && !look.Held {
		style = style.Strikethrough(true)
	}
	return style.Render(label)
}

func (b Board) renderLegend() string {
	swatch := func(c lipgloss.Color, name string) string {
		return lipgloss.NewStyle().Foreground(c).Render("■") + " " + name
	}
	return strings.Join([]string{
		swatch(b.theme.Available, "available"),
		swatch(b.theme.Held, "held"),
		swatch(b.theme.Booked, "booked"),
	}, "   ")
}

// renderSelection is the payment panel, shown while a seat is held.
func (b Board) renderSelection() string {
	sel := b.snap.Selection
	if sel == nil {
		return ""
	}
	remaining := b.snap.HoldRemaining(b.now())
	secs := int((remaining + time.Second - 1) / time.Second)
	body := fmt.Sprintf("Seat %s   Price: $%.2f   Time left: %ds", sel.Label, b.snap.Price, secs)
	if b.snap.Phase == dashboard.PhasePayPending {
		body += "   (paying...)"
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(b.theme.Held).
		Padding(0, 1).
		Render(body)
}
