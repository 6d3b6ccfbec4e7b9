// Package tui is the terminal front end of ticketctl: a login/signup
// form and the live seat dashboard, built on bubbletea.
//
// The App switches between the two screens.  Logging in stores the
// token in the session and mounts a fresh dashboard controller; logging
// out stops the controller, clears the session and returns to the form.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliyamo/ticketctl/internal/logger"
)

type screen int

const (
	screenLogin screen = iota
	screenDashboard
)

type loggedOutMsg struct{ err error }

// Options configures an App.
type Options struct {
	Auth          Authenticator
	Session       SessionWriter
	NewController func() Controller // builds the controller of each dashboard view
	LoggedIn      bool              // open the dashboard instead of the form

	Keys           KeyMap           // DefaultKeyMap when empty
	Theme          Theme            // DefaultTheme when zero
	Now            func() time.Time // time.Now when nil; drives the countdown
	RequestTimeout time.Duration    // login, signup and logout; 5s
	Logger         *logger.Logger
}

// App is the root tea.Model.
type App struct {
	opts   Options
	log    *logger.Logger
	screen screen
	login  Login
	board  *Board
	boards int
}

// NewApp builds the root model.
func NewApp(opts Options) App {
	if len(opts.Keys.Quit.Keys()) == 0 {
		opts.Keys = DefaultKeyMap
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DefaultTheme
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	a := App{
		opts:  opts,
		log:   opts.Logger.WithComponent("tui"),
		login: newLogin(opts.Auth, opts.Session, opts.Keys, opts.Theme, opts.RequestTimeout),
	}
	if opts.LoggedIn {
		a.newBoard()
	}
	return a
}

func (a *App) newBoard() {
	a.boards++
	b := newBoard(a.opts.NewController(), a.boards, a.opts.Keys, a.opts.Theme, a.opts.Now)
	a.board = &b
	a.screen = screenDashboard
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.screen == screenDashboard {
		return a.board.Init()
	}
	return a.login.Init()
}

// Close stops the dashboard controller, if any.  Safe to call more
// than once.
func (a App) Close() {
	if a.board != nil {
		a.board.Stop()
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, a.opts.Keys.ForceQuit) ||
			(a.screen == screenDashboard && key.Matches(msg, a.opts.Keys.Quit)) {
			a.Close()
			return a, tea.Quit
		}
		if a.screen == screenDashboard && key.Matches(msg, a.opts.Keys.Logout) {
			return a.logout()
		}

	case loginDoneMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		if msg.err != nil {
			a.log.WithError(msg.err).Info("login failed")
			return a, cmd
		}
		a.log.Info("logged in")
		a.newBoard()
		return a, a.board.Init()

	case loggedOutMsg:
		a.screen = screenLogin
		if msg.err != nil {
			a.log.WithError(msg.err).Warn("clear session")
			a.login.setError(msg.err)
		} else {
			a.login.message, a.login.failed = MessageLoggedOut, false
		}
		return a, a.login.Init()
	}

	var cmd tea.Cmd
	switch {
	case a.screen == screenDashboard && a.board != nil:
		var b Board
		b, cmd = a.board.Update(msg)
		a.board = &b
	default:
		a.login, cmd = a.login.Update(msg)
	}
	return a, cmd
}

// logout stops the dashboard, returns to the form and clears the
// session.
func (a App) logout() (tea.Model, tea.Cmd) {
	a.Close()
	a.board = nil
	a.screen = screenLogin
	sess, timeout := a.opts.Session, a.opts.RequestTimeout
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return loggedOutMsg{err: sess.Clear(ctx)}
	}
}

// View implements tea.Model.
func (a App) View() string {
	if a.screen == screenDashboard && a.board != nil {
		return a.board.View()
	}
	return a.login.View()
}
