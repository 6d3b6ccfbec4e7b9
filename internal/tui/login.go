package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/model"
)

// Authenticator is the part of the API client the login screen uses.
// *apiclient.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Signup(ctx context.Context, s model.Signup) error
}

// SessionWriter persists the credential.  *session.Session satisfies it.
type SessionWriter interface {
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Login screen texts.
const (
	MessageAccountCreated = "Account Created! Please Login."
	MessageLoggedOut      = "Logged out."
	messageMissingFields  = "Error: email and password are required"
	messageWorking        = "Please wait..."
)

type loginMode int

const (
	modeLogin loginMode = iota
	modeSignup
)

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// loginDoneMsg reports a login attempt.  A nil err means the token was
// stored in the session.
type loginDoneMsg struct{ err error }

type signupDoneMsg struct{ err error }

// Login is the login/signup form.
type Login struct {
	auth    Authenticator
	session SessionWriter
	keys    KeyMap
	theme   Theme
	timeout time.Duration

	mode    loginMode
	inputs  [fieldCount]textinput.Model
	focus   int // index into fields()
	message string
	failed  bool
	busy    bool
}

func newLogin(auth Authenticator, sess SessionWriter, keys KeyMap, theme Theme, timeout time.Duration) Login {
	l := Login{auth: auth, session: sess, keys: keys, theme: theme, timeout: timeout}

	l.inputs[fieldUsername] = textinput.New()
	l.inputs[fieldUsername].Prompt = "Username: "
	l.inputs[fieldUsername].Placeholder = model.DefaultUsername
	l.inputs[fieldUsername].CharLimit = 64

	l.inputs[fieldEmail] = textinput.New()
	l.inputs[fieldEmail].Prompt = "Email:    "
	l.inputs[fieldEmail].Placeholder = "you@example.com"
	l.inputs[fieldEmail].CharLimit = 254

	l.inputs[fieldPassword] = textinput.New()
	l.inputs[fieldPassword].Prompt = "Password: "
	l.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	l.inputs[fieldPassword].EchoCharacter = '*'
	l.inputs[fieldPassword].CharLimit = 128

	l.focusField(0)
	return l
}

// fields lists the visible inputs in display order.
func (l Login) fields() []int {
	if l.mode == modeSignup {
		return []int{fieldUsername, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (l *Login) focusField(i int) {
	visible := l.fields()
	if i < 0 {
		i = len(visible) - 1
	}
	if i >= len(visible) {
		i = 0
	}
	l.focus = i
	for f := range l.inputs {
		l.inputs[f].Blur()
	}
	l.inputs[visible[i]].Focus()
}

// Init starts the cursor blink.
func (l Login) Init() tea.Cmd { return textinput.Blink }

// Update handles one message for the login screen.
func (l Login) Update(msg tea.Msg) (Login, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		l.busy = false
		if msg.err != nil {
			l.setError(msg.err)
			return l, nil
		}
		l.message, l.failed = "", false
		l.inputs[fieldPassword].Reset()
		return l, nil

	case signupDoneMsg:
		l.busy = false
		if msg.err != nil {
			l.setError(msg.err)
			return l, nil
		}
		l.mode = modeLogin
		l.message, l.failed = MessageAccountCreated, false
		l.inputs[fieldPassword].Reset()
		l.focusField(len(l.fields()) - 1)
		return l, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, l.keys.Toggle):
			if l.mode == modeLogin {
				l.mode = modeSignup
			} else {
				l.mode = modeLogin
			}
			l.message, l.failed = "", false
			l.focusField(0)
			return l, nil
		case key.Matches(msg, l.keys.FocusNext):
			l.focusField(l.focus + 1)
			return l, nil
		case key.Matches(msg, l.keys.FocusPrev):
			l.focusField(l.focus - 1)
			return l, nil
		case key.Matches(msg, l.keys.Submit):
			return l.submit()
		}
	}

	field := l.fields()[l.focus]
	var cmd tea.Cmd
	l.inputs[field], cmd = l.inputs[field].Update(msg)
	return l, cmd
}

func (l *Login) setError(err error) {
	l.message = "Error: " + apiclient.Message(err)
	l.failed = true
}

func (l Login) submit() (Login, tea.Cmd) {
	if l.busy {
		return l, nil
	}
	email := strings.TrimSpace(l.inputs[fieldEmail].Value())
	password := l.inputs[fieldPassword].Value()
	if email == "" || password == "" {
		l.message, l.failed = messageMissingFields, true
		return l, nil
	}
	l.busy = true
	l.message, l.failed = messageWorking, false

	auth, sess, timeout := l.auth, l.session, l.timeout
	if l.mode == modeSignup {
		req := model.Signup{
			Username: strings.TrimSpace(l.inputs[fieldUsername].Value()),
			Email:    email,
			Password: password,
		}
		return l, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return signupDoneMsg{err: auth.Signup(ctx, req)}
		}
	}

	creds := model.Credentials{Email: email, Password: password}
	return l, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		token, err := auth.Login(ctx, creds)
		if err != nil {
			return loginDoneMsg{err: err}
		}
		return loginDoneMsg{err: sess.Set(ctx, token)}
	}
}

// View renders the form.
func (l Login) View() string {
	title := "Login"
	if l.mode == modeSignup {
		title = "Sign Up"
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(l.theme.Header).Render("ticketctl · " + title)

	lines := []string{header, ""}
	for _, f := range l.fields() {
		lines = append(lines, l.inputs[f].View())
	}
	lines = append(lines, "")
	if l.message != "" {
		color := l.theme.Status
		if l.failed {
			color = l.theme.Error
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(l.message), "")
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(l.theme.Faint).Render(
		helpLine(l.keys.Submit, l.keys.Toggle, l.keys.FocusNext, l.keys.ForceQuit)))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(l.theme.Border).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}
