package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/dashboard"
	"github.com/iliyamo/ticketctl/internal/model"
	"github.com/iliyamo/ticketctl/internal/session"
	"github.com/iliyamo/ticketctl/internal/stubserver"
	"github.com/iliyamo/ticketctl/internal/tui"
)

// Credentials of the account created by `dashboard --demo`.
const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo"
)

func runDashboard(ctx context.Context, env *environment, args []string) error {
	var demo bool
	flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	flagSet.BoolVar(&demo, "demo", false, "run against an in-process stub service")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if demo {
		stop, err := startDemo(ctx, env)
		if err != nil {
			return err
		}
		defer stop()
	}

	token, err := env.session.Token(ctx)
	if err != nil {
		env.log.WithError(err).Warn("read session")
	}

	app := tui.NewApp(tui.Options{
		Auth:    env.client,
		Session: env.session,
		NewController: func() tui.Controller {
			return dashboard.New(env.client, env.session, dashboard.Options{
				PollInterval: env.cfg.PollInterval,
				HoldDuration: env.cfg.HoldDuration,
				Price:        env.cfg.SeatPrice,
				Logger:       env.log,
			})
		},
		LoggedIn:       token != "",
		RequestTimeout: env.cfg.RequestTimeout,
		Logger:         env.log,
	})

	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	if a, ok := final.(tui.App); ok {
		a.Close()
	} else {
		app.Close()
	}
	return err
}

// startDemo serves a stub service on a loopback port, points the
// client at it and logs the demo user in with a throwaway session.
func startDemo(ctx context.Context, env *environment) (func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("demo listener: %w", err)
	}
	srv := stubserver.New(stubserver.Options{
		HoldTTL: env.cfg.HoldDuration,
		Price:   env.cfg.SeatPrice,
		Logger:  env.log,
	})
	if err := srv.AddUser("Demo", demoEmail, demoPassword); err != nil {
		ln.Close()
		return nil, err
	}
	go func() {
		if err := srv.Serve(ln); err != nil {
			env.log.WithError(err).Error("demo server stopped")
		}
	}()

	dir, err := os.MkdirTemp("", "ticketctl-demo-")
	if err != nil {
		ln.Close()
		return nil, err
	}
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			env.log.WithError(err).Warn("demo server shutdown")
		}
		os.RemoveAll(dir)
	}

	if err := env.useStore(ctx, session.NewFileStore(filepath.Join(dir, "session"))); err != nil {
		stop()
		return nil, err
	}
	env.client = apiclient.New("http://"+ln.Addr().String()+"/api",
		apiclient.WithTimeout(env.cfg.RequestTimeout),
		apiclient.WithTokenSource(env.session),
		apiclient.WithLogger(env.log),
	)
	token, err := env.client.Login(ctx, model.Credentials{Email: demoEmail, Password: demoPassword})
	if err != nil {
		stop()
		return nil, fmt.Errorf("demo login: %w", err)
	}
	if err := env.session.Set(ctx, token); err != nil {
		stop()
		return nil, err
	}
	env.log.Info("demo service started", "addr", ln.Addr().String(), "user", demoEmail)
	return stop, nil
}

func runLogin(ctx context.Context, env *environment, args []string) error {
	var email, passwordFile string
	flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
	flagSet.StringVar(&email, "email", "", "account e-mail (prompted when empty)")
	flagSet.StringVar(&passwordFile, "password-file", "", `read the password from this file ("-" or empty prompts)`)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	email, err := promptIfEmpty(email, "Email: ")
	if err != nil {
		return err
	}
	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}

	token, err := env.client.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return errors.New(apiclient.Message(err))
	}
	if err := env.session.Set(ctx, token); err != nil {
		return err
	}
	fmt.Println("Logged in as", email)
	return nil
}

func runSignup(ctx context.Context, env *environment, args []string) error {
	var username, email, passwordFile string
	flagSet := pflag.NewFlagSet("signup", pflag.ContinueOnError)
	flagSet.StringVar(&username, "username", "", "display name (default \""+model.DefaultUsername+"\")")
	flagSet.StringVar(&email, "email", "", "account e-mail (prompted when empty)")
	flagSet.StringVar(&passwordFile, "password-file", "", `read the password from this file ("-" or empty prompts)`)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	email, err := promptIfEmpty(email, "Email: ")
	if err != nil {
		return err
	}
	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}

	if err := env.client.Signup(ctx, model.Signup{Username: username, Email: email, Password: password}); err != nil {
		return errors.New(apiclient.Message(err))
	}
	fmt.Println(tui.MessageAccountCreated)
	return nil
}

func runLogout(ctx context.Context, env *environment, _ []string) error {
	if err := env.session.Clear(ctx); err != nil {
		return err
	}
	fmt.Println(tui.MessageLoggedOut)
	return nil
}

func runWhoami(ctx context.Context, env *environment, _ []string) error {
	claims, ok, err := env.session.Claims(ctx)
	if err != nil {
		return err
	}
	token, _ := env.session.Token(ctx)
	switch {
	case token == "":
		return errors.New(dashboard.StatusNoToken)
	case !ok:
		fmt.Println("logged in (opaque token)")
		return nil
	}

	now := time.Now()
	fmt.Println("user:", claims.Subject)
	switch {
	case claims.ExpiresAt.IsZero():
		fmt.Println("expires: never")
	case claims.Expired(now):
		fmt.Printf("expired: %s\n", claims.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Printf("expires: %s (in %s)\n", claims.ExpiresAt.Format(time.RFC3339), claims.TTL(now).Round(time.Second))
	}
	return nil
}

func runSeats(ctx context.Context, env *environment, _ []string) error {
	seats, err := env.client.Seats(ctx)
	if err != nil {
		return errors.New(apiclient.Message(err))
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEAT\tSTATUS")
	for _, s := range seats {
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Label, s.Status)
	}
	return w.Flush()
}

func runBookings(ctx context.Context, env *environment, _ []string) error {
	bookings, err := env.client.MyBookings(ctx)
	if err != nil {
		return errors.New(apiclient.Message(err))
	}
	if len(bookings) == 0 {
		fmt.Println("no bookings")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAMOUNT\tSTATUS")
	for _, b := range bookings {
		fmt.Fprintf(w, "%d\t%.2f\t%s\n", b.ID, b.Amount, b.Status)
	}
	return w.Flush()
}

func promptIfEmpty(value, prompt string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	if value = strings.TrimSpace(line); value == "" {
		return "", errors.New("value required")
	}
	return value, nil
}

// readPassword reads the password from passwordFile, or prompts with
// echo disabled when the path is empty or "-".
func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		password := strings.TrimRight(string(data), "\r\n")
		if password == "" {
			return "", fmt.Errorf("file %s is empty", passwordFile)
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for interactive password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
