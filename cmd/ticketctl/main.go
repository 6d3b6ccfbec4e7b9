// ticketctl is a terminal client for the cinema ticketing service: a
// live seat dashboard with single-seat reservation and payment, plus a
// few one-shot commands for scripting.
//
// Configuration comes from .env, an optional YAML file (--config or
// TICKET_CONFIG) and the environment, in increasing precedence.  The
// session token is kept in a file or in redis until `ticketctl logout`.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/iliyamo/ticketctl/internal/apiclient"
	"github.com/iliyamo/ticketctl/internal/config"
	"github.com/iliyamo/ticketctl/internal/logger"
	"github.com/iliyamo/ticketctl/internal/session"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one ticketctl subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = []command{
	{"dashboard", "live seat dashboard (default)", runDashboard},
	{"login", "log in and store the session token", runLogin},
	{"signup", "create an account", runSignup},
	{"logout", "forget the stored session token", runLogout},
	{"whoami", "show the identity of the stored session", runWhoami},
	{"seats", "print the seat grid", runSeats},
	{"bookings", "print your bookings", runBookings},
}

func run(args []string) error {
	var configPath, envFile string
	flagSet := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "YAML configuration file (default $TICKET_CONFIG)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	name, rest := "dashboard", flagSet.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	if name == "version" {
		fmt.Println("ticketctl", version)
		return nil
	}
	if name == "help" {
		printHelp(flagSet)
		return nil
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		return fmt.Errorf("unknown command %q (see ticketctl --help)", name)
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	env.log.Debug("run command", "command", cmd.name)
	return cmd.run(ctx, env, rest)
}

// environment holds what every command needs: the configuration, the
// logger, the loaded session and an API client authenticated by it.
type environment struct {
	cfg     config.Config
	log     *logger.Logger
	store   session.Store
	session *session.Session
	client  *apiclient.Client

	closers []io.Closer
}

func openEnvironment(ctx context.Context, cfg config.Config) (*environment, error) {
	env := &environment{cfg: cfg}

	log, logCloser, err := logger.Open(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	env.log = log
	env.closers = append(env.closers, logCloser)

	store, storeCloser, err := session.OpenStore(ctx, cfg.Session, cfg.Redis)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, storeCloser)

	if err := env.useStore(ctx, store); err != nil {
		env.Close()
		return nil, err
	}
	env.client = apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithTokenSource(env.session),
		apiclient.WithLogger(log),
	)
	return env, nil
}

// useStore installs store as the session backend and loads the token.
func (env *environment) useStore(ctx context.Context, store session.Store) error {
	env.store = store
	env.session = session.New(store)
	return env.session.Load(ctx)
}

// Close releases the log file and the session store connection.
func (env *environment) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		if err := env.closers[i].Close(); err != nil && env.log != nil {
			env.log.WithError(err).Warn("close")
		}
	}
	env.closers = nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ticketctl: reserve and pay for cinema seats from the terminal.

Usage:
  ticketctl [flags] [command] [command flags]

Commands:
`)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "  %-10s %s\n\nFlags:\n", "version", "print the version")
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
