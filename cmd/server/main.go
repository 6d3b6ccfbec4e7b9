// server runs the stub ticketing service on its own, for developing the
// client without the real backend.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iliyamo/ticketctl/internal/config"
	"github.com/iliyamo/ticketctl/internal/logger"
	"github.com/iliyamo/ticketctl/internal/stubserver"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadStub()
	if err != nil {
		log.Fatal(err)
	}
	lg, closer, err := logger.Open(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	srv := stubserver.New(stubserver.Options{
		Secret:     cfg.JWTSecret,
		HoldTTL:    cfg.HoldDuration,
		TokenTTL:   cfg.AccessTTL,
		Price:      cfg.SeatPrice,
		BcryptCost: cfg.BcryptCost,
		Seats:      stubserver.DefaultSeats(cfg.Rows, cfg.Cols),
		Logger:     lg,
	})
	if cfg.DemoUser != "" {
		email, password, ok := strings.Cut(cfg.DemoUser, ":")
		if !ok {
			log.Fatal("STUB_DEMO_USER must be email:password")
		}
		if err := srv.AddUser("Demo", email, password); err != nil {
			log.Fatal(err)
		}
	}

	addr := ":" + cfg.Port
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	lg.Info("listening", "addr", addr, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.WithError(err).Warn("shutdown")
		}
	}()

	if err := srv.Serve(ln); err != nil {
		log.Fatal(err)
	}
}
