// Package stubserver is an in-process stand-in for the ticketing
// service.  It serves the same /api endpoints with in-memory state so
// the client can be exercised end to end in tests and in
// `ticketctl dashboard --demo`.
package stubserver

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ticketctl/internal/clock"
	"github.com/iliyamo/ticketctl/internal/logger"
	"github.com/iliyamo/ticketctl/internal/model"
)

// Options configures a Server.  Zero values select the defaults noted
// on each field.
type Options struct {
	Secret     string         // HS256 signing key; "stub-secret"
	HoldTTL    time.Duration  // lifetime of a seat hold; 120s
	TokenTTL   time.Duration  // lifetime of issued tokens; 1h
	Price      float64        // amount recorded per booking; 50
	BcryptCost int            // password hashing cost; bcrypt.MinCost
	Seats      []model.Seat   // initial grid; DefaultSeats(4, 5)
	Clock      clock.Clock    // time source; clock.Real()
	Logger     *logger.Logger // request log; discarded
}

func (o *Options) setDefaults() {
	if o.Secret == "" {
		o.Secret = "stub-secret"
	}
	if o.HoldTTL <= 0 {
		o.HoldTTL = 120 * time.Second
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = time.Hour
	}
	if o.Price == 0 {
		o.Price = 50
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.MinCost
	}
	if o.Seats == nil {
		o.Seats = DefaultSeats(4, 5)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
}

// Server wires the store, handlers and routes together.
type Server struct {
	opts     Options
	store    *Store
	echo     *echo.Echo
	log      *logger.Logger
	payments atomic.Int64
}

// New builds a server; routes live under /api.
func New(opts Options) *Server {
	opts.setDefaults()
	s := &Server{
		opts:  opts,
		store: NewStore(opts.Clock, opts.HoldTTL, opts.Price, opts.BcryptCost, opts.Seats),
		log:   opts.Logger.WithComponent("stubserver"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	registerRoutes(e, &Handler{srv: s}, JWTAuth(opts.Secret, opts.Clock.Now))
	s.echo = e
	return s
}

// registerRoutes maps the service endpoints.  Seats, signup and login
// are public; everything else needs a bearer token.
func registerRoutes(e *echo.Echo, h *Handler, auth echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.GET("/seats", h.Seats)

	api.GET("/profile", h.Profile, auth)
	api.POST("/reserve", h.Reserve, auth)
	api.POST("/pay", h.Pay, auth)
	api.GET("/my-bookings", h.MyBookings, auth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Store exposes the state for seeding and assertions.
func (s *Server) Store() *Store { return s.store }

// PaymentAttempts counts /pay requests that reached the store, that is
// excluding idempotent replays.
func (s *Server) PaymentAttempts() int64 { return s.payments.Load() }

// AddUser registers an account, as if through /signup.
func (s *Server) AddUser(username, email, password string) error {
	return s.store.CreateUser(username, email, password)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.echo.Listener = ln
	if err := s.echo.Start(""); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
