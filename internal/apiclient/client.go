package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/ticketctl/internal/logger"
	"github.com/iliyamo/ticketctl/internal/model"
)

// Operation names used in errors and logs.
const (
	opProfile    = "profile"
	opSeats      = "seats"
	opReserve    = "reserve"
	opPay        = "pay"
	opLogin      = "login"
	opSignup     = "signup"
	opMyBookings = "my-bookings"
)

// IdempotencyHeader carries the client-chosen key that lets the service
// de-duplicate retried payments.
const IdempotencyHeader = "Idempotency-Key"

// maxErrorBody bounds how much of an error response is kept as message.
const maxErrorBody = 4 << 10

// TokenSource supplies the session credential attached to authenticated
// requests.  An empty token sends the request without Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client is a thin typed wrapper over the service's HTTP endpoints.  It
// is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l.WithComponent("apiclient") }
}

// New returns a client for the service rooted at baseURL, for example
// "http://localhost:8090/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		tokens:  StaticToken(""),
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the identity bound to the current session token.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	err := c.do(ctx, opProfile, http.MethodGet, "/profile", nil, nil, &p)
	return p, err
}

// Seats fetches the full, ordered seat collection.
func (c *Client) Seats(ctx context.Context) ([]model.Seat, error) {
	var seats []model.Seat
	if err := c.do(ctx, opSeats, http.MethodGet, "/seats", nil, nil, &seats); err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return seats, nil
}

// Reserve asks the service for a time-limited lock on seatID.  A seat
// already locked or sold by someone else yields ErrConflict.
func (c *Client) Reserve(ctx context.Context, seatID int64) error {
	return c.do(ctx, opReserve, http.MethodPost, "/reserve", model.ReserveRequest{SeatID: seatID}, nil, nil)
}

// Pay converts the caller's lock on seatID into a booking.  Retries of
// the same payment must reuse idempotencyKey.  A lapsed lock yields
// ErrHoldExpired.
func (c *Client) Pay(ctx context.Context, seatID int64, idempotencyKey string) (model.PaymentReceipt, error) {
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{IdempotencyHeader: []string{idempotencyKey}}
	}
	var receipt model.PaymentReceipt
	err := c.do(ctx, opPay, http.MethodPost, "/pay", model.PayRequest{SeatID: seatID}, hdr, &receipt)
	return receipt, err
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var res model.LoginResult
	if err := c.do(ctx, opLogin, http.MethodPost, "/login", creds, nil, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", &APIError{Op: opLogin, StatusCode: http.StatusOK, Message: "empty token in response"}
	}
	return res.Token, nil
}

// Signup registers a new account.  An empty username is replaced by
// model.DefaultUsername.
func (c *Client) Signup(ctx context.Context, s model.Signup) error {
	if s.Username == "" {
		s.Username = model.DefaultUsername
	}
	return c.do(ctx, opSignup, http.MethodPost, "/signup", s, nil, nil)
}

// MyBookings lists the caller's bookings, newest first.
func (c *Client) MyBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := c.do(ctx, opMyBookings, http.MethodGet, "/my-bookings", nil, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// do performs one request.  body is JSON-encoded when non-nil; out is
// decoded from a 2xx JSON body when non-nil.  A 2xx body that is not
// JSON is tolerated, since some endpoints answer with plain text.
func (c *Client) do(ctx context.Context, op, method, path string, body any, hdr http.Header, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		c.log.Debug("request failed", "op", op, "error", err.Error())
		return fmt.Errorf("%s: %w: %w", op, ErrServerOffline, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(op, resp.StatusCode, errorText(raw))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) && (op == opPay || op == opReserve) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorText extracts a human readable message from an error body.
// JSON bodies of the form {"error": "..."} or {"message": "..."} are
// unpacked; anything else is used verbatim.
func errorText(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if raw[0] == '{' && json.Unmarshal(raw, &obj) == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return string(raw)
}
