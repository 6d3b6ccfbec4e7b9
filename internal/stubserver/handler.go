package stubserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticketctl/internal/model"
)

// idempotencyHitHeader marks a payment answer replayed from cache.
const idempotencyHitHeader = "X-Idempotency-Hit"

// Handler bundles the endpoints of the stub service.
type Handler struct {
	srv *Server
}

// Health answers liveness probes.
func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Signup handles POST /signup.  It answers 201 "User Registered!".
func (h *Handler) Signup(c echo.Context) error {
	var req model.Signup
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid JSON")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if req.Username == "" {
		req.Username = model.DefaultUsername
	}
	if err := h.srv.store.CreateUser(req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.String(http.StatusCreated, "User Registered!")
}

// Login handles POST /login and returns {"token": ...}.
func (h *Handler) Login(c echo.Context) error {
	var req model.Credentials
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid JSON")
	}
	email, err := h.srv.store.Authenticate(req.Email, req.Password)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid Credentials")
	}
	token, err := issueToken(h.srv.opts.Secret, email, h.srv.opts.Clock.Now(), h.srv.opts.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, model.LoginResult{Token: token})
}

// Profile handles GET /profile.
func (h *Handler) Profile(c echo.Context) error {
	return c.JSON(http.StatusOK, model.Profile{User: callerEmail(c)})
}

// Seats handles GET /seats.  The route is public.
func (h *Handler) Seats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.srv.store.Seats())
}

// Reserve handles POST /reserve.  404 for an unknown seat, 409 when the
// seat is held or sold.
func (h *Handler) Reserve(c echo.Context) error {
	var req model.ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	email := callerEmail(c)
	expiresAt, err := h.srv.store.Reserve(email, req.SeatID)
	switch {
	case errors.Is(err, ErrSeatNotFound):
		return c.String(http.StatusNotFound, "Invalid Seat")
	case errors.Is(err, ErrSeatTaken):
		return c.String(http.StatusConflict, "Seat taken")
	case err != nil:
		return c.NoContent(http.StatusInternalServerError)
	}
	h.srv.log.Debug("seat reserved", "seat_id", req.SeatID, "user", email, "expires_at", expiresAt)
	return c.String(http.StatusOK, "Reserved!")
}

// Pay handles POST /pay.  A request carrying an Idempotency-Key that was
// already answered gets the cached answer; a lapsed hold is 403
// "Expired".
func (h *Handler) Pay(c echo.Context) error {
	key := c.Request().Header.Get("Idempotency-Key")
	if key != "" {
		if cached, ok := h.srv.store.replay(key); ok {
			c.Response().Header().Set(idempotencyHitHeader, "true")
			return c.JSON(cached.Status, cached.Body)
		}
	}

	var req model.PayRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	h.srv.payments.Add(1)
	email := callerEmail(c)
	booking, err := h.srv.store.Pay(email, req.SeatID)
	switch {
	case errors.Is(err, ErrHoldExpired), errors.Is(err, ErrSeatNotFound):
		return c.String(http.StatusForbidden, "Expired")
	case err != nil:
		return c.NoContent(http.StatusInternalServerError)
	}

	res := cachedResponse{Status: http.StatusOK, Body: model.PaymentReceipt{Status: booking.Status}}
	if key != "" {
		h.srv.store.remember(key, res)
	}
	h.srv.log.Debug("seat booked", "seat_id", req.SeatID, "user", email, "booking_id", booking.ID)
	return c.JSON(res.Status, res.Body)
}

// MyBookings handles GET /my-bookings.
func (h *Handler) MyBookings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.srv.store.Bookings(callerEmail(c)))
}
