package dashboard

import "errors"

// Errors returned by the controller's public methods.  They report why
// an action was refused locally; none of them means a request was sent.
var (
	// ErrSeatUnavailable is returned by AttemptLock for a seat that is
	// not AVAILABLE or not part of the current grid.
	ErrSeatUnavailable = errors.New("seat is not available")

	// ErrSelectionActive is returned by AttemptLock while a lock is
	// pending or held.  Only one seat may be selected at a time.
	ErrSelectionActive = errors.New("a seat is already selected")

	// ErrNoSelection is returned by ConfirmPayment and ClearSelection
	// when no seat is held.
	ErrNoSelection = errors.New("no seat is held")

	// ErrRequestPending is returned by ClearSelection while a lock or
	// payment request is in flight.
	ErrRequestPending = errors.New("a request is in flight")

	// ErrNoCredential is returned by Start and by every action when the
	// session holds no token.
	ErrNoCredential = errors.New("no session credential")

	// ErrClosed is returned once Stop has been called.
	ErrClosed = errors.New("dashboard closed")

	// ErrStarted is returned by a second call to Start.
	ErrStarted = errors.New("dashboard already started")

	// ErrNotStarted is returned by actions invoked before Start.
	ErrNotStarted = errors.New("dashboard not started")
)
