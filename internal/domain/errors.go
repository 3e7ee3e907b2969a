package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyPaid indicates the participant's share was already paid.
	ErrAlreadyPaid = errors.New("payment already processed")
	// ErrPurchaseNotActive indicates the purchase is in a terminal state.
	ErrPurchaseNotActive = errors.New("collaborative purchase is no longer active")
	// ErrDeadlinePassed indicates the payment deadline expired before payment.
	ErrDeadlinePassed = errors.New("payment deadline has passed")
	// ErrNotCreator indicates the caller does not own the purchase.
	ErrNotCreator = errors.New("only the creator can cancel this collaborative purchase")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
