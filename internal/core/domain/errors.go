package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFeeUnavailable is returned when the node answered but has no usable fee estimate.
	ErrFeeUnavailable = errors.New("fee estimate unavailable")

	// ErrInvalidTransition is returned for an attempt status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid attempt transition")

	// ErrAccountLocked is returned when another instance holds the account lock.
	ErrAccountLocked = errors.New("account is locked by another instance")

	// ErrNonceConsumed is returned when a different transaction was mined at the awaited nonce.
	ErrNonceConsumed = errors.New("nonce consumed by another transaction")
)

// NetworkError is a failure talking to the node. It aborts the run.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps err unless it already is a NetworkError.
func NewNetworkError(op string, err error) error {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// TransactionError is a failure of a single replacement attempt.
type TransactionError struct {
	Nonce  uint64
	Reason string
	Err    error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("nonce %d: %s", e.Nonce, e.Reason)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// ConfigurationError is a missing or invalid setting found before any RPC call.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsFatal reports whether err must abort the run with a non-zero exit code.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var netErr *NetworkError
	var cfgErr *ConfigurationError
	return errors.As(err, &netErr) || errors.As(err, &cfgErr) || errors.Is(err, ErrAccountLocked)
}
