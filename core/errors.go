package core

import "errors"

var (
	ErrMalformedSession  = errors.New("malformed session")
	ErrMismatchedAddress = errors.New("session issuer does not match wallet address")
	ErrSessionExpired    = errors.New("session has expired")
	ErrNoSession         = errors.New("no cached session")
	ErrAuth              = errors.New("authentication failed")
	ErrAuthInFlight      = errors.New("authentication already in progress")
	ErrInvalidAddress    = errors.New("invalid ethereum address")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalidated  = errors.New("token has been invalidated")
	ErrDomainNotAllowed  = errors.New("session domain is not allowed")
)

// AuthError wraps a failure of the external auth exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return ErrAuth.Error()
	}
	return ErrAuth.Error() + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}
