package core

import (
	"strings"
	"time"
)

// Verdict is the outcome of judging a cached session
type Verdict int

const (
	Valid Verdict = iota
	Expired
	Mismatched
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Mismatched:
		return "mismatched"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Err maps a verdict to its sentinel error, nil for Valid.
func (v Verdict) Err() error {
	switch v {
	case Valid:
		return nil
	case Expired:
		return ErrSessionExpired
	case Mismatched:
		return ErrMismatchedAddress
	default:
		return ErrMalformedSession
	}
}

// Validate decides whether a session can still be used by the wallet at
// address. The address check runs before the expiry check, so a foreign
// session is Mismatched no matter its expiry.
//
// A session expiring exactly at now is still Valid.
func Validate(s Session, address string, now time.Time) Verdict {
	bare, ok := IssuerAddress(s.Issuer())
	if !ok || bare != strings.ToLower(address) {
		return Mismatched
	}

	exp, err := ParseTime(s.Expiry())
	if err != nil {
		return Malformed
	}
	if exp.Before(now) {
		return Expired
	}

	return Valid
}

// IssuerAddress returns the lower-cased bare address of a did:pkh issuer.
func IssuerAddress(iss string) (string, bool) {
	_, address, err := ParseIssuer(iss)
	if err != nil {
		return "", false
	}
	return strings.ToLower(address), true
}

// ParseTime parses an ISO-8601 timestamp as written in a CACAO. A date
// without a time is midnight UTC.
func ParseTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err == nil {
		return t, nil
	}
	if d, dateErr := time.Parse(time.DateOnly, ts); dateErr == nil {
		return d, nil
	}
	return time.Time{}, err
}

// FormatTime renders a timestamp the way CACAO payloads carry them.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
