package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

// Base64Codec stores sessions as base64 encoded JSON
type Base64Codec struct{}

// NewBase64Codec creates a new base64 session codec
func NewBase64Codec() ports.SessionCodec {
	return Base64Codec{}
}

// Encode serializes a session into its cached text form
func (Base64Codec) Encode(session core.Session) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decode parses a cached session, rejecting records without issuer or expiry
func (Base64Codec) Decode(raw string) (core.Session, error) {
	payload, err := decodeBase64(strings.TrimSpace(raw))
	if err != nil {
		return core.Session{}, fmt.Errorf("session is not base64: %w", core.ErrMalformedSession)
	}

	var session core.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return core.Session{}, fmt.Errorf("session is not valid JSON: %w", core.ErrMalformedSession)
	}

	if session.Issuer() == "" {
		return core.Session{}, fmt.Errorf("session has no issuer: %w", core.ErrMalformedSession)
	}
	if session.Expiry() == "" {
		return core.Session{}, fmt.Errorf("session has no expiry: %w", core.ErrMalformedSession)
	}

	return session, nil
}

// decodeBase64 accepts padded and unpadded, standard and URL-safe alphabets
func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, base64.CorruptInputError(0)
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
