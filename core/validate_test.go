package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFor(iss, exp string) Session {
	return Session{Cacao: Cacao{
		H: CacaoHeader{T: HeaderTypeEIP4361},
		P: CacaoPayload{Iss: iss, Exp: exp},
	}}
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	yesterday := FormatTime(now.Add(-24 * time.Hour))
	tomorrow := FormatTime(now.Add(24 * time.Hour))

	tests := []struct {
		name    string
		iss     string
		exp     string
		address string
		want    Verdict
	}{
		{"valid exact match", "did:pkh:eip155:1:0xabc", tomorrow, "0xabc", Valid},
		{"valid case-insensitive", "did:pkh:eip155:1:0xAbC", tomorrow, "0xABC", Valid},
		{"valid other chain", "did:pkh:eip155:137:0xabc", tomorrow, "0xabc", Valid},
		{"expired", "did:pkh:eip155:1:0xabc", yesterday, "0xABC", Expired},
		{"expiry equal to now is valid", "did:pkh:eip155:1:0xabc", FormatTime(now), "0xabc", Valid},
		{"one millisecond past", "did:pkh:eip155:1:0xabc", FormatTime(now.Add(-time.Millisecond)), "0xabc", Expired},
		{"mismatched with future expiry", "did:pkh:eip155:1:0xabc", tomorrow, "0xdef", Mismatched},
		{"mismatched with past expiry", "did:pkh:eip155:1:0xabc", yesterday, "0xdef", Mismatched},
		{"mismatched with garbage expiry", "did:pkh:eip155:1:0xabc", "soon", "0xdef", Mismatched},
		{"not a did:pkh", "did:key:z6Mk", tomorrow, "0xabc", Mismatched},
		{"missing chain", "did:pkh:eip155:0xabc", tomorrow, "0xabc", Mismatched},
		{"unparsable expiry", "did:pkh:eip155:1:0xabc", "tomorrow-ish", "0xabc", Malformed},
		{"empty expiry", "did:pkh:eip155:1:0xabc", "", "0xabc", Malformed},
		{"offset expiry", "did:pkh:eip155:1:0xabc", "2026-10-17T13:30:00+02:00", "0xabc", Expired},
		{"date-only expiry ahead", "did:pkh:eip155:1:0xabc", "2026-10-18", "0xabc", Valid},
		{"date-only expiry behind", "did:pkh:eip155:1:0xabc", "2026-10-17", "0xabc", Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(sessionFor(tt.iss, tt.exp), tt.address, now)
			assert.Equal(t, tt.want, got, "verdict %s", got)
		})
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2026-10-18")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))

	got, err = ParseTime("2026-10-18T09:30:00.250Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 10, 18, 9, 30, 0, 250*int(time.Millisecond), time.UTC)))

	_, err = ParseTime("18/10/2026")
	assert.Error(t, err)
}

func TestValidateIsStable(t *testing.T) {
	now := time.Now()
	s := sessionFor("did:pkh:eip155:1:0xabc", FormatTime(now.Add(time.Hour)))

	first := Validate(s, "0xABC", now)
	for range 10 {
		assert.Equal(t, first, Validate(s, "0xABC", now))
	}
}

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, Valid.Err())
	assert.ErrorIs(t, Expired.Err(), ErrSessionExpired)
	assert.ErrorIs(t, Mismatched.Err(), ErrMismatchedAddress)
	assert.ErrorIs(t, Malformed.Err(), ErrMalformedSession)
}

func TestParseIssuer(t *testing.T) {
	chainID, address, err := ParseIssuer("did:pkh:eip155:1:0xAbC")
	require.NoError(t, err)
	assert.Equal(t, "1", chainID)
	assert.Equal(t, "0xAbC", address)

	for _, iss := range []string{"", "did:pkh:eip155:", "did:pkh:eip155:1:", "did:pkh:solana:1:abc", "did:pkh:eip155:1:0xabc:extra"} {
		_, _, err := ParseIssuer(iss)
		assert.ErrorIs(t, err, ErrMalformedSession, iss)
	}
}

func TestPayloadMessage(t *testing.T) {
	p := CacaoPayload{
		Domain:    "app.example",
		Iss:       NewIssuer("1", "0xAbC"),
		Aud:       "https://app.example",
		Version:   "1",
		Nonce:     "n0nce",
		Iat:       "2026-10-17T12:00:00.000Z",
		Exp:       "2026-10-24T12:00:00.000Z",
		Statement: "Give this application access to some of your data",
		Resources: []string{"ceramic://*"},
	}

	msg, err := p.Message()
	require.NoError(t, err)

	want := "app.example wants you to sign in with your Ethereum account:\n" +
		"0xAbC\n\n" +
		"Give this application access to some of your data\n\n" +
		"URI: https://app.example\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: n0nce\n" +
		"Issued At: 2026-10-17T12:00:00.000Z\n" +
		"Expiration Time: 2026-10-24T12:00:00.000Z\n" +
		"Resources:\n" +
		"- ceramic://*"
	assert.Equal(t, want, msg)

	p.Iss = "did:key:z6Mk"
	_, err = p.Message()
	assert.True(t, errors.Is(err, ErrMalformedSession))
}

func TestAuthError(t *testing.T) {
	cause := errors.New("user rejected request")
	err := error(&AuthError{Err: cause})

	assert.ErrorIs(t, err, ErrAuth)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "authentication failed: user rejected request", err.Error())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Same(t, cause, authErr.Err)
}
