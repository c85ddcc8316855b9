package core

import (
	"fmt"
	"strings"
)

const (
	// SessionStorageKey is the single key a cached session lives under
	SessionStorageKey = "orbis:session"

	// IssuerPrefix is the did:pkh prefix for EIP-155 accounts
	IssuerPrefix = "did:pkh:eip155:"

	// HeaderTypeEIP4361 marks a CACAO built from a Sign-In with Ethereum message
	HeaderTypeEIP4361 = "eip4361"

	// SignatureTypeEIP191 marks a personal_sign signature
	SignatureTypeEIP191 = "eip191"
)

// CacaoHeader identifies the payload format of a CACAO
type CacaoHeader struct {
	T string `json:"t"`
}

// CacaoPayload holds the Sign-In with Ethereum fields of a CACAO
type CacaoPayload struct {
	Domain    string   `json:"domain"`
	Iss       string   `json:"iss"`
	Aud       string   `json:"aud"`
	Version   string   `json:"version"`
	Nonce     string   `json:"nonce"`
	Iat       string   `json:"iat"`
	Exp       string   `json:"exp,omitempty"`
	Nbf       string   `json:"nbf,omitempty"`
	Statement string   `json:"statement,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// CacaoSignature is the wallet signature over the payload message
type CacaoSignature struct {
	T string `json:"t"`
	S string `json:"s"`
}

// Cacao is a chain-agnostic capability object signed by a wallet
type Cacao struct {
	H CacaoHeader     `json:"h"`
	P CacaoPayload    `json:"p"`
	S *CacaoSignature `json:"s,omitempty"`
}

// Session is a decoded cached session. It is never mutated after decoding;
// validity is judged by Validate.
type Session struct {
	Cacao          Cacao  `json:"cacao"`
	SessionKeySeed string `json:"sessionKeySeed,omitempty"`
}

// Issuer returns the did:pkh that signed the session.
func (s Session) Issuer() string { return s.Cacao.P.Iss }

// Expiry returns the raw expiry timestamp of the session.
func (s Session) Expiry() string { return s.Cacao.P.Exp }

// NewIssuer builds a did:pkh issuer for an address on an EIP-155 chain.
func NewIssuer(chainID, address string) string {
	return IssuerPrefix + chainID + ":" + address
}

// ParseIssuer splits a did:pkh:eip155:<chain>:<address> issuer.
func ParseIssuer(iss string) (chainID string, address string, err error) {
	rest, ok := strings.CutPrefix(iss, IssuerPrefix)
	if !ok {
		return "", "", fmt.Errorf("issuer %q is not an eip155 did:pkh: %w", iss, ErrMalformedSession)
	}
	chainID, address, ok = strings.Cut(rest, ":")
	if !ok || chainID == "" || address == "" || strings.Contains(address, ":") {
		return "", "", fmt.Errorf("issuer %q has no chain-qualified address: %w", iss, ErrMalformedSession)
	}
	return chainID, address, nil
}
