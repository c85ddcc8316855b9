package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the wallet identity of a grant
type AccessClaims struct {
	jwt.RegisteredClaims
	Address string `json:"addr"`
	ChainID string `json:"chain"`
	Nonce   string `json:"nonce,omitempty"` // nonce of the session the grant came from

	SessionExpiry *jwt.NumericDate `json:"sexp,omitempty"`
}
