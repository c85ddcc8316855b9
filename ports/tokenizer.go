package ports

import "github.com/layer-3/orbisauth/core"

// Tokenizer converts between grants and access tokens
type Tokenizer interface {
	GrantToAccessToken(grant *core.Grant) (string, error)
	AccessTokenToGrant(token string) (*core.Grant, error)

	// VerifySignature checks that the CACAO signature recovers to its issuer
	VerifySignature(cacao core.Cacao) error
}
