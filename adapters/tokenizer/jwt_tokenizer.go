package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/orbisauth/adapters/wallet"
	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

const AudienceAccess = "orbis:access"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// GrantToAccessToken converts a Grant to an access JWT token
func (j *JWTTokenizer) GrantToAccessToken(grant *core.Grant) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   grant.DID,
			ID:        grant.ID,
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(grant.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		Address: grant.Address,
		ChainID: grant.ChainID,
		Nonce:   grant.Nonce,
	}
	if !grant.SessionExpiresAt.IsZero() {
		claims.SessionExpiry = jwt.NewNumericDate(grant.SessionExpiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// AccessTokenToGrant parses an access token and returns the associated grant
func (j *JWTTokenizer) AccessTokenToGrant(tokenStr string) (*core.Grant, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAccess), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("failed to parse token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("failed to parse token: %w", core.ErrInvalidToken)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type: %w", core.ErrInvalidToken)
	}

	grant := &core.Grant{
		ID:        claims.ID,
		DID:       claims.Subject,
		Address:   claims.Address,
		ChainID:   claims.ChainID,
		Nonce:     claims.Nonce,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		grant.IssuedAt = claims.IssuedAt.Time
	}
	if claims.SessionExpiry != nil {
		grant.SessionExpiresAt = claims.SessionExpiry.Time
	}

	return grant, nil
}

// VerifySignature verifies that a CACAO was signed by its issuer
func (j *JWTTokenizer) VerifySignature(cacao core.Cacao) error {
	if cacao.H.T != core.HeaderTypeEIP4361 {
		return fmt.Errorf("unsupported cacao type %q: %w", cacao.H.T, core.ErrInvalidSignature)
	}
	if cacao.S == nil || cacao.S.T != core.SignatureTypeEIP191 {
		return fmt.Errorf("missing eip191 signature: %w", core.ErrInvalidSignature)
	}

	_, address, err := core.ParseIssuer(cacao.P.Iss)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("issuer address %q: %w", address, core.ErrInvalidAddress)
	}

	msg, err := cacao.P.Message()
	if err != nil {
		return err
	}

	sig, err := hexutil.Decode(cacao.S.S)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}

	signer, err := wallet.RecoverAddress([]byte(msg), sig)
	if err != nil {
		return err
	}
	if signer != common.HexToAddress(address) {
		return fmt.Errorf("signed by %s: %w", signer.Hex(), core.ErrInvalidSignature)
	}

	return nil
}
