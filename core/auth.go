package core

import "time"

// Grant represents access minted by a node after it verified a session
type Grant struct {
	ID        string    // Unique grant identifier, used for revocation
	DID       string    // did:pkh of the wallet that signed the session
	Address   string    // Ethereum address of the user
	ChainID   string    // EIP-155 chain reference from the issuer
	Nonce     string    // Nonce of the session the grant was minted from
	IssuedAt  time.Time // When the grant was created
	ExpiresAt time.Time // When the grant expires

	SessionExpiresAt time.Time // Expiry of the session the grant came from
}

// User is the identity of the currently connected user as reported by a node
type User struct {
	DID           string    `json:"did"`
	Address       string    `json:"address"`
	ChainID       string    `json:"chain_id"`
	SessionExpiry time.Time `json:"session_expiry"`
}

// UserFromGrant builds the connected-user view of a grant.
func UserFromGrant(g *Grant) *User {
	expiry := g.SessionExpiresAt
	if expiry.IsZero() {
		expiry = g.ExpiresAt
	}
	return &User{
		DID:           g.DID,
		Address:       g.Address,
		ChainID:       g.ChainID,
		SessionExpiry: expiry,
	}
}
