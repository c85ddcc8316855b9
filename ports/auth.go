package ports

import (
	"context"

	"github.com/layer-3/orbisauth/core"
)

// ConnectResult is what an auth provider returns after an exchange.
// Session is nil when the exchange completed without issuing one.
type ConnectResult struct {
	Session *core.Session
	User    *core.User
}

// AuthProvider runs a challenge/response exchange with a wallet and a node
type AuthProvider interface {
	ConnectUser(ctx context.Context, wallet Wallet) (ConnectResult, error)
}

// UserService resolves the identity currently connected to a node.
// GetConnectedUser returns a nil user when nobody is connected. Forget drops
// any credentials held for the previous wallet.
type UserService interface {
	GetConnectedUser(ctx context.Context) (*core.User, error)
	Forget()
}
