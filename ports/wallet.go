package ports

import "context"

// Wallet is a connected account able to sign messages
type Wallet interface {
	Address() string
	ChainID() string
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// WalletEventKind enumerates wallet lifecycle notifications
type WalletEventKind int

const (
	WalletConnected WalletEventKind = iota
	WalletAccountChanged
	WalletDisconnected
)

// WalletEvent is a lifecycle notification from the wallet layer.
// Wallet is nil for WalletDisconnected.
type WalletEvent struct {
	Kind   WalletEventKind
	Wallet Wallet
}
