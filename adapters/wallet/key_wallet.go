package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/orbisauth/ports"
)

// KeyWallet signs with a raw secp256k1 private key held in memory
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID string
}

// NewKeyWallet wraps a private key as a wallet on chainID
func NewKeyWallet(key *ecdsa.PrivateKey, chainID string) *KeyWallet {
	return &KeyWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}
}

// NewKeyWalletFromHex loads a hex encoded private key, with or without 0x
func NewKeyWalletFromHex(hexKey, chainID string) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet key: %w", err)
	}
	return NewKeyWallet(key, chainID), nil
}

// GenerateKeyWallet creates a wallet with a fresh random key
func GenerateKeyWallet(chainID string) (*KeyWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	return NewKeyWallet(key, chainID), nil
}

// Address returns the EIP-55 checksummed account address
func (w *KeyWallet) Address() string {
	return w.address.Hex()
}

// ChainID returns the EIP-155 chain reference the wallet is connected to
func (w *KeyWallet) ChainID() string {
	return w.chainID
}

// SignMessage signs msg the way personal_sign does (EIP-191, V in 27/28)
func (w *KeyWallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(msg), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return sig, nil
}

var _ ports.Wallet = (*KeyWallet)(nil)
