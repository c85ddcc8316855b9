package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var errInvalidSigningKey = errors.New("invalid P-256 signing key")

// GenerateSigningKey creates a random ES256 signing key
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// ParseSigningKey loads a hex encoded P-256 scalar
func ParseSigningKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	if !strings.HasPrefix(hexKey, "0x") {
		hexKey = "0x" + hexKey
	}
	b, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSigningKey, err)
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(b)
	if len(b) != 32 || d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, errInvalidSigningKey
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(b)
	return key, nil
}
