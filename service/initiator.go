package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

var errNoSessionIssued = errors.New("provider returned no session")

// Initiator runs a fresh authentication exchange through an AuthProvider.
// At most one exchange is in flight at a time; an overlapping call returns
// core.ErrAuthInFlight without contacting the provider.
type Initiator struct {
	provider ports.AuthProvider
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight bool
	epoch    uint64
}

// NewInitiator creates an initiator over provider
func NewInitiator(provider ports.AuthProvider, logger *slog.Logger) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{
		provider: provider,
		logger:   logger,
	}
}

// Initiate asks the wallet to sign a new session and returns it
func (i *Initiator) Initiate(ctx context.Context, wallet ports.Wallet) (core.Session, error) {
	epoch, ok := i.acquire()
	if !ok {
		return core.Session{}, core.ErrAuthInFlight
	}
	return i.run(ctx, wallet, epoch)
}

// run performs an exchange whose guard was acquired under epoch
func (i *Initiator) run(ctx context.Context, wallet ports.Wallet, epoch uint64) (core.Session, error) {
	defer i.release(epoch)

	i.logger.Debug("starting authentication", "address", wallet.Address())

	result, err := i.provider.ConnectUser(ctx, wallet)
	if err != nil {
		return core.Session{}, &core.AuthError{Err: err}
	}
	if result.Session == nil {
		return core.Session{}, &core.AuthError{Err: errNoSessionIssued}
	}

	return *result.Session, nil
}

// InFlight reports whether an exchange is pending
func (i *Initiator) InFlight() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.inFlight
}

// Reset releases the in-flight guard so a new exchange can start while an
// abandoned one is still pending. The abandoned call no longer holds the
// guard when it returns.
func (i *Initiator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.inFlight = false
	i.epoch++
}

func (i *Initiator) acquire() (uint64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.inFlight {
		return 0, false
	}
	i.inFlight = true
	return i.epoch, true
}

func (i *Initiator) release(epoch uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.epoch == epoch {
		i.inFlight = false
	}
}
