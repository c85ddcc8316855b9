package service

import (
	"context"
	"errors"
	"testing"

	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyProvider struct{}

func (emptyProvider) ConnectUser(ctx context.Context, w ports.Wallet) (ports.ConnectResult, error) {
	return ports.ConnectResult{}, nil
}

func TestInitiateReturnsSession(t *testing.T) {
	p := &fakeProvider{store: newRecordingStore()}
	i := NewInitiator(p, nil)

	s, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
	require.NoError(t, err)
	assert.Equal(t, "did:pkh:eip155:1:0xABC", s.Issuer())
	assert.False(t, i.InFlight())
}

func TestInitiateAtMostOneInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := &fakeProvider{store: newRecordingStore(), hook: func(int) {
		close(entered)
		<-release
	}}
	i := NewInitiator(p, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
		errc <- err
	}()
	<-entered
	assert.True(t, i.InFlight())

	_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
	assert.ErrorIs(t, err, core.ErrAuthInFlight)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, p.Calls())
	assert.False(t, i.InFlight())
}

func TestInitiateWrapsProviderFailure(t *testing.T) {
	cause := errors.New("user rejected request")
	i := NewInitiator(&fakeProvider{store: newRecordingStore(), err: cause}, nil)

	_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.ErrorIs(t, err, cause)

	var authErr *core.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.False(t, i.InFlight())
}

func TestInitiateWithoutSessionIsAnAuthError(t *testing.T) {
	i := NewInitiator(emptyProvider{}, nil)

	_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.ErrorIs(t, err, errNoSessionIssued)
}

func TestInitiatorReset(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := &fakeProvider{store: newRecordingStore(), hook: func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}}
	i := NewInitiator(p, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
		errc <- err
	}()
	<-entered

	i.Reset()
	assert.False(t, i.InFlight())

	_, err := i.Initiate(context.Background(), fakeWallet{address: "0xABC"})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, 2, p.Calls())
	assert.False(t, i.InFlight())
}

func TestStaleReservationKeepsCurrentGuard(t *testing.T) {
	ctx := context.Background()
	w := fakeWallet{address: "0xABC"}
	i := NewInitiator(&fakeProvider{store: newRecordingStore()}, nil)

	stale, ok := i.acquire()
	require.True(t, ok)

	// a new cycle starts before the stale exchange reached the provider
	i.Reset()
	current, ok := i.acquire()
	require.True(t, ok, "a reset guard is free for the current cycle")

	_, err := i.run(ctx, w, stale)
	require.NoError(t, err)
	assert.True(t, i.InFlight(), "the stale exchange does not release the current guard")

	_, err = i.Initiate(ctx, w)
	assert.ErrorIs(t, err, core.ErrAuthInFlight)

	_, err = i.run(ctx, w, current)
	require.NoError(t, err)
	assert.False(t, i.InFlight())
}
