package wallet

import (
	"sync"

	"github.com/layer-3/orbisauth/ports"
)

// Events feeds wallet lifecycle notifications to a consumer such as
// service.Connection.Run
type Events struct {
	ch     chan ports.WalletEvent
	once   sync.Once
	closed chan struct{}

	// held for reading while sending so Close can close ch safely
	sending sync.RWMutex
}

// NewEvents creates an event feed with the given buffer size
func NewEvents(buffer int) *Events {
	return &Events{
		ch:     make(chan ports.WalletEvent, buffer),
		closed: make(chan struct{}),
	}
}

// C returns the receive side of the feed
func (e *Events) C() <-chan ports.WalletEvent {
	return e.ch
}

// Connect announces that w connected
func (e *Events) Connect(w ports.Wallet) bool {
	return e.send(ports.WalletEvent{Kind: ports.WalletConnected, Wallet: w})
}

// SwitchAccount announces that the connected account changed to w
func (e *Events) SwitchAccount(w ports.Wallet) bool {
	return e.send(ports.WalletEvent{Kind: ports.WalletAccountChanged, Wallet: w})
}

// Disconnect announces that the wallet disconnected
func (e *Events) Disconnect() bool {
	return e.send(ports.WalletEvent{Kind: ports.WalletDisconnected})
}

// Close ends the feed. Events already buffered are still delivered, then
// the channel returned by C is closed. Sends after Close are dropped.
func (e *Events) Close() {
	e.once.Do(func() {
		close(e.closed)

		e.sending.Lock()
		close(e.ch)
		e.sending.Unlock()
	})
}

func (e *Events) send(ev ports.WalletEvent) bool {
	e.sending.RLock()
	defer e.sending.RUnlock()

	select {
	case <-e.closed:
		return false
	default:
	}

	select {
	case e.ch <- ev:
		return true
	case <-e.closed:
		return false
	}
}

// Done is closed once the feed is closed
func (e *Events) Done() <-chan struct{} {
	return e.closed
}
