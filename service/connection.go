package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

// Connection reconciles wallet lifecycle events with the cached session and
// owns the authentication state of one client.
//
// Every wallet connect starts from StateChecking: the cached session is read,
// decoded and validated against the wallet address. A valid session
// authenticates without signing; anything else clears the cache and runs the
// Initiator. A disconnect clears the cache and returns to StateIdle.
//
// Each cycle (one wallet address between disconnects) carries a generation
// and a context. A disconnect or account change cancels the context of the
// cycle it ends, and results that arrive for an older generation are dropped.
type Connection struct {
	store     ports.SessionStore
	codec     ports.SessionCodec
	initiator *Initiator
	users     ports.UserService
	signals   ports.SignalPublisher
	logger    *slog.Logger
	now       func() time.Time

	mu            sync.Mutex
	state         core.State
	authenticated bool
	generation    uint64
	address       string
	cycleCtx      context.Context
	cancelCycle   context.CancelFunc
	ready         chan struct{}
	readyClosed   bool

	background sync.WaitGroup
}

// ConnectionOption configures a Connection
type ConnectionOption func(*Connection)

// WithUserService resolves the connected user after each check, for logging
func WithUserService(users ports.UserService) ConnectionOption {
	return func(c *Connection) {
		c.users = users
	}
}

// WithSignalPublisher announces each completed authentication
func WithSignalPublisher(signals ports.SignalPublisher) ConnectionOption {
	return func(c *Connection) {
		c.signals = signals
	}
}

// WithConnectionLogger sets the logger
func WithConnectionLogger(logger *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConnectionClock replaces time.Now for session validation
func WithConnectionClock(now func() time.Time) ConnectionOption {
	return func(c *Connection) {
		c.now = now
	}
}

// NewConnection creates a connection in StateIdle
func NewConnection(
	store ports.SessionStore,
	codec ports.SessionCodec,
	initiator *Initiator,
	opts ...ConnectionOption,
) *Connection {
	c := &Connection{
		store:     store,
		codec:     codec,
		initiator: initiator,
		logger:    slog.Default(),
		now:       time.Now,
		state:     core.StateIdle,
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle phase
func (c *Connection) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAuthenticated reports whether the current wallet is authenticated
func (c *Connection) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Address returns the wallet address of the current cycle, if any
func (c *Connection) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Ready returns a channel closed when the current cycle authenticates.
// A disconnect or account change hands out a fresh channel.
func (c *Connection) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// cycle identifies one wallet address between disconnects
type cycle struct {
	gen uint64
	ctx context.Context
}

// Connect handles a wallet connect or account change. It blocks while an
// authentication exchange runs and never returns an error: every outcome is
// reflected in the connection state.
func (c *Connection) Connect(ctx context.Context, wallet ports.Wallet) {
	cyc, ok := c.begin(wallet)
	if !ok {
		return
	}
	c.proceed(ctx, wallet, cyc)
}

// Disconnect handles a wallet disconnect from any state
func (c *Connection) Disconnect(ctx context.Context) {
	c.mu.Lock()
	c.endCycleLocked()
	previous := c.address
	c.address = ""
	c.state = core.StateIdle
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("failed to clear session", "err", err)
	}

	c.logger.Info("wallet disconnected", "address", previous)
}

// Run consumes wallet events until ctx is done or events is closed.
// Connect handling continues on its own goroutine so a disconnect can be
// processed while an exchange is pending.
func (c *Connection) Run(ctx context.Context, events <-chan ports.WalletEvent) error {
	defer c.background.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			switch ev.Kind {
			case ports.WalletConnected, ports.WalletAccountChanged:
				// begin runs here so the event order is preserved
				cyc, ok := c.begin(ev.Wallet)
				if !ok {
					continue
				}
				c.background.Add(1)
				go func(wallet ports.Wallet) {
					defer c.background.Done()
					c.proceed(ctx, wallet, cyc)
				}(ev.Wallet)
			case ports.WalletDisconnected:
				c.Disconnect(ctx)
			default:
				c.logger.Warn("unknown wallet event", "kind", ev.Kind)
			}
		}
	}
}

// Wait blocks until background work started by Run and connected-user
// lookups has finished
func (c *Connection) Wait() {
	c.background.Wait()
}

// begin moves to StateChecking and returns the current cycle, starting a new
// one for a different address. It refuses while an exchange for the same
// address is pending.
func (c *Connection) begin(wallet ports.Wallet) (cycle, bool) {
	if wallet == nil || wallet.Address() == "" {
		c.logger.Debug("ignoring connect without an address")
		return cycle{}, false
	}
	address := wallet.Address()

	c.mu.Lock()
	defer c.mu.Unlock()

	sameAccount := c.cycleCtx != nil && strings.EqualFold(c.address, address)
	if sameAccount && c.state == core.StateAuthenticating {
		c.logger.Debug("authentication already in progress", "address", address)
		return cycle{}, false
	}

	if !sameAccount {
		c.endCycleLocked()
		c.address = address
		c.cycleCtx, c.cancelCycle = context.WithCancel(context.Background())
	}

	c.state = core.StateChecking

	return cycle{gen: c.generation, ctx: c.cycleCtx}, true
}

// endCycleLocked abandons the current cycle: its context is cancelled, a
// pending exchange loses the in-flight guard and credentials of the previous
// wallet are dropped
func (c *Connection) endCycleLocked() {
	c.generation++
	if c.cancelCycle != nil {
		c.cancelCycle()
	}
	c.cycleCtx, c.cancelCycle = nil, nil
	c.authenticated = false
	c.resetReadyLocked()
	c.initiator.Reset()
	if c.users != nil {
		c.users.Forget()
	}
}

func (c *Connection) proceed(ctx context.Context, wallet ports.Wallet, cyc cycle) {
	gen := cyc.gen
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(cyc.ctx, cancel)
	defer stop()

	address := wallet.Address()
	verdict, found := c.check(ctx, address)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if found && verdict == core.Valid {
		first := c.markAuthenticatedLocked()
		c.mu.Unlock()

		c.logger.Info("cached session is valid", "address", address)
		c.completed(ctx, address, first)
		return
	}
	c.mu.Unlock()

	if found {
		c.logger.Info("invalid session, removing", "address", address, "verdict", verdict)
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Error("failed to clear session", "err", err)
		}
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.authenticated {
		// already authenticated this cycle, a new signature is not requested
		c.state = core.StateAuthenticated
		c.mu.Unlock()
		c.lookupUser(ctx)
		return
	}
	if c.state == core.StateAuthenticating {
		c.mu.Unlock()
		return
	}
	c.state = core.StateAuthenticating
	// the guard is taken under mu so no cycle change can slip in between
	epoch, acquired := c.initiator.acquire()
	c.mu.Unlock()

	var err error
	if acquired {
		_, err = c.initiator.run(ctx, wallet, epoch)
	} else {
		err = core.ErrAuthInFlight
	}

	c.mu.Lock()
	if gen != c.generation {
		current := c.address
		c.mu.Unlock()
		c.logger.Info("dropping authentication result of a previous connection", "address", address, "err", err)
		c.discardStale(context.WithoutCancel(ctx), current)
		return
	}
	if err != nil {
		c.state = core.StateIdle
		c.authenticated = false
		c.mu.Unlock()

		c.logger.Error("authentication failed", "address", address, "err", err)
		return
	}
	first := c.markAuthenticatedLocked()
	c.mu.Unlock()

	c.logger.Info("authenticated", "address", address)
	c.completed(ctx, address, first)
}

// check reads and judges the cached session. found is false when nothing
// usable was cached.
func (c *Connection) check(ctx context.Context, address string) (core.Verdict, bool) {
	raw, err := c.store.Read(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrNoSession) {
			c.logger.Warn("failed to read session", "err", err)
		}
		return core.Malformed, false
	}

	session, err := c.codec.Decode(raw)
	if err != nil {
		c.logger.Info("cached session is malformed", "err", err)
		return core.Malformed, true
	}

	return core.Validate(session, address, c.now()), true
}

// discardStale removes a record an abandoned exchange may have written after
// its cycle ended. A record valid for the current wallet is kept.
func (c *Connection) discardStale(ctx context.Context, current string) {
	raw, err := c.store.Read(ctx)
	if err != nil {
		return
	}
	if current != "" {
		if session, err := c.codec.Decode(raw); err == nil && core.Validate(session, current, c.now()) == core.Valid {
			return
		}
	}

	c.logger.Info("removing session written by a previous connection", "address", current)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("failed to clear session", "err", err)
	}
}

// markAuthenticatedLocked reports whether this is the first authentication
// of the cycle
func (c *Connection) markAuthenticatedLocked() bool {
	c.state = core.StateAuthenticated
	if c.authenticated {
		return false
	}
	c.authenticated = true
	if !c.readyClosed {
		close(c.ready)
		c.readyClosed = true
	}
	return true
}

func (c *Connection) resetReadyLocked() {
	if c.readyClosed {
		c.ready = make(chan struct{})
		c.readyClosed = false
	}
}

func (c *Connection) completed(ctx context.Context, address string, first bool) {
	if first && c.signals != nil {
		if err := c.signals.PublishLoaded(ctx, address); err != nil {
			c.logger.Warn("failed to publish loaded signal", "address", address, "err", err)
		}
	}
	c.lookupUser(ctx)
}

func (c *Connection) lookupUser(ctx context.Context) {
	if c.users == nil {
		return
	}

	c.background.Add(1)
	go func() {
		defer c.background.Done()

		user, err := c.users.GetConnectedUser(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn("failed to resolve connected user", "err", err)
			return
		}
		if user == nil {
			c.logger.Info("no connected user")
			return
		}
		c.logger.Info("connected user", "did", user.DID, "address", user.Address)
	}()
}
