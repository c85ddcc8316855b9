package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

// DefaultAccessTTL bounds the lifetime of a grant below its session expiry
const DefaultAccessTTL = 15 * time.Minute

// AuthService handles node-side authentication: it turns a signed session
// into a short-lived access grant
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	codec     ports.SessionCodec
	eventPub  ports.EventPublisher
	logger    *slog.Logger

	accessTTL time.Duration
	domains   map[string]struct{}
	now       func() time.Time
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithAccessTTL sets the maximum lifetime of minted grants
func WithAccessTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithAllowedDomains restricts the SIWE domains a node accepts.
// No domains means any domain is accepted.
func WithAllowedDomains(domains ...string) AuthOption {
	return func(s *AuthService) {
		for _, d := range domains {
			if d != "" {
				s.domains[d] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) AuthOption {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	codec ports.SessionCodec,
	eventPub ports.EventPublisher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		tokenizer: tokenizer,
		store:     store,
		codec:     codec,
		eventPub:  eventPub,
		logger:    slog.Default(),
		accessTTL: DefaultAccessTTL,
		domains:   make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect verifies an encoded session and mints an access grant for it
func (s *AuthService) Connect(ctx context.Context, rawSession string) (string, *core.Grant, error) {
	session, err := s.codec.Decode(rawSession)
	if err != nil {
		return "", nil, err
	}

	if err := s.tokenizer.VerifySignature(session.Cacao); err != nil {
		return "", nil, fmt.Errorf("signature verification failed: %w", err)
	}

	if len(s.domains) > 0 {
		if _, ok := s.domains[session.Cacao.P.Domain]; !ok {
			return "", nil, fmt.Errorf("domain %q: %w", session.Cacao.P.Domain, core.ErrDomainNotAllowed)
		}
	}

	chainID, address, err := core.ParseIssuer(session.Issuer())
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	if err := core.Validate(session, address, now).Err(); err != nil {
		return "", nil, err
	}
	sessionExpiry, _ := core.ParseTime(session.Expiry())

	revoked, err := s.store.IsTokenInvalidated(ctx, nonceKey(session.Cacao.P.Nonce))
	if err != nil {
		return "", nil, fmt.Errorf("failed to check session invalidation: %w", err)
	}
	if revoked {
		return "", nil, core.ErrTokenInvalidated
	}

	expiresAt := now.Add(s.accessTTL)
	if sessionExpiry.Before(expiresAt) {
		expiresAt = sessionExpiry
	}

	grant := &core.Grant{
		ID:               uuid.New().String(),
		DID:              session.Issuer(),
		Address:          common.HexToAddress(address).Hex(),
		ChainID:          chainID,
		Nonce:            session.Cacao.P.Nonce,
		IssuedAt:         now,
		ExpiresAt:        expiresAt,
		SessionExpiresAt: sessionExpiry,
	}

	token, err := s.tokenizer.GrantToAccessToken(grant)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create access token: %w", err)
	}

	s.logger.Debug("session connected", "address", grant.Address, "grant", grant.ID)

	return token, grant, nil
}

// ValidateAccessToken parses an access token and checks it was not revoked
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Grant, error) {
	grant, err := s.tokenizer.AccessTokenToGrant(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if s.now().After(grant.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	for _, key := range []string{grant.ID, nonceKey(grant.Nonce)} {
		invalidated, err := s.store.IsTokenInvalidated(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return grant, nil
}

// Logout revokes a grant and the session it was minted from
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	grant, err := s.tokenizer.AccessTokenToGrant(accessToken)
	if err != nil {
		return fmt.Errorf("invalid access token: %w", err)
	}

	now := s.now()

	// Keep the record for a short while even when the grant already lapsed
	// so clock skew cannot bring it back.
	grantTTL := grant.ExpiresAt.Sub(now)
	if grantTTL <= 0 {
		grantTTL = time.Hour
	}
	if err := s.store.InvalidateToken(ctx, grant.ID, grantTTL); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if grant.Nonce != "" {
		sessionTTL := grant.SessionExpiresAt.Sub(now)
		if sessionTTL < grantTTL {
			sessionTTL = grantTTL
		}
		if err := s.store.InvalidateToken(ctx, nonceKey(grant.Nonce), sessionTTL); err != nil {
			return fmt.Errorf("failed to invalidate session: %w", err)
		}
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, grant.Address, grant.ID); err != nil {
			s.logger.Warn("failed to publish logout event", "address", grant.Address, "err", err)
		}
	}

	return nil
}

// IsClientError reports whether err was caused by the caller's input
func IsClientError(err error) bool {
	for _, target := range []error{
		core.ErrMalformedSession,
		core.ErrMismatchedAddress,
		core.ErrInvalidAddress,
		core.ErrInvalidToken,
		core.ErrDomainNotAllowed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func nonceKey(nonce string) string {
	return "nonce:" + nonce
}
