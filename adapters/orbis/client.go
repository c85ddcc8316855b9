package orbis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
)

const (
	// DefaultSessionTTL is how long a signed session stays valid
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultStatement is shown to the user when the wallet asks to sign
	DefaultStatement = "Sign in to Orbis"

	// DefaultResource grants the session access to every stream
	DefaultResource = "ceramic://*"

	siweVersion = "1"
)

// NodeError is a non-2xx answer from a node
type NodeError struct {
	StatusCode int
	Message    string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node responded %d: %s", e.StatusCode, e.Message)
}

// Config describes the node a client talks to and the sessions it signs
type Config struct {
	NodeURL    string
	Domain     string
	URI        string
	Statement  string
	Resources  []string
	SessionTTL time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client connects wallets to an Orbis node.
// It implements ports.AuthProvider and ports.UserService.
type Client struct {
	cfg   Config
	store ports.SessionStore
	codec ports.SessionCodec
	now   func() time.Time

	mu    sync.Mutex
	token string
}

var (
	_ ports.AuthProvider = (*Client)(nil)
	_ ports.UserService  = (*Client)(nil)
)

// NewClient creates a node client persisting sessions to store
func NewClient(cfg Config, store ports.SessionStore, codec ports.SessionCodec) *Client {
	cfg.NodeURL = strings.TrimRight(cfg.NodeURL, "/")
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}
	if cfg.URI == "" {
		cfg.URI = "https://" + cfg.Domain
	}
	if cfg.Statement == "" {
		cfg.Statement = DefaultStatement
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = []string{DefaultResource}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:   cfg,
		store: store,
		codec: codec,
		now:   time.Now,
	}
}

type connectRequest struct {
	Session string `json:"session"`
}

type connectResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        *core.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ConnectUser has the wallet sign a new session and exchanges it with the
// node. The encoded session is written to the session store.
func (c *Client) ConnectUser(ctx context.Context, wallet ports.Wallet) (ports.ConnectResult, error) {
	session, err := c.signSession(ctx, wallet)
	if err != nil {
		return ports.ConnectResult{}, err
	}

	raw, err := c.codec.Encode(session)
	if err != nil {
		return ports.ConnectResult{}, fmt.Errorf("failed to encode session: %w", err)
	}

	resp, err := c.connect(ctx, raw)
	if err != nil {
		return ports.ConnectResult{}, err
	}

	// the caller gave up on this exchange, its session must not be kept
	if err := ctx.Err(); err != nil {
		return ports.ConnectResult{}, err
	}
	c.setAccessToken(resp.AccessToken)

	if err := c.store.Write(ctx, raw); err != nil {
		return ports.ConnectResult{}, fmt.Errorf("failed to persist session: %w", err)
	}

	return ports.ConnectResult{Session: &session, User: resp.User}, nil
}

// GetConnectedUser returns the user the node sees for the current access
// token. Without a token it resumes from the cached session. It returns nil
// when there is nothing to resume or the node rejects it.
func (c *Client) GetConnectedUser(ctx context.Context) (*core.User, error) {
	token := c.accessToken()
	if token == "" {
		raw, err := c.store.Read(ctx)
		if errors.Is(err, core.ErrNoSession) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}

		resp, err := c.connect(ctx, raw)
		if isRejected(err) {
			c.cfg.Logger.Debug("node rejected cached session", "err", err)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		token = resp.AccessToken
		c.setAccessToken(token)
	}

	var user core.User
	err := c.do(ctx, http.MethodGet, "/api/me", token, nil, &user)
	if isRejected(err) {
		c.setAccessToken("")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Logout revokes the current access token on the node
func (c *Client) Logout(ctx context.Context) error {
	token := c.accessToken()
	if token == "" {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
	c.setAccessToken("")
	return err
}

// Forget drops the access token without contacting the node
func (c *Client) Forget() {
	c.setAccessToken("")
}

func (c *Client) signSession(ctx context.Context, wallet ports.Wallet) (core.Session, error) {
	now := c.now().UTC()

	payload := core.CacaoPayload{
		Domain:    c.cfg.Domain,
		Iss:       core.NewIssuer(wallet.ChainID(), wallet.Address()),
		Aud:       c.cfg.URI,
		Version:   siweVersion,
		Nonce:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		Iat:       core.FormatTime(now),
		Exp:       core.FormatTime(now.Add(c.cfg.SessionTTL)),
		Statement: c.cfg.Statement,
		Resources: append([]string(nil), c.cfg.Resources...),
	}

	msg, err := payload.Message()
	if err != nil {
		return core.Session{}, err
	}

	sig, err := wallet.SignMessage(ctx, []byte(msg))
	if err != nil {
		return core.Session{}, fmt.Errorf("wallet refused to sign: %w", err)
	}

	return core.Session{
		Cacao: core.Cacao{
			H: core.CacaoHeader{T: core.HeaderTypeEIP4361},
			P: payload,
			S: &core.CacaoSignature{T: core.SignatureTypeEIP191, S: hexutil.Encode(sig)},
		},
	}, nil
}

func (c *Client) connect(ctx context.Context, raw string) (connectResponse, error) {
	var resp connectResponse
	if err := c.do(ctx, http.MethodPost, "/auth/connect", "", connectRequest{Session: raw}, &resp); err != nil {
		return connectResponse{}, err
	}
	if resp.AccessToken == "" {
		return connectResponse{}, errors.New("node returned no access token")
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.NodeURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(res.StatusCode)
		}
		return &NodeError{StatusCode: res.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// isRejected reports a 4xx answer, the node refusing the credentials
func isRejected(err error) bool {
	var nodeErr *NodeError
	return errors.As(err, &nodeErr) && nodeErr.StatusCode >= 400 && nodeErr.StatusCode < 500
}
