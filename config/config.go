// Package config loads client and node settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// ClientConfig configures an orbis client. ENV names are in the tags.
type ClientConfig struct {
	// NodeURL of the Orbis node. ENV: ORBIS_NODE_URL
	NodeURL string `env:"ORBIS_NODE_URL,default=http://localhost:9000"`
	// RedisURL for the session cache; empty keeps it in memory. ENV: ORBIS_REDIS_URL
	RedisURL string `env:"ORBIS_REDIS_URL"`
	// StorageKey the session is cached under. ENV: ORBIS_STORAGE_KEY
	StorageKey string `env:"ORBIS_STORAGE_KEY,default=orbis:session"`
	// Domain that asks the wallet to sign in. ENV: ORBIS_DOMAIN
	Domain string `env:"ORBIS_DOMAIN,default=localhost"`
	// ChainID of the wallet account. ENV: ORBIS_CHAIN_ID
	ChainID string `env:"ORBIS_CHAIN_ID,default=1"`
	// SessionTTL of newly signed sessions. ENV: ORBIS_SESSION_TTL
	SessionTTL time.Duration `env:"ORBIS_SESSION_TTL,default=168h"`
	// WalletKey is a hex secp256k1 key; a random one is generated when empty. ENV: ORBIS_WALLET_KEY
	WalletKey string `env:"ORBIS_WALLET_KEY"`
	// ReadyTimeout bounds the wait for authentication. ENV: ORBIS_READY_TIMEOUT
	ReadyTimeout time.Duration `env:"ORBIS_READY_TIMEOUT,default=30s"`
}

// NodeConfig configures an orbis node
type NodeConfig struct {
	ListenAddr string        `env:"ORBIS_LISTEN_ADDR,default=:9000"`
	RedisURL   string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	AccessTTL  time.Duration `env:"ORBIS_ACCESS_TTL,default=15m"`
	// NodeKey is a hex P-256 scalar signing access tokens; random when empty
	NodeKey string `env:"ORBIS_NODE_KEY"`
	// Domains is a comma separated allow-list of SIWE domains
	Domains string `env:"ORBIS_ALLOWED_DOMAINS"`
}

// AllowedDomains splits the domain allow-list
func (c NodeConfig) AllowedDomains() []string {
	var out []string
	for _, d := range strings.Split(c.Domains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// LoadClientConfig reads ClientConfig from the environment
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := decode(&cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// LoadNodeConfig reads NodeConfig from the environment
func LoadNodeConfig() (NodeConfig, error) {
	var cfg NodeConfig
	if err := decode(&cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

func decode(target any) error {
	err := envdecode.Decode(target)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}
