package chain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ID identifies a supported UTXO chain.
type ID string

const (
	BTC  ID = "BTC"
	BCH  ID = "BCH"
	DOGE ID = "DOGE"
)

var (
	ErrUnknownChain   = errors.New("unknown chain")
	ErrDuplicateChain = errors.New("duplicate chain config")
)

// order is the stable iteration order used by Registry.All.
var order = []ID{BTC, BCH, DOGE}

func (id ID) String() string { return string(id) }

// ParseID resolves a chain name case-insensitively.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range order {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChain, s)
}

// Config is the static watcher configuration for one chain.
type Config struct {
	ID                    ID
	IndexerEndpoint       string
	RequiredConfirmations int
	PollInterval          time.Duration
}

const DefaultPollInterval = 30 * time.Second

// DefaultConfigs returns the built-in chain table. Endpoints point at public
// electrum servers and are expected to be overridden in deployment.
func DefaultConfigs(pollInterval time.Duration) []Config {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return []Config{
		{ID: BTC, IndexerEndpoint: "tcp://electrum.blockstream.info:50001", RequiredConfirmations: 2, PollInterval: pollInterval},
		{ID: BCH, IndexerEndpoint: "tcp://bch.imaginary.cash:50001", RequiredConfirmations: 2, PollInterval: pollInterval},
		{ID: DOGE, IndexerEndpoint: "tcp://electrum.dogecoin.org:50001", RequiredConfirmations: 40, PollInterval: pollInterval},
	}
}

// Registry holds one Config per chain. It is built once at startup and never
// mutated afterwards, so it is safe to share between watchers.
type Registry struct {
	configs map[ID]Config
}

func NewRegistry(cfgs ...Config) (*Registry, error) {
	r := &Registry{configs: make(map[ID]Config, len(cfgs))}
	for _, cfg := range cfgs {
		if _, err := ParseID(string(cfg.ID)); err != nil {
			return nil, err
		}
		if _, ok := r.configs[cfg.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChain, cfg.ID)
		}
		if strings.TrimSpace(cfg.IndexerEndpoint) == "" {
			return nil, fmt.Errorf("%s: indexer endpoint is required", cfg.ID)
		}
		if cfg.RequiredConfirmations <= 0 {
			return nil, fmt.Errorf("%s: required confirmations must be positive", cfg.ID)
		}
		if cfg.PollInterval <= 0 {
			return nil, fmt.Errorf("%s: poll interval must be positive", cfg.ID)
		}
		r.configs[cfg.ID] = cfg
	}
	return r, nil
}

func (r *Registry) Get(id ID) (Config, bool) {
	cfg, ok := r.configs[id]
	return cfg, ok
}

// All returns the configured chains in BTC, BCH, DOGE order.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.configs))
	for _, id := range order {
		if cfg, ok := r.configs[id]; ok {
			out = append(out, cfg)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.configs) }
