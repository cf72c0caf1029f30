package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"chainwatch/internal/address"
	"chainwatch/internal/chain"
)

// Prefix is prepended to every environment key, e.g. CHAINWATCH_STORE_DRIVER.
const Prefix = "CHAINWATCH"

var ErrPermissiveDecode = errors.New("permissive address decoding is only allowed in development and test environments")

// AppConfig is the full process configuration, read from the environment.
type AppConfig struct {
	Env      string `default:"production" validate:"oneof=production staging development test"`
	LogLevel string `split_words:"true" default:"info" validate:"oneof=trace debug info warn warning error"`

	Service ServiceConfig
	Watch   WatchConfig
	Chains  ChainsConfig
	Invoice InvoiceConfig
	Address AddressConfig
	Store   StoreConfig
	Sink    SinkConfig
}

type ServiceConfig struct {
	HTTPPort          int    `split_words:"true" default:"3000" validate:"min=1,max=65535"`
	HMACSecret        string `split_words:"true"`
	HMACClockSkewSecs int    `split_words:"true" default:"60" validate:"min=1"`
}

type WatchConfig struct {
	PollSecs       int `split_words:"true" default:"30" validate:"min=1"`
	RPCTimeoutSecs int `split_words:"true" default:"10" validate:"min=1"`
}

// ChainEndpoint overrides the built-in table for one chain. Zero values keep
// the defaults.
type ChainEndpoint struct {
	Endpoint      string
	Confirmations int `validate:"min=0"`
}

type ChainsConfig struct {
	BTC  ChainEndpoint
	BCH  ChainEndpoint
	DOGE ChainEndpoint
}

type InvoiceConfig struct {
	Seed string `default:"chainwatch-dev-seed"`
}

type AddressConfig struct {
	DecodeMode string `split_words:"true" default:"strict" validate:"oneof=strict permissive"`
}

type StoreConfig struct {
	Driver string `default:"bolt" validate:"oneof=bolt file postgres memory"`
	Path   string `default:"chainwatch.db" validate:"required_if=Driver bolt,required_if=Driver file"`
	DSN    string `validate:"required_if=Driver postgres"`
}

type SinkConfig struct {
	URL         string `validate:"omitempty,url"`
	Path        string `default:"/_market/land/confirm" validate:"startswith=/"`
	Secret      string
	TimeoutSecs int `split_words:"true" default:"10" validate:"min=1"`
}

// Load reads CHAINWATCH_* variables and validates the result.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env var: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DecodeMode() == address.ModePermissive && !c.IsDevelopment() {
		return ErrPermissiveDecode
	}
	return nil
}

// IsDevelopment reports whether relaxed, non-production behaviour is allowed.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "test"
}

func (c *AppConfig) DecodeMode() address.DecodeMode {
	mode, err := address.ParseDecodeMode(c.Address.DecodeMode)
	if err != nil {
		return address.ModeStrict
	}
	return mode
}

func (c *AppConfig) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollSecs) * time.Second
}

func (c *AppConfig) RPCTimeout() time.Duration {
	return time.Duration(c.Watch.RPCTimeoutSecs) * time.Second
}

func (c *AppConfig) HMACClockSkew() time.Duration {
	return time.Duration(c.Service.HMACClockSkewSecs) * time.Second
}

func (c *AppConfig) SinkTimeout() time.Duration {
	return time.Duration(c.Sink.TimeoutSecs) * time.Second
}

// Registry applies the per-chain overrides to the built-in chain table.
func (c *AppConfig) Registry() (*chain.Registry, error) {
	overrides := map[chain.ID]ChainEndpoint{
		chain.BTC:  c.Chains.BTC,
		chain.BCH:  c.Chains.BCH,
		chain.DOGE: c.Chains.DOGE,
	}

	cfgs := chain.DefaultConfigs(c.PollInterval())
	for i := range cfgs {
		o := overrides[cfgs[i].ID]
		if o.Endpoint != "" {
			cfgs[i].IndexerEndpoint = o.Endpoint
		}
		if o.Confirmations > 0 {
			cfgs[i].RequiredConfirmations = o.Confirmations
		}
	}
	return chain.NewRegistry(cfgs...)
}
