package indexer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPCClient speaks JSON-RPC 2.0 over HTTP(S) to an electrum-compatible indexer.
type RPCClient struct {
	endpoint string
	client   *rpc.Client
	timeout  time.Duration
}

type RPCClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewRPCClient(ctx context.Context, cfg RPCClientConfig) (*RPCClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("indexer endpoint is required")
	}
	endpoint := httpEndpoint(cfg.Endpoint)

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	cli, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("dial indexer %s: %w", endpoint, err)
	}
	return &RPCClient{
		endpoint: endpoint,
		client:   cli,
		timeout:  cfg.Timeout,
	}, nil
}

// httpEndpoint maps electrum tcp:// URLs onto the HTTPS transport.
func httpEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "tcp://"); ok {
		return "https://" + rest
	}
	return raw
}

func (c *RPCClient) Endpoint() string { return c.endpoint }

func (c *RPCClient) GetHistory(ctx context.Context, address string) ([]HistoryEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var history []HistoryEntry
	if err := c.client.CallContext(ctx, &history, MethodGetHistory, address); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodGetHistory, err)
	}
	return history, nil
}

func (c *RPCClient) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.CallContext(ctx, nil, "server.ping")
}

func (c *RPCClient) Close() {
	c.client.Close()
}

func (c *RPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
