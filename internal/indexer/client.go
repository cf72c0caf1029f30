package indexer

import (
	"context"
)

// MethodGetHistory is the electrum address-history method.
const MethodGetHistory = "blockchain.address.get_history"

// HistoryEntry is one transaction touching an address. Height is 0 (or
// negative) while the transaction is still in the mempool.
type HistoryEntry struct {
	Height int64  `json:"height"`
	TxHash string `json:"tx_hash"`
	Fee    int64  `json:"fee,omitempty"`
}

// Client abstracts the chain indexer lookups the watcher needs.
type Client interface {
	GetHistory(ctx context.Context, address string) ([]HistoryEntry, error)
}

// HealthChecker is implemented by clients that can probe their endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
