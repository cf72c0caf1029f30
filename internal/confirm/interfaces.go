package confirm

import (
	"context"
)

// Sink receives payment observations for marketplace orders.
type Sink interface {
	Confirm(ctx context.Context, c Confirmation) error
}

type Confirmation struct {
	OrderID      string `json:"orderId"`
	ObservedTxid string `json:"observedTxid"`
	Chain        string `json:"chain"`
}
