package confirm

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSink only logs confirmations. It stands in when no marketplace endpoint
// is configured.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Confirm(_ context.Context, c Confirmation) error {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"order_id": c.OrderID,
		"txid":     c.ObservedTxid,
		"chain":    c.Chain,
	}).Info("confirmation not delivered: no sink configured")
	return nil
}
