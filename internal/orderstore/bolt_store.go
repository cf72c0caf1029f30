package orderstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketOrders = []byte("market_orders")

// BoltStore reads orders from an embedded bbolt file, one JSON value per
// order id.
type BoltStore struct {
	db *bolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketOrders); err != nil {
			return fmt.Errorf("create bucket %s: %w", string(bucketOrders), err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltStore) Ping(_ context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketOrders) == nil {
			return fmt.Errorf("bucket %s missing", string(bucketOrders))
		}
		return nil
	})
}

func (b *BoltStore) List(_ context.Context) ([]Order, error) {
	var out []Order
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(k, v []byte) error {
			o, err := decodeOrder(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltStore) Save(_ context.Context, order Order) error {
	raw, err := encodeOrder(order)
	if err != nil {
		return err
	}
	return b.SaveRaw(order.OrderID, raw)
}

func (b *BoltStore) SaveRaw(key string, raw []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).Put([]byte(key), raw)
	})
}
