package orderstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Order is the subset of a marketplace order the watcher reads.
type Order struct {
	OrderID        string `json:"orderId"`
	PriceChain     string `json:"priceChain"`
	DepositAddress string `json:"depositAddress"`
}

// Reader is the read side consumed by watchers. List fails as a whole when
// any stored record cannot be decoded.
type Reader interface {
	List(ctx context.Context) ([]Order, error)
}

// Store adds the write path used for seeding and tests.
type Store interface {
	Reader
	Save(ctx context.Context, order Order) error
}

func decodeOrder(key string, raw []byte) (Order, error) {
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, fmt.Errorf("decode order %q: %w", key, err)
	}
	return o, nil
}

func encodeOrder(order Order) ([]byte, error) {
	if order.OrderID == "" {
		return nil, errors.New("order id is required")
	}
	return json.Marshal(order)
}

func decodeAll(data map[string]json.RawMessage) ([]Order, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Order, 0, len(keys))
	for _, k := range keys {
		o, err := decodeOrder(k, data[k])
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// MemoryStore is mostly for testing.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]json.RawMessage),
	}
}

func (m *MemoryStore) List(_ context.Context) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decodeAll(m.data)
}

func (m *MemoryStore) Save(_ context.Context, order Order) error {
	raw, err := encodeOrder(order)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[order.OrderID] = raw
	return nil
}

// SaveRaw stores an arbitrary record body under key.
func (m *MemoryStore) SaveRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append(json.RawMessage(nil), raw...)
}

// FileStore keeps orders in a JSON object keyed by order id. The file is
// re-read on every List so edits made by other processes are picked up.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if _, err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage)
	blob, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileStore) persist(data map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, blob, 0o600)
}

func (f *FileStore) List(_ context.Context) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return nil, err
	}
	return decodeAll(data)
}

func (f *FileStore) Save(_ context.Context, order Order) error {
	raw, err := encodeOrder(order)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	data[order.OrderID] = raw
	return f.persist(data)
}
