package orderstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	orders, err := store.List(ctx)
	if err != nil || len(orders) != 0 {
		t.Fatalf("expected empty store, got %v %v", orders, err)
	}

	for _, o := range []Order{
		{OrderID: "b", PriceChain: "BTC", DepositAddress: "btc_1"},
		{OrderID: "a", PriceChain: "doge", DepositAddress: "doge_2"},
	} {
		if err := store.Save(ctx, o); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	orders, err = store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 || orders[0].OrderID != "a" || orders[1].DepositAddress != "btc_1" {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	if err := store.Save(ctx, Order{}); err == nil {
		t.Fatalf("expected error for missing order id")
	}
}

func TestMemoryStoreCorruptRecordFailsList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Save(ctx, Order{OrderID: "ok", PriceChain: "BTC"})
	store.SaveRaw("broken", []byte(`{"orderId":`))

	if _, err := store.List(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders", "orders.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	ctx := context.Background()
	order := Order{OrderID: "o-1", PriceChain: "BCH", DepositAddress: "bch_abc"}
	if err := store.Save(ctx, order); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	store2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}

	got, err := store2.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0] != order {
		t.Fatalf("unexpected orders: %+v", got)
	}
}

func TestFileStoreSeesExternalCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"o-1":{"orderId":"o-1","priceChain":7}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
