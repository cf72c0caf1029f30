package orderstore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, tc := range []struct {
		driver string
		path   string
	}{
		{DriverMemory, ""},
		{DriverFile, filepath.Join(dir, "orders.json")},
		{DriverBolt, filepath.Join(dir, "orders.db")},
	} {
		store, closeFn, err := Open(ctx, tc.driver, tc.path, "")
		if err != nil {
			t.Fatalf("%s: open: %v", tc.driver, err)
		}
		if err := store.Save(ctx, Order{OrderID: "o1", PriceChain: "BTC", DepositAddress: "btc_1"}); err != nil {
			t.Fatalf("%s: save: %v", tc.driver, err)
		}
		orders, err := store.List(ctx)
		if err != nil || len(orders) != 1 {
			t.Fatalf("%s: list returned %v %v", tc.driver, orders, err)
		}
		closeFn()
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, closeFn, err := Open(context.Background(), "redis", "", "")
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	closeFn()
}
