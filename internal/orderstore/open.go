package orderstore

import (
	"context"
	"fmt"
)

const (
	DriverBolt     = "bolt"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open builds the store named by driver. path is used by bolt and file, dsn
// by postgres. The returned close func is never nil.
func Open(ctx context.Context, driver, path, dsn string) (Store, func(), error) {
	noop := func() {}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), noop, nil
	case DriverFile:
		fs, err := NewFileStore(path)
		if err != nil {
			return nil, noop, fmt.Errorf("open file store: %w", err)
		}
		return fs, noop, nil
	case DriverBolt, "":
		bs, err := OpenBoltStore(path)
		if err != nil {
			return nil, noop, fmt.Errorf("open bolt store: %w", err)
		}
		return bs, func() { _ = bs.Close() }, nil
	case DriverPostgres:
		ps, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres store: %w", err)
		}
		return ps, ps.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", driver)
	}
}
