package confirm

import (
	"context"
	"sync"
)

// FakeSink records confirmations in memory. Err, when set, is returned from
// every call after recording it.
type FakeSink struct {
	mu    sync.Mutex
	calls []Confirmation
	Err   error
}

func (f *FakeSink) Confirm(_ context.Context, c Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.Err
}

func (f *FakeSink) Calls() []Confirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Confirmation(nil), f.calls...)
}
