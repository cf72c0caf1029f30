package indexer

import (
	"context"
	"sync"
)

// FakeClient serves scripted histories per address. Unknown addresses have
// an empty history.
type FakeClient struct {
	mu        sync.Mutex
	histories map[string][]HistoryEntry
	errs      map[string]error
	calls     []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		histories: make(map[string][]HistoryEntry),
		errs:      make(map[string]error),
	}
}

func (f *FakeClient) SetHistory(address string, entries ...HistoryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[address] = entries
}

func (f *FakeClient) SetError(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[address] = err
}

func (f *FakeClient) GetHistory(_ context.Context, address string) ([]HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	return append([]HistoryEntry(nil), f.histories[address]...), nil
}

// Calls returns the addresses queried so far, in order.
func (f *FakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
