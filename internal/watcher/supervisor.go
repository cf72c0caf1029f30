package watcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chainwatch/internal/chain"
	"chainwatch/internal/confirm"
	"chainwatch/internal/indexer"
	"chainwatch/internal/orderstore"
)

// Supervisor runs one watcher per chain and owns their shutdown.
type Supervisor struct {
	watchers []*Watcher
	byChain  map[chain.ID]*Watcher
	group    *errgroup.Group
	cancel   context.CancelFunc
}

func NewSupervisor(watchers ...*Watcher) *Supervisor {
	s := &Supervisor{byChain: make(map[chain.ID]*Watcher, len(watchers))}
	for _, w := range watchers {
		s.watchers = append(s.watchers, w)
		s.byChain[w.Chain()] = w
	}
	return s
}

// IndexerFactory builds the indexer client for one chain.
type IndexerFactory func(cfg chain.Config) (indexer.Client, error)

// FromRegistry builds a watcher for every chain in reg.
func FromRegistry(reg *chain.Registry, orders orderstore.Reader, newIndexer IndexerFactory, sink confirm.Sink, opts ...Option) (*Supervisor, error) {
	watchers := make([]*Watcher, 0, reg.Len())
	for _, cfg := range reg.All() {
		idx, err := newIndexer(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s indexer: %w", cfg.ID, err)
		}
		watchers = append(watchers, New(cfg, orders, idx, sink, opts...))
	}
	return NewSupervisor(watchers...), nil
}

// Start launches every watcher. Call Stop to cancel and join them.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range s.watchers {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	s.group = g
}

// Wait blocks until every watcher has returned.
func (s *Supervisor) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

func (s *Supervisor) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.Wait()
}

// Wake forces an immediate tick on id. It reports false for unknown chains.
func (s *Supervisor) Wake(id chain.ID) bool {
	w, ok := s.byChain[id]
	if !ok {
		return false
	}
	w.Wake()
	return true
}

func (s *Supervisor) Watcher(id chain.ID) (*Watcher, bool) {
	w, ok := s.byChain[id]
	return w, ok
}

func (s *Supervisor) Chains() []chain.ID {
	out := make([]chain.ID, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w.Chain())
	}
	return out
}
