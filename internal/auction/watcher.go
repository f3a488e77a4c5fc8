package auction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrNoHeadSource is reported once every head source has failed. The
// watcher keeps serving Trigger calls after that.
var ErrNoHeadSource = errors.New("no head source available: live updates stopped")

// Fetcher reads a fresh snapshot. *Client satisfies it.
type Fetcher interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Update is emitted when the snapshot changed or a refresh failed.
type Update struct {
	Snapshot *Snapshot
	Err      error
}

// Watcher keeps a snapshot fresh. Refreshes run one at a time on the Run
// goroutine; heads and triggers that arrive during a refresh collapse into
// a single follow-up refresh.
type Watcher struct {
	sources []HeadSource
	log     *zap.Logger

	mu      sync.Mutex
	fetcher Fetcher
	gen     uint64 // bumped by Retarget
	last    *Snapshot
	lastErr string

	block   atomic.Uint64
	wake    chan struct{}
	updates chan Update
}

// NewWatcher creates a watcher that tries sources in order, moving to the
// next one when a source fails.
func NewWatcher(f Fetcher, logger *zap.Logger, sources ...HeadSource) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		sources: sources,
		log:     logger.Named("watcher"),
		fetcher: f,
		wake:    make(chan struct{}, 1),
		updates: make(chan Update),
	}
}

// Updates delivers snapshots and errors. It is closed when Run returns.
func (w *Watcher) Updates() <-chan Update { return w.updates }

// Trigger requests a refresh, e.g. after a transaction was mined.
func (w *Watcher) Trigger() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Retarget swaps the fetcher, e.g. after the session switched account, and
// refreshes. A refresh still running on the old fetcher is discarded.
func (w *Watcher) Retarget(f Fetcher) {
	w.mu.Lock()
	w.fetcher = f
	w.gen++
	w.last = nil
	w.lastErr = ""
	w.mu.Unlock()
	w.Trigger()
}

// Run refreshes until ctx ends. It performs one refresh immediately.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.updates)

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.pumpHeads(ctx); err != nil {
			failed <- err
		}
	}()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-failed:
			w.emit(ctx, Update{Err: err})
		case <-w.wake:
			w.refresh(ctx)
		}
	}
}

// pumpHeads forwards heads from the first working source into wake.
func (w *Watcher) pumpHeads(ctx context.Context) error {
	for _, src := range w.sources {
		heads, err := src.Heads(ctx)
		if err != nil {
			w.log.Debug("head source unavailable", zap.Stringer("source", src), zap.Error(err))
			continue
		}
		w.log.Debug("following heads", zap.Stringer("source", src))
		for n := range heads {
			w.block.Store(n)
			w.Trigger()
		}
		if ctx.Err() != nil {
			return nil
		}
		w.log.Debug("head source ended, falling back", zap.Stringer("source", src))
	}
	if ctx.Err() != nil || len(w.sources) == 0 {
		return nil
	}
	return ErrNoHeadSource
}

func (w *Watcher) refresh(ctx context.Context) {
	w.mu.Lock()
	f, gen := w.fetcher, w.gen
	w.mu.Unlock()

	snap, err := f.Snapshot(ctx)
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		w.log.Debug("dropping snapshot from retargeted fetcher")
		return
	}
	if err != nil {
		if err.Error() == w.lastErr {
			w.mu.Unlock()
			return
		}
		w.lastErr = err.Error()
		w.mu.Unlock()
		w.emit(ctx, Update{Err: err})
		return
	}
	snap.Block = w.block.Load()
	changed := !snap.SameState(w.last) || w.lastErr != ""
	w.last, w.lastErr = snap, ""
	w.mu.Unlock()

	if changed {
		w.emit(ctx, Update{Snapshot: snap})
	}
}

func (w *Watcher) emit(ctx context.Context, u Update) {
	select {
	case w.updates <- u:
	case <-ctx.Done():
	}
}
