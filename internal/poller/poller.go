// Package poller drives the snapshot/merge cycle on a fixed wall-clock
// interval. Sampling is best-effort: ticks are not compensated for drift or
// overrun, a failed cycle is skipped, and a tick that arrives while a
// snapshot request is still outstanding is dropped rather than issuing a
// second concurrent request.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/tree"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 1000 * time.Millisecond

// CycleObserver receives the outcome of each poll cycle. A partial cycle is
// one whose merge rejected malformed subtrees but still changed the tree and
// notified subscribers; it is reported separately from a failed cycle, which
// leaves the tree untouched. Implementations must not block; the
// prometheus-backed one lives in the server package.
type CycleObserver interface {
	CycleOK(duration time.Duration, nodeCount int)
	CyclePartial(duration time.Duration, nodeCount int)
	CycleError()
	CycleSkipped()
}

type nopObserver struct{}

func (nopObserver) CycleOK(time.Duration, int)      {}
func (nopObserver) CyclePartial(time.Duration, int) {}
func (nopObserver) CycleError()                     {}
func (nopObserver) CycleSkipped()                   {}

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	// Interval between ticks. Defaults to DefaultInterval.
	Interval time.Duration
	// SnapshotTimeout bounds each snapshot request so a hung source cannot
	// pin the in-flight slot forever. Defaults to Interval.
	SnapshotTimeout time.Duration
	Logger          *zap.Logger
	Observer        CycleObserver
}

// Poller owns the recurring timer. It takes an immediate snapshot on Start
// and then repeats on the fixed interval until Stop. The store is mutated
// exclusively from resolved cycles; a snapshot resolving after the store is
// closed is discarded silently.
type Poller struct {
	rootPid int32
	store   *tree.Store
	src     proc.Snapshotter

	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	obs      CycleObserver

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Bool
}

// New creates a Poller for rootPid feeding the given store from src.
func New(rootPid int32, store *tree.Store, src proc.Snapshotter, opts Options) (*Poller, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("snapshotter cannot be nil")
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	return &Poller{
		rootPid:  rootPid,
		store:    store,
		src:      src,
		interval: opts.Interval,
		timeout:  opts.SnapshotTimeout,
		log:      opts.Logger,
		obs:      opts.Observer,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the polling loop. The first snapshot is requested
// immediately, not after the first interval.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("poller already started")
	}
	if p.stopped {
		return fmt.Errorf("poller already stopped")
	}
	p.started = true

	p.wg.Add(1)
	go p.run()
	return nil
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle()

	for {
		select {
		case <-ticker.C:
			p.cycle()
		case <-p.stopCh:
			return
		}
	}
}

// cycle dispatches one snapshot request. The request runs off the timer
// goroutine so a slow or hung source never delays the ticker; the in-flight
// flag turns overlapping ticks into skips instead of concurrent requests.
func (p *Poller) cycle() {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.log.Debug("tick skipped, snapshot still in flight",
			zap.Int32("rootPid", p.rootPid))
		p.obs.CycleSkipped()
		return
	}

	go func() {
		defer p.inFlight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		start := time.Now()
		rec, err := p.src.Snapshot(ctx, p.rootPid)
		if err != nil {
			// The previous tree stays authoritative; no notification.
			p.log.Debug("snapshot failed, cycle skipped",
				zap.Int32("rootPid", p.rootPid), zap.Error(err))
			p.obs.CycleError()
			return
		}

		if err := p.store.Apply(rec); err != nil {
			switch {
			case errors.Is(err, tree.ErrStoreClosed):
				// Resolved after teardown; discard.
			case errors.Is(err, proc.ErrMalformedRecord):
				// Healthy siblings merged and subscribers were notified, so
				// the tree did change despite the error.
				p.log.Warn("merge rejected part of the snapshot",
					zap.Int32("rootPid", p.rootPid), zap.Error(err))
				p.obs.CyclePartial(time.Since(start), p.store.Len())
			default:
				p.log.Warn("merge failed",
					zap.Int32("rootPid", p.rootPid), zap.Error(err))
				p.obs.CycleError()
			}
			return
		}

		// Len is read after the merge without the store lock; the in-flight
		// flag guarantees no other cycle can change it in between.
		p.obs.CycleOK(time.Since(start), p.store.Len())
	}()
}

// Stop halts the timer and joins the polling loop. Idempotent. An in-flight
// snapshot request is not cancelled; its eventual resolution lands on the
// (by then typically closed) store as a no-op.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if started {
		close(p.stopCh)
		p.wg.Wait()
	}
	return nil
}
