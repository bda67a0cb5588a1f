package history

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/tree"
)

// Recorder consumes the tree store's change notifications — through the same
// contract a presentation adapter uses — and writes one cycle of samples per
// wakeup. Exited nodes retained for display are not recorded.
type Recorder struct {
	store   *Store
	src     *tree.Store
	rootPid int32
	log     *zap.Logger

	stopCh chan struct{}
	cancel func()
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder persisting src's contents into store.
func NewRecorder(store *Store, src *tree.Store, rootPid int32, log *zap.Logger) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("history store cannot be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("tree store cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		store:   store,
		src:     src,
		rootPid: rootPid,
		log:     log,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start subscribes to change notifications and begins recording.
func (r *Recorder) Start() error {
	ch, cancel := r.src.Subscribe()
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(ch)
	return nil
}

func (r *Recorder) run(ch <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // tree store torn down
			}
			if err := r.recordCycle(); err != nil {
				r.log.Warn("failed to record cycle", zap.Error(err))
			}
		case <-r.stopCh:
			return
		}
	}
}

// recordCycle flattens the current tree and persists it as one cycle.
func (r *Recorder) recordCycle() error {
	var samples []Sample
	r.src.Walk(func(rec proc.Record, depth int, removed bool) {
		if removed {
			return
		}
		samples = append(samples, Sample{
			Pid:     rec.Pid,
			PPid:    rec.PPid,
			Name:    rec.Name,
			Command: rec.Command,
			CPULoad: rec.CPULoad,
			Memory:  rec.Memory,
		})
	})

	_, err := r.store.InsertCycle(time.Now(), r.rootPid, samples)
	return err
}

// Stop halts recording and joins the worker goroutine. Idempotent by way of
// the subscription cancel; safe to call before Start.
func (r *Recorder) Stop() error {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}
