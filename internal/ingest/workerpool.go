package ingest

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// NetworkPool is the bounded, FIFO worker pool described in spec §5:
// "workers pull from a per-network FIFO queue so that writes within one
// network are globally ordered." Ordering across submitted tasks can only
// be guaranteed by a single active consumer, so NetworkPool always runs
// exactly one conc/pool worker; the queue depth (not a worker count) is
// what's bounded and configurable, giving the Coordinator backpressure
// against a stalled Graph Client without breaking commit order.
type NetworkPool struct {
	tasks  chan func(context.Context)
	pool   *pool.ContextPool
	cancel context.CancelFunc
}

// NewNetworkPool starts a NetworkPool whose queue holds up to queueDepth
// pending tasks before Submit blocks.
func NewNetworkPool(parent context.Context, queueDepth int) *NetworkPool {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	ctx, cancel := context.WithCancel(parent)
	np := &NetworkPool{
		tasks:  make(chan func(context.Context), queueDepth),
		cancel: cancel,
	}
	np.pool = pool.New().WithContext(ctx)
	np.pool.Go(func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case task, ok := <-np.tasks:
				if !ok {
					return nil
				}
				task(ctx)
			}
		}
	})
	return np
}

// Submit enqueues task for FIFO execution, blocking if the queue is full.
func (np *NetworkPool) Submit(task func(context.Context)) {
	np.tasks <- task
}

// Close drains and stops the pool's worker, waiting for any in-flight task
// to finish.
func (np *NetworkPool) Close() {
	close(np.tasks)
	_ = np.pool.Wait()
	np.cancel()
}
