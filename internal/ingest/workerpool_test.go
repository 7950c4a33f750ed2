package ingest

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNetworkPoolExecutesTasksInFIFOOrder(t *testing.T) {
	np := NewNetworkPool(context.Background(), 16)
	defer np.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		np.Submit(func(ctx context.Context) {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestNetworkPoolCloseStopsAcceptingAfterDrain(t *testing.T) {
	np := NewNetworkPool(context.Background(), 4)
	done := make(chan struct{})
	np.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected submitted task to run")
	}
	np.Close()
}
