package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTask(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	ran := false
	if err := p.Submit(context.Background(), func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !ran {
		t.Error("expected the submitted task to run")
	}
}

func TestSubmitLimitsConcurrency(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	var active int32
	var maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Submit(context.Background(), func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive > 2 {
		t.Errorf("expected at most 2 concurrent tasks, observed %d", maxActive)
	}
}

func TestSubmitRejectsCancelledContext(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Submit(ctx, func() error { return nil }); err == nil {
		t.Error("expected Submit to reject an already-cancelled context")
	}
}

func TestNewRejectsZeroWorkers(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected an error for 0 workers")
	}
}
