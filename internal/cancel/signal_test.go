package cancel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"reactir/internal/cancel"
)

func TestSetIsIdempotent(t *testing.T) {
	once := cancel.New()
	once.Set()

	twice := cancel.New()
	twice.Set()
	twice.Set()

	if once.IsSet() != twice.IsSet() {
		t.Fatalf("expected same observable state, got %v and %v", once.IsSet(), twice.IsSet())
	}
	select {
	case <-twice.Done():
	default:
		t.Fatal("expected Done to be closed after Set")
	}
}

func TestConcurrentSetDoesNotPanic(t *testing.T) {
	sig := cancel.New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig.Set()
		}()
	}
	wg.Wait()
	if !sig.IsSet() {
		t.Fatal("expected signal to be set")
	}
}

func TestSleepReturnsEarlyWhenSet(t *testing.T) {
	sig := cancel.New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		sig.Set()
	}()

	start := time.Now()
	if sig.Sleep(context.Background(), 5*time.Second) {
		t.Fatal("expected Sleep to report interruption")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Sleep did not wake on Set, took %s", elapsed)
	}
}

func TestSleepCompletesWhenUnset(t *testing.T) {
	sig := cancel.New()
	if !sig.Sleep(context.Background(), 5*time.Millisecond) {
		t.Fatal("expected full sleep")
	}
	if sig.IsSet() {
		t.Fatal("signal should remain unset")
	}
}

func TestSleepHonoursContext(t *testing.T) {
	sig := cancel.New()
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()
	if sig.Sleep(ctx, time.Second) {
		t.Fatal("expected Sleep to stop on cancelled context")
	}
}
