package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[[]string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) ([]string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []string{"BUF@NE", "NYJ@MIA"}, nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "week:3", loader)
			if err != nil {
				errCh <- err
				return
			}
			if len(v) != 2 {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	store := NewStore[int](time.Minute)
	store.now = func() time.Time { return now }

	var calls int
	loader := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, err := store.GetOrLoad(context.Background(), "week:1", loader)
	if err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	cached, _ := store.GetOrLoad(context.Background(), "week:1", loader)
	if first != 1 || cached != 1 {
		t.Fatalf("expected cached value 1, got %d and %d", first, cached)
	}

	now = now.Add(time.Minute)
	reloaded, _ := store.GetOrLoad(context.Background(), "week:1", loader)
	if reloaded != 2 {
		t.Fatalf("expected reload after ttl, got %d", reloaded)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Minute)
	fail := true
	loader := func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("scoreboard down")
		}
		return 7, nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err == nil {
		t.Fatalf("expected loader error")
	}
	fail = false
	v, err := store.GetOrLoad(context.Background(), "k", loader)
	if err != nil || v != 7 {
		t.Fatalf("expected 7 after recovery, got %d, %v", v, err)
	}

	store.Delete(context.Background(), "k")
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
