package keypool

import (
	"errors"
	"sync"
	"testing"

	"inkwell/internal/services"
)

func TestNextWrapsAround(t *testing.T) {
	pool, err := New([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := []string{pool.Next(), pool.Next(), pool.Next(), pool.Next()}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewRejectsEmptyList(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New([]string{"", ""}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for blank keys, got %v", err)
	}
}

func TestNextConcurrentDistribution(t *testing.T) {
	pool, err := New([]string{"a", "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const callers = 8
	const perCaller = 50
	var mu sync.Mutex
	counts := map[string]int{}

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			local := map[string]int{}
			for j := 0; j < perCaller; j++ {
				local[pool.Next()]++
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	total := counts["a"] + counts["b"]
	if total != callers*perCaller {
		t.Fatalf("lost calls: got %d, want %d", total, callers*perCaller)
	}
	if counts["a"] != counts["b"] {
		t.Fatalf("uneven distribution: %v", counts)
	}
}
