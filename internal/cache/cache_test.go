package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dompet/internal/core"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", "x")
	c.Set("b", "y")

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLedgerCacheSharesLoads(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := NewLedgerCache(func(ctx context.Context, projectID string) ([]core.Transaction, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []core.Transaction{{ID: projectID}}, nil
	}, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txs, err := c.Transactions(context.Background(), "p1")
			if err != nil || len(txs) != 1 {
				t.Errorf("txs=%v err=%v", txs, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}

	if _, err := c.Transactions(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("cached read triggered a load")
	}

	c.Invalidate("p1")
	if _, err := c.Transactions(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("loads after invalidate = %d, want 2", n)
	}
}

func TestLedgerCacheDropsLoadRacingInvalidate(t *testing.T) {
	var (
		mu      sync.Mutex
		rows    = []core.Transaction{{ID: "t1"}}
		calls   int32
		started = make(chan struct{})
		release = make(chan struct{})
	)
	c := NewLedgerCache(func(context.Context, string) ([]core.Transaction, error) {
		mu.Lock()
		snapshot := append([]core.Transaction(nil), rows...)
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return snapshot, nil
	}, 8, time.Minute)

	done := make(chan []core.Transaction)
	go func() {
		txs, _ := c.Transactions(context.Background(), "p")
		done <- txs
	}()
	<-started

	mu.Lock()
	rows = append(rows, core.Transaction{ID: "t2"})
	mu.Unlock()
	c.Invalidate("p")

	// A reader arriving after the write must not join the old load.
	fresh, err := c.Transactions(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 2 {
		t.Errorf("read after invalidate got %d rows, want 2", len(fresh))
	}

	close(release)
	if old := <-done; len(old) != 1 {
		t.Errorf("in-flight load got %d rows, want 1", len(old))
	}

	txs, err := c.Transactions(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Errorf("cached snapshot has %d rows, want 2", len(txs))
	}
}

func TestLedgerCacheDoesNotStoreErrors(t *testing.T) {
	fail := true
	c := NewLedgerCache(func(context.Context, string) ([]core.Transaction, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return nil, nil
	}, 8, time.Minute)

	if _, err := c.Transactions(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	if _, err := c.Transactions(context.Background(), "p"); err != nil {
		t.Fatalf("second load: %v", err)
	}
}

func TestManagerSweeps(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager(nil)
	m.Register(c)
	if n := m.sweep(); n != 1 {
		t.Errorf("sweep removed %d", n)
	}
}
