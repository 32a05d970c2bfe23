//go:build unix

package ring

import (
	"errors"
	"sync"
	"testing"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/regerr"
)

func newTestRing(t *testing.T, name string, capacity uint64) *Ring {
	t.Helper()
	r, err := Init(name, capacity, elem.Size)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		r.Destroy()
	})
	return r
}

func TestInitRejectsOversizedCapacity(t *testing.T) {
	if _, err := Init("toobig", MaxCapacity+1, elem.Size); !errors.Is(err, regerr.ErrBadArgument) {
		t.Fatalf("expected ErrBadArgument, got %v", err)
	}
}

func TestInitRejectsWrongElemSize(t *testing.T) {
	if _, err := Init("wrongsize", 8, elem.Size+1); !errors.Is(err, regerr.ErrBadArgument) {
		t.Fatalf("expected ErrBadArgument, got %v", err)
	}
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	r := newTestRing(t, "fifo-order", 4)
	defer r.Close()

	for i := uint64(0); i < 3; i++ {
		if err := r.Enqueue(elem.New(i, "payload")); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	for i := uint64(0); i < 3; i++ {
		got, err := r.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got.ID != i {
			t.Errorf("expected ID %d, got %d", i, got.ID)
		}
	}
}

func TestDequeueEmptyReturnsErrQueueEmpty(t *testing.T) {
	r := newTestRing(t, "empty-ring", 4)
	defer r.Close()

	if _, err := r.Dequeue(); !errors.Is(err, regerr.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestEnqueueFullReturnsErrQueueFull(t *testing.T) {
	r := newTestRing(t, "full-ring", 2)
	defer r.Close()

	if err := r.Enqueue(elem.New(1, "a")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := r.Enqueue(elem.New(2, "b")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := r.Enqueue(elem.New(3, "c")); !errors.Is(err, regerr.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestLookupAttachesToExistingRing(t *testing.T) {
	r := newTestRing(t, "attach-me", 8)
	defer r.Close()

	if err := r.Enqueue(elem.New(99, "hello")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	other, err := Lookup("attach-me")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	defer other.Close()

	got, err := other.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue via second attachment: %v", err)
	}
	if got.ID != 99 || got.String() != "hello" {
		t.Errorf("unexpected record via second attachment: %+v", got)
	}
}

func TestLookupMissingRingFails(t *testing.T) {
	if _, err := Lookup("never-created"); err == nil {
		t.Errorf("expected error looking up a ring that was never Init'd")
	}
}

func TestStatsReflectsOccupancy(t *testing.T) {
	r := newTestRing(t, "stats-ring", 8)
	defer r.Close()

	if got := r.Stats(); got.Len != 0 {
		t.Errorf("expected empty ring, got Len=%d", got.Len)
	}

	for i := uint64(0); i < 3; i++ {
		r.Enqueue(elem.New(i, "x"))
	}
	if got := r.Stats(); got.Len != 3 {
		t.Errorf("expected Len=3, got %d", got.Len)
	}

	r.Dequeue()
	if got := r.Stats(); got.Len != 2 {
		t.Errorf("expected Len=2 after one Dequeue, got %d", got.Len)
	}
}

func TestConcurrentProducersConsumersPreserveTotalCount(t *testing.T) {
	r := newTestRing(t, "concurrent-ring", 64)
	defer r.Close()

	const producers = 4
	const perProducer = 200
	const total = producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := uint64(p*perProducer + i)
				for {
					if err := r.Enqueue(elem.New(id, "x")); err == nil {
						break
					}
				}
			}
		}(p)
	}

	seen := make([]bool, total)
	var seenMu sync.Mutex
	var consumed int
	var consumersWG sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumersWG.Add(1)
		go func() {
			defer consumersWG.Done()
			for {
				got, err := r.Dequeue()
				if err == nil {
					seenMu.Lock()
					seen[got.ID] = true
					consumed++
					done := consumed == total
					seenMu.Unlock()
					if done {
						return
					}
					continue
				}
				seenMu.Lock()
				done := consumed == total
				seenMu.Unlock()
				if done {
					return
				}
			}
		}()
	}

	wg.Wait()
	consumersWG.Wait()

	for id, ok := range seen {
		if !ok {
			t.Errorf("record with ID %d was never consumed", id)
		}
	}
}
