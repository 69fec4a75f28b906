package usecase

import (
	"sync"
	"testing"
)

func TestDocumentLocksSerializeSameID(t *testing.T) {
	locks := newDocumentLocks()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("doc-1")
			defer locks.Unlock("doc-1")

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected serialized access, saw %d concurrent holders", maxActive)
	}
	if len(locks.locks) != 0 {
		t.Fatalf("expected lock table drained, %d entries remain", len(locks.locks))
	}
}

func TestDocumentLocksIndependentIDs(t *testing.T) {
	locks := newDocumentLocks()
	locks.Lock("doc-1")
	done := make(chan struct{})
	go func() {
		locks.Lock("doc-2")
		locks.Unlock("doc-2")
		close(done)
	}()
	<-done
	locks.Unlock("doc-1")
}
