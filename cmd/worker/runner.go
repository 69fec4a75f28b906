package main

import "sync"

// runSlots bounds how many pipeline runs are in flight at once. Go hands the
// run to its own goroutine after reserving a slot, so the subscription
// callback blocks only while the worker is at capacity. That backpressure
// pauses the dispatcher instead of piling up unbounded goroutines.
type runSlots struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func newRunSlots(limit int) *runSlots {
	if limit <= 0 {
		limit = 1
	}
	return &runSlots{slots: make(chan struct{}, limit)}
}

func (r *runSlots) Go(fn func()) {
	r.slots <- struct{}{}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		fn()
	}()
}

// Wait blocks until every started run has finished.
func (r *runSlots) Wait() {
	r.wg.Wait()
}
