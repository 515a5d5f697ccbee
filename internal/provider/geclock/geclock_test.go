package geclock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameGec(t *testing.T) {
	tbl := New()

	var counter int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := tbl.Lock(1)
			defer unlock()

			n := atomic.AddInt32(&counter, 1)
			for {
				cur := atomic.LoadInt32(&maxObserved)
				if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
					break
				}
			}
			atomic.AddInt32(&counter, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxObserved, "at most one goroutine should hold the gec 1 lock at a time")
}

func TestLock_DifferentGecsDoNotBlockEachOther(t *testing.T) {
	tbl := New()

	unlockA := tbl.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := tbl.Lock(2)
		defer unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different gec should not block")
	}
}

func TestForget_RemovesEntryWithoutPanickingHolders(t *testing.T) {
	tbl := New()

	unlock := tbl.Lock(5)
	tbl.Forget(5)
	unlock() // the mutex value held by this goroutine is still valid

	// A fresh Lock after Forget creates a brand new mutex and must succeed
	// immediately.
	done := make(chan struct{})
	go func() {
		u := tbl.Lock(5)
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock after forget should not block")
	}
}
