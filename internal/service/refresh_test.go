package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefresherRunsOnce(t *testing.T) {
	var runs int32
	done := make(chan struct{})
	r := NewRefresher(func() {
		atomic.AddInt32(&runs, 1)
		close(done)
	})
	r.Trigger()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh never ran")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRefresherCoalescesTriggers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32

	r := NewRefresher(func() {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release // hold the first run open while triggers pile up
		}
	})

	r.Trigger()
	<-started
	for i := 0; i < 10; i++ {
		r.Trigger()
	}
	close(release)

	// ten triggers during one in-flight run collapse to one trailing run
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) == 2
	}, time.Second, 5*time.Millisecond)

	// and it stays at two: nothing else was queued
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestRefresherConcurrentTriggers(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	r := NewRefresher(func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trigger()
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return inFlight == 0
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInFlight, "runs must never overlap")
}
