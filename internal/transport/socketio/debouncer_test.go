package socketio

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRapidCatalogChangesCollapseToOne(t *testing.T) {
	var catalogCalls int32
	var thumbCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&catalogCalls, 1) },
		func() { atomic.AddInt32(&thumbCalls, 1) },
	)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger(ChangeCatalog)
	}

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&catalogCalls); got != 1 {
		t.Errorf("expected 1 catalog callback, got %d", got)
	}
	if got := atomic.LoadInt32(&thumbCalls); got != 0 {
		t.Errorf("expected 0 thumbnail callbacks, got %d", got)
	}
}

func TestDebouncerSpreadThumbnailEventsCollapseToOne(t *testing.T) {
	var thumbCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() {},
		func() { atomic.AddInt32(&thumbCalls, 1) },
	)
	defer d.Stop()

	// Thumbnails arriving one after another during a prefetch
	for i := 0; i < 20; i++ {
		d.Trigger(ChangeThumbnails)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&thumbCalls); got != 1 {
		t.Errorf("expected 1 thumbnail callback, got %d", got)
	}
}

func TestDebouncerMixedChangesCatalogFirst(t *testing.T) {
	var mu sync.Mutex
	var order []string

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { mu.Lock(); order = append(order, ChangeCatalog); mu.Unlock() },
		func() { mu.Lock(); order = append(order, ChangeThumbnails); mu.Unlock() },
	)
	defer d.Stop()

	d.Trigger(ChangeThumbnails)
	d.Trigger(ChangeCatalog)
	d.Trigger(ChangeThumbnails)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != ChangeCatalog || order[1] != ChangeThumbnails {
		t.Errorf("callback order = %v, want [catalog thumbnails]", order)
	}
}

func TestDebouncerUnknownKindIgnored(t *testing.T) {
	var calls int32

	d := NewBroadcastDebouncer(20*time.Millisecond,
		func() { atomic.AddInt32(&calls, 1) },
		func() { atomic.AddInt32(&calls, 1) },
	)
	defer d.Stop()

	d.Trigger("player")
	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected no callbacks for unknown kind, got %d", got)
	}
}

func TestDebouncerSeparateWindowsFireIndependently(t *testing.T) {
	var catalogCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&catalogCalls, 1) },
		func() {},
	)
	defer d.Stop()

	d.Trigger(ChangeCatalog)
	time.Sleep(100 * time.Millisecond)

	d.Trigger(ChangeCatalog)
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&catalogCalls); got != 2 {
		t.Errorf("expected 2 catalog callbacks for separate windows, got %d", got)
	}
}

func TestDebouncerStopPreventsCallbacks(t *testing.T) {
	var catalogCalls int32

	d := NewBroadcastDebouncer(50*time.Millisecond,
		func() { atomic.AddInt32(&catalogCalls, 1) },
		func() {},
	)

	d.Trigger(ChangeCatalog)
	d.Stop()
	d.Trigger(ChangeCatalog)

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&catalogCalls); got != 0 {
		t.Errorf("expected 0 catalog callbacks after stop, got %d", got)
	}
}
