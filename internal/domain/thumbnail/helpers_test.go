package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{G: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeFetcher serves fixed bytes per ref and counts calls. When gate is set,
// every call blocks until the gate is closed or ctx ends.
type fakeFetcher struct {
	mu     sync.Mutex
	data   map[string][]byte
	fail   map[string]error
	gate   chan struct{}
	calls  atomic.Int32
	perRef map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:   make(map[string][]byte),
		fail:   make(map[string]error),
		perRef: make(map[string]int),
	}
}

func (f *fakeFetcher) set(ref string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[ref] = data
	delete(f.fail, ref)
}

func (f *fakeFetcher) setErr(ref string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[ref] = err
}

func (f *fakeFetcher) Get(ctx context.Context, ref string) ([]byte, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.perRef[ref]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[ref]; ok {
		return nil, err
	}
	if data, ok := f.data[ref]; ok {
		return data, nil
	}
	return nil, errors.New("404 not found")
}

func (f *fakeFetcher) refCalls(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perRef[ref]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
