package socketio

import (
	"sync"
	"time"
)

// Change kinds accepted by BroadcastDebouncer.Trigger.
const (
	ChangeCatalog    = "catalog"
	ChangeThumbnails = "thumbnails"
)

// BroadcastDebouncer collapses bursts of catalog and thumbnail changes into
// batched broadcasts. Any number of triggers within the window results in at
// most one callback per affected kind.
type BroadcastDebouncer struct {
	window             time.Duration
	catalogCallback    func()
	thumbnailsCallback func()

	mu                sync.Mutex
	pendingCatalog    bool
	pendingThumbnails bool
	timer             *time.Timer
	stopped           bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// catalogCallback runs after catalog changes, thumbnailsCallback after
// thumbnails became ready.
func NewBroadcastDebouncer(window time.Duration, catalogCallback, thumbnailsCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:             window,
		catalogCallback:    catalogCallback,
		thumbnailsCallback: thumbnailsCallback,
	}
}

// Trigger records a change of the given kind. Callbacks are deferred until
// the window elapses without further triggers. Unknown kinds are ignored.
func (d *BroadcastDebouncer) Trigger(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch kind {
	case ChangeCatalog:
		d.pendingCatalog = true
	case ChangeThumbnails:
		d.pendingThumbnails = true
	default:
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them. Catalog goes
// first so clients have the records before hearing about their thumbnails.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	doCatalog := d.pendingCatalog
	doThumbnails := d.pendingThumbnails
	d.pendingCatalog = false
	d.pendingThumbnails = false
	d.mu.Unlock()

	if doCatalog && d.catalogCallback != nil {
		d.catalogCallback()
	}
	if doThumbnails && d.thumbnailsCallback != nil {
		d.thumbnailsCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingCatalog = false
	d.pendingThumbnails = false
}
