package world

import "time"

// Debounced persistence: the first mutation after a clean flush arms a
// deadline; further mutations inside the window ride along for free. The
// housekeeping tick fires the flush once the deadline passes.

func (w *World) markDirty() {
	if w.dirty {
		return
	}
	w.dirty = true
	w.flushAt = w.now().Add(w.cfg.FlushDelay)
}

// flushIfDue reports whether a snapshot was handed to the sink.
func (w *World) flushIfDue(now time.Time) bool {
	if !w.dirty || now.Before(w.flushAt) {
		return false
	}
	return w.flushNow()
}

func (w *World) flushNow() bool {
	w.dirty = false
	if w.sink == nil {
		return true
	}
	doc := w.exportDocument()
	select {
	case w.sink <- doc:
		return true
	default:
		// Writer is behind; keep the dirty bit so the next tick retries.
		w.log.Printf("snapshot sink saturated; flush deferred")
		w.dirty = true
		w.flushAt = w.now().Add(w.cfg.FlushDelay)
		return false
	}
}
