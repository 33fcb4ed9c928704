package engine

import (
	"math"
	"time"
)

// ViewportConfig tunes the windowing arithmetic and the scroll-rate policy.
// The debounce thresholds are empirically tuned, not correctness-critical;
// hosts may override them.
type ViewportConfig struct {
	// RowExtent is the height of one row in scroll units (pixels, or 1 for
	// character-cell hosts).
	RowExtent float64
	// BufferCount is the number of extra rows materialized on each side of
	// the visible window.
	BufferCount int
	// MinScrollDelta is the smallest applied-offset change that triggers a
	// recompute. Smaller deltas are recorded but not applied, so cumulative
	// sub-threshold scrolling is never lost.
	MinScrollDelta float64
	// RapidScrollWindow classifies two scroll events closer than this as a
	// rapid burst. Inside a burst, sub-threshold deltas accumulate without
	// scheduling a recompute; an isolated event schedules one regardless of
	// delta, so a deliberate small scroll is never left waiting for more
	// movement.
	RapidScrollWindow time.Duration
}

// DefaultViewportConfig mirrors the tuned values of the original grid.
func DefaultViewportConfig() ViewportConfig {
	return ViewportConfig{
		RowExtent:         38,
		BufferCount:       3,
		MinScrollDelta:    3,
		RapidScrollWindow: 50 * time.Millisecond,
	}
}

// Viewport converts a scroll offset plus viewport size into the range of flat
// indices that must be materialized. Scroll events are coalesced: at most one
// pending recompute exists per event burst, applied on the next Tick.
type Viewport struct {
	cfg ViewportConfig

	extent float64 // viewport height in scroll units

	rawOffset     float64 // latest reported offset, always recorded
	appliedOffset float64 // offset the current range was computed from

	dirty      bool
	lastScroll time.Time
}

func NewViewport(cfg ViewportConfig) *Viewport {
	if cfg.RowExtent <= 0 {
		cfg.RowExtent = DefaultViewportConfig().RowExtent
	}
	if cfg.BufferCount < 0 {
		cfg.BufferCount = 0
	}
	if cfg.MinScrollDelta < 0 {
		cfg.MinScrollDelta = 0
	}
	if cfg.RapidScrollWindow < 0 {
		cfg.RapidScrollWindow = 0
	}
	return &Viewport{cfg: cfg, dirty: true}
}

func (v *Viewport) Config() ViewportConfig { return v.cfg }

// Offset returns the last applied scroll offset.
func (v *Viewport) Offset() float64 { return v.appliedOffset }

// Resize sets the viewport extent and forces a recompute.
func (v *Viewport) Resize(extent float64) {
	if extent < 0 {
		extent = 0
	}
	if v.extent != extent {
		v.extent = extent
		v.dirty = true
	}
}

// SetScroll records a new raw offset. The offset is always remembered; during
// a rapid burst the recompute is only scheduled once the delta against the
// applied offset reaches MinScrollDelta, which stops sub-pixel scroll events
// from thrashing the pool while still accumulating their movement. An
// isolated event (the previous one more than RapidScrollWindow ago) schedules
// the recompute even below the threshold.
func (v *Viewport) SetScroll(offset float64, now time.Time) {
	if offset < 0 {
		offset = 0
	}
	prev := v.lastScroll
	v.rawOffset = offset
	v.lastScroll = now
	if offset == v.appliedOffset {
		return
	}
	if math.Abs(offset-v.appliedOffset) >= v.cfg.MinScrollDelta {
		v.dirty = true
		return
	}
	if !prev.IsZero() && now.Sub(prev) >= v.cfg.RapidScrollWindow {
		v.dirty = true
	}
}

// ScrollBy adjusts the raw offset by delta rows worth of scroll units.
func (v *Viewport) ScrollBy(rows int, now time.Time) {
	v.SetScroll(v.rawOffset+float64(rows)*v.cfg.RowExtent, now)
}

// Dirty reports whether a recompute is pending.
func (v *Viewport) Dirty() bool { return v.dirty }

// Apply consumes the pending state: it moves the applied offset to the raw
// offset and clears the dirty flag. Returns false when nothing was pending,
// in which case the caller can skip recycling entirely.
func (v *Viewport) Apply() bool {
	if !v.dirty {
		return false
	}
	v.appliedOffset = v.rawOffset
	v.dirty = false
	return true
}

// VisibleRange returns the inclusive [first, last] flat-index range to
// materialize for the applied offset. An empty dataset yields first > last.
func (v *Viewport) VisibleRange(totalCount int) (int, int) {
	return ComputeVisibleRange(v.appliedOffset, v.extent, v.cfg.RowExtent, v.cfg.BufferCount, totalCount)
}

// VisibleCount returns the number of rows that fit in the viewport proper
// (excluding buffers).
func (v *Viewport) VisibleCount() int {
	if v.cfg.RowExtent <= 0 {
		return 0
	}
	return int(math.Ceil(v.extent / v.cfg.RowExtent))
}

// ComputeVisibleRange is the windowing arithmetic on its own:
//
//	rawFirst = floor(scrollOffset / rowExtent)
//	visible  = ceil(viewportExtent / rowExtent)
//	first    = max(0, rawFirst - bufferCount)
//	last     = min(totalCount-1, rawFirst + visible + bufferCount)
func ComputeVisibleRange(scrollOffset, viewportExtent, rowExtent float64, bufferCount, totalCount int) (int, int) {
	if totalCount <= 0 || rowExtent <= 0 {
		return 0, -1
	}
	rawFirst := int(math.Floor(scrollOffset / rowExtent))
	visible := int(math.Ceil(viewportExtent / rowExtent))

	first := rawFirst - bufferCount
	if first < 0 {
		first = 0
	}
	last := rawFirst + visible + bufferCount
	if last > totalCount-1 {
		last = totalCount - 1
	}
	if first > last {
		first = last
		if first < 0 {
			first = 0
		}
	}
	return first, last
}
