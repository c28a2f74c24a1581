package rating

import (
	"strconv"
	"strings"
)

// EditBuffer is the mutable working copy of a book's counts, diffed against
// the last snapshot the remote store confirmed. It keeps one level of undo.
//
// EditBuffer is not safe for concurrent use; Reconciler serializes access.
type EditBuffer struct {
	current   Snapshot
	confirmed Snapshot
	previous  *Snapshot
}

// NewEditBuffer starts a buffer with current == confirmed == loaded.
func NewEditBuffer(loaded Snapshot) *EditBuffer {
	return &EditBuffer{current: loaded, confirmed: loaded}
}

// Current returns the working copy.
func (b *EditBuffer) Current() Snapshot { return b.current }

// Confirmed returns the last value accepted by the remote store.
func (b *EditBuffer) Confirmed() Snapshot { return b.confirmed }

// HasChanges reports whether the working copy differs from confirmed.
func (b *EditBuffer) HasChanges() bool { return b.current != b.confirmed }

// UndoAvailable reports whether a previous confirmed snapshot is retained.
func (b *EditBuffer) UndoAvailable() bool { return b.previous != nil }

// Total of the working copy.
func (b *EditBuffer) Total() int { return b.current.Total() }

// Average of the working copy.
func (b *EditBuffer) Average() float64 { return b.current.Average() }

// Increment adds one rating to a bucket. A bucket at MaxCount is left as is.
func (b *EditBuffer) Increment(star Star) error {
	if !star.Valid() {
		return invalidStar(strconv.Itoa(int(star)))
	}
	if b.current.Count(star) >= MaxCount {
		return nil
	}
	b.edit(star, b.current.Count(star)+1)
	return nil
}

// Decrement removes one rating from a bucket, flooring at zero.
func (b *EditBuffer) Decrement(star Star) error {
	if !star.Valid() {
		return invalidStar(strconv.Itoa(int(star)))
	}
	b.edit(star, max(b.current.Count(star)-1, 0))
	return nil
}

// SetCount sets a bucket to value. Values outside 0..MaxCount are ignored
// and reported as not applied.
func (b *EditBuffer) SetCount(star Star, value int) (bool, error) {
	if !star.Valid() {
		return false, invalidStar(strconv.Itoa(int(star)))
	}
	if value < 0 || value > MaxCount {
		return false, nil
	}
	b.edit(star, value)
	return true, nil
}

// SetCountText parses raw form input. Anything that is not a non-negative
// integer leaves the buffer unchanged.
func (b *EditBuffer) SetCountText(star Star, raw string) (bool, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if !star.Valid() {
			return false, invalidStar(strconv.Itoa(int(star)))
		}
		return false, nil
	}
	return b.SetCount(star, value)
}

// edit applies a bucket change. Any edit drops the undo slot.
func (b *EditBuffer) edit(star Star, value int) {
	b.current[star-1] = value
	b.previous = nil
}

// commit records a successful write of the working copy.
func (b *EditBuffer) commit() {
	prev := b.confirmed
	b.confirmed = b.current
	b.previous = &prev
}

// rollback discards local edits.
func (b *EditBuffer) rollback() {
	b.current = b.confirmed
}

// takeUndo restores the retained snapshot into the working copy and clears
// the undo slot. It reports false when there is nothing to undo.
func (b *EditBuffer) takeUndo() (Snapshot, bool) {
	if b.previous == nil {
		return Snapshot{}, false
	}
	restored := *b.previous
	b.previous = nil
	b.current = restored
	return restored, true
}

// confirmUndo records that the restored snapshot reached the store.
func (b *EditBuffer) confirmUndo() {
	b.confirmed = b.current
}
