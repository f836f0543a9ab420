package scheduling

import (
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// TimerSet manages named one-shot deadlines and periodic ticks keyed by
// delivery or order identity. Arming a key replaces any previous timer under
// that key, and a cancelled timer never fires: cancellation and firing
// synchronize on the set's lock, so whichever wins, the callback either runs
// before the cancel returns or not at all.
//
// Callbacks run on their own goroutine and must do their own locking; the
// set's lock is never held while a callback runs.
type TimerSet struct {
	mu        sync.Mutex
	deadlines map[kernel.UUID]*deadlineEntry
	tickers   map[kernel.UUID]*tickerEntry
	closed    bool
}

type deadlineEntry struct {
	timer     *time.Timer
	cancelled chan struct{}
}

type tickerEntry struct {
	ticker    *time.Ticker
	cancelled chan struct{}
}

// NewTimerSet creates an empty TimerSet.
func NewTimerSet() *TimerSet {
	return &TimerSet{
		deadlines: make(map[kernel.UUID]*deadlineEntry),
		tickers:   make(map[kernel.UUID]*tickerEntry),
	}
}

// ArmDeadline schedules fn to run once after d, replacing any deadline
// already armed for the key. The deadline disarms itself before fn runs.
func (ts *TimerSet) ArmDeadline(key kernel.UUID, d time.Duration, fn func()) {
	entry := &deadlineEntry{cancelled: make(chan struct{})}
	entry.timer = time.NewTimer(d)

	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		entry.timer.Stop()
		return
	}
	if prev, ok := ts.deadlines[key]; ok {
		prev.timer.Stop()
		close(prev.cancelled)
	}
	ts.deadlines[key] = entry
	ts.mu.Unlock()

	go func() {
		select {
		case <-entry.timer.C:
			ts.mu.Lock()
			select {
			case <-entry.cancelled:
				// Lost the race: cancelled after the timer fired but before
				// we acquired the lock.
				ts.mu.Unlock()
				return
			default:
			}
			if ts.deadlines[key] == entry {
				delete(ts.deadlines, key)
			}
			ts.mu.Unlock()
			fn()
		case <-entry.cancelled:
		}
	}()
}

// CancelDeadline disarms the deadline for the key. Returns false if no
// deadline was armed. After CancelDeadline returns true, the callback is
// guaranteed not to run.
func (ts *TimerSet) CancelDeadline(key kernel.UUID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.deadlines[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	close(entry.cancelled)
	delete(ts.deadlines, key)
	return true
}

// HasDeadline reports whether a deadline is armed for the key.
func (ts *TimerSet) HasDeadline(key kernel.UUID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	_, ok := ts.deadlines[key]
	return ok
}

// StartTicks schedules fn to run every interval until stopped, replacing any
// ticks already running for the key.
func (ts *TimerSet) StartTicks(key kernel.UUID, interval time.Duration, fn func()) {
	entry := &tickerEntry{
		ticker:    time.NewTicker(interval),
		cancelled: make(chan struct{}),
	}

	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		entry.ticker.Stop()
		return
	}
	if prev, ok := ts.tickers[key]; ok {
		prev.ticker.Stop()
		close(prev.cancelled)
	}
	ts.tickers[key] = entry
	ts.mu.Unlock()

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				ts.mu.Lock()
				select {
				case <-entry.cancelled:
					ts.mu.Unlock()
					return
				default:
				}
				ts.mu.Unlock()
				fn()
			case <-entry.cancelled:
				return
			}
		}
	}()
}

// StopTicks stops the periodic ticks for the key. Returns false if no ticks
// were running. After StopTicks returns true, the callback is guaranteed not
// to run again.
func (ts *TimerSet) StopTicks(key kernel.UUID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickers[key]
	if !ok {
		return false
	}
	entry.ticker.Stop()
	close(entry.cancelled)
	delete(ts.tickers, key)
	return true
}

// HasTicks reports whether periodic ticks are running for the key.
func (ts *TimerSet) HasTicks(key kernel.UUID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	_, ok := ts.tickers[key]
	return ok
}

// Close cancels every timer and rejects further arming. Used on shutdown.
func (ts *TimerSet) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed {
		return
	}
	ts.closed = true
	for key, entry := range ts.deadlines {
		entry.timer.Stop()
		close(entry.cancelled)
		delete(ts.deadlines, key)
	}
	for key, entry := range ts.tickers {
		entry.ticker.Stop()
		close(entry.cancelled)
		delete(ts.tickers, key)
	}
}
