// Package scheduling provides the in-process timing primitives behind the
// delivery lifecycle: per-key cancellable deadlines and periodic ticks
// (TimerSet), and per-key mutual exclusion (KeyedMutex).
//
// Timers are deliberately in-memory. The persistent store stays the source
// of truth for delivery state; after a restart the recovery job re-derives
// which deadlines and ticks should exist and re-arms them.
package scheduling
