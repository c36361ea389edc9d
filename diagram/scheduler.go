package diagram

import "time"

// Scheduler defers a function call. An injectable seam so tests can
// advance virtual time deterministically instead of sleeping.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler schedules on the runtime timer wheel.
type TimerScheduler struct{}

// NewTimerScheduler returns the real-time scheduler.
func NewTimerScheduler() TimerScheduler {
	return TimerScheduler{}
}

// AfterFunc runs fn on its own goroutine after d.
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
