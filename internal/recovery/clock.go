package recovery

import "time"

// Clock supplies the current time. Injected so breaker expiry can be
// tested without waiting out real cool-downs.
type Clock interface {
	Now() time.Time
}

// Scheduler runs a function after a delay. Injected so retry backoff can
// be tested without real timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
