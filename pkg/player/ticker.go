package player

import "time"

// TickerScheduler drives a Player from a time.Ticker goroutine.
//
// Ticks run on the scheduler's own goroutine; the owner must make sure
// no control methods run concurrently with them (drive the player from
// that goroutine, or serialize externally).
type TickerScheduler struct {
	ticker *time.Ticker
	stop   chan struct{}
}

// NewTickerScheduler returns an unarmed scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Arm starts invoking tick at the given period until Disarm.
func (ts *TickerScheduler) Arm(period time.Duration, tick func()) {
	ts.Disarm()

	ts.ticker = time.NewTicker(period)
	ts.stop = make(chan struct{})

	go func(t *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				tick()
			}
		}
	}(ts.ticker, ts.stop)
}

// Disarm stops the tick. It is safe to call when not armed. A tick
// already executing is not interrupted.
func (ts *TickerScheduler) Disarm() {
	if ts.ticker != nil {
		ts.ticker.Stop()
		close(ts.stop)
		ts.ticker = nil
		ts.stop = nil
	}
}

// Now returns the wall clock time.
func (ts *TickerScheduler) Now() time.Time {
	return time.Now()
}
