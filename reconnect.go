package filmroom

import "time"

// Timer is a scheduled task that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// reconnector decides whether a lost connection is retried. It uses a fixed
// interval, not exponential backoff, and keeps at most one timer pending.
//
// The facade guards every call with its own mutex.
type reconnector struct {
	interval    time.Duration
	maxAttempts int // < 0 disables reconnection
	scheduler   Scheduler

	attempt int
	timer   Timer
	token   uint64
}

func newReconnector(config *RealtimeConfig) *reconnector {
	return &reconnector{
		interval:    config.ReconnectInterval,
		maxAttempts: config.MaxReconnectAttempts,
		scheduler:   config.Scheduler,
	}
}

// schedule arms a retry after a loss. It returns false when the attempt budget
// is spent and the client should stay disconnected. A loss while a retry is
// already pending keeps that retry and does not count again.
func (r *reconnector) schedule(fire func(token uint64)) bool {
	if r.timer != nil {
		return true
	}
	if r.maxAttempts < 0 || r.attempt >= r.maxAttempts {
		return false
	}
	r.attempt++
	r.token++
	token := r.token
	r.timer = r.scheduler.AfterFunc(r.interval, func() { fire(token) })
	return true
}

// take claims the pending retry identified by token. It returns false if the
// retry was cancelled or replaced in the meantime.
func (r *reconnector) take(token uint64) bool {
	if r.timer == nil || token != r.token {
		return false
	}
	r.timer = nil
	return true
}

// cancel stops a pending retry, if any.
func (r *reconnector) cancel() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.token++
}

// reset clears the attempt counter and any pending retry.
func (r *reconnector) reset() {
	r.cancel()
	r.attempt = 0
}

func (r *reconnector) pending() bool {
	return r.timer != nil
}
