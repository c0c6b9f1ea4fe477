package services

import (
	"context"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultTickInterval = time.Second

// QuestionTimer counts an answer window down to its deadline. The remaining
// time is derived from the deadline on every tick, so a dropped tick never
// skews the countdown.
type QuestionTimer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartQuestionTimer creates the ticker before returning, then calls tick
// with the whole seconds left on each interval until tick returns false,
// the deadline passes or Stop is called.
func StartQuestionTimer(clock clockwork.Clock, interval time.Duration, deadline time.Time, tick func(remaining int) bool) *QuestionTimer {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &QuestionTimer{cancel: cancel, done: make(chan struct{})}
	ticker := clock.NewTicker(interval)

	go func() {
		defer close(t.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if ctx.Err() != nil {
					return
				}
				remaining := remainingSeconds(deadline, clock.Now())
				if !tick(remaining) || remaining <= 0 {
					return
				}
			}
		}
	}()

	return t
}

// Stop cancels the countdown without waiting, so it is safe to call while
// holding the lock the tick callback needs.
func (t *QuestionTimer) Stop() {
	t.cancel()
}

// Done is closed once the timer goroutine has exited.
func (t *QuestionTimer) Done() <-chan struct{} {
	return t.done
}

func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
