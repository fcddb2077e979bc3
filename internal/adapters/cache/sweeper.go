package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sweeper calls a cleanup function on a fixed interval until stopped
type sweeper struct {
	every time.Duration
	done  chan struct{}
	once  sync.Once
}

func newSweeper(every time.Duration) *sweeper {
	return &sweeper{every: every, done: make(chan struct{})}
}

// start launches the loop. A non-positive interval disables it.
func (s *sweeper) start(cleanup func(context.Context) error, logger *zap.Logger) {
	if s.every <= 0 {
		return
	}
	go func() {
		tick := time.NewTicker(s.every)
		defer tick.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-tick.C:
				if err := cleanup(context.Background()); err != nil {
					logger.Warn("Cache sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// stop ends the loop and reports whether this was the first call
func (s *sweeper) stop() (first bool) {
	s.once.Do(func() {
		close(s.done)
		first = true
	})
	return first
}
