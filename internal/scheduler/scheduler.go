package scheduler

import (
	"context"
	"log"
	"time"
)

// Sweeper advances every due order by one or more lifecycle steps.
type Sweeper interface {
	AdvanceOrders(ctx context.Context) error
}

// OrderScheduler runs the order lifecycle sweep on a fixed interval. Sweeps
// run on a single goroutine, so two sweeps never overlap.
type OrderScheduler struct {
	interval time.Duration
	sweeper  Sweeper
}

func NewOrderScheduler(sweeper Sweeper, interval time.Duration) *OrderScheduler {
	return &OrderScheduler{
		interval: interval,
		sweeper:  sweeper,
	}
}

// Run blocks until ctx is cancelled. A failing sweep is logged and the next
// tick runs as usual.
func (s *OrderScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.sweeper.AdvanceOrders(ctx); err != nil {
				log.Printf("order sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
