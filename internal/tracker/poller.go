package tracker

import (
	"context"
	"log"
	"time"
)

// Poller runs fn on a fixed interval until ctx is cancelled. Each tick runs to
// completion before the next one starts; cancelling does not abort a running tick.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)
}

func NewPoller(interval time.Duration, fn func(ctx context.Context)) *Poller {
	return &Poller{interval: interval, fn: fn}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("[Tracker]: polling every %v", p.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Tracker]: poller stopped")
			return
		case <-ticker.C:
			p.fn(context.WithoutCancel(ctx))
		}
	}
}
