package upload

import (
	"context"
	"time"
)

// PollInterval is how often the monitor re-checks connectivity
const PollInterval = 15 * time.Second

// Monitor tracks whether the upload endpoint is reachable
type Monitor struct {
	client   Client
	interval time.Duration
	timeout  time.Duration
}

// NewMonitor creates a monitor polling client every PollInterval
func NewMonitor(client Client) *Monitor {
	return &Monitor{
		client:   client,
		interval: PollInterval,
		timeout:  5 * time.Second,
	}
}

// Run probes immediately, then on every tick, and sends the status on the
// returned channel whenever it changes. The channel closes when ctx ends.
func (m *Monitor) Run(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		var last, known bool
		for {
			online := m.probe(ctx)
			if !known || online != last {
				select {
				case out <- online:
				case <-ctx.Done():
					return
				}
				last, known = online, true
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.Ping(ctx)
}
