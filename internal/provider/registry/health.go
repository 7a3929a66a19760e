package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/provider"
)

// Start launches the periodic health loop. Each round probes every
// provider concurrently; a slow provider only delays its own slot.
func (r *Registry) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.started = true
		go func() {
			defer close(r.doneCh)

			ticker := time.NewTicker(r.cfg.HealthCheckInterval)
			defer ticker.Stop()

			r.runHealthRound(ctx)
			for {
				select {
				case <-ticker.C:
					r.runHealthRound(ctx)
				case <-r.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

// Stop terminates the health loop and waits for the current round.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.started {
			<-r.doneCh
		}
	})
}

// CheckNow runs one health round synchronously. Exposed for manual
// re-checks triggered through the API.
func (r *Registry) CheckNow(ctx context.Context) {
	r.runHealthRound(ctx)
}

func (r *Registry) runHealthRound(ctx context.Context) {
	r.mu.RLock()
	entries := append([]*entry(nil), r.entries...)
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			r.checkProvider(ctx, e.p)
		}(e)
	}
	wg.Wait()
}

func (r *Registry) checkProvider(ctx context.Context, p provider.Provider) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
	defer cancel()

	h := p.HealthCheck(callCtx)
	if callCtx.Err() != nil {
		// A timed-out probe counts as an unhealthy round.
		h = provider.Health{
			Status:    provider.StatusUnhealthy,
			LastCheck: time.Now(),
			Error:     "health check timed out",
		}
	}

	r.applyHealth(p.Name(), h)
}

// applyHealth merges a probe result into registry state, maintaining the
// consecutive-failure streak and the auto-disable/re-enable transitions.
func (r *Registry) applyHealth(name string, h provider.Health) {
	r.mu.Lock()

	var target *entry
	for _, e := range r.entries {
		if e.p.Name() == name {
			target = e
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return
	}

	prev := target.health
	if h.Status == provider.StatusUnhealthy {
		h.ConsecutiveFailures = prev.ConsecutiveFailures + 1
	} else {
		h.ConsecutiveFailures = 0
	}
	target.health = h

	var events []Event
	if prev.Status != h.Status {
		events = append(events, Event{
			Type:     EventHealthChanged,
			Provider: name,
			From:     prev.Status,
			To:       h.Status,
			At:       h.LastCheck,
		})
	}

	if r.cfg.AutoDisableUnhealthy && target.enabled &&
		h.ConsecutiveFailures >= r.cfg.MaxConsecutiveFailures {
		target.enabled = false
		events = append(events, Event{Type: EventProviderDisabled, Provider: name, At: h.LastCheck})
		r.logger.Warn("provider auto-disabled",
			zap.String("provider", name),
			zap.Int("consecutive_failures", h.ConsecutiveFailures),
		)
	}

	// A healthy probe revives a previously auto-disabled provider.
	if r.cfg.AutoDisableUnhealthy && !target.enabled && h.Status == provider.StatusHealthy {
		target.enabled = true
		events = append(events, Event{Type: EventProviderEnabled, Provider: name, At: h.LastCheck})
		r.logger.Info("provider recovered, re-enabled", zap.String("provider", name))
	}

	r.mu.Unlock()

	for _, ev := range events {
		r.events.publish(ev)
	}
}
