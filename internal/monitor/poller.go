package monitor

import (
	"context"
	"sync"
	"time"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/sources"
)

// Poller drives the periodic snapshot fetches. Each source runs on its own
// goroutine with its own ticker, so a slow or failing source never stalls
// polling of the others.
type Poller struct {
	pipeline *Pipeline
	sources  []sources.Source
	interval time.Duration
	logger   *logging.Logger
}

func NewPoller(pipeline *Pipeline, srcs []sources.Source, interval time.Duration, logger *logging.Logger) *Poller {
	return &Poller{
		pipeline: pipeline,
		sources:  srcs,
		interval: interval,
		logger:   logger,
	}
}

// Start launches one polling loop per source. Loops stop when ctx is done.
func (p *Poller) Start(ctx context.Context, wg *sync.WaitGroup) {
	for _, src := range p.sources {
		wg.Add(1)
		go p.loop(ctx, wg, src)
	}
	p.logger.Infof("Poller started for %d sources, interval %v", len(p.sources), p.interval)
}

func (p *Poller) loop(ctx context.Context, wg *sync.WaitGroup, src sources.Source) {
	defer wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, src)
	for {
		select {
		case <-ctx.Done():
			p.logger.Infof("Polling stopped for %s", src.ID())
			return
		case <-ticker.C:
			p.poll(ctx, src)
		}
	}
}

func (p *Poller) poll(ctx context.Context, src sources.Source) {
	snap := src.Fetch(ctx)
	if err := p.pipeline.Process(ctx, snap, src.Label()); err != nil {
		// Isolated: the failure only skips this source's cycle.
		p.logger.Errorf("Poll cycle failed for %s: %v", src.ID(), err)
	}
}
