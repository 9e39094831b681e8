// Package scheduler drives the periodic sweeps on cron specs and serves
// manual refresh triggers from the API.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/yahya-ubnt/IMSys-sub002/internal/config"
)

// Sweeper runs one pass of each monitoring sweep.
type Sweeper interface {
	SweepDevices(ctx context.Context) error
	SweepSubscribers(ctx context.Context) error
	SweepRouters(ctx context.Context) error
}

type Scheduler struct {
	sweeper   Sweeper
	specs     config.Sweep
	logger    *slog.Logger
	refreshCh chan struct{}
}

func New(sweeper Sweeper, specs config.Sweep, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:   sweeper,
		specs:     specs,
		logger:    logger,
		refreshCh: make(chan struct{}, 1),
	}
}

// TriggerRefresh requests an immediate full sweep. Requests arriving while
// one is already pending coalesce.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, firing sweeps on their cron specs and
// whenever a manual refresh comes in.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.specs.DeviceSpec, func() { s.run(ctx, "devices", s.sweeper.SweepDevices) }); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.specs.SubscriberSpec, func() { s.run(ctx, "subscribers", s.sweeper.SweepSubscribers) }); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.specs.RouterSpec, func() { s.run(ctx, "routers", s.sweeper.SweepRouters) }); err != nil {
		return err
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// One full pass at startup so state is fresh before the first tick.
	s.fullSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.refreshCh:
			s.fullSweep(ctx)
		}
	}
}

func (s *Scheduler) fullSweep(ctx context.Context) {
	s.run(ctx, "routers", s.sweeper.SweepRouters)
	s.run(ctx, "devices", s.sweeper.SweepDevices)
	s.run(ctx, "subscribers", s.sweeper.SweepSubscribers)
}

func (s *Scheduler) run(ctx context.Context, name string, sweep func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := sweep(ctx); err != nil {
		s.logger.Error("sweep failed", "sweep", name, "err", err)
	}
}
