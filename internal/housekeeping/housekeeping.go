// Package housekeeping wires up the cron job that purges block markers for
// dates that have already passed.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"interview-scheduler/internal/model"
)

// BlockStore is the subset of the store the purge needs.
type BlockStore interface {
	ListAllSlotBlocks(ctx context.Context) (map[string][]string, error)
	UnblockSlot(ctx context.Context, date, slotID string) (bool, error)
	ListDayBlocks(ctx context.Context) ([]string, error)
	UnblockDay(ctx context.Context, date string) (bool, error)
}

// Scheduler wraps robfig/cron and runs the purge on a fixed spec.
type Scheduler struct {
	cron   *cron.Cron
	store  BlockStore
	loc    *time.Location
	spec   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Scheduler. spec is any robfig/cron spec, e.g. "@daily".
func New(st BlockStore, loc *time.Location, spec string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		store:  st,
		loc:    loc,
		spec:   spec,
		logger: logger.With("component", "housekeeping"),
		now:    time.Now,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.Purge(ctx); err != nil {
			s.logger.Error("purge failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("cron started", "spec", s.spec)
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron stopped")
}

// Purge removes slot and day blocks dated before today in the business
// timezone. It returns the number of markers removed.
func (s *Scheduler) Purge(ctx context.Context) (int, error) {
	today := s.now().In(s.loc).Format(model.DateLayout)
	removed := 0

	slotBlocks, err := s.store.ListAllSlotBlocks(ctx)
	if err != nil {
		return removed, fmt.Errorf("list slot blocks: %w", err)
	}
	for date, ids := range slotBlocks {
		if date >= today {
			continue
		}
		for _, id := range ids {
			ok, err := s.store.UnblockSlot(ctx, date, id)
			if err != nil {
				return removed, fmt.Errorf("unblock slot %s/%s: %w", date, id, err)
			}
			if ok {
				removed++
			}
		}
	}

	days, err := s.store.ListDayBlocks(ctx)
	if err != nil {
		return removed, fmt.Errorf("list day blocks: %w", err)
	}
	for _, date := range days {
		if date >= today {
			continue
		}
		ok, err := s.store.UnblockDay(ctx, date)
		if err != nil {
			return removed, fmt.Errorf("unblock day %s: %w", date, err)
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("purged stale blocks", "removed", removed, "before", today)
	}
	return removed, nil
}
