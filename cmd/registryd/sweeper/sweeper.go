// Package sweeper runs a periodic, operator-facing touch over queries
// sitting in an active phase. It never drives correctness: phases advance
// through the lazy refresh every genuine operation already performs. What a
// quiescent query lacks is a reason for any operation to touch it again once
// nobody is voting on it, so the sweeper supplies one via
// registry.Service.TouchQuery, which runs the exact refresh path any real
// message would.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/logger"
	"github.com/oraclenet/registry/pkg/metrics"
	"github.com/oraclenet/registry/registry"
	"github.com/oraclenet/registry/storage"
)

// Sweeper periodically lists queries and touches each one still open, so a
// query nobody votes on past its own deadlines still transitions out of
// CommitPhase/RevealPhase without waiting on the next real vote or resolve.
type Sweeper struct {
	store storage.Store
	svc   *registry.Service
	log   *logger.Logger
	cron  *cron.Cron
}

// New builds a Sweeper that runs schedule (standard 5-field cron syntax)
// against st and svc. schedule defaults to every 5 minutes when empty.
func New(st storage.Store, svc *registry.Service, log *logger.Logger, schedule string) *Sweeper {
	if log == nil {
		log = logger.NewDefault("sweeper")
	}
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	s := &Sweeper{store: st, svc: svc, log: log, cron: cron.New()}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		log.WithField("schedule", schedule).WithField("err", err).Error("invalid sweeper schedule, sweeper disabled")
	}
	return s
}

// Start launches the cron scheduler in the background. Stop must be called
// to release it.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, blocking until the running job (if any) finishes.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queries, err := s.store.ListQueries(ctx)
	if err != nil {
		s.log.WithField("err", err).Warn("sweeper: list queries failed")
		return
	}

	touched := 0
	active := map[oracle.Phase]int{oracle.PhaseCommit: 0, oracle.PhaseReveal: 0}
	for _, q := range queries {
		if q.Phase != oracle.PhaseCommit && q.Phase != oracle.PhaseReveal {
			continue
		}
		refreshed, err := s.svc.TouchQuery(ctx, q.ID)
		if err != nil {
			s.log.WithField("query_id", q.ID).WithField("err", err).Warn("sweeper: touch failed")
			continue
		}
		if refreshed.Phase == oracle.PhaseCommit || refreshed.Phase == oracle.PhaseReveal {
			active[refreshed.Phase]++
		}
		touched++
	}
	for phase, count := range active {
		metrics.SetActiveQueries(phase, count)
	}
	if touched > 0 {
		s.log.WithField("touched", touched).Info("sweeper: advanced quiescent queries")
	}
}
