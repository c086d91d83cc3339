package records

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PurgeScheduler periodically deletes stale pending checkout sessions.
// Abandoned hosted-page sessions otherwise accumulate forever; completed
// sessions and payments are never purged.
type PurgeScheduler struct {
	cron   *cron.Cron
	store  *Store
	maxAge time.Duration
	log    *logrus.Entry
}

// NewPurgeScheduler schedules PurgeStaleSessions on the given cron spec
// (default: hourly). maxAge <= 0 defaults to 24h.
func NewPurgeScheduler(store *Store, spec string, maxAge time.Duration, log *logrus.Entry) (*PurgeScheduler, error) {
	if spec == "" {
		spec = "@hourly"
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	p := &PurgeScheduler{cron: cron.New(), store: store, maxAge: maxAge, log: log}
	if _, err := p.cron.AddFunc(spec, p.run); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PurgeScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := p.store.PurgeStaleSessions(ctx, p.maxAge)
	if err != nil {
		p.log.WithError(err).Warn("session purge failed")
		return
	}
	if n > 0 {
		p.log.WithField("purged", n).Info("purged stale checkout sessions")
	}
}

// Start begins the schedule.
func (p *PurgeScheduler) Start() { p.cron.Start() }

// Stop halts the schedule and waits for a running purge to finish.
func (p *PurgeScheduler) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}
