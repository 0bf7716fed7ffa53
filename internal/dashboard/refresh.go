package dashboard

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher serialises reload requests. Requests made while one is pending
// collapse into it.
type Refresher struct {
	c   *Coordinator
	ch  chan struct{}
	log *zap.Logger
}

func NewRefresher(c *Coordinator, log *zap.Logger) *Refresher {
	return &Refresher{c: c, ch: make(chan struct{}, 1), log: log}
}

// Request never blocks.
func (r *Refresher) Request() {
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

// Run reloads once per pending request until ctx is done, then returns nil.
// Failures are reported by the coordinator and leave the displayed data
// untouched.
func (r *Refresher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.ch:
			if err := r.c.Reload(ctx); err != nil && ctx.Err() == nil {
				r.log.Debug("refresh failed", zap.Error(err))
			}
		}
	}
}

// Poller requests a refresh on a cron schedule.
type Poller struct {
	cr *cron.Cron
}

func NewPoller(schedule string, r *Refresher, log *zap.Logger) (*Poller, error) {
	cr := cron.New(cron.WithLogger(cronLogger{log.Sugar()}))
	if _, err := cr.AddFunc(schedule, r.Request); err != nil {
		return nil, err
	}
	return &Poller{cr: cr}, nil
}

func (p *Poller) Start() { p.cr.Start() }

// Stop halts the schedule and waits for a running tick.
func (p *Poller) Stop() { <-p.cr.Stop().Done() }

type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
