package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
	"github.com/AngelCh415/kpi-dashboard/internal/utils"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// CanTransition lists the legal edges. A live connection never goes back to
// connecting without passing through disconnected.
func (s State) CanTransition(to State) bool {
	switch s {
	case Disconnected:
		return to == Connecting
	case Connecting:
		return to == Connected || to == Disconnected
	case Connected:
		return to == Disconnected
	}
	return false
}

// ErrRetriesExhausted: every reconnect attempt failed. Run must be called
// again to retry.
var ErrRetriesExhausted = errors.New("realtime: reconnect attempts exhausted")

// Sink receives the updates of the subscribed sector.
type Sink interface {
	ApplyLive(u models.LiveUpdate)
}

// Refresher is asked for a full reload after every applied update.
type Refresher interface {
	Request()
}

type Options struct {
	Sector   string
	Attempts int
	Delay    time.Duration
	// OnState, when set, is called after every state change.
	OnState func(State)
}

type Reconciler struct {
	dialer  Dialer
	sink    Sink
	refresh Refresher
	sector  string
	backoff utils.Backoff
	onState func(State)
	log     *zap.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	state State
}

func NewReconciler(d Dialer, sink Sink, r Refresher, opt Options, log *zap.Logger, m *telemetry.Metrics) *Reconciler {
	return &Reconciler{
		dialer:  d,
		sink:    sink,
		refresh: r,
		sector:  opt.Sector,
		backoff: utils.FixedBackoff(opt.Delay, opt.Attempts),
		onState: opt.OnState,
		log:     log.With(zap.String("sector", opt.Sector)),
		metrics: m,
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) set(to State) {
	r.mu.Lock()
	from := r.state
	if from == to {
		r.mu.Unlock()
		return
	}
	if !from.CanTransition(to) {
		r.mu.Unlock()
		r.log.Error("illegal state transition", zap.Stringer("from", from), zap.Stringer("to", to))
		return
	}
	r.state = to
	r.mu.Unlock()

	r.metrics.ConnectionState(int(to))
	r.log.Debug("state", zap.Stringer("from", from), zap.Stringer("to", to))
	if r.onState != nil {
		r.onState(to)
	}
}

// Run keeps the connection up until ctx is done or the attempts of one
// failure streak run out. The first dial plus Attempts redials make a streak;
// after a drop the streak restarts with the redial as attempt one. Every
// successful connection sends exactly one subscribe.
func (r *Reconciler) Run(ctx context.Context) error {
	failures := 0
	for {
		r.set(Connecting)
		conn, err := r.dialer.Dial(ctx)
		if err != nil {
			r.set(Disconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if failures >= r.backoff.Retries() {
				r.log.Warn("giving up", zap.Int("attempts", failures+1), zap.Error(err))
				return ErrRetriesExhausted
			}
			r.log.Info("dial failed", zap.Int("attempt", failures+1), zap.Error(err))
			if utils.Sleep(ctx, r.backoff.Delay(failures)) != nil {
				return ctx.Err()
			}
			failures++
			r.metrics.ReconnectAttempt()
			continue
		}

		failures = 0
		r.set(Connected)
		err = r.serve(ctx, conn)
		r.set(Disconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Info("connection lost", zap.Error(err))
		if utils.Sleep(ctx, r.backoff.Delay(0)) != nil {
			return ctx.Err()
		}
		failures = 1
		r.metrics.ReconnectAttempt()
	}
}

func (r *Reconciler) serve(ctx context.Context, conn Conn) error {
	defer conn.Close()

	sub, err := NewMessage(EventSubscribe, r.sector)
	if err != nil {
		return err
	}
	if err := conn.Send(sub); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		if m, err := NewMessage(EventUnsubscribe, r.sector); err == nil {
			_ = conn.Send(m)
		}
		conn.Close()
	})
	defer stop()

	for {
		m, err := conn.Receive()
		if err != nil {
			return err
		}
		r.handle(m)
	}
}

func (r *Reconciler) handle(m Message) {
	switch m.Event {
	case EventConnected:
		r.log.Debug("server greeted")
	case EventKPIUpdate:
		var u models.LiveUpdate
		if err := json.Unmarshal(m.Data, &u); err != nil {
			r.log.Warn("bad kpi:update payload", zap.Error(err))
			return
		}
		if !strings.EqualFold(u.Sector, r.sector) {
			r.metrics.UpdateIgnored()
			return
		}
		r.sink.ApplyLive(u)
		r.metrics.UpdateApplied()
		r.refresh.Request()
	default:
		r.log.Debug("unhandled event", zap.String("event", m.Event))
	}
}
