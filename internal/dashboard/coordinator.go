package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
)

// Source is the read side of the backend.
type Source interface {
	Stats(ctx context.Context, q models.Query) (models.Stats, error)
	ListEntries(ctx context.Context, q models.Query) (models.Page, error)
}

// Coordinator loads stats and one page of entries as a single snapshot.
type Coordinator struct {
	src     Source
	view    *View
	notify  Notifier
	log     *zap.Logger
	metrics *telemetry.Metrics
}

func NewCoordinator(src Source, view *View, n Notifier, log *zap.Logger, m *telemetry.Metrics) *Coordinator {
	return &Coordinator{src: src, view: view, notify: n, log: log, metrics: m}
}

func (c *Coordinator) View() *View { return c.view }

// Load fetches stats and the requested page in parallel. The view changes
// only once both settled, and only if no newer load or live update won.
func (c *Coordinator) Load(ctx context.Context, q models.Query) error {
	seq := c.view.begin(q)

	var (
		st   models.Stats
		page models.Page
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		var err error
		st, err = c.src.Stats(gctx, q)
		c.metrics.ObserveFetch("stats", outcome(err), time.Since(start))
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		page, err = c.src.ListEntries(gctx, q)
		c.metrics.ObserveFetch("list", outcome(err), time.Since(start))
		return err
	})
	err := g.Wait()

	if !c.view.settle(seq, st, page, err) {
		c.log.Debug("stale load discarded", zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		c.log.Warn("load failed", zap.Uint64("seq", seq), zap.String("kind", api.KindOf(err).String()), zap.Error(err))
		c.notify.Notify(Notification{Level: LevelError, Title: TitleError, Message: loadMessage(err)})
		return err
	}
	c.log.Debug("snapshot loaded", zap.Uint64("seq", seq), zap.Int("items", len(page.Items)), zap.Int("total", page.Total))
	return nil
}

// Reload repeats the current query.
func (c *Coordinator) Reload(ctx context.Context) error {
	return c.Load(ctx, c.view.Query())
}

// SetFilters applies new filters and goes back to the first page.
func (c *Coordinator) SetFilters(ctx context.Context, q models.Query) error {
	q.Page = 1
	return c.Load(ctx, q)
}

// GoToPage keeps the filters and requests page n as given; the backend
// answers an out of range page with an empty list.
func (c *Coordinator) GoToPage(ctx context.Context, n int) error {
	q := c.view.Query()
	q.Page = n
	return c.Load(ctx, q)
}

// ApplyLive shows a pushed update at once and tells the user.
func (c *Coordinator) ApplyLive(u models.LiveUpdate) {
	c.view.ApplyLive(u)
	c.log.Info("live update", zap.String("action", u.Action), zap.String("date_ref", u.DateRef))
	c.notify.Notify(Notification{Level: LevelInfo, Title: TitleLive, Message: MsgLiveUpdate})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return api.KindOf(err).String()
}

func loadMessage(err error) string {
	switch api.KindOf(err) {
	case api.KindNetwork:
		return MsgNetwork
	case api.KindAuth:
		return MsgSessionExpired
	}
	return MsgLoadFailed
}
