// Command dashboard is the terminal client of the marketing KPI backend.
//
//	dashboard login -email admin@example.com -password admin
//	dashboard watch -canal "Google Ads"
//	dashboard submit data_ref=2024-01-15 canal=SEO campanha=Blog ...
//	dashboard import planilha.xlsx
//	dashboard export -format xlsx -out marketing.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/auth"
	"github.com/AngelCh415/kpi-dashboard/internal/config"
	"github.com/AngelCh415/kpi-dashboard/internal/dashboard"
	"github.com/AngelCh415/kpi-dashboard/internal/logging"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/realtime"
	"github.com/AngelCh415/kpi-dashboard/internal/render"
	"github.com/AngelCh415/kpi-dashboard/internal/sheet"
	"github.com/AngelCh415/kpi-dashboard/internal/storage"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

var errUsage = errors.New("usage: dashboard login|logout|me|watch|submit|import|export [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.FromEnv(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *storage.SQLite
	session *auth.Session
	client  *api.Client
	metrics *telemetry.Metrics
	out     io.Writer
	errOut  io.Writer
	now     func() time.Time
}

func run(ctx context.Context, cfg config.Config, args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	a, err := newApp(cfg, out, errOut)
	if err != nil {
		return err
	}
	defer a.close()

	cmds := map[string]func(context.Context, []string) error{
		"login":  a.login,
		"logout": a.logout,
		"me":     a.me,
		"watch":  a.watch,
		"submit": a.submit,
		"import": a.importSheet,
		"export": a.export,
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		return errUsage
	}
	return cmd(ctx, args[1:])
}

func newApp(cfg config.Config, out, errOut io.Writer) (*app, error) {
	log, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := storage.OpenSQLite(cfg.TokenDB)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, metrics: telemetry.New(), out: out, errOut: errOut, now: time.Now}
	a.session = auth.NewSession(db, log)
	a.client = api.New(api.NewHTTPClient(cfg.HTTPTimeout), cfg.BaseURL(), log,
		api.WithCredentials(a.session), api.WithCreatePath(cfg.CreatePath))
	return a, nil
}

func (a *app) close() {
	a.db.Close()
	a.log.Sync()
}

// metricsRouter exposes the client collectors for scraping.
func (a *app) metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", a.metrics.Handler())
	return r
}

// notifier prints user facing messages.
func (a *app) notifier() dashboard.Notifier {
	return dashboard.NotifierFunc(func(n dashboard.Notification) {
		fmt.Fprintf(a.errOut, "%s: %s\n", n.Title, n.Message)
	})
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", a.cfg.DevUserEmail, "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.session.Login(ctx, a.client, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %s", or(api.DetailOf(err), err.Error()))
	}
	name := *email
	if resp.User != nil && resp.User.FullName != "" {
		name = resp.User.FullName
	}
	fmt.Fprintf(a.out, "Bem-vindo, %s\n", name)
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	return a.session.Logout(ctx)
}

func (a *app) me(ctx context.Context, _ []string) error {
	u, err := a.session.Me(ctx, a.client)
	if err != nil {
		return fmt.Errorf("me: %w", err)
	}
	return writeJSON(a.out, u)
}

// queryFlags binds the dashboard filters. The period defaults to the last
// PeriodDays days in the configured timezone.
func (a *app) queryFlags(fs *flag.FlagSet) *models.Query {
	today := a.now().In(a.cfg.Location())
	q := &models.Query{PerPage: a.cfg.PerPage, Page: 1}
	fs.StringVar(&q.From, "de", today.AddDate(0, 0, -a.cfg.PeriodDays).Format(models.DateLayout), "data_inicio (YYYY-MM-DD)")
	fs.StringVar(&q.To, "ate", today.Format(models.DateLayout), "data_fim (YYYY-MM-DD)")
	fs.StringVar(&q.Channel, "canal", "", "channel filter")
	fs.StringVar(&q.Campaign, "campanha", "", "campaign filter")
	fs.IntVar(&q.Page, "page", 1, "page")
	fs.StringVar(&q.SortBy, "sort", "", "sort column")
	fs.StringVar(&q.SortOrder, "order", "", "asc or desc")
	return q
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	q := a.queryFlags(fs)
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	view := dashboard.NewView(*q)
	coord := dashboard.NewCoordinator(a.client, view, a.notifier(), a.log, a.metrics)
	refresher := dashboard.NewRefresher(coord, a.log)
	poller, err := dashboard.NewPoller(a.cfg.PollSchedule, refresher, a.log)
	if err != nil {
		return err
	}

	var connected atomic.Bool
	redraw := make(chan struct{}, 1)
	kick := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	rec := realtime.NewReconciler(
		realtime.WSDialer{URL: a.cfg.SocketURL, Credentials: a.session},
		coord, refresher,
		realtime.Options{
			Sector:   a.cfg.Sector,
			Attempts: a.cfg.ReconnectAttempts,
			Delay:    a.cfg.ReconnectDelay,
			OnState: func(s realtime.State) {
				connected.Store(s == realtime.Connected)
				kick()
			},
		},
		a.log, a.metrics)

	g, ctx := errgroup.WithContext(ctx)
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: a.metricsRouter(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.log.Info("serving metrics", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}
	g.Go(func() error { return refresher.Run(ctx) })
	g.Go(func() error {
		err := rec.Run(ctx)
		if errors.Is(err, realtime.ErrRetriesExhausted) {
			a.log.Warn("push channel unavailable, polling only", zap.String("schedule", a.cfg.PollSchedule))
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-view.Changes():
			case <-redraw:
			}
			fmt.Fprint(a.out, "\033[H\033[2J")
			render.Snapshot(a.out, view.Snapshot(), connected.Load(), a.cfg.Location())
		}
	})

	poller.Start()
	defer poller.Stop()
	if err := coord.Load(ctx, *q); err != nil {
		a.log.Warn("initial load failed", zap.Error(err))
	}
	return g.Wait()
}

// parseAssignments reads field=value pairs.
func parseAssignments(args []string) (map[string]string, error) {
	out := map[string]string{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	kv, err := parseAssignments(args)
	if err != nil {
		return err
	}
	form := validate.NewForm(validate.Validator{})
	for k, v := range kv {
		if err := form.Set(k, v); err != nil {
			return err
		}
	}

	res := dashboard.NewSubmitter(a.client, a.notifier(), a.log, a.metrics).Submit(ctx, form)
	switch res.Outcome {
	case dashboard.OutcomeCreated:
		return writeJSON(a.out, res.Entry)
	case dashboard.OutcomeInvalid:
		fields := make([]string, 0, len(res.Errors))
		for f := range res.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", f, res.Errors[f])
		}
	case dashboard.OutcomeAuth:
		if err := a.session.Logout(ctx); err != nil {
			a.log.Warn("logout failed", zap.Error(err))
		}
	}
	return fmt.Errorf("submit: %s", res.Outcome)
}

func readSheet(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return sheet.ReadCSV(f)
	case ".xlsx":
		return sheet.ReadXLSX(f)
	}
	return nil, fmt.Errorf("unsupported file %q, expected .xlsx or .csv", path)
}

func (a *app) importSheet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "validate only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: dashboard import [-dry-run] <file.xlsx|file.csv>")
	}
	rows, err := readSheet(fs.Arg(0))
	if err != nil {
		return err
	}
	batch, err := sheet.Parse(rows, validate.Validator{Limits: &validate.DefaultLimits})
	if err != nil {
		return err
	}
	if *dryRun {
		return writeJSON(a.out, batch.Result)
	}
	return writeJSON(a.out, sheet.Upload(ctx, a.client, batch, a.log))
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	q := a.queryFlags(fs)
	format := fs.String("format", "xlsx", "xlsx or csv")
	path := fs.String("out", "", "output file (default marketing.<format>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := sheet.ParseFormat(*format)
	if err != nil {
		return err
	}
	entries, err := sheet.Collect(ctx, a.client, *q)
	if err != nil {
		return fmt.Errorf("export: %s", or(api.DetailOf(err), err.Error()))
	}
	if *path == "" {
		*path = "marketing." + string(f)
	}
	file, err := os.Create(*path)
	if err != nil {
		return err
	}
	if err := sheet.Export(file, f, entries); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d registros exportados para %s\n", len(entries), *path)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
