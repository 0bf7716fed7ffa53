// Command server runs the development backend: REST endpoints, the push
// channel and Prometheus metrics over an in-memory store.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/auth"
	"github.com/AngelCh415/kpi-dashboard/internal/config"
	"github.com/AngelCh415/kpi-dashboard/internal/httpx"
	"github.com/AngelCh415/kpi-dashboard/internal/logging"
	"github.com/AngelCh415/kpi-dashboard/internal/metrics"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
	"github.com/AngelCh415/kpi-dashboard/internal/realtime"
	"github.com/AngelCh415/kpi-dashboard/internal/store"
	"github.com/AngelCh415/kpi-dashboard/internal/telemetry"
	"github.com/AngelCh415/kpi-dashboard/internal/validate"
)

func newIssuer(cfg config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
}

func newDeps(cfg config.Config, log *zap.Logger, st *store.MemoryStore, svc *metrics.Service,
	hub *realtime.Hub, iss *auth.Issuer, m *telemetry.Metrics) httpx.Deps {
	return httpx.Deps{
		Log:          log,
		Store:        st,
		Service:      svc,
		Hub:          hub,
		Issuer:       iss,
		Validator:    validate.Validator{},
		Metrics:      m,
		Prefix:       cfg.APIPrefix,
		Sector:       cfg.Sector,
		ListEnvelope: cfg.ListEnvelope,
		User: models.User{
			ID:       1,
			Email:    cfg.DevUserEmail,
			FullName: "Administrador",
			Role:     "admin",
			Sector:   cfg.Sector,
			IsActive: true,
		},
		Password: cfg.DevUserPassword,
	}
}

func newServer(cfg config.Config, d httpx.Deps) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(lc fx.Lifecycle, srv *http.Server, hub *realtime.Hub, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return srv.Shutdown(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			config.FromEnv,
			logging.New,
			telemetry.New,
			store.NewMemoryStore,
			metrics.NewService,
			realtime.NewHub,
			newIssuer,
			newDeps,
			newServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(startServer),
	).Run()
}
