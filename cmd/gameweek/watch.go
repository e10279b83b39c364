package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/discochess/gameweek"
	"github.com/discochess/gameweek/fx/gameweekfx"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh players on a schedule and serve metrics",
	Long: `Track players continuously. Every scheduled run starts a refresh
cycle: stale weeks are refetched and new games queued for analysis. With
--report-dir, the reports are republished after each cycle.

Schedules use cron syntax or descriptors such as "@every 5m" and "@hourly".

Examples:
  gameweek watch -p hikaru --schedule "@every 5m"
  gameweek watch -p hikaru --metrics-addr :9090 --report-dir ./reports`,
	RunE: runWatch,
}

var (
	watchSchedule    string
	watchMetricsAddr string
	watchReportDir   string
	watchCompression string
)

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "@every 5m", "refresh schedule")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().StringVar(&watchReportDir, "report-dir", "", "publish reports after each cycle to this directory, gs://bucket/prefix or s3://bucket/prefix")
	watchCmd.Flags().StringVar(&watchCompression, "compression", "zstd", "report and evaluation compression: zstd, gzip or none")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requirePlayers(); err != nil {
		return err
	}
	schedule, err := cron.ParseStandard(watchSchedule)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", watchSchedule, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := fx.New(
		fx.Supply(gameweekfx.Config{
			EnginePath:    enginePath,
			EngineOptions: engineOptions(),
			Depth:         depth,
			TimeClass:     timeClass,
			Players:       players,
			ReportDir:     watchReportDir,
			EvalDir:       evalDir,
			Compression:   watchCompression,
		}),
		fx.Supply(logger),
		fx.Provide(func() prometheus.Registerer { return registry }),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		gameweekfx.EngineModule,
		gameweekfx.Module,
		fx.Invoke(func(lc fx.Lifecycle, t *gameweek.Tracker) {
			registerRefresh(lc, t, schedule)
		}),
		fx.Invoke(func(lc fx.Lifecycle) {
			if watchMetricsAddr != "" {
				registerMetricsServer(lc, registry, watchMetricsAddr)
			}
		}),
	)
	app.Run()
	return app.Err()
}

// registerRefresh runs a refresh cycle on schedule for the app's lifetime.
func registerRefresh(lc fx.Lifecycle, t *gameweek.Tracker, schedule cron.Schedule) {
	c := cron.New()
	wrap := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger))
	c.Schedule(schedule, wrap.Then(cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cycle, err := t.Refresh(ctx)
		if err != nil {
			logger.Warn("refresh failed", zap.Error(err))
			return
		}
		p := t.Progress()
		logger.Info("refresh cycle",
			zap.String("cycle", cycle),
			zap.Int("queued", p.Total),
		)
		if evalDir != "" {
			// Evaluations of the previous cycle.
			if _, err := t.SaveEvalSnapshot(ctx); err != nil {
				logger.Warn("saving evaluation snapshot failed", zap.Error(err))
			}
		}
		if watchReportDir == "" {
			return
		}
		if _, err := t.Publish(ctx); err != nil {
			logger.Warn("publishing reports failed", zap.Error(err))
		}
	})))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func registerMetricsServer(lc fx.Lifecycle, registry *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server stopped", zap.Error(err))
				}
			}()
			logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
