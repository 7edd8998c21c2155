// Package main is the sdlc-metrics CLI: one subcommand per report job,
// plus an admin HTTP server for triggering runs remotely.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/fetcher"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
	"github.com/ryanspoone/sdlc-metrics/internal/report"
	"github.com/ryanspoone/sdlc-metrics/internal/report/domain"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/github"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/jira"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/semaphore"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/zoom"
	"github.com/ryanspoone/sdlc-metrics/internal/transport/http/middleware"
	"github.com/ryanspoone/sdlc-metrics/internal/transport/http/server/handlers"
	"github.com/ryanspoone/sdlc-metrics/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var months string

	root := &cobra.Command{
		Use:           "sdlc-metrics",
		Short:         "Engineering activity reports: pull tool data, upsert the metrics ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&months, "months", "",
		"comma-separated YYYY-MM reporting months (default: previous month)")

	jobs := []struct {
		use   string
		short string
		run   func(report.Runner, context.Context, []period.Period) error
	}{
		{"cycle-time", "Write mean stage-interval durations into the Cycle Time sheet", report.Runner.CycleTime},
		{"ic-completions", "Write per-engineer resolved-issue counts per issue family", report.Runner.ICCompletions},
		{"github", "Write merge, review and code-change tallies per engineer", report.Runner.GitHubActivity},
		{"builds", "Write per-project CI result tallies", report.Runner.BuildMetrics},
		{"meetings", "Write meeting counts and hours per engineer", report.Runner.Meetings},
		{"issue-metrics", "Write configured issue count queries into the Metrics sheet", report.Runner.IssueMetrics},
	}
	for _, job := range jobs {
		job := job
		root.AddCommand(&cobra.Command{
			Use:   job.use,
			Short: job.short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runJob(cmd.Context(), months, job.use, job.run)
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})

	return root
}

func runJob(ctx context.Context, months, name string, job func(report.Runner, context.Context, []period.Period) error) error {
	periods, err := resolveMonths(months)
	if err != nil {
		return err
	}

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	started := time.Now()
	if err := job(a.runner, ctx, periods); err != nil {
		a.log.Errorw("report job failed", "job", name, "error", err)
		return err
	}
	a.log.Infow("report job finished", "job", name, "duration", time.Since(started))
	return nil
}

func serve(ctx context.Context) error {
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	serv := fiber.New(fiber.Config{
		ReadTimeout:  a.cfg.HTTP.RequestTimeout,
		WriteTimeout: a.cfg.HTTP.RequestTimeout,
	})
	serv.Use(recover.New())
	serv.Use(requestid.New())
	serv.Use(middleware.RequestLogger(a.log))

	h := handlers.NewHandler(a.log, a.runner)
	h.Register(serv)

	go func() {
		if err := serv.Listen(a.cfg.ServerAddr()); err != nil {
			a.log.Errorw("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = serv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.log.Warnw("server shutdown timeout", "timeout", a.cfg.Server.ShutdownTimeout)
	}
	return nil
}

type app struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	runner report.Runner
}

// newApp loads configuration and wires the ledger, the source clients and
// the job layer. The returned cleanup closes the ledger backend.
func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	store, err := ledger.New(ctx, cfg.Ledger.Backend, log, cfg)
	if err != nil {
		log.Errorw("ledger initialization error", "error", err)
		return nil, nil, err
	}
	if err := store.OnStart(ctx); err != nil {
		log.Errorw("ledger start error", "error", err)
		return nil, nil, err
	}
	cleanup := func() {
		_ = store.OnStop(context.Background())
		_ = log.Sync()
	}

	exec := backoff.New(log)
	httpc := fetcher.NewClient(log, cfg.HTTP.RequestTimeout)
	sources := buildSources(ctx, log, httpc, exec, cfg)

	// No overall job deadline: each outbound call is bounded by the client
	// timeout and the retry budget, and signals cancel the context.
	runner := report.New(log, ctx, cfg, store, exec, sources, 0)

	return &app{cfg: cfg, log: log, runner: runner}, cleanup, nil
}

// buildSources constructs every source whose credentials are present.
// A missing credential disables that source's jobs, not the whole binary.
func buildSources(ctx context.Context, log *zap.SugaredLogger, httpc *fetcher.Client, exec *backoff.Executor, cfg *config.Config) domain.Sources {
	var sources domain.Sources

	if c, err := jira.New(log, httpc, exec, cfg.Jira); err != nil {
		log.Infow("jira source disabled", "reason", err)
	} else {
		sources.Issues = c
	}
	if c, err := github.New(log, httpc, exec, cfg.GitHub); err != nil {
		log.Infow("github source disabled", "reason", err)
	} else {
		sources.Activity = c
	}
	if c, err := semaphore.New(log, httpc, exec, cfg.Semaphore); err != nil {
		log.Infow("semaphore source disabled", "reason", err)
	} else {
		sources.Builds = c
	}
	if c, err := zoom.New(ctx, log, httpc, exec, cfg.Zoom); err != nil {
		log.Infow("zoom source disabled", "reason", err)
	} else {
		sources.Meetings = c
	}

	return sources
}

func resolveMonths(raw string) ([]period.Period, error) {
	if raw == "" {
		return []period.Period{period.Previous(time.Now())}, nil
	}
	return period.ParseList(raw)
}
