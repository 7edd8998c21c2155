// Package report wires the report jobs to their sources and the ledger.
package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger"
	"github.com/ryanspoone/sdlc-metrics/internal/report/domain"
)

// New constructs the job layer with its dependencies.
func New(log *zap.SugaredLogger, ctx context.Context, cfg *config.Config, store ledger.Store, exec *backoff.Executor, sources domain.Sources, timeout time.Duration) Runner {
	return domain.New(log, ctx, cfg, store, exec, sources, timeout)
}
