package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger/postgres"
	"github.com/ryanspoone/sdlc-metrics/internal/ledger/sheets"
)

// New constructs a ledger backend by name.
func New(ctx context.Context, backend string, log *zap.SugaredLogger, cfg *config.Config) (Store, error) {
	switch backend {
	case "sheets":
		return sheets.New(ctx, log, cfg), nil
	case "postgres":
		return postgres.New(ctx, log, cfg), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", backend)
	}
}
