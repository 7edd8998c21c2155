// Package handlers exposes the report jobs over HTTP for operators: runs
// are triggered synchronously and recent outcomes can be listed.
package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/report"
)

// Handler serves the admin API on top of the job layer. Jobs share one
// ledger writer, so at most one run is in flight at a time.
type Handler struct {
	log    *zap.SugaredLogger
	runner report.Runner
	runs   *runLog
	runMu  sync.Mutex
}

// NewHandler constructs the HTTP handler with its dependencies.
func NewHandler(log *zap.SugaredLogger, runner report.Runner) *Handler {
	return &Handler{
		log:    log,
		runner: runner,
		runs:   newRunLog(50),
	}
}

// Register mounts the routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/healthz", h.Healthz)

	v1 := app.Group("/api/v1")
	v1.Post("/reports/:job/run", h.RunReport)
	v1.Get("/reports/runs", h.ListRuns)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// runRecord is one finished job run.
type runRecord struct {
	Job        string    `json:"job"`
	Months     []string  `json:"months"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// runLog keeps the most recent run outcomes, newest first. Handlers run
// on concurrent goroutines, so access is locked.
type runLog struct {
	mu      sync.Mutex
	limit   int
	records []runRecord
}

func newRunLog(limit int) *runLog {
	return &runLog{limit: limit}
}

func (l *runLog) add(r runRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]runRecord{r}, l.records...)
	if len(l.records) > l.limit {
		l.records = l.records[:l.limit]
	}
}

func (l *runLog) list() []runRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]runRecord, len(l.records))
	copy(out, l.records)
	return out
}
