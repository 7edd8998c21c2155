package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ryanspoone/sdlc-metrics/internal/period"
	"github.com/ryanspoone/sdlc-metrics/internal/report"
)

type jobFunc func(report.Runner, context.Context, []period.Period) error

var jobs = map[string]jobFunc{
	"cycle-time":     report.Runner.CycleTime,
	"ic-completions": report.Runner.ICCompletions,
	"github":         report.Runner.GitHubActivity,
	"builds":         report.Runner.BuildMetrics,
	"meetings":       report.Runner.Meetings,
	"issue-metrics":  report.Runner.IssueMetrics,
}

// RunReport triggers one job synchronously. The months query parameter
// takes a comma-separated list of YYYY-MM values and defaults to the
// previous calendar month.
func (h *Handler) RunReport(c *fiber.Ctx) error {
	name := c.Params("job")
	job, ok := jobs[name]
	if !ok {
		return writeNotFound(c, "unknown report job")
	}

	months, err := parseMonths(c.Query("months"))
	if err != nil {
		return writeError(c, err)
	}

	if !h.runMu.TryLock() {
		return c.Status(fiber.StatusConflict).JSON(
			errorResponse("RUN_IN_PROGRESS", "another report job is already running"))
	}
	defer h.runMu.Unlock()

	started := time.Now()
	runErr := job(h.runner, c.UserContext(), months)
	rec := runRecord{
		Job:        name,
		Months:     monthLabels(months),
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
		Status:     "ok",
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	}
	h.runs.add(rec)

	if runErr != nil {
		h.log.Errorw("report job failed", "job", name, "error", runErr)
		return writeError(c, runErr)
	}
	h.log.Infow("report job finished", "job", name, "months", rec.Months, "duration_ms", rec.DurationMS)
	return c.Status(fiber.StatusOK).JSON(rec)
}

// ListRuns returns recent run outcomes, newest first.
func (h *Handler) ListRuns(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.runs.list())
}

func parseMonths(raw string) ([]period.Period, error) {
	if raw == "" {
		return []period.Period{period.Previous(time.Now())}, nil
	}
	return period.ParseList(raw)
}

func monthLabels(months []period.Period) []string {
	out := make([]string, len(months))
	for i, p := range months {
		out[i] = p.String()
	}
	return out
}
