// Package period models the monthly reporting window every job writes
// against. A Period is a calendar month; its Label doubles as the ledger
// column header, so formatting lives here and nowhere else.
package period

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// Period is one calendar month in UTC.
type Period struct {
	Year  int
	Month time.Month
}

// Previous returns the month before now. Reports run shortly after a
// month closes, so this is the default reporting window.
func Previous(now time.Time) Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return Period{Year: prev.Year(), Month: prev.Month()}
}

// Parse reads a "2006-01" period.
func Parse(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, errors.Mark(errors.Wrapf(err, "invalid period %q", s), entities.ErrConfiguration)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// ParseList reads a comma-separated list of "2006-01" periods.
func ParseList(s string) ([]Period, error) {
	parts := strings.Split(s, ",")
	out := make([]Period, 0, len(parts))
	for _, part := range parts {
		p, err := Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Back returns the period n months earlier.
func (p Period) Back(n int) Period {
	t := p.Start().AddDate(0, -n, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Start is the first instant of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last second of the month, matching the inclusive upper
// bounds the upstream search APIs expect.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Second)
}

// Label renders the column header, e.g. "March 2024".
func (p Period) Label() string {
	return p.Start().Format("January 2006")
}

// String renders the parseable form, e.g. "2024-03".
func (p Period) String() string {
	return p.Start().Format("2006-01")
}
