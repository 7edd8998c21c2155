package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

func TestPrevious(t *testing.T) {
	now := time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)
	p := Previous(now)
	require.Equal(t, Period{Year: 2024, Month: time.March}, p)
}

func TestPreviousAcrossYear(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	p := Previous(now)
	require.Equal(t, Period{Year: 2023, Month: time.December}, p)
}

func TestParse(t *testing.T) {
	p, err := Parse("2024-03")
	require.NoError(t, err)
	require.Equal(t, Period{Year: 2024, Month: time.March}, p)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("March 2024")
	require.ErrorIs(t, err, entities.ErrConfiguration)
}

func TestRange(t *testing.T) {
	p := Period{Year: 2024, Month: time.February}
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start())
	require.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), p.End(), "leap February")
}

func TestBack(t *testing.T) {
	p := Period{Year: 2024, Month: time.January}
	require.Equal(t, Period{Year: 2023, Month: time.November}, p.Back(2))
	require.Equal(t, p, p.Back(0))
}

func TestLabel(t *testing.T) {
	p := Period{Year: 2024, Month: time.March}
	require.Equal(t, "March 2024", p.Label())
	require.Equal(t, "2024-03", p.String())
}
