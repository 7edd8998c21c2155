package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

func testFetcher(t *testing.T) (*Fetcher, *[]time.Duration) {
	t.Helper()
	exec := backoff.New(zap.NewNop().Sugar()).WithSleeper(func(time.Duration) {})
	f := New(zap.NewNop().Sugar(), exec)
	pauses := &[]time.Duration{}
	f.sleep = func(d time.Duration) { *pauses = append(*pauses, d) }
	return f, pauses
}

func nRecords(n, startAt int) []Record {
	recs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, json.RawMessage(fmt.Sprintf(`{"id":%d}`, startAt+i)))
	}
	return recs
}

func TestFetchAllOffsetScheme(t *testing.T) {
	f, _ := testFetcher(t)

	// synthetic API with pages of sizes 100,100,100,40
	sizes := []int{100, 100, 100, 40}
	var cursors []int
	fn := func(_ context.Context, cur Cursor) (*Page, error) {
		cursors = append(cursors, cur.Offset)
		idx := cur.Offset / 100
		require.Less(t, idx, len(sizes))
		return &Page{Records: nRecords(sizes[idx], cur.Offset)}, nil
	}

	records, err := f.FetchAll(context.Background(), fn, NewOffsetPager(100))
	require.NoError(t, err)
	require.Len(t, records, 340)
	require.Equal(t, []int{0, 100, 200, 300}, cursors, "termination detected on the 4th page")

	// page order preserved
	var first, last struct{ ID int }
	require.NoError(t, json.Unmarshal(records[0], &first))
	require.NoError(t, json.Unmarshal(records[339], &last))
	require.Equal(t, 0, first.ID)
	require.Equal(t, 339, last.ID)
}

func TestFetchAllTokenScheme(t *testing.T) {
	f, _ := testFetcher(t)

	// continuation tokens a, b, then empty: two pages, then stop
	tokens := map[string]string{"a": "b", "b": ""}
	var seen []string
	fn := func(_ context.Context, cur Cursor) (*Page, error) {
		seen = append(seen, cur.Token)
		return &Page{Records: nRecords(2, 0), NextToken: tokens[cur.Token]}, nil
	}

	records, err := f.FetchAll(context.Background(), fn, &TokenPager{token: "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, seen)
	require.Len(t, records, 4)

	// the initial request of a fresh pager carries no token
	seen = nil
	tokens[""] = "a"
	records, err = f.FetchAll(context.Background(), fn, NewTokenPager())
	require.NoError(t, err)
	require.Equal(t, []string{"", "a", "b"}, seen)
	require.Len(t, records, 6)
}

func TestFetchAllCursorScheme(t *testing.T) {
	f, _ := testFetcher(t)

	next := map[string]string{
		"https://api/x?p=1": "https://api/x?p=2",
		"https://api/x?p=2": "",
	}
	var seen []string
	fn := func(_ context.Context, cur Cursor) (*Page, error) {
		seen = append(seen, cur.URL)
		return &Page{Records: nRecords(3, 0), NextURL: next[cur.URL]}, nil
	}

	records, err := f.FetchAll(context.Background(), fn, NewCursorPager("https://api/x?p=1"))
	require.NoError(t, err)
	require.Equal(t, []string{"https://api/x?p=1", "https://api/x?p=2"}, seen)
	require.Len(t, records, 6)
}

func TestFetchAllRateLimitPausesSameCursor(t *testing.T) {
	f, pauses := testFetcher(t)

	calls := 0
	fn := func(_ context.Context, cur Cursor) (*Page, error) {
		calls++
		if calls == 1 {
			return nil, &entities.RateLimitError{RetryAfter: 7 * time.Second}
		}
		require.Equal(t, 0, cur.Offset, "cursor unchanged across the pause")
		return &Page{Records: nRecords(1, 0)}, nil
	}

	records, err := f.FetchAll(context.Background(), fn, NewOffsetPager(50))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []time.Duration{7 * time.Second}, *pauses)
}

func TestFetchAllRateLimitDefaultPause(t *testing.T) {
	f, pauses := testFetcher(t)

	calls := 0
	fn := func(_ context.Context, _ Cursor) (*Page, error) {
		calls++
		if calls == 1 {
			return nil, &entities.RateLimitError{}
		}
		return &Page{Records: nRecords(1, 0)}, nil
	}

	_, err := f.FetchAll(context.Background(), fn, NewOffsetPager(50))
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second}, *pauses)
}

func TestFetchAllMalformedSurfacesImmediately(t *testing.T) {
	f, _ := testFetcher(t)

	calls := 0
	fn := func(_ context.Context, _ Cursor) (*Page, error) {
		calls++
		return nil, entities.Malformed(fmt.Errorf("unexpected shape"), "decode")
	}

	records, err := f.FetchAll(context.Background(), fn, NewOffsetPager(50))
	require.ErrorIs(t, err, entities.ErrMalformedResponse)
	require.Nil(t, records)
	require.Equal(t, 1, calls, "schema mismatches are not retried")
}

func TestFetchAllRetryExhaustedSurfaces(t *testing.T) {
	exec := backoff.New(zap.NewNop().Sugar()).WithMaxAttempts(3).WithSleeper(func(time.Duration) {})
	f := New(zap.NewNop().Sugar(), exec)
	f.sleep = func(time.Duration) {}

	fn := func(_ context.Context, _ Cursor) (*Page, error) {
		return nil, entities.Transientf("api is down")
	}

	records, err := f.FetchAll(context.Background(), fn, NewOffsetPager(50))
	require.ErrorIs(t, err, entities.ErrRetryExhausted)
	require.Nil(t, records)
}

func TestFetchAllPartialOnExhausted(t *testing.T) {
	exec := backoff.New(zap.NewNop().Sugar()).WithMaxAttempts(2).WithSleeper(func(time.Duration) {})
	f := New(zap.NewNop().Sugar(), exec)
	f.sleep = func(time.Duration) {}

	fn := func(_ context.Context, cur Cursor) (*Page, error) {
		if cur.Offset >= 100 {
			return nil, entities.Transientf("second page is cursed")
		}
		return &Page{Records: nRecords(100, 0)}, nil
	}

	records, err := f.FetchAll(context.Background(), fn, NewOffsetPager(100), ReturnPartialOnExhausted())
	require.ErrorIs(t, err, entities.ErrRetryExhausted)
	require.Len(t, records, 100, "prior valid pages are kept")
}

func TestFetchAllContextCancelled(t *testing.T) {
	f, _ := testFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := func(_ context.Context, _ Cursor) (*Page, error) {
		t.Fatal("must not issue a request on a cancelled context")
		return nil, nil
	}
	_, err := f.FetchAll(ctx, fn, NewOffsetPager(10))
	require.ErrorIs(t, err, context.Canceled)
}
