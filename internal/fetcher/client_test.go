package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

func TestClientClassifiesStatuses(t *testing.T) {
	var status int
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, vs := range header {
			for _, v := range vs {
				w.Header().Set(k, v)
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop().Sugar(), 5*time.Second)
	ctx := context.Background()

	status, header = http.StatusOK, nil
	resp, err := c.Get(ctx, srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	status = http.StatusBadGateway
	_, err = c.Get(ctx, srv.URL, nil)
	require.ErrorIs(t, err, entities.ErrTransient)

	status, header = http.StatusTooManyRequests, http.Header{"Retry-After": []string{"42"}}
	_, err = c.Get(ctx, srv.URL, nil)
	require.ErrorIs(t, err, entities.ErrRateLimited)
	var rl *entities.RateLimitError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, 42*time.Second, rl.RetryAfter)

	status, header = http.StatusTooManyRequests, nil
	_, err = c.Get(ctx, srv.URL, nil)
	require.ErrorAs(t, err, &rl)
	require.Zero(t, rl.RetryAfter)

	status, header = http.StatusUnauthorized, nil
	_, err = c.Get(ctx, srv.URL, nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, entities.ErrTransient), "auth failures must not be retried")
}

func TestClientDecodeMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop().Sugar(), 5*time.Second)
	var out map[string]any
	_, err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	require.ErrorIs(t, err, entities.ErrMalformedResponse)
}

func TestResponseNextLink(t *testing.T) {
	r := &Response{Header: http.Header{}}
	require.Empty(t, r.NextLink())

	r.Header.Set("Link", `<https://api.example.com/p?page=3>; rel="next", <https://api.example.com/p?page=9>; rel="last"`)
	require.Equal(t, "https://api.example.com/p?page=3", r.NextLink())

	r.Header.Set("Link", `<https://api.example.com/p?page=9>; rel="last"`)
	require.Empty(t, r.NextLink())
}

func TestClientConnectionErrorIsTransient(t *testing.T) {
	c := NewClient(zap.NewNop().Sugar(), time.Second)
	// closed server: connection refused
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := c.Get(context.Background(), url, nil)
	require.ErrorIs(t, err, entities.ErrTransient)
}
