// Package zoom aggregates meeting activity per engineer from the Zoom
// dashboard and past-meetings APIs.
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/fetcher"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

const (
	defaultBaseURL = "https://api.zoom.us/v2"
	pageSize       = 300

	// adHocWindow is how soon after creation a meeting must start to count
	// as unplanned. Recurring standing meetings are created long before.
	adHocWindow = 7 * 24 * time.Hour
)

// Client talks to the Zoom API with a server-to-server OAuth token.
type Client struct {
	log    *zap.SugaredLogger
	http   *fetcher.Client
	fetch  *fetcher.Fetcher
	exec   *backoff.Executor
	tokens oauth2.TokenSource

	baseURL string
}

// New builds a Client from configuration.
func New(ctx context.Context, log *zap.SugaredLogger, httpc *fetcher.Client, exec *backoff.Executor, cfg config.ZoomConfig) (*Client, error) {
	if cfg.AccountID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.Mark(errors.New("zoom.account_id, zoom.client_id and zoom.client_secret are required"), entities.ErrConfiguration)
	}

	src := &tokenSource{
		ctx:          ctx,
		http:         httpc,
		tokenURL:     tokenURL,
		accountID:    cfg.AccountID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	return &Client{
		log:     log.Named("zoom"),
		http:    httpc,
		fetch:   fetcher.New(log, exec),
		exec:    exec,
		tokens:  oauth2.ReuseTokenSource(nil, src),
		baseURL: defaultBaseURL,
	}, nil
}

// WithEndpoints overrides the API and token hosts. Tests use this.
func (c *Client) WithEndpoints(apiURL, tokURL string, src *tokenSource) *Client {
	c.baseURL = apiURL
	if src != nil {
		src.tokenURL = tokURL
		c.tokens = oauth2.ReuseTokenSource(nil, src)
	}
	return c
}

// MeetingData tallies meeting count, hours in meetings and ad-hoc meeting
// count for every engineer in the alias map over one period. Participants
// are matched by email or display name through the alias map; everyone
// else is ignored.
func (c *Client) MeetingData(ctx context.Context, aliases entities.AliasMap, p period.Period) (map[string]entities.MeetingMetrics, error) {
	result := make(map[string]entities.MeetingMetrics, len(aliases))
	for _, name := range aliases.Names() {
		result[name] = entities.MeetingMetrics{}
	}

	meetings, err := c.meetings(ctx, p)
	if err != nil {
		return nil, err
	}
	c.log.Infow("meetings found", "period", p.String(), "count", len(meetings))

	for _, m := range meetings {
		if err := c.tallyMeeting(ctx, m, aliases, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (c *Client) tallyMeeting(ctx context.Context, m meeting, aliases entities.AliasMap, result map[string]entities.MeetingMetrics) error {
	participants, err := c.participants(ctx, m.ID.String())
	if err != nil {
		return err
	}

	info, err := c.meetingInfo(ctx, m.ID.String())
	if err != nil {
		return err
	}
	if info == nil {
		c.log.Warnw("meeting without details, skipping", "meeting", m.ID)
		return nil
	}

	adHoc := isAdHoc(m, *info)

	seen := map[string]struct{}{}
	for _, part := range participants {
		name := aliases.Resolve(part.Email)
		if name == "" {
			name = aliases.Resolve(part.Name)
		}
		if name == "" {
			continue
		}
		// a reconnecting participant appears multiple times
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		metrics := result[name]
		metrics.MeetingCount++
		metrics.HoursInMeetings += float64(info.Duration) / 60
		if adHoc {
			metrics.AdHocCount++
		}
		result[name] = metrics
	}
	return nil
}

// isAdHoc classifies a meeting as unplanned: instant meetings, meetings
// scheduled within a week of being created, and the default-topic
// "Zoom Meeting" rooms.
func isAdHoc(m meeting, info meetingInfo) bool {
	if info.Type == 1 {
		return true
	}
	created, errC := time.Parse(time.RFC3339, info.CreatedAt)
	started, errS := time.Parse(time.RFC3339, m.StartTime)
	if errC == nil && errS == nil && started.Sub(created) <= adHocWindow {
		return true
	}
	return len(m.Topic) >= len("Zoom Meeting") && m.Topic[len(m.Topic)-len("Zoom Meeting"):] == "Zoom Meeting"
}

// meetings drains the token-paginated dashboard listing for the period.
func (c *Client) meetings(ctx context.Context, p period.Period) ([]meeting, error) {
	fn := func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		u := fmt.Sprintf("%s/metrics/meetings?page_size=%d&type=past&from=%s&to=%s",
			c.baseURL, pageSize,
			p.Start().Format("2006-01-02"), p.End().Format("2006-01-02"))
		if cur.Token != "" {
			u += "&next_page_token=" + cur.Token
		}

		header, err := c.authHeader()
		if err != nil {
			return nil, err
		}
		var resp struct {
			Meetings      []json.RawMessage `json:"meetings"`
			NextPageToken string            `json:"next_page_token"`
		}
		if _, err := c.http.GetJSON(ctx, u, header, &resp); err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: resp.Meetings, NextToken: resp.NextPageToken}, nil
	}

	records, err := c.fetch.FetchAll(ctx, fn, fetcher.NewTokenPager())
	if err != nil {
		return nil, err
	}

	meetings := make([]meeting, 0, len(records))
	for _, rec := range records {
		var m meeting
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, entities.Malformed(err, "decode meeting")
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func (c *Client) participants(ctx context.Context, meetingID string) ([]participant, error) {
	fn := func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		u := fmt.Sprintf("%s/past_meetings/%s/participants?page_size=%d", c.baseURL, meetingID, pageSize)
		if cur.Token != "" {
			u += "&next_page_token=" + cur.Token
		}

		header, err := c.authHeader()
		if err != nil {
			return nil, err
		}
		var resp struct {
			Participants  []json.RawMessage `json:"participants"`
			NextPageToken string            `json:"next_page_token"`
		}
		if _, err := c.http.GetJSON(ctx, u, header, &resp); err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: resp.Participants, NextToken: resp.NextPageToken}, nil
	}

	records, err := c.fetch.FetchAll(ctx, fn, fetcher.NewTokenPager())
	if err != nil {
		return nil, err
	}

	participants := make([]participant, 0, len(records))
	for _, rec := range records {
		var part participant
		if err := json.Unmarshal(rec, &part); err != nil {
			return nil, entities.Malformed(err, "decode participant")
		}
		participants = append(participants, part)
	}
	return participants, nil
}

// meetingInfo fetches the detailed past-meeting record, or nil when the
// meeting has no readable details.
func (c *Client) meetingInfo(ctx context.Context, meetingID string) (*meetingInfo, error) {
	u := fmt.Sprintf("%s/past_meetings/%s", c.baseURL, meetingID)

	var info meetingInfo
	found := false
	err := c.exec.Execute(func() error {
		header, err := c.authHeader()
		if err != nil {
			return err
		}
		resp, err := c.http.Get(ctx, u, header)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			return nil
		}
		if err := resp.Decode(&info); err != nil {
			return err
		}
		found = true
		return nil
	}, backoff.TransientOnly)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &info, nil
}

func (c *Client) authHeader() (http.Header, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, errors.Wrap(err, "obtain access token")
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok.AccessToken)
	return header, nil
}
