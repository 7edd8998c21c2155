// Package github aggregates pull-request activity per engineer from the
// GitHub REST v3 API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/fetcher"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

const (
	defaultBaseURL  = "https://api.github.com"
	defaultPageSize = 100
)

// Activity is the per-engineer tally for one period, keyed by the full
// names resolved through the alias map. Engineers with no activity keep
// their zero entries so the report writes explicit zeroes.
type Activity struct {
	Merges  map[string]int
	Reviews map[string]int
	Changes map[string]int
}

// Client talks to the GitHub search and pulls APIs.
type Client struct {
	log   *zap.SugaredLogger
	http  *fetcher.Client
	fetch *fetcher.Fetcher
	exec  *backoff.Executor

	baseURL  string
	header   http.Header
	org      string
	pageSize int
}

// New builds a Client from configuration.
func New(log *zap.SugaredLogger, httpc *fetcher.Client, exec *backoff.Executor, cfg config.GitHubConfig) (*Client, error) {
	if cfg.Token == "" || cfg.Org == "" {
		return nil, errors.Mark(errors.New("github.token and github.org are required"), entities.ErrConfiguration)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)
	header.Set("Accept", "application/vnd.github+json")

	return &Client{
		log:      log.Named("github"),
		http:     httpc,
		fetch:    fetcher.New(log, exec),
		exec:     exec,
		baseURL:  defaultBaseURL,
		header:   header,
		org:      cfg.Org,
		pageSize: pageSize,
	}, nil
}

// WithBaseURL points the client at a different API host. Tests use this.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Activity tallies merges, reviews and code changes for every engineer in
// the alias map over one period. A merged, approved PR counts one merge
// and its additions+deletions for its author; reviews and PR comments by
// anyone other than the author count as reviews for the commenter.
// Accounts absent from the alias map (bots, externals) are ignored.
func (c *Client) Activity(ctx context.Context, aliases entities.AliasMap, p period.Period) (*Activity, error) {
	act := &Activity{
		Merges:  map[string]int{},
		Reviews: map[string]int{},
		Changes: map[string]int{},
	}
	for _, name := range aliases.Names() {
		act.Merges[name] = 0
		act.Reviews[name] = 0
		act.Changes[name] = 0
	}

	prs, err := c.searchMergedPRs(ctx, p)
	if err != nil {
		return nil, err
	}
	c.log.Infow("merged PRs found", "period", p.String(), "count", len(prs))

	for _, stub := range prs {
		if err := c.tallyPR(ctx, stub, aliases, act); err != nil {
			return nil, err
		}
	}
	return act, nil
}

func (c *Client) tallyPR(ctx context.Context, stub prStub, aliases entities.AliasMap, act *Activity) error {
	owner, repo, err := stub.repoPath()
	if err != nil {
		return err
	}

	pull, err := c.pull(ctx, owner, repo, stub.Number)
	if err != nil {
		return err
	}

	author := pull.User.Login
	if name := aliases.Resolve(author); name != "" {
		act.Merges[name]++
		act.Changes[name] += pull.Additions + pull.Deletions
	}

	reviewers, err := c.countByUser(ctx,
		fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, repo, stub.Number), author)
	if err != nil {
		return err
	}
	issueComments, err := c.countByUser(ctx,
		fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, stub.Number), author)
	if err != nil {
		return err
	}
	reviewComments, err := c.countByUser(ctx,
		fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments", c.baseURL, owner, repo, stub.Number), author)
	if err != nil {
		return err
	}

	for _, counts := range []map[string]int{reviewers, issueComments, reviewComments} {
		for login, n := range counts {
			if name := aliases.Resolve(login); name != "" {
				act.Reviews[name] += n
			}
		}
	}
	return nil
}

// searchMergedPRs pages through the issue search for merged, approved PRs
// in the org within the period. GitHub's search API is page-numbered, so
// the offset cursor is translated into a page index.
func (c *Client) searchMergedPRs(ctx context.Context, p period.Period) ([]prStub, error) {
	q := fmt.Sprintf("org:%s state:closed review:approved is:pr merged:%s..%s",
		c.org, p.Start().Format("2006-01-02"), p.End().Format("2006-01-02"))

	fn := func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		page := cur.Offset/c.pageSize + 1
		u := fmt.Sprintf("%s/search/issues?q=%s&per_page=%d&page=%d",
			c.baseURL, url.QueryEscape(q), c.pageSize, page)

		var resp struct {
			Items []json.RawMessage `json:"items"`
		}
		if _, err := c.http.GetJSON(ctx, u, c.header, &resp); err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: resp.Items}, nil
	}

	records, err := c.fetch.FetchAll(ctx, fn, fetcher.NewOffsetPager(c.pageSize))
	if err != nil {
		return nil, err
	}

	stubs := make([]prStub, 0, len(records))
	for _, rec := range records {
		var stub prStub
		if err := json.Unmarshal(rec, &stub); err != nil {
			return nil, entities.Malformed(err, "decode search item")
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

func (c *Client) pull(ctx context.Context, owner, repo string, number int) (*pullRequest, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	var pr pullRequest
	err := c.exec.Execute(func() error {
		_, err := c.http.GetJSON(ctx, u, c.header, &pr)
		return err
	}, backoff.TransientOnly)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// countByUser drains a link-paginated comment/review listing and counts
// entries per login, excluding the PR author.
func (c *Client) countByUser(ctx context.Context, startURL, author string) (map[string]int, error) {
	fn := func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		u := cur.URL
		if u == "" {
			u = startURL
		}
		var items []json.RawMessage
		resp, err := c.http.GetJSON(ctx, u+pageSizeParam(u, c.pageSize), c.header, &items)
		if err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: items, NextURL: resp.NextLink()}, nil
	}

	records, err := c.fetch.FetchAll(ctx, fn, fetcher.NewCursorPager(startURL))
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, rec := range records {
		var entry struct {
			User struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		if err := json.Unmarshal(rec, &entry); err != nil {
			return nil, entities.Malformed(err, "decode comment entry")
		}
		if entry.User.Login != author {
			counts[entry.User.Login]++
		}
	}
	return counts, nil
}

// pageSizeParam appends per_page unless the URL already carries
// pagination parameters (rel="next" links do).
func pageSizeParam(u string, n int) string {
	if parsed, err := url.Parse(u); err == nil && parsed.Query().Get("per_page") != "" {
		return ""
	}
	sep := "?"
	if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf("%sper_page=%d", sep, n)
}
