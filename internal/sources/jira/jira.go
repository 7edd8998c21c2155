// Package jira reads issue histories and counts from Jira Cloud.
package jira

import (
	"context"
	"encoding/base64"
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
)

const defaultPageSize = 1000

// Client talks to the Jira Cloud REST v2 API. Searches return only issue
// keys; full histories are hydrated per issue.
type Client struct {
	log   *zap.SugaredLogger
	http  *fetcher.Client
	fetch *fetcher.Fetcher
	exec  *backoff.Executor

	baseURL  string
	header   http.Header
	project  string
	pageSize int
}

// New builds a Client from configuration.
func New(log *zap.SugaredLogger, httpc *fetcher.Client, exec *backoff.Executor, cfg config.JiraConfig) (*Client, error) {
	if cfg.URL == "" || cfg.Email == "" || cfg.APIToken == "" {
		return nil, errors.Mark(errors.New("jira.url, jira.email and jira.api_token are required"), entities.ErrConfiguration)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	header := http.Header{}
	token := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.APIToken))
	header.Set("Authorization", "Basic "+token)
	header.Set("Accept", "application/json")

	return &Client{
		log:      log.Named("jira"),
		http:     httpc,
		fetch:    fetcher.New(log, exec),
		exec:     exec,
		baseURL:  cfg.URL,
		header:   header,
		project:  cfg.Project,
		pageSize: pageSize,
	}, nil
}

// Project returns the configured project key.
func (c *Client) Project() string { return c.project }

// SearchIssues runs the JQL search and hydrates every matching issue with
// its status changelog. Each changelog request is independently retried.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	records, err := c.fetch.FetchAll(ctx, c.searchPage(jql), fetcher.NewOffsetPager(c.pageSize))
	if err != nil {
		return nil, err
	}
	c.log.Infow("issue search complete", "jql", jql, "issues", len(records))

	issues := make([]Issue, 0, len(records))
	for _, rec := range records {
		var stub issueStub
		if err := json.Unmarshal(rec, &stub); err != nil {
			return nil, entities.Malformed(err, "decode issue stub")
		}
		issue, err := c.issueWithChangelog(ctx, stub.Key)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	return issues, nil
}

// SearchAssignees runs the JQL search and returns the assignee email of
// every matching issue, skipping unassigned ones. No changelog hydration:
// one request per page.
func (c *Client) SearchAssignees(ctx context.Context, jql string) ([]string, error) {
	fn := func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		u := fmt.Sprintf("%s/rest/api/2/search?jql=%s&startAt=%d&maxResults=%d&fields=assignee",
			c.baseURL, url.QueryEscape(jql), cur.Offset, c.pageSize)

		var resp struct {
			Issues []json.RawMessage `json:"issues"`
		}
		if _, err := c.http.GetJSON(ctx, u, c.header, &resp); err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: resp.Issues}, nil
	}

	records, err := c.fetch.FetchAll(ctx, fn, fetcher.NewOffsetPager(c.pageSize))
	if err != nil {
		return nil, err
	}
	c.log.Infow("assignee search complete", "jql", jql, "issues", len(records))

	assignees := make([]string, 0, len(records))
	for _, rec := range records {
		var issue Issue
		if err := json.Unmarshal(rec, &issue); err != nil {
			return nil, entities.Malformed(err, "decode issue assignee")
		}
		if issue.Fields.Assignee == nil || issue.Fields.Assignee.EmailAddress == "" {
			continue
		}
		assignees = append(assignees, issue.Fields.Assignee.EmailAddress)
	}
	return assignees, nil
}

// CountIssues returns the total match count for a JQL query without
// hydrating any issue.
func (c *Client) CountIssues(ctx context.Context, jql string) (int, error) {
	u := fmt.Sprintf("%s/rest/api/2/search?jql=%s&startAt=0&maxResults=0&fields=key",
		c.baseURL, url.QueryEscape(jql))

	var resp searchResponse
	err := c.exec.Execute(func() error {
		_, err := c.http.GetJSON(ctx, u, c.header, &resp)
		return err
	}, backoff.TransientOnly)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

func (c *Client) searchPage(jql string) fetcher.PageFunc {
	return func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		u := fmt.Sprintf("%s/rest/api/2/search?jql=%s&startAt=%d&maxResults=%d&fields=key",
			c.baseURL, url.QueryEscape(jql), cur.Offset, c.pageSize)

		var resp struct {
			Issues []json.RawMessage `json:"issues"`
		}
		if _, err := c.http.GetJSON(ctx, u, c.header, &resp); err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: resp.Issues}, nil
	}
}

func (c *Client) issueWithChangelog(ctx context.Context, key string) (*Issue, error) {
	u := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=key,created,resolutiondate&expand=changelog",
		c.baseURL, key)

	var issue Issue
	err := c.exec.Execute(func() error {
		_, err := c.http.GetJSON(ctx, u, c.header, &issue)
		return err
	}, backoff.TransientOnly)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}
