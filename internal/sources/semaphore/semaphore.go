// Package semaphore tallies CI pipeline results per project from the
// Semaphore CI v1alpha API.
package semaphore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/backoff"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/fetcher"
	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// Client talks to the Semaphore CI API for one organization.
type Client struct {
	log   *zap.SugaredLogger
	http  *fetcher.Client
	fetch *fetcher.Fetcher
	exec  *backoff.Executor

	baseURL        string
	header         http.Header
	mainBranchOnly bool
}

// New builds a Client from configuration.
func New(log *zap.SugaredLogger, httpc *fetcher.Client, exec *backoff.Executor, cfg config.SemaphoreConfig) (*Client, error) {
	if cfg.APIToken == "" || cfg.OrgName == "" {
		return nil, errors.Mark(errors.New("semaphore.api_token and semaphore.org_name are required"), entities.ErrConfiguration)
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+cfg.APIToken)

	return &Client{
		log:            log.Named("semaphore"),
		http:           httpc,
		fetch:          fetcher.New(log, exec),
		exec:           exec,
		baseURL:        fmt.Sprintf("https://%s.semaphoreci.com/api/v1alpha", cfg.OrgName),
		header:         header,
		mainBranchOnly: cfg.MainBranchOnly,
	}, nil
}

// WithBaseURL points the client at a different API host. Tests use this.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// BuildCounts tallies job results for every project over one period,
// ordered by project name. Projects with no pipelines still appear, with
// zero counts, so the report shows them as idle rather than missing.
func (c *Client) BuildCounts(ctx context.Context, p period.Period) ([]entities.BuildCount, error) {
	projects, err := c.projects(ctx)
	if err != nil {
		return nil, err
	}
	c.log.Infow("projects found", "count", len(projects))

	counts := make([]entities.BuildCount, 0, len(projects))
	for _, proj := range projects {
		if proj.Metadata.ID == "" {
			c.log.Warnw("project without id, skipping", "name", proj.Metadata.Name)
			continue
		}
		count, err := c.projectCount(ctx, proj, p)
		if err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Project < counts[j].Project })
	return counts, nil
}

func (c *Client) projectCount(ctx context.Context, proj project, p period.Period) (entities.BuildCount, error) {
	count := entities.BuildCount{Project: proj.Metadata.Name, Other: map[string]int{}}

	pipelines, err := c.pipelines(ctx, proj.Metadata.ID, p)
	if err != nil {
		return entities.BuildCount{}, err
	}
	c.log.Debugw("pipelines found", "project", proj.Metadata.Name, "count", len(pipelines))

	for _, pl := range pipelines {
		results, err := c.pipelineResults(ctx, pl)
		if err != nil {
			return entities.BuildCount{}, err
		}
		for _, r := range results {
			tally(&count, r)
		}
	}
	return count, nil
}

// pipelineResults resolves one pipeline to its job-level results. The
// detailed view breaks multi-block pipelines down per job; when details
// are unavailable or shapeless, the listing's own result stands in.
func (c *Client) pipelineResults(ctx context.Context, pl pipeline) ([]string, error) {
	details, err := c.pipelineDetails(ctx, pl.ID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return []string{strings.ToLower(pl.Result)}, nil
	}

	if len(details.Blocks) > 1 {
		var results []string
		for _, block := range details.Blocks {
			if len(block.Jobs) == 0 {
				results = append(results, strings.ToLower(block.Result))
				continue
			}
			for _, job := range block.Jobs {
				results = append(results, strings.ToLower(job.Result))
			}
		}
		return results, nil
	}
	if details.Pipeline.Result != "" {
		return []string{strings.ToLower(details.Pipeline.Result)}, nil
	}
	return []string{strings.ToLower(pl.Result)}, nil
}

func (c *Client) projects(ctx context.Context) ([]project, error) {
	u := c.baseURL + "/projects"

	var projects []project
	records, err := c.fetch.FetchAll(ctx, func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		var items []json.RawMessage
		resp, err := c.http.GetJSON(ctx, cur.URL, c.header, &items)
		if err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: items, NextURL: resp.NextLink()}, nil
	}, fetcher.NewCursorPager(u))
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		var p project
		if err := json.Unmarshal(rec, &p); err != nil {
			return nil, entities.Malformed(err, "decode project")
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// pipelines drains the link-paginated pipeline listing for one project
// within the period, optionally restricted to the main branch.
func (c *Client) pipelines(ctx context.Context, projectID string, p period.Period) ([]pipeline, error) {
	u := fmt.Sprintf("%s/pipelines?project_id=%s&created_after=%s&created_before=%s",
		c.baseURL, projectID,
		p.Start().Format("2006-01-02"), p.End().Format("2006-01-02"))
	if c.mainBranchOnly {
		u += "&branch=main"
	}

	records, err := c.fetch.FetchAll(ctx, func(ctx context.Context, cur fetcher.Cursor) (*fetcher.Page, error) {
		var items []json.RawMessage
		resp, err := c.http.GetJSON(ctx, cur.URL, c.header, &items)
		if err != nil {
			return nil, err
		}
		return &fetcher.Page{Records: items, NextURL: resp.NextLink()}, nil
	}, fetcher.NewCursorPager(u))
	if err != nil {
		return nil, err
	}

	pipelines := make([]pipeline, 0, len(records))
	for _, rec := range records {
		var pl pipeline
		if err := json.Unmarshal(rec, &pl); err != nil {
			return nil, entities.Malformed(err, "decode pipeline")
		}
		pipelines = append(pipelines, pl)
	}
	return pipelines, nil
}

// pipelineDetails fetches the detailed view, or nil when the pipeline has
// no detailed representation.
func (c *Client) pipelineDetails(ctx context.Context, id string) (*pipelineDetails, error) {
	u := fmt.Sprintf("%s/pipelines/%s?detailed=true", c.baseURL, id)

	var details pipelineDetails
	err := c.exec.Execute(func() error {
		resp, err := c.http.Get(ctx, u, c.header)
		if err != nil {
			return err
		}
		if len(resp.Body) == 0 {
			return nil
		}
		return resp.Decode(&details)
	}, backoff.TransientOnly)
	if err != nil {
		if errors.Is(err, entities.ErrMalformedResponse) {
			c.log.Warnw("pipeline details unreadable, using listing result", "pipeline", id, "error", err)
			return nil, nil
		}
		return nil, err
	}
	if len(details.Blocks) == 0 && details.Pipeline.Result == "" {
		return nil, nil
	}
	return &details, nil
}

func tally(count *entities.BuildCount, result string) {
	switch result {
	case "passed":
		count.Passed++
	case "failed":
		count.Failed++
	default:
		count.Other[result]++
	}
}
