// Package mapper converts between source-API DTOs and domain entities.
package mapper

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/sources/jira"
)

// jiraTimeLayout is the timestamp format Jira Cloud uses in issue fields
// and changelog entries.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// IssueTimeline builds an entities.IssueTimeline from a hydrated Jira
// issue. Non-status changelog entries are dropped; transitions keep
// changelog order.
func IssueTimeline(src jira.Issue) (entities.IssueTimeline, error) {
	created, err := time.Parse(jiraTimeLayout, src.Fields.Created)
	if err != nil {
		return entities.IssueTimeline{}, entities.Malformed(err, "parse created timestamp for "+src.Key)
	}

	tl := entities.IssueTimeline{
		Key:       src.Key,
		CreatedAt: created,
	}
	if src.Fields.ResolutionDate != "" {
		resolved, err := time.Parse(jiraTimeLayout, src.Fields.ResolutionDate)
		if err != nil {
			return entities.IssueTimeline{}, entities.Malformed(err, "parse resolutiondate for "+src.Key)
		}
		tl.ResolvedAt = &resolved
	}

	for _, h := range src.Changelog.Histories {
		for _, item := range h.Items {
			if item.Field != "status" {
				continue
			}
			at, err := time.Parse(jiraTimeLayout, h.Created)
			if err != nil {
				return entities.IssueTimeline{}, entities.Malformed(err, "parse changelog timestamp for "+src.Key)
			}
			tl.Transitions = append(tl.Transitions, entities.Transition{
				At:    at,
				Stage: item.ToString,
			})
		}
	}
	return tl, nil
}

// IssueTimelines maps a batch of issues, failing on the first malformed one.
func IssueTimelines(src []jira.Issue) ([]entities.IssueTimeline, error) {
	out := make([]entities.IssueTimeline, 0, len(src))
	for _, issue := range src {
		tl, err := IssueTimeline(issue)
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
	}
	return out, nil
}

// AliasMap builds an account-to-name map from the label column and name
// column of the alias sheet. Both slices start with their header cell.
// Each engineer's own full name is also mapped to itself so sources that
// report display names instead of accounts still resolve.
func AliasMap(accounts, names []string) (entities.AliasMap, error) {
	if len(accounts) != len(names) {
		return nil, errors.Mark(
			errors.Newf("alias sheet columns have different lengths: %d accounts, %d names", len(accounts), len(names)),
			entities.ErrMalformedResponse)
	}
	if len(accounts) < 1 {
		return entities.AliasMap{}, nil
	}

	m := make(entities.AliasMap, len(accounts)-1)
	for i := 1; i < len(accounts); i++ {
		account, name := accounts[i], names[i]
		if account == "" || name == "" {
			continue
		}
		m[account] = name
		m[name] = name
	}
	return m, nil
}
