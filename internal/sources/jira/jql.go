package jira

import (
	"fmt"
	"strings"

	"github.com/ryanspoone/sdlc-metrics/internal/period"
)

// BuildJQL assembles the search query for issues of the given types
// resolved within the period, optionally narrowed to labels.
func BuildJQL(project string, issueTypes, labels []string, p period.Period) string {
	types := make([]string, 0, len(issueTypes))
	for _, t := range issueTypes {
		types = append(types, "issuetype="+t)
	}

	q := fmt.Sprintf(
		"project=%s AND (%s) AND resolutiondate >= %s AND resolutiondate <= %s",
		project,
		strings.Join(types, " OR "),
		p.Start().Format("2006-01-02"),
		p.End().Format("2006-01-02"),
	)
	if len(labels) > 0 {
		q += fmt.Sprintf(" AND labels in (%s)", strings.Join(labels, ", "))
	}
	return q
}
