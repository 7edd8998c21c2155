package jira

// searchResponse is one page of /rest/api/2/search.
type searchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []issueStub `json:"issues"`
}

type issueStub struct {
	Key string `json:"key"`
}

// Issue is /rest/api/2/issue/{key} with the changelog expanded.
type Issue struct {
	Key       string      `json:"key"`
	Fields    IssueFields `json:"fields"`
	Changelog Changelog   `json:"changelog"`
}

// IssueFields carries the lifecycle timestamps as Jira formats them, plus
// the assignee when the search requests it.
type IssueFields struct {
	Created        string    `json:"created"`
	ResolutionDate string    `json:"resolutiondate"`
	Assignee       *Assignee `json:"assignee"`
}

// Assignee identifies the engineer an issue is assigned to. Unassigned
// issues carry a null assignee.
type Assignee struct {
	EmailAddress string `json:"emailAddress"`
}

// Changelog is the full change history of an issue.
type Changelog struct {
	Histories []History `json:"histories"`
}

// History is one changelog entry: a timestamp plus the fields it changed.
type History struct {
	Created string        `json:"created"`
	Items   []HistoryItem `json:"items"`
}

// HistoryItem is one changed field within a history entry.
type HistoryItem struct {
	Field    string `json:"field"`
	ToString string `json:"toString"`
}
