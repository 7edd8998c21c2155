package github

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// prStub is one item from /search/issues. The search API returns issues;
// the repository_url plus number locate the underlying pull request.
type prStub struct {
	Number        int    `json:"number"`
	RepositoryURL string `json:"repository_url"`
}

// repoPath extracts owner and repo from the repository_url, which ends in
// /repos/{owner}/{repo}.
func (s prStub) repoPath() (owner, repo string, err error) {
	parts := strings.Split(s.RepositoryURL, "/")
	if len(parts) < 2 {
		return "", "", errors.Mark(
			errors.Newf("unparseable repository_url %q", s.RepositoryURL),
			entities.ErrMalformedResponse)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

type pullRequest struct {
	Number    int  `json:"number"`
	Additions int  `json:"additions"`
	Deletions int  `json:"deletions"`
	User      user `json:"user"`
}

type user struct {
	Login string `json:"login"`
}
