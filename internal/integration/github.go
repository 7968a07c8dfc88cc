// Package integration contains the external service boundaries of dex.
// The GitHub adapter is deliberately thin: it moves issue bodies in and
// out; all protocol knowledge lives in the issuemd package.
package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"
)

// IssueService is the subset of the GitHub API the sync layer needs.
type IssueService interface {
	GetIssue(ctx context.Context, number int) (title, body string, err error)
	UpdateIssueBody(ctx context.Context, number int, body string) error
	CreateIssue(ctx context.Context, title, body string) (int, error)
}

// GitHubIssues implements IssueService against the GitHub REST API.
type GitHubIssues struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubIssues creates an IssueService for the "owner/name" repo slug.
// An empty token produces an unauthenticated client, which is enough for
// reading public issues.
func NewGitHubIssues(ctx context.Context, repoSlug, token string) (*GitHubIssues, error) {
	owner, name, ok := strings.Cut(repoSlug, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repo %q: expected owner/name", repoSlug)
	}

	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}

	return &GitHubIssues{client: client, owner: owner, repo: name}, nil
}

// GetIssue fetches an issue's title and body.
func (g *GitHubIssues) GetIssue(ctx context.Context, number int) (string, string, error) {
	issue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return "", "", fmt.Errorf("fetching issue #%d from %s/%s: %w", number, g.owner, g.repo, err)
	}
	return issue.GetTitle(), issue.GetBody(), nil
}

// UpdateIssueBody replaces an issue's body. Last writer wins at the
// issue-body level; there is no merge.
func (g *GitHubIssues) UpdateIssueBody(ctx context.Context, number int, body string) error {
	_, _, err := g.client.Issues.Edit(ctx, g.owner, g.repo, number, &github.IssueRequest{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("updating issue #%d on %s/%s: %w", number, g.owner, g.repo, err)
	}
	return nil
}

// CreateIssue opens a new issue and returns its number.
func (g *GitHubIssues) CreateIssue(ctx context.Context, title, body string) (int, error) {
	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return 0, fmt.Errorf("creating issue on %s/%s: %w", g.owner, g.repo, err)
	}
	return issue.GetNumber(), nil
}
