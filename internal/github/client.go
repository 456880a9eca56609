// Package github looks up published server releases.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"text/template"

	gh "github.com/google/go-github/v60/github"
)

// ErrNoRelease is returned when no tag in the repository looks like a server release.
var ErrNoRelease = errors.New("no server release tag found")

// Release is the newest server release found.
type Release struct {
	Tag         string
	Version     Version
	ArchiveName string // expected Windows archive name for the release
}

// Client wraps the GitHub API for release lookups.
type Client struct {
	gh          *gh.Client
	owner       string
	repo        string
	maxPages    int
	archiveTmpl *template.Template
}

// New creates a GitHub client. An empty token makes unauthenticated requests.
func New(token, owner, repo, archivePattern string, maxPages int) (*Client, error) {
	ghClient := gh.NewClient(&http.Client{})
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}
	return newWithClient(ghClient, owner, repo, archivePattern, maxPages)
}

// newWithClient creates a Client with an injected GitHub client (for testing).
func newWithClient(ghClient *gh.Client, owner, repo, archivePattern string, maxPages int) (*Client, error) {
	tmpl, err := template.New("archive").Parse(archivePattern)
	if err != nil {
		return nil, fmt.Errorf("parsing archive pattern %q: %w", archivePattern, err)
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Client{
		gh:          ghClient,
		owner:       owner,
		repo:        repo,
		maxPages:    maxPages,
		archiveTmpl: tmpl,
	}, nil
}

// LatestServerTag scans the repository tags and returns the newest server release.
func (c *Client) LatestServerTag(ctx context.Context) (*Release, error) {
	var (
		best  *Release
		found bool
	)
	opts := &gh.ListOptions{PerPage: 100}
	for page := 0; page < c.maxPages; page++ {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing tags for %s/%s: %w", c.owner, c.repo, err)
		}
		for _, t := range tags {
			v, ok := ParseServerTag(t.GetName())
			if !ok {
				continue
			}
			if !found || v.Compare(best.Version) > 0 {
				best = &Release{Tag: t.GetName(), Version: v}
				found = true
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if !found {
		return nil, fmt.Errorf("%s/%s: %w", c.owner, c.repo, ErrNoRelease)
	}

	name, err := ResolveArchiveName(c.archiveTmpl, best.Version)
	if err != nil {
		return nil, err
	}
	best.ArchiveName = name
	return best, nil
}
