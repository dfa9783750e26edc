package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"

	"github.com/bull/corpusqa/internal/markdown"
)

// GitHubSource fetches markdown documents from a directory in a GitHub
// repository. Rate limits are handled transparently; setting GITHUB_TOKEN
// raises the quota from 60 to 5000 requests per hour.
type GitHubSource struct {
	client    *github.Client
	owner     string
	repo      string
	basePath  string
	extractor *markdown.Extractor
}

// NewGitHubSource creates a source for owner/repo rooted at basePath.
func NewGitHubSource(owner, repo, basePath string) (*GitHubSource, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	ghClient := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &GitHubSource{
		client:    ghClient,
		owner:     owner,
		repo:      repo,
		basePath:  basePath,
		extractor: markdown.NewExtractor(),
	}, nil
}

// List recursively lists all markdown files under the base path.
func (s *GitHubSource) List(ctx context.Context) ([]string, error) {
	return s.listRecursive(ctx, s.basePath, "")
}

func (s *GitHubSource) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := s.client.Repositories.GetContents(
		ctx,
		s.owner,
		s.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	var docs []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if strings.HasSuffix(*item.Name, ".md") {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			itemFullPath := path.Join(fullPath, *item.Name)
			subDocs, err := s.listRecursive(ctx, itemFullPath, itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// Fetch downloads a single markdown file and converts it to plain text.
func (s *GitHubSource) Fetch(ctx context.Context, relativePath string) (*Document, error) {
	fullPath := path.Join(s.basePath, relativePath)

	fileContent, _, _, err := s.client.Repositories.GetContents(
		ctx,
		s.owner,
		s.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	raw, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	outline, err := s.extractor.Outline(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to outline %s: %w", relativePath, err)
	}

	locator := fmt.Sprintf("%s/%s/%s", s.owner, s.repo, fullPath)
	rawURL := fmt.Sprintf(
		"https://raw.githubusercontent.com/%s/%s/main/%s",
		s.owner,
		s.repo,
		fullPath,
	)

	return &Document{
		ID:      DocumentID(locator),
		Path:    relativePath,
		Text:    s.extractor.ToPlainText(raw),
		Outline: outline,
		Origin:  rawURL,
	}, nil
}

// LatestCommitSHA returns the SHA of the most recent commit touching the
// base path, useful for logging what revision was ingested.
func (s *GitHubSource) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := s.client.Repositories.ListCommits(
		ctx,
		s.owner,
		s.repo,
		&github.CommitsListOptions{
			Path: s.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", s.basePath)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
