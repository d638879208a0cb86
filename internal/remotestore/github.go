package remotestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubClient holds the account-level credential and performs the
// operations that are not bound to a single repository (create, topic
// tagging, discovery). Repo-scoped file access goes through Repo().
type GitHubClient struct {
	http    *http.Client
	apiBase string
	token   string
}

// NewGitHubClient creates a client using the given bearer token, already
// obtained by the caller; the device handshake is outside this module.
func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		apiBase: defaultGitHubAPI,
		token:   token,
	}
}

// SetAPIBase overrides the API endpoint, used by tests.
func (c *GitHubClient) SetAPIBase(base string) {
	c.apiBase = strings.TrimRight(base, "/")
}

// Repo returns a Store over one repository's default branch.
func (c *GitHubClient) Repo(owner, name string) *GitHubStore {
	return &GitHubStore{client: c, owner: owner, repo: name}
}

type githubRepoResp struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
	Owner   struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// CreateRepository creates a new repository under the authenticated user,
// auto-initialized so the contents API has a branch to write to.
func (c *GitHubClient) CreateRepository(ctx context.Context, name, description string, private bool) (owner, repoName, htmlURL string, err error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     private,
		"auto_init":   true,
	}
	var out githubRepoResp
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &out); err != nil {
		return "", "", "", fmt.Errorf("create repository %s: %w", name, err)
	}
	return out.Owner.Login, out.Name, out.HTMLURL, nil
}

// ReplaceTopics tags a repository, used to mark project repositories for
// discovery.
func (c *GitHubClient) ReplaceTopics(ctx context.Context, owner, repo string, topics []string) error {
	path := fmt.Sprintf("/repos/%s/%s/topics", owner, repo)
	body := map[string]any{"names": topics}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("tag repository %s/%s: %w", owner, repo, err)
	}
	return nil
}

type githubSearchResp struct {
	Items []githubRepoResp `json:"items"`
}

// SearchByTopic lists the authenticated owner's repositories carrying topic.
func (c *GitHubClient) SearchByTopic(ctx context.Context, owner, topic string) ([]string, error) {
	q := url.QueryEscape(fmt.Sprintf("topic:%s user:%s", topic, owner))
	var out githubSearchResp
	if err := c.do(ctx, http.MethodGet, "/search/repositories?q="+q, nil, &out); err != nil {
		return nil, fmt.Errorf("search repositories by topic %s: %w", topic, err)
	}
	names := make([]string, 0, len(out.Items))
	for _, it := range out.Items {
		names = append(names, it.Name)
	}
	return names, nil
}

func (c *GitHubClient) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%w: %s", ErrConflict, readErrorBody(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github: unexpected status %s: %s", resp.Status, readErrorBody(resp.Body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readErrorBody(r io.Reader) string {
	const max = 2048
	b, _ := io.ReadAll(io.LimitReader(r, max))
	return strings.TrimSpace(string(b))
}

// GitHubStore is the Store over one repository's contents API. The blob sha
// reported by the API is the fingerprint.
type GitHubStore struct {
	client *GitHubClient
	owner  string
	repo   string
}

type githubContentResp struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

func (s *GitHubStore) contentsPath(path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", s.owner, s.repo, strings.TrimLeft(path, "/"))
}

func (s *GitHubStore) Read(ctx context.Context, path string) (File, error) {
	var out githubContentResp
	if err := s.client.do(ctx, http.MethodGet, s.contentsPath(path), nil, &out); err != nil {
		return File{}, err
	}
	if out.Type != "" && out.Type != "file" {
		return File{}, fmt.Errorf("github: %s is not a file", path)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return File{}, fmt.Errorf("github: decode %s: %w", path, err)
	}
	return File{Content: raw, Fingerprint: out.SHA}, nil
}

type githubWriteResp struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (s *GitHubStore) Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error) {
	body := map[string]any{
		"message": "architectai: update " + strings.TrimLeft(path, "/"),
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if fingerprint != "" {
		body["sha"] = fingerprint
	}
	var out githubWriteResp
	if err := s.client.do(ctx, http.MethodPut, s.contentsPath(path), body, &out); err != nil {
		return "", err
	}
	return out.Content.SHA, nil
}

func (s *GitHubStore) List(ctx context.Context, dir string) ([]Entry, error) {
	var out []githubContentResp
	err := s.client.do(ctx, http.MethodGet, s.contentsPath(dir), nil, &out)
	if err != nil {
		// A directory that does not exist yet is an empty listing.
		if errors.Is(err, ErrNotFound) {
			return []Entry{}, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(out))
	for _, e := range out {
		entries = append(entries, Entry{Name: e.Name, IsDir: e.Type == "dir"})
	}
	return entries, nil
}
