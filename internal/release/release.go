// Package release uploads local asset files to a GitHub Release through
// the REST API. It is a build-time collaborator; nothing in the dev
// server or builder depends on it.
package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gerrors "github.com/guidecraft/guidecraft/internal/errors"
)

const defaultAPIBase = "https://api.github.com"

// Release is the subset of the GitHub release object the uploader needs.
type Release struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	UploadURL string `json:"upload_url"`
	HTMLURL   string `json:"html_url"`
}

// Asset describes one uploaded release asset.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"browser_download_url"`
}

// Client talks to the GitHub Releases API for one repository.
type Client struct {
	httpClient *http.Client
	apiBase    string
	owner      string
	repo       string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host. Used in tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimSuffix(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a release client. The token comes from the caller
// (typically the GITHUB_TOKEN environment variable).
func NewClient(owner, repo, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiBase:    defaultAPIBase,
		owner:      owner,
		repo:       repo,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReleaseByTag fetches the release for a tag. A missing release is
// reported as NotFound so EnsureRelease can create it.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	path := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.apiBase, c.owner, c.repo, url.PathEscape(tag))

	var rel Release
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CreateRelease creates a release for a tag.
func (c *Client) CreateRelease(ctx context.Context, tag string) (*Release, error) {
	path := fmt.Sprintf("%s/repos/%s/%s/releases", c.apiBase, c.owner, c.repo)
	body, err := json.Marshal(map[string]string{"tag_name": tag, "name": tag})
	if err != nil {
		return nil, err
	}

	var rel Release
	if err := c.doJSON(ctx, http.MethodPost, path, body, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// EnsureRelease returns the release for a tag, creating it if needed.
func (c *Client) EnsureRelease(ctx context.Context, tag string) (*Release, error) {
	rel, err := c.ReleaseByTag(ctx, tag)
	if err == nil {
		return rel, nil
	}
	if !gerrors.IsKind(err, gerrors.KindNotFound) {
		return nil, err
	}
	return c.CreateRelease(ctx, tag)
}

// UploadAsset uploads one local file as a release asset. Content type is
// inferred from the file extension.
func (c *Client) UploadAsset(ctx context.Context, rel *Release, path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerrors.FromFS("read asset", path, err)
	}

	name := filepath.Base(path)
	uploadURL := expandUploadURL(rel.UploadURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType(name))
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError("upload asset", uploadURL, resp)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding asset response: %w", err)
	}
	return &asset, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return gerrors.Newf(gerrors.KindNotFound, "github", path, "%s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError("github", path, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func apiError(op, path string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: %s: %s: %s", op, path, resp.Status, strings.TrimSpace(string(snippet)))
}

// expandUploadURL resolves the hypermedia upload_url template GitHub
// returns, e.g. ".../assets{?name,label}".
func expandUploadURL(tmpl, name string) string {
	if idx := strings.Index(tmpl, "{"); idx >= 0 {
		tmpl = tmpl[:idx]
	}
	return tmpl + "?name=" + url.QueryEscape(name)
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
