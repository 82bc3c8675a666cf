// Package remote talks to the GitHub Contents API, where the paludarium
// documents are kept as JSON files in a repository.
package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// Config identifies the repository holding the documents.
type Config struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Document is a file read from the repository.
type Document struct {
	// Content is the decoded JSON payload.
	Content []byte
	// Revision is the blob SHA; a write must present it to replace the file.
	Revision string
}

// Client reads and writes repository files. It is safe for concurrent use.
//
// The client never retries on its own: conflict handling belongs to the
// caller, which has to re-read the revision first.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
}

type contentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// New builds a client for cfg. A nil logger discards output.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthScheme("token").
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		token:  cfg.Token,
	}
}

// Configured reports whether owner, repository and token are all set.
func (c *Client) Configured() bool {
	return c.cfg.Owner != "" && c.cfg.Repo != "" && c.Token() != ""
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the access token used by later requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Repository returns "owner/repo@branch" for display.
func (c *Client) Repository() string {
	return fmt.Sprintf("%s/%s@%s", c.cfg.Owner, c.cfg.Repo, c.cfg.Branch)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetAuthScheme("token").
		SetAuthToken(c.Token()).
		SetPathParams(map[string]string{
			"owner": c.cfg.Owner,
			"repo":  c.cfg.Repo,
		})
}

// Get reads the file at path on the configured branch.
func (c *Client) Get(ctx context.Context, path string) (Document, error) {
	if !c.Configured() {
		return Document{}, ErrNotConfigured
	}

	var body contentResponse
	var apiErr errorResponse
	resp, err := c.request(ctx).
		SetRawPathParam("path", path).
		SetQueryParam("ref", c.cfg.Branch).
		SetResult(&body).
		SetError(&apiErr).
		Get("/repos/{owner}/{repo}/contents/{path}")
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	if resp.IsError() {
		return Document{}, statusError("GET", path, resp.StatusCode(), apiErr.Message)
	}

	content, err := DecodeContent(body.Content)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Document{Content: content, Revision: body.SHA}, nil
}

// Revision returns the current blob SHA of path, or "" when the file does not
// exist yet.
func (c *Client) Revision(ctx context.Context, path string) (string, error) {
	doc, err := c.Get(ctx, path)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return doc.Revision, nil
}

// Put writes data as the new content of path. An empty revision creates the
// file. It returns the revision of the written blob.
func (c *Client) Put(ctx context.Context, path string, data any, revision string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	content, err := EncodeContent(data)
	if err != nil {
		return "", err
	}
	req := putRequest{
		Message: fmt.Sprintf("Aggiorna %s - %s", path, c.now().UTC().Format(time.RFC3339)),
		Content: content,
		Branch:  c.cfg.Branch,
		SHA:     revision,
	}

	var body putResponse
	var apiErr errorResponse
	resp, err := c.request(ctx).
		SetRawPathParam("path", path).
		SetBody(req).
		SetResult(&body).
		SetError(&apiErr).
		Put("/repos/{owner}/{repo}/contents/{path}")
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if resp.IsError() {
		return "", statusError("PUT", path, resp.StatusCode(), apiErr.Message)
	}

	c.logger.Debug("wrote remote document",
		zap.String("path", path),
		zap.String("revision", body.Content.SHA),
	)
	return body.Content.SHA, nil
}

// ValidateToken checks that the token can read the repository.
func (c *Client) ValidateToken(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var apiErr errorResponse
	resp, err := c.request(ctx).
		SetError(&apiErr).
		Get("/repos/{owner}/{repo}")
	if err != nil {
		return fmt.Errorf("failed to reach repository: %w", err)
	}
	if resp.IsError() {
		return statusError("GET", c.cfg.Owner+"/"+c.cfg.Repo, resp.StatusCode(), apiErr.Message)
	}
	return nil
}
