package gitsync

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

// ErrConflict is returned when the remote rejects a conditional write because
// the file changed since its version marker was read.
var ErrConflict = errors.New("gitsync: remote content changed concurrently")

// Host is the content-hosting collaborator a sync pushes to.
type Host interface {
	// GetFileSHA reads the current version marker of the file at
	// repo/path@branch. A missing file is not an error; exists is false.
	GetFileSHA(ctx context.Context, token, repo, path, branch string) (sha string, exists bool, err error)

	// PutFile writes content to repo/path@branch. A non-empty sha makes the
	// write conditional on that version marker; the remote rejects it with
	// ErrConflict on a concurrent update. An empty sha creates the file.
	PutFile(ctx context.Context, token, repo, path, branch string, content []byte, sha string) error
}

const (
	defaultHostBaseURL = "https://api.github.com"
	commitMessage      = "sync spec artifact"
)

// GitHubHost implements Host against the GitHub contents API.
type GitHubHost struct {
	baseURL string
	client  *http.Client
}

// NewGitHubHost creates a GitHub contents-API host with the given HTTP
// timeout. baseURL overrides the API root, empty means api.github.com.
func NewGitHubHost(baseURL string, timeout time.Duration) *GitHubHost {
	if baseURL == "" {
		baseURL = defaultHostBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GitHubHost{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// contentsURL builds the contents-API URL for repo/path. path always starts
// with "/" after config validation.
func (h *GitHubHost) contentsURL(repo, path string) string {
	return h.baseURL + "/repos/" + repo + "/contents" + escapePath(path)
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

// GetFileSHA implements Host.
func (h *GitHubHost) GetFileSHA(ctx context.Context, token, repo, path, branch string) (string, bool, error) {
	u := h.contentsURL(repo, path) + "?ref=" + url.QueryEscape(branch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("gitsync: create request: %w", err)
	}
	h.setHeaders(req, token)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("gitsync: read remote file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("gitsync: read remote file: %s", remoteStatus(resp))
	}

	var body struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("gitsync: decode remote file: %w", err)
	}
	return body.SHA, true, nil
}

// PutFile implements Host.
func (h *GitHubHost) PutFile(ctx context.Context, token, repo, path, branch string, content []byte, sha string) error {
	payload := map[string]string{
		"message": commitMessage,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gitsync: marshal write: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.contentsURL(repo, path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gitsync: create request: %w", err)
	}
	h.setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("gitsync: write remote file: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("gitsync: write remote file: %w", ErrConflict)
	default:
		return fmt.Errorf("gitsync: write remote file: %s", remoteStatus(resp))
	}
}

func (h *GitHubHost) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "Speckit-Gateway/1.0")
}

// remoteStatus summarizes a non-2xx response without leaking the full body.
func remoteStatus(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if len(snippet) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, snippet)
}
