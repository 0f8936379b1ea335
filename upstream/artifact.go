package upstream

import (
	"context"
	"errors"

	"github.com/speckit/gateway/gitsync"
)

// compile-time interface checks.
var (
	_ gitsync.ArtifactSource = (*ArtifactSource)(nil)
	_ gitsync.TokenSource    = (*TokenSource)(nil)
)

// ArtifactSource fetches a tenant's generated spec artifact from the
// upstream store.
type ArtifactSource struct {
	client *Client
}

// NewArtifactSource creates an artifact source over the upstream client.
func NewArtifactSource(client *Client) *ArtifactSource {
	return &ArtifactSource{client: client}
}

// FetchArtifact implements gitsync.ArtifactSource.
func (s *ArtifactSource) FetchArtifact(ctx context.Context, tenantID string) (*gitsync.Artifact, error) {
	var body struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if _, err := s.client.Get(ctx, "/tenants/"+tenantID+"/artifact", nil, &body); err != nil {
		return nil, err
	}
	return &gitsync.Artifact{Name: body.Name, Content: []byte(body.Content)}, nil
}

// TokenSource resolves a tenant's stored remote credential from the upstream
// store.
type TokenSource struct {
	client *Client
}

// NewTokenSource creates a token source over the upstream client.
func NewTokenSource(client *Client) *TokenSource {
	return &TokenSource{client: client}
}

// Token implements gitsync.TokenSource. A tenant without a stored connection
// resolves to the empty token, which the sync service reports as
// gitsync.ErrNoConnection.
func (s *TokenSource) Token(ctx context.Context, tenantID string) (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	if _, err := s.client.Get(ctx, "/tenants/"+tenantID+"/connection", nil, &body); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return "", nil
		}
		return "", err
	}
	return body.Token, nil
}
