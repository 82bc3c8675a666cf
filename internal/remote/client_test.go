package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tia2694/paludario/internal/remote"
	"github.com/tia2694/paludario/internal/remote/remotetest"
)

const waterPath = "data/water.json"

func newClient(t *testing.T) (*remote.Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer(t, "tia", "Paludario", "secret")
	c := remote.New(remote.Config{
		Owner:   "tia",
		Repo:    "Paludario",
		Branch:  "main",
		Token:   "secret",
		BaseURL: srv.URL,
	}, nil)
	return c, srv
}

func TestClient_GetNotFound(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Get(context.Background(), waterPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrNotFound), "got %v", err)

	rev, err := c.Revision(context.Background(), waterPath)
	require.NoError(t, err)
	assert.Empty(t, rev)
}

func TestClient_PutCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)

	rev, err := c.Put(ctx, waterPath, []map[string]any{{"id": "1", "ph": 6.8}}, "")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	doc, err := c.Get(ctx, waterPath)
	require.NoError(t, err)
	assert.Equal(t, rev, doc.Revision)
	assert.JSONEq(t, `[{"id":"1","ph":6.8}]`, string(doc.Content))

	stored, _ := srv.File(waterPath)
	assert.True(t, strings.Contains(string(stored), "\n  {"), "content should be indented: %s", stored)

	_, err = c.Put(ctx, waterPath, []any{}, "stale")
	assert.True(t, errors.Is(err, remote.ErrConflict), "got %v", err)
	assert.True(t, remote.IsRetryable(err))

	_, err = c.Put(ctx, waterPath, []any{}, rev)
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "Aggiorna data/water.json - "), msgs[0])
}

func TestClient_UnicodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)

	in := map[string]string{"icon": "🌱", "title": "Vasca dei Ranocchi <è>"}
	_, err := c.Put(ctx, "data/settings.json", in, "")
	require.NoError(t, err)

	doc, err := c.Get(ctx, "data/settings.json")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Content), "<è>", "HTML characters must not be escaped")

	var out map[string]string
	require.NoError(t, json.Unmarshal(doc.Content, &out))
	assert.Equal(t, in, out)
}

func TestClient_ServerErrors(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.FailRequests(waterPath, 1)

	_, err := c.Get(ctx, waterPath)
	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, "Server Error", apiErr.Message)
	assert.True(t, remote.IsRetryable(err))
}

func TestClient_ValidateToken(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	require.NoError(t, c.ValidateToken(ctx))

	c.SetToken("wrong")
	err := c.ValidateToken(ctx)
	assert.True(t, errors.Is(err, remote.ErrUnauthorized), "got %v", err)
	assert.False(t, remote.IsRetryable(err))

	c.SetToken("")
	assert.False(t, c.Configured())
	assert.ErrorIs(t, c.ValidateToken(ctx), remote.ErrNotConfigured)
	_, err = c.Get(ctx, waterPath)
	assert.ErrorIs(t, err, remote.ErrNotConfigured)
}

func TestClient_TransportError(t *testing.T) {
	c := remote.New(remote.Config{Owner: "o", Repo: "r", Token: "t", BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Get(context.Background(), waterPath)
	require.Error(t, err)
	assert.False(t, errors.Is(err, remote.ErrNotFound))
}
