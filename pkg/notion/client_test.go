package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream records the last request and replies with a fixed JSON body.
type fakeUpstream struct {
	status int
	body   string

	lastPath   string
	lastCookie string
	lastBody   map[string]any
}

func (f *fakeUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path
		f.lastCookie = r.Header.Get("Cookie")
		f.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

		status := f.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(f.body))
	}
}

func newTestClient(t *testing.T, up *fakeUpstream, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)
	return NewWithOpts(Opts{BaseURL: srv.URL, Token: token})
}

// TestClient_LoadPage tests the loadPageChunk request shape and the session
// cookie forwarding.
func TestClient_LoadPage(t *testing.T) {
	up := &fakeUpstream{body: `{"recordMap":{"block":{"p1":{"role":"reader","value":{"id":"p1","type":"page"}}}}}`}
	c := newTestClient(t, up, "secret-token")

	chunk, err := c.LoadPage(context.Background(), "p1", "")
	require.NoError(t, err)

	assert.Equal(t, "/loadPageChunk", up.lastPath)
	assert.Equal(t, "token_v2=secret-token", up.lastCookie)
	assert.Equal(t, "p1", up.lastBody["pageId"])
	assert.Equal(t, float64(100), up.lastBody["limit"])

	require.NotNil(t, chunk.RecordMap)
	require.Contains(t, chunk.RecordMap.Blocks, "p1")
	assert.Equal(t, "page", chunk.RecordMap.Blocks["p1"].Value.Type)
}

// TestClient_PerRequestTokenWins tests that a caller token overrides the
// client default.
func TestClient_PerRequestTokenWins(t *testing.T) {
	up := &fakeUpstream{body: `{"recordMap":{}}`}
	c := newTestClient(t, up, "default-token")

	_, err := c.LoadPage(context.Background(), "p1", "caller-token")
	require.NoError(t, err)
	assert.Equal(t, "token_v2=caller-token", up.lastCookie)
}

// TestClient_QueryCollection tests the reducer loader body and the nested
// block-ID extraction.
func TestClient_QueryCollection(t *testing.T) {
	up := &fakeUpstream{body: `{
		"result":{"type":"reducer","reducerResults":{"collection_group_results":{"type":"results","blockIds":["b1","b2"],"total":2}}},
		"recordMap":{"block":{}}
	}`}
	c := newTestClient(t, up, "")

	filter := &FilterGroup{Filters: []*FilterEntry{filterEntry("aaaa", "string_is", "x")}}
	res, err := c.QueryCollection(context.Background(), "coll-1", "view-1", CollectionQuery{Filter: filter, Limit: 50}, "")
	require.NoError(t, err)

	assert.Equal(t, "/queryCollection", up.lastPath)
	assert.Equal(t, map[string]any{"id": "coll-1"}, up.lastBody["collection"])
	assert.Equal(t, map[string]any{"id": "view-1"}, up.lastBody["collectionView"])

	loader, ok := up.lastBody["loader"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "reducer", loader["type"])
	assert.Equal(t, float64(50), loader["limit"])
	wireFilter, ok := loader["filter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "and", wireFilter["operator"])
	assert.Len(t, wireFilter["filters"], 1)

	assert.Equal(t, []string{"b1", "b2"}, reducerBlockIDs(res))
}

// TestClient_QueryCollectionDefaultLimit tests the 999 fallback.
func TestClient_QueryCollectionDefaultLimit(t *testing.T) {
	up := &fakeUpstream{body: `{}`}
	c := newTestClient(t, up, "")

	_, err := c.QueryCollection(context.Background(), "coll-1", "view-1", CollectionQuery{}, "")
	require.NoError(t, err)

	loader := up.lastBody["loader"].(map[string]any)
	assert.Equal(t, float64(999), loader["limit"])
}

// TestClient_Non2xxIsUpstreamError tests the error taxonomy for status
// failures.
func TestClient_Non2xxIsUpstreamError(t *testing.T) {
	up := &fakeUpstream{status: http.StatusUnauthorized, body: `{}`}
	c := newTestClient(t, up, "")

	_, err := c.LoadPage(context.Background(), "p1", "")
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "loadPageChunk", ue.Resource)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
}

// TestClient_UndecodableBody tests that a 200 with a non-JSON body maps to
// the malformed-response sentinel.
func TestClient_UndecodableBody(t *testing.T) {
	up := &fakeUpstream{body: `<html>maintenance</html>`}
	c := newTestClient(t, up, "")

	_, err := c.LoadPage(context.Background(), "p1", "")
	require.Error(t, err)
	assert.True(t, IsUpstreamError(err))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

// TestClient_TimeoutIsUpstreamError tests that a hung upstream surfaces as an
// UpstreamError rather than a bare transport error.
func TestClient_TimeoutIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewWithOpts(Opts{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.LoadPage(context.Background(), "p1", "")

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.NotNil(t, ue.Err)
}

// TestClient_GetUsers tests batching and that valueless records are skipped.
func TestClient_GetUsers(t *testing.T) {
	up := &fakeUpstream{body: `{"results":[
		{"role":"reader","value":{"id":"u1","given_name":"Ada","family_name":"Lovelace"}},
		{"role":"none"},
		{"role":"reader","value":{"id":"u2","given_name":"Alan","family_name":"Turing"}}
	]}`}
	c := newTestClient(t, up, "")

	users, err := c.GetUsers(context.Background(), []string{"u1", "gone", "u2"}, "")
	require.NoError(t, err)

	assert.Equal(t, "/getRecordValues", up.lastPath)
	requests := up.lastBody["requests"].([]any)
	require.Len(t, requests, 3)
	assert.Equal(t, map[string]any{"id": "u1", "table": "notion_user"}, requests[0])

	require.Len(t, users, 2)
	assert.Equal(t, "Ada Lovelace", users[0].FullName)
	assert.Equal(t, "u2", users[1].ID)
}

// TestClient_SignAsset tests the permission-record body and both response
// shapes.
func TestClient_SignAsset(t *testing.T) {
	up := &fakeUpstream{body: `{"signedUrls":["https://signed.example/x"]}`}
	c := newTestClient(t, up, "")

	signed, err := c.SignAsset(context.Background(), "https://raw.example/x", "b1", "")
	require.NoError(t, err)
	assert.Equal(t, "/getSignedFileUrls", up.lastPath)
	assert.Equal(t, "https://signed.example/x", signed)

	urls := up.lastBody["urls"].([]any)
	require.Len(t, urls, 1)
	entry := urls[0].(map[string]any)
	assert.Equal(t, "https://raw.example/x", entry["url"])
	assert.Equal(t, map[string]any{"table": "block", "id": "b1"}, entry["permissionRecord"])

	up.body = `{"signedUrls":[]}`
	_, err = c.SignAsset(context.Background(), "https://raw.example/x", "b1", "")
	assert.Error(t, err)
}

// TestClient_Search tests the quick-find request defaults.
func TestClient_Search(t *testing.T) {
	up := &fakeUpstream{body: `{"results":[],"total":0}`}
	c := newTestClient(t, up, "")

	_, err := c.Search(context.Background(), SearchParams{AncestorID: "p1", Query: "hello"}, "")
	require.NoError(t, err)

	assert.Equal(t, "/search", up.lastPath)
	assert.Equal(t, "BlocksInAncestor", up.lastBody["type"])
	assert.Equal(t, "p1", up.lastBody["ancestorId"])
	assert.Equal(t, "hello", up.lastBody["query"])
	assert.Equal(t, float64(20), up.lastBody["limit"])

	filters := up.lastBody["filters"].(map[string]any)
	assert.Equal(t, true, filters["excludeTemplates"])
}
