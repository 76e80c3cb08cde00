package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/utils"
)

// DefaultAPIURL is the private record-store endpoint the gateway proxies.
const DefaultAPIURL = "https://www.notion.so/api/v3"

// DefaultTimeout bounds every upstream call; a hung fetch surfaces as an
// UpstreamError instead of stalling the request.
const DefaultTimeout = 25 * time.Second

// Client is the record store client: a thin JSON-over-HTTP wrapper around the
// upstream API. All calls POST a JSON body to <base>/<resource> and forward
// the caller's session token as the token_v2 cookie.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// Opts is the set of options for a new Client.
type Opts struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewWithOpts creates a new Client with the given options.
func NewWithOpts(o Opts) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultAPIURL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &Client{
		baseURL: o.BaseURL,
		token:   o.Token,
		client:  client,
		logger:  o.Logger,
	}
}

// NewFromEnv builds a Client from NOTION_API_URL, NOTION_TOKEN and
// NOTION_TIMEOUT.
func NewFromEnv(logger *zap.Logger) *Client {
	return NewWithOpts(Opts{
		BaseURL: utils.Env("NOTION_API_URL", DefaultAPIURL),
		Token:   utils.Env("NOTION_TOKEN", ""),
		Timeout: utils.EnvDuration("NOTION_TIMEOUT", DefaultTimeout),
		Logger:  logger,
	})
}

// post sends one upstream call and decodes the response into out.
// Any transport failure, timeout or non-2xx status comes back as *UpstreamError.
func (c *Client) post(ctx context.Context, resource string, payload any, token string, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+resource, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Cookie", "token_v2="+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Resource: resource, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = utils.DrainAndClose(resp.Body)
		return &UpstreamError{Resource: resource, Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			_ = utils.DrainAndClose(resp.Body)
			return &UpstreamError{Resource: resource, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		}
	}

	// Drain to let the transport reuse the connection.
	return utils.DrainAndClose(resp.Body)
}

// PageChunk is the loadPageChunk / syncRecordValues response.
type PageChunk struct {
	RecordMap *RecordMap      `json:"recordMap"`
	Cursor    json.RawMessage `json:"cursor,omitempty"`
}

// LoadPage fetches the page's block graph.
func (c *Client) LoadPage(ctx context.Context, pageID, token string) (*PageChunk, error) {
	body := map[string]any{
		"pageId":          pageID,
		"limit":           100,
		"cursor":          map[string]any{"stack": []any{}},
		"chunkNumber":     0,
		"verticalColumns": false,
	}
	var out PageChunk
	if err := c.post(ctx, "loadPageChunk", body, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionQuery carries the caller/view supplied query parts of a
// queryCollection call.
type CollectionQuery struct {
	Filter *FilterGroup
	Sort   json.RawMessage
	Limit  int
}

// GroupResults lists the block IDs that satisfied the collection query.
type GroupResults struct {
	Type     string   `json:"type,omitempty"`
	BlockIDs []string `json:"blockIds"`
	Total    int      `json:"total,omitempty"`
}

// ReducerResults is the reducer section of a queryCollection response.
type ReducerResults struct {
	GroupResults *GroupResults `json:"collection_group_results,omitempty"`
}

// CollectionResult is the queryCollection response.
type CollectionResult struct {
	Result *struct {
		Type           string          `json:"type,omitempty"`
		ReducerResults *ReducerResults `json:"reducerResults,omitempty"`
	} `json:"result,omitempty"`
	RecordMap *RecordMap `json:"recordMap,omitempty"`
}

// QueryCollection runs a view query against a collection and returns the
// matching row-block IDs plus the record map that contains them.
func (c *Client) QueryCollection(ctx context.Context, collectionID, viewID string, q CollectionQuery, token string) (*CollectionResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 999
	}

	var filters []*FilterEntry
	if q.Filter != nil {
		filters = q.Filter.Filters
	}
	sort := q.Sort
	if sort == nil {
		sort = json.RawMessage("[]")
	}

	body := map[string]any{
		"collection":     map[string]any{"id": collectionID},
		"collectionView": map[string]any{"id": viewID},
		"loader": map[string]any{
			"type": "reducer",
			"reducers": map[string]any{
				"collection_group_results": map[string]any{
					"type":             "results",
					"limit":            limit,
					"loadContentCover": true,
				},
				"table:uncategorized:title:count": map[string]any{
					"type": "aggregation",
					"aggregation": map[string]any{
						"property":   "title",
						"aggregator": "count",
					},
				},
			},
			"searchQuery":  "",
			"userTimeZone": "Europe/Vienna",
			"filter":       map[string]any{"operator": "and", "filters": filters},
			"sort":         sort,
			"limit":        limit,
		},
	}

	var out CollectionResult
	if err := c.post(ctx, "queryCollection", body, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsers resolves a batch of user IDs in a single upstream call.
// Records without a value (deleted or inaccessible users) are skipped.
func (c *Client) GetUsers(ctx context.Context, ids []string, token string) ([]User, error) {
	ids = utils.Dedup(ids)
	requests := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, map[string]any{"id": id, "table": "notion_user"})
	}

	var out struct {
		Results []UserRecord `json:"results"`
	}
	if err := c.post(ctx, "getRecordValues", map[string]any{"requests": requests}, token, &out); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(out.Results))
	for _, rec := range out.Results {
		if rec.Value == nil {
			continue
		}
		users = append(users, rec.Value.AsUser())
	}
	return users, nil
}

// GetBlocks fetches a batch of blocks by ID.
func (c *Client) GetBlocks(ctx context.Context, ids []string, token string) (*PageChunk, error) {
	requests := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, map[string]any{"id": id, "table": "block", "version": -1})
	}

	var out PageChunk
	if err := c.post(ctx, "syncRecordValues", map[string]any{"requests": requests}, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignAsset exchanges a stored asset URL for a signed, time-limited one.
func (c *Client) SignAsset(ctx context.Context, url, blockID, token string) (string, error) {
	body := map[string]any{
		"urls": []map[string]any{
			{
				"url": url,
				"permissionRecord": map[string]any{
					"table": "block",
					"id":    blockID,
				},
			},
		},
	}

	var out struct {
		SignedURLs []string `json:"signedUrls"`
	}
	if err := c.post(ctx, "getSignedFileUrls", body, token, &out); err != nil {
		return "", err
	}
	if len(out.SignedURLs) == 0 {
		return "", fmt.Errorf("getSignedFileUrls: no signed url for %s", url)
	}
	return out.SignedURLs[0], nil
}

// SearchParams scopes a quick-find search to an ancestor block.
type SearchParams struct {
	AncestorID string
	Query      string
	Limit      int
	Filters    map[string]any
}

// SearchResult is the upstream search response.
type SearchResult struct {
	Results   json.RawMessage `json:"results"`
	RecordMap *RecordMap      `json:"recordMap,omitempty"`
	Total     int             `json:"total,omitempty"`
}

// Search runs a quick-find search below an ancestor block.
func (c *Client) Search(ctx context.Context, p SearchParams, token string) (*SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	filters := map[string]any{
		"isDeletedOnly":          false,
		"excludeTemplates":       true,
		"isNavigableOnly":        true,
		"requireEditPermissions": false,
		"ancestors":              []any{},
		"createdBy":              []any{},
		"editedBy":               []any{},
		"lastEditedTime":         map[string]any{},
		"createdTime":            map[string]any{},
	}
	for k, v := range p.Filters {
		filters[k] = v
	}

	body := map[string]any{
		"type":       "BlocksInAncestor",
		"source":     "quick_find_public",
		"ancestorId": p.AncestorID,
		"filters":    filters,
		"sort":       "Relevance",
		"limit":      limit,
		"query":      p.Query,
	}

	var out SearchResult
	if err := c.post(ctx, "search", body, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
