package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-content-sync/transport"
)

const (
	DefaultNotionBaseURL = "https://api.notion.com/v1"
	NotionAPIVersion     = "2022-06-28"
	notionPageSize       = 100
)

// NotionClient reads databases and patches pages over the Notion REST API.
type NotionClient struct {
	rest    *transport.RESTAdapter
	baseURL string
}

type NotionOption func(*NotionClient)

func WithNotionBaseURL(baseURL string) NotionOption {
	return func(c *NotionClient) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithNotionHTTPClient(client transport.HTTPDoer) NotionOption {
	return func(c *NotionClient) {
		if client != nil {
			c.rest.Client = client
		}
	}
}

func WithNotionTimeout(timeout time.Duration) NotionOption {
	return func(c *NotionClient) {
		if timeout > 0 {
			c.rest.Timeout = timeout
		}
	}
}

func NewNotionClient(token string, opts ...NotionOption) (*NotionClient, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("source: notion token is required")
	}
	rest := transport.NewRESTAdapter(nil).WithBearerToken(token)
	rest.DefaultHeaders["Notion-Version"] = NotionAPIVersion
	client := &NotionClient{rest: rest, baseURL: DefaultNotionBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *NotionClient) ListRecords(ctx context.Context, collection string, cursor string) (Page, error) {
	databaseID := FormatID(collection)
	body := map[string]any{"page_size": notionPageSize}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		body["start_cursor"] = cursor
	}
	res, err := c.rest.DoJSON(ctx, http.MethodPost, c.baseURL+"/databases/"+databaseID+"/query", nil, body)
	if err != nil {
		return Page{}, err
	}
	if !res.IsSuccess() {
		return Page{}, requestError("query database", res.StatusCode, res.Body, map[string]any{"database_id": databaseID})
	}
	var decoded notionQueryResponse
	if err := transport.DecodeJSON(res, &decoded); err != nil {
		return Page{}, err
	}
	page := Page{Records: make([]Record, 0, len(decoded.Results)), HasMore: decoded.HasMore}
	for _, result := range decoded.Results {
		page.Records = append(page.Records, result.record())
	}
	if decoded.HasMore && decoded.NextCursor != nil {
		page.NextCursor = *decoded.NextCursor
	}
	return page, nil
}

func (c *NotionClient) GetRecord(ctx context.Context, id string) (Record, error) {
	pageID := FormatID(id)
	res, err := c.rest.DoJSON(ctx, http.MethodGet, c.baseURL+"/pages/"+pageID, nil, nil)
	if err != nil {
		return Record{}, err
	}
	if res.StatusCode == http.StatusNotFound {
		return Record{}, notFoundError(pageID)
	}
	if !res.IsSuccess() {
		return Record{}, requestError("load page", res.StatusCode, res.Body, map[string]any{"page_id": pageID})
	}
	var decoded notionPage
	if err := transport.DecodeJSON(res, &decoded); err != nil {
		return Record{}, err
	}
	return decoded.record(), nil
}

func (c *NotionClient) PatchRecord(ctx context.Context, id string, patch Properties) error {
	pageID := FormatID(id)
	properties := make(map[string]any, len(patch))
	for name, value := range patch {
		if encoded, ok := encodeProperty(value); ok {
			properties[name] = encoded
		}
	}
	if len(properties) == 0 {
		return nil
	}
	res, err := c.rest.DoJSON(ctx, http.MethodPatch, c.baseURL+"/pages/"+pageID, nil, map[string]any{"properties": properties})
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		return notFoundError(pageID)
	}
	if !res.IsSuccess() {
		return requestError("patch page", res.StatusCode, res.Body, map[string]any{"page_id": pageID})
	}
	return nil
}

var _ Client = (*NotionClient)(nil)
