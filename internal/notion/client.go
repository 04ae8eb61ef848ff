package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bilgisen/folio/internal/metrics"
	"github.com/go-resty/resty/v2"
)

const (
	pageSize = 100
	// maxDepth bounds recursion into nested blocks.
	maxDepth = 8
)

// ErrInvalidDatabaseID is returned for ids that are not 32 hex digits.
var ErrInvalidDatabaseID = errors.New("invalid notion database id")

var (
	compactID   = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	canonicalID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// FormatDatabaseID turns a compact 32-digit id into the 8-4-4-4-12 form.
// Hyphenated ids are validated and returned lower-cased.
func FormatDatabaseID(id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case canonicalID.MatchString(id):
		return strings.ToLower(id), nil
	case compactID.MatchString(id):
		id = strings.ToLower(id)
		return fmt.Sprintf("%s-%s-%s-%s-%s", id[0:8], id[8:12], id[12:16], id[16:20], id[20:]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDatabaseID, id)
	}
}

// APIError is the error body Notion returns with non-2xx responses.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the Notion REST API.
type Client struct {
	client *resty.Client
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetAuthToken(opts.Token).
		SetHeader("Notion-Version", opts.Version).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{client: client}
}

// Filter and Sort mirror the query body of POST /databases/{id}/query.
type Filter struct {
	Property string          `json:"property"`
	Checkbox *CheckboxFilter `json:"checkbox,omitempty"`
}

type CheckboxFilter struct {
	Equals bool `json:"equals"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type Query struct {
	Filter *Filter `json:"filter,omitempty"`
	Sorts  []Sort  `json:"sorts,omitempty"`
}

// PublishedQuery selects pages whose checkbox property is ticked, newest first.
func PublishedQuery(publishedProperty, dateProperty string) Query {
	return Query{
		Filter: &Filter{
			Property: publishedProperty,
			Checkbox: &CheckboxFilter{Equals: true},
		},
		Sorts: []Sort{{Property: dateProperty, Direction: "descending"}},
	}
}

type queryRequest struct {
	Query
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size"`
}

type pageList struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type blockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase returns every page matching q, following pagination.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	id, err := FormatDatabaseID(databaseID)
	if err != nil {
		return nil, err
	}

	var pages []Page
	cursor := ""
	for {
		var list pageList
		err := c.do(ctx, "query_database", func(req *resty.Request) (*resty.Response, error) {
			return req.
				SetPathParam("id", id).
				SetBody(queryRequest{Query: q, StartCursor: cursor, PageSize: pageSize}).
				SetResult(&list).
				Post("/databases/{id}/query")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query database %s: %w", id, err)
		}

		pages = append(pages, list.Results...)
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			return pages, nil
		}
		cursor = *list.NextCursor
	}
}

// BlockChildren returns the direct children of a block or page.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		var list blockList
		err := c.do(ctx, "block_children", func(req *resty.Request) (*resty.Response, error) {
			req.SetPathParam("id", blockID).
				SetQueryParam("page_size", fmt.Sprint(pageSize)).
				SetResult(&list)
			if cursor != "" {
				req.SetQueryParam("start_cursor", cursor)
			}
			return req.Get("/blocks/{id}/children")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list children of %s: %w", blockID, err)
		}

		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			return blocks, nil
		}
		cursor = *list.NextCursor
	}
}

// PageBlocks returns the page's block tree with nested children filled in.
func (c *Client) PageBlocks(ctx context.Context, pageID string) ([]Block, error) {
	return c.tree(ctx, pageID, 0)
}

func (c *Client) tree(ctx context.Context, id string, depth int) ([]Block, error) {
	blocks, err := c.BlockChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if depth >= maxDepth {
		return blocks, nil
	}

	for i := range blocks {
		// child pages are separate documents
		if !blocks[i].HasChildren || blocks[i].Type == "child_page" {
			continue
		}
		children, err := c.tree(ctx, blocks[i].ID, depth+1)
		if err != nil {
			return nil, err
		}
		blocks[i].Children = children
	}
	return blocks, nil
}

func (c *Client) do(ctx context.Context, op string, send func(*resty.Request) (*resty.Response, error)) error {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	apiErr := &APIError{}
	resp, err := send(c.client.R().SetContext(ctx).SetError(apiErr))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "transport_error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		metrics.UpstreamRequests.WithLabelValues(op, "api_error").Inc()
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}

	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return nil
}
