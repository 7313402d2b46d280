package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/model"
)

// Client performs record and schema operations against one base.
//
// Thread-safety: Client holds only immutable configuration and an
// http.Client, and is safe for concurrent use.
type Client struct {
	cfg    config.Config
	http   *http.Client
	logger *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The configured timeout
// is not applied to a caller-supplied client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client from validated configuration.
// An incomplete Config yields a KindConfigurationMissing error.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, &Error{Kind: KindConfigurationMissing, Op: "new_client", Message: "nil configuration", Err: config.ErrConfigurationMissing}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindConfigurationMissing, Op: "new_client", Message: "incomplete configuration", Err: err}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}

	c := &Client{
		cfg:    *cfg,
		http:   &http.Client{Timeout: timeout},
		logger: zap.NewNop(),
	}
	c.cfg.Endpoint = endpoint
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseID returns the base every table name is scoped to.
func (c *Client) BaseID() string {
	return c.cfg.BaseID
}

// Sort orders fetched records by one field.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"` // "asc" or "desc"
}

// FetchOptions narrows a Fetch. Zero values mean "not set".
type FetchOptions struct {
	View       string
	Filter     string // filterByFormula
	MaxRecords int
	PageSize   int
	Fields     []string
	Sort       []Sort
}

// RecordPage is the first page of a listing.
// A non-empty Offset means the server holds more matching records.
type RecordPage struct {
	Records []model.Record `json:"records"`
	Offset  string         `json:"offset,omitempty"`
}

// Fetch lists records from table.
//
// Only the first page is returned; no follow-up requests are made for
// Offset. MaxRecords caps the number of records the server returns.
func (c *Client) Fetch(ctx context.Context, table string, opts FetchOptions) (*RecordPage, error) {
	const op = "fetch"
	if table == "" {
		return nil, NewInvalidArgument(op, "table name is required")
	}
	if opts.MaxRecords < 0 || opts.PageSize < 0 {
		return nil, NewInvalidArgument(op, "max records and page size must not be negative")
	}

	q := url.Values{}
	if opts.View != "" {
		q.Set("view", opts.View)
	}
	if opts.Filter != "" {
		q.Set("filterByFormula", opts.Filter)
	}
	if opts.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	for _, f := range opts.Fields {
		q.Add("fields[]", f)
	}
	for i, s := range opts.Sort {
		q.Set("sort["+strconv.Itoa(i)+"][field]", s.Field)
		if s.Direction != "" {
			q.Set("sort["+strconv.Itoa(i)+"][direction]", s.Direction)
		}
	}

	var page RecordPage
	if err := c.do(ctx, op, http.MethodGet, c.tablePath(table), q, nil, &page); err != nil {
		return nil, err
	}
	if page.Records == nil {
		page.Records = []model.Record{}
	}
	return &page, nil
}

// Get retrieves a single record by ID.
func (c *Client) Get(ctx context.Context, table, recordID string) (*model.Record, error) {
	const op = "get"
	if table == "" || recordID == "" {
		return nil, NewInvalidArgument(op, "table name and record ID are required")
	}
	var rec model.Record
	if err := c.do(ctx, op, http.MethodGet, c.recordPath(table, recordID), nil, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert creates a record. The server assigns its ID.
func (c *Client) Insert(ctx context.Context, table string, fields map[string]any) (*model.Record, error) {
	const op = "insert"
	if table == "" {
		return nil, NewInvalidArgument(op, "table name is required")
	}
	if fields == nil {
		fields = map[string]any{}
	}
	var rec model.Record
	if err := c.do(ctx, op, http.MethodPost, c.tablePath(table), nil, fieldsBody{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Patch updates only the listed fields of a record; all other fields keep
// their prior values.
func (c *Client) Patch(ctx context.Context, table, recordID string, fields map[string]any) (*model.Record, error) {
	const op = "patch"
	if table == "" || recordID == "" {
		return nil, NewInvalidArgument(op, "table name and record ID are required")
	}
	if len(fields) == 0 {
		return nil, NewInvalidArgument(op, "no fields to update")
	}
	var rec model.Record
	if err := c.do(ctx, op, http.MethodPatch, c.recordPath(table, recordID), nil, fieldsBody{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Remove deletes a record and echoes its ID back as confirmation.
func (c *Client) Remove(ctx context.Context, table, recordID string) (string, error) {
	const op = "remove"
	if table == "" || recordID == "" {
		return "", NewInvalidArgument(op, "table name and record ID are required")
	}
	if err := c.do(ctx, op, http.MethodDelete, c.recordPath(table, recordID), nil, nil, nil); err != nil {
		return "", err
	}
	return recordID, nil
}

// ListTables returns the schema of every table in the base.
func (c *Client) ListTables(ctx context.Context) ([]model.Table, error) {
	var resp struct {
		Tables []model.Table `json:"tables"`
	}
	if err := c.do(ctx, "list_tables", http.MethodGet, c.metaPath(), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tables == nil {
		resp.Tables = []model.Table{}
	}
	return resp.Tables, nil
}

// CreateTable creates a table by name.
func (c *Client) CreateTable(ctx context.Context, name string, fields []model.FieldSchema, description string) (*model.Table, error) {
	const op = "create_table"
	if name == "" {
		return nil, NewInvalidArgument(op, "table name is required")
	}
	if fields == nil {
		fields = []model.FieldSchema{}
	}
	body := model.Table{Name: name, Description: description, Fields: fields}
	var tbl model.Table
	if err := c.do(ctx, op, http.MethodPost, c.metaPath(), nil, body, &tbl); err != nil {
		return nil, err
	}
	return &tbl, nil
}

// AlterTable renames a table and/or replaces its field list.
//
// At least one of newName and fields must be non-empty; otherwise a
// KindInvalidArgument error is returned without contacting the server.
func (c *Client) AlterTable(ctx context.Context, tableID, newName string, fields []model.FieldSchema) (*model.Table, error) {
	const op = "alter_table"
	if newName == "" && len(fields) == 0 {
		return nil, NewInvalidArgument(op, "provide at least new_name or fields to update")
	}
	if tableID == "" {
		return nil, NewInvalidArgument(op, "table ID is required")
	}

	body := map[string]any{}
	if newName != "" {
		body["name"] = newName
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}

	var tbl model.Table
	if err := c.do(ctx, op, http.MethodPatch, c.metaTablePath(tableID), nil, body, &tbl); err != nil {
		return nil, err
	}
	return &tbl, nil
}

// DropTable permanently deletes a table and echoes its ID back.
func (c *Client) DropTable(ctx context.Context, tableID string) (string, error) {
	const op = "drop_table"
	if tableID == "" {
		return "", NewInvalidArgument(op, "table ID is required")
	}
	if err := c.do(ctx, op, http.MethodDelete, c.metaTablePath(tableID), nil, nil, nil); err != nil {
		return "", err
	}
	return tableID, nil
}

type fieldsBody struct {
	Fields map[string]any `json:"fields"`
}

func (c *Client) tablePath(table string) string {
	return "/v0/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(table)
}

func (c *Client) recordPath(table, recordID string) string {
	return c.tablePath(table) + "/" + url.PathEscape(recordID)
}

func (c *Client) metaPath() string {
	return "/v0/meta/bases/" + url.PathEscape(c.cfg.BaseID) + "/tables"
}

func (c *Client) metaTablePath(tableID string) string {
	return c.metaPath() + "/" + url.PathEscape(tableID)
}

// do performs one round trip. A non-nil out receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()

	target := c.cfg.Endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInvalidArgument, Op: op, Message: "request body is not JSON-encodable", Err: errors.Wrap(err, "encode request body")}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "cannot build request", Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: errors.Wrapf(err, "%s %s", method, path)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "reading response failed", Err: errors.Wrap(err, "read response body")}
	}

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindRemoteAPI, Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindRemoteAPI, Op: op, StatusCode: resp.StatusCode, Body: string(respBody), Message: "malformed response", Err: errors.Wrap(err, "decode response body")}
	}
	return nil
}
