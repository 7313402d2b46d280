package fakestore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/model"
)

// DefaultPageSize is the page size used when a request gives none.
const DefaultPageSize = 100

// Clock supplies createdTime stamps and "today".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator supplies the unique suffix of generated record, table and
// field IDs.
type IDGenerator interface {
	Generate() string
}

type counterIDs struct{ n int }

func (c *counterIDs) Generate() string {
	c.n++
	return fmt.Sprintf("%014d", c.n)
}

// Request is one entry of the request log.
type Request struct {
	Method string
	Path   string
	Query  string
}

// Server is the fake store. Create with New and mount via Handler.
//
// Thread-safety: all state is guarded by a single mutex.
type Server struct {
	baseID string
	token  string
	clock  Clock
	ids    IDGenerator
	logger *zap.Logger
	router *mux.Router

	mu       sync.Mutex
	tables   []*table
	requests []Request
}

type table struct {
	schema  model.Table
	records []model.Record
}

// Option customises a Server.
type Option func(*Server)

// WithToken makes the server require "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithClock sets the clock used for createdTime and DateEqualsToday.
func WithClock(c Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithIDGenerator sets the ID suffix generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Server) { s.ids = g }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates an empty fake store serving baseID.
func New(baseID string, opts ...Option) *Server {
	s := &Server{
		baseID: baseID,
		clock:  systemClock{},
		ids:    &counterIDs{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the store.
func (s *Server) Handler() http.Handler {
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
	s.mu.Unlock()

	s.logger.Debug("fake store request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}
	s.router.ServeHTTP(w, r)
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Records returns a snapshot of a table's records in insertion order.
func (s *Server) Records(tableName string) ([]model.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.lookup(tableName)
	if t == nil {
		return nil, false
	}
	out := make([]model.Record, len(t.records))
	for i, rec := range t.records {
		out[i] = model.Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: rec.Fields.Merge(nil)}
	}
	return out, true
}

// AddTable creates a table directly, bypassing HTTP.
func (s *Server) AddTable(schema model.Table) model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTable(schema)
}

// AddRecord inserts a record directly, bypassing HTTP and schema checks.
func (s *Server) AddRecord(tableName string, fields model.Fields) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.lookup(tableName)
	if t == nil {
		return model.Record{}, fmt.Errorf("table %q not found", tableName)
	}
	return s.insert(t, fields), nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	meta := r.PathPrefix("/v0/meta/bases/{base}").Subrouter()
	meta.HandleFunc("/tables", s.handleListTables).Methods(http.MethodGet)
	meta.HandleFunc("/tables", s.handleCreateTable).Methods(http.MethodPost)
	meta.HandleFunc("/tables/{table}", s.handleUpdateTable).Methods(http.MethodPatch)
	meta.HandleFunc("/tables/{table}", s.handleDeleteTable).Methods(http.MethodDelete)

	r.HandleFunc("/v0/{base}/{table}", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/v0/{base}/{table}", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/v0/{base}/{table}/{record}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/v0/{base}/{table}/{record}", s.handleUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/v0/{base}/{table}/{record}", s.handleDelete).Methods(http.MethodDelete)
	return r
}

// resolve locks the store and finds the addressed table.
// On success the caller owns the lock and must call s.mu.Unlock.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*table, bool) {
	vars := mux.Vars(r)
	if vars["base"] != s.baseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find base "+vars["base"])
		return nil, false
	}
	s.mu.Lock()
	t := s.lookup(vars["table"])
	if t == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Could not find table "+vars["table"])
		return nil, false
	}
	return t, true
}

func (s *Server) lookup(nameOrID string) *table {
	for _, t := range s.tables {
		if t.schema.ID == nameOrID || t.schema.Name == nameOrID {
			return t
		}
	}
	return nil
}

func (s *Server) newID(prefix string) string {
	return prefix + s.ids.Generate()
}

func (s *Server) addTable(schema model.Table) model.Table {
	if schema.ID == "" {
		schema.ID = s.newID("tbl")
	}
	fields := make([]model.FieldSchema, len(schema.Fields))
	for i, f := range schema.Fields {
		if f.ID == "" {
			f.ID = s.newID("fld")
		}
		fields[i] = f
	}
	schema.Fields = fields
	if schema.PrimaryFieldID == "" && len(fields) > 0 {
		schema.PrimaryFieldID = fields[0].ID
	}
	s.tables = append(s.tables, &table{schema: schema})
	return schema
}

func (s *Server) insert(t *table, fields model.Fields) model.Record {
	rec := model.Record{
		ID:          s.newID("rec"),
		CreatedTime: s.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Fields:      dropNulls(fields),
	}
	t.records = append(t.records, rec)
	return rec
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	q := r.URL.Query()
	matched := make([]model.Record, 0, len(t.records))

	if f := q.Get("filterByFormula"); f != "" {
		pred, err := formula.Parse(f)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_FILTER_BY_FORMULA", err.Error())
			return
		}
		today := s.clock.Now()
		for _, rec := range t.records {
			ok, err := Match(pred, rec.Fields, today)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "INVALID_FILTER_BY_FORMULA", err.Error())
				return
			}
			if ok {
				matched = append(matched, rec)
			}
		}
	} else {
		matched = append(matched, t.records...)
	}

	sortRecords(matched, q)

	if raw := q.Get("maxRecords"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_UNKNOWN", "maxRecords must be a non-negative integer")
			return
		}
		if n > 0 && n < len(matched) {
			matched = matched[:n]
		}
	}

	pageSize := DefaultPageSize
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > DefaultPageSize {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_UNKNOWN", "pageSize must be between 1 and 100")
			return
		}
		pageSize = n
	}
	start := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > len(matched) {
			writeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "invalid offset")
			return
		}
		start = n
	}
	end := min(start+pageSize, len(matched))

	page := struct {
		Records []model.Record `json:"records"`
		Offset  string         `json:"offset,omitempty"`
	}{Records: project(matched[start:end], q["fields[]"])}
	if end < len(matched) {
		page.Offset = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	i := findRecord(t, mux.Vars(r)["record"])
	if i < 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found")
		return
	}
	writeJSON(w, http.StatusOK, t.records[i])
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	fields, ok := s.decodeFields(w, r, t)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.insert(t, fields))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	i := findRecord(t, mux.Vars(r)["record"])
	if i < 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found")
		return
	}
	patch, ok := s.decodeFields(w, r, t)
	if !ok {
		return
	}
	t.records[i].Fields = dropNulls(t.records[i].Fields.Merge(patch))
	writeJSON(w, http.StatusOK, t.records[i])
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolve(w, r)
	if !ok {
		return
	}
	defer s.mu.Unlock()

	id := mux.Vars(r)["record"]
	i := findRecord(t, id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found")
		return
	}
	t.records = slices.Delete(t.records, i, i+1)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["base"] != s.baseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]model.Table, len(s.tables))
	for i, t := range s.tables {
		tables[i] = t.schema
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["base"] != s.baseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}
	var req model.Table
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TABLE_NAME", "Table name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(req.Name) != nil {
		writeError(w, http.StatusUnprocessableEntity, "DUPLICATE_TABLE_NAME", "Table "+req.Name+" already exists")
		return
	}
	req.ID = ""
	writeJSON(w, http.StatusOK, s.addTable(req))
}

func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["base"] != s.baseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}
	var req struct {
		Name        string              `json:"name"`
		Description *string             `json:"description"`
		Fields      []model.FieldSchema `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableByID(mux.Vars(r)["table"])
	if t == nil {
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Could not find table")
		return
	}
	if req.Name != "" {
		t.schema.Name = req.Name
	}
	if req.Description != nil {
		t.schema.Description = *req.Description
	}
	for _, f := range req.Fields {
		if j := slices.IndexFunc(t.schema.Fields, func(have model.FieldSchema) bool { return have.Name == f.Name }); j >= 0 {
			f.ID = t.schema.Fields[j].ID
			t.schema.Fields[j] = f
			continue
		}
		if f.ID == "" {
			f.ID = s.newID("fld")
		}
		t.schema.Fields = append(t.schema.Fields, f)
	}
	writeJSON(w, http.StatusOK, t.schema)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["base"] != s.baseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := mux.Vars(r)["table"]
	i := slices.IndexFunc(s.tables, func(t *table) bool { return t.schema.ID == id })
	if i < 0 {
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "Could not find table")
		return
	}
	s.tables = slices.Delete(s.tables, i, i+1)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// tableByID finds a table by ID only; the metadata API does not accept names.
func (s *Server) tableByID(id string) *table {
	for _, t := range s.tables {
		if t.schema.ID == id {
			return t
		}
	}
	return nil
}

// decodeFields reads {"fields": {...}} and checks names against the schema.
func (s *Server) decodeFields(w http.ResponseWriter, r *http.Request, t *table) (model.Fields, bool) {
	var body struct {
		Fields model.Fields `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return nil, false
	}
	if len(t.schema.Fields) > 0 {
		known := t.schema.FieldNames()
		for _, name := range body.Fields.SortedKeys() {
			if !slices.Contains(known, name) {
				writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_FIELD_NAME", fmt.Sprintf("Unknown field name: %q", name))
				return nil, false
			}
		}
	}
	if body.Fields == nil {
		body.Fields = model.Fields{}
	}
	return body.Fields, true
}

func findRecord(t *table, id string) int {
	return slices.IndexFunc(t.records, func(rec model.Record) bool { return rec.ID == id })
}

func dropNulls(f model.Fields) model.Fields {
	out := make(model.Fields, len(f))
	for k, v := range f {
		if _, isNull := v.(model.Null); isNull || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// project keeps only the named fields. No names means all fields.
func project(recs []model.Record, names []string) []model.Record {
	if len(names) == 0 {
		return recs
	}
	out := make([]model.Record, len(recs))
	for i, rec := range recs {
		fields := model.Fields{}
		for _, n := range names {
			if v, ok := rec.Fields[n]; ok {
				fields[n] = v
			}
		}
		out[i] = model.Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: fields}
	}
	return out
}

// sortRecords applies sort[i][field] / sort[i][direction] parameters,
// comparing rendered cell text.
func sortRecords(recs []model.Record, q map[string][]string) {
	type key struct {
		field string
		desc  bool
	}
	var keys []key
	for i := 0; ; i++ {
		prefix := "sort[" + strconv.Itoa(i) + "]"
		field := first(q[prefix+"[field]"])
		if field == "" {
			break
		}
		keys = append(keys, key{field: field, desc: first(q[prefix+"[direction]"]) == "desc"})
	}
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(recs, func(a, b model.Record) int {
		for _, k := range keys {
			c := strings.Compare(cellText(a.Fields[k.field], ", "), cellText(b.Fields[k.field], ", "))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	var body errorBody
	body.Error.Type = typ
	body.Error.Message = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
