package airtable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablebridge/internal/config"
	"github.com/roach88/tablebridge/internal/fakestore"
	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/model"
	"github.com/roach88/tablebridge/internal/testutil"
)

const (
	testBase  = "appTEST"
	testToken = "patTEST"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		APIKey:   testToken,
		BaseID:   testBase,
		Endpoint: endpoint,
		Timeout:  5 * time.Second,
	}
}

// newFakeClient returns a client wired to a fake store holding three tasks
// on the Field "North plot" / "East plot".
func newFakeClient(t *testing.T) (*Client, *fakestore.Server) {
	t.Helper()
	store := fakestore.New(testBase,
		fakestore.WithToken(testToken),
		fakestore.WithClock(testutil.NewFixedDate(2026, time.October, 16, time.UTC)),
		fakestore.WithIDGenerator(testutil.NewSequentialIDs("x")),
	)
	store.AddTable(model.Table{Name: "Tasks", Fields: []model.FieldSchema{
		{Name: "Date", Type: "date"},
		{Name: "Assignee", Type: "multipleSelects"},
		{Name: "Task", Type: "singleLineText"},
		{Name: "Field", Type: "singleLineText"},
		{Name: "Status", Type: "singleSelect"},
	}})
	for _, f := range []model.Fields{
		{"Date": model.Date{Time: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), DateOnly: true}, "Assignee": model.List{model.String("Sato")}, "Task": model.String("Weeding"), "Field": model.String("North plot"), "Status": model.String("Todo")},
		{"Date": model.Date{Time: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), DateOnly: true}, "Assignee": model.List{model.String("Tanaka")}, "Task": model.String("Harvest"), "Field": model.String("East plot"), "Status": model.String("Todo")},
		{"Date": model.Date{Time: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), DateOnly: true}, "Assignee": model.List{model.String("Sato")}, "Task": model.String("Spraying"), "Field": model.String("North plot"), "Status": model.String("Todo")},
	} {
		_, err := store.AddRecord("Tasks", f)
		require.NoError(t, err)
	}

	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)
	return c, store
}

func todayForWorker(worker string) []filterir.Predicate {
	return []filterir.Predicate{
		filterir.DateEqualsToday{Field: "Date"},
		filterir.ArrayContains{Field: "Assignee", Literal: worker},
	}
}

func TestNew_MissingConfiguration(t *testing.T) {
	_, err := New(&config.Config{APIKey: "x"})
	require.Error(t, err)
	assert.Equal(t, KindConfigurationMissing, KindOf(err))
	assert.True(t, errors.Is(err, config.ErrConfigurationMissing))

	_, err = New(nil)
	assert.Equal(t, KindConfigurationMissing, KindOf(err))
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(&config.Config{APIKey: "k", BaseID: "b"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEndpoint, c.cfg.Endpoint)
	assert.Equal(t, config.DefaultTimeout, c.http.Timeout)
	assert.Equal(t, "b", c.BaseID())
}

func TestFetch_MaxRecordsCapsResult(t *testing.T) {
	c, store := newFakeClient(t)

	page, err := c.Fetch(context.Background(), "Tasks", FetchOptions{
		Filter:     "{Status} = 'Todo'",
		MaxRecords: 1,
	})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.Empty(t, page.Offset)
	assert.Equal(t, 1, store.RequestCount())
}

func TestFetch_FirstPageOnly(t *testing.T) {
	c, store := newFakeClient(t)

	page, err := c.Fetch(context.Background(), "Tasks", FetchOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.NotEmpty(t, page.Offset, "remaining records are signalled, not fetched")
	assert.Equal(t, 1, store.RequestCount())
}

func TestFetch_CompiledFormula(t *testing.T) {
	c, _ := newFakeClient(t)
	compiler := &formula.Compiler{
		Clock:    testutil.NewFixedDate(2026, time.October, 16, time.UTC),
		Location: time.UTC,
	}
	f, err := compiler.Build(todayForWorker("Sato"))
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), "Tasks", FetchOptions{Filter: f})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Weeding", page.Records[0].Fields.Display("Task", ""))
}

func TestFetch_QueryEncoding(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), "作業 記録", FetchOptions{
		View:       "Grid view",
		Filter:     "{Status} = 'Todo'",
		MaxRecords: 5,
		Fields:     []string{"Task", "Status"},
		Sort:       []Sort{{Field: "Date", Direction: "desc"}},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.NotNil(t, page.Records)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/v0/appTEST/作業 記録", got.URL.Path)
	assert.Equal(t, "Bearer "+testToken, got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	q := got.URL.Query()
	assert.Equal(t, "Grid view", q.Get("view"))
	assert.Equal(t, "{Status} = 'Todo'", q.Get("filterByFormula"))
	assert.Equal(t, "5", q.Get("maxRecords"))
	assert.Equal(t, []string{"Task", "Status"}, q["fields[]"])
	assert.Equal(t, "Date", q.Get("sort[0][field]"))
	assert.Equal(t, "desc", q.Get("sort[0][direction]"))
}

func TestFetch_InvalidArguments(t *testing.T) {
	c, store := newFakeClient(t)

	_, err := c.Fetch(context.Background(), "", FetchOptions{})
	assert.True(t, IsInvalidArgument(err))

	_, err = c.Fetch(context.Background(), "Tasks", FetchOptions{MaxRecords: -1})
	assert.True(t, IsInvalidArgument(err))

	assert.Zero(t, store.RequestCount())
}

func TestInsertGetRemove(t *testing.T) {
	c, _ := newFakeClient(t)
	ctx := context.Background()

	rec, err := c.Insert(ctx, "Tasks", map[string]any{"Task": "Pruning", "Assignee": []any{"Suzuki"}})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "Pruning", rec.Fields.Display("Task", ""))
	assert.Equal(t, "Suzuki", rec.Fields.Display("Assignee", ""))

	got, err := c.Get(ctx, "Tasks", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	id, err := c.Remove(ctx, "Tasks", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, id)

	_, err = c.Get(ctx, "Tasks", rec.ID)
	require.Error(t, err)
	assert.True(t, IsRemoteAPIError(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestPatch_LeavesOmittedFieldsUntouched(t *testing.T) {
	c, store := newFakeClient(t)
	ctx := context.Background()

	before, _ := store.Records("Tasks")
	target := before[1]

	updated, err := c.Patch(ctx, "Tasks", target.ID, map[string]any{"Status": "Done"})
	require.NoError(t, err)
	assert.Equal(t, "Done", updated.Fields.Display("Status", ""))

	for _, name := range target.Fields.SortedKeys() {
		if name == "Status" {
			continue
		}
		assert.Equal(t, target.Fields[name], updated.Fields[name], "field %s changed", name)
	}
}

func TestPatch_RequiresFields(t *testing.T) {
	c, store := newFakeClient(t)

	_, err := c.Patch(context.Background(), "Tasks", "rec1", nil)
	assert.True(t, IsInvalidArgument(err))
	assert.Zero(t, store.RequestCount())
}

func TestInsert_UnknownFieldIsRemoteError(t *testing.T) {
	c, _ := newFakeClient(t)

	_, err := c.Insert(context.Background(), "Tasks", map[string]any{"Colour": "red"})
	require.Error(t, err)
	assert.True(t, IsRemoteAPIError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "UNKNOWN_FIELD_NAME")
	assert.Equal(t, "insert", apiErr.Op)
}

func TestTableLifecycle(t *testing.T) {
	c, _ := newFakeClient(t)
	ctx := context.Background()

	created, err := c.CreateTable(ctx, "Equipment", []model.FieldSchema{{Name: "Name", Type: "singleLineText"}}, "Machines and tools")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Machines and tools", created.Description)

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Equipment", tables[1].Name)

	altered, err := c.AlterTable(ctx, created.ID, "Machinery", nil)
	require.NoError(t, err)
	assert.Equal(t, "Machinery", altered.Name)
	assert.Equal(t, []string{"Name"}, altered.FieldNames())

	altered, err = c.AlterTable(ctx, created.ID, "", []model.FieldSchema{{Name: "Hours", Type: "number"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Hours"}, altered.FieldNames())

	id, err := c.DropTable(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = c.DropTable(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestAlterTable_NothingToChange(t *testing.T) {
	c, store := newFakeClient(t)

	_, err := c.AlterTable(context.Background(), "tbl123", "", nil)
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
	assert.Zero(t, store.RequestCount(), "no request may be sent")

	_, err = c.AlterTable(context.Background(), "tbl123", "", []model.FieldSchema{})
	assert.True(t, IsInvalidArgument(err))
	assert.Zero(t, store.RequestCount())
}

func TestCreateTable_RequiresName(t *testing.T) {
	c, store := newFakeClient(t)

	_, err := c.CreateTable(context.Background(), "", nil, "")
	assert.True(t, IsInvalidArgument(err))
	assert.Zero(t, store.RequestCount())
}

func TestRemoteError_CarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"INVALID_PERMISSIONS"}}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.ListTables(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindRemoteAPI, KindOf(err))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Equal(t, `REMOTE_API_ERROR: list_tables: remote API error 403: {"error":{"type":"INVALID_PERMISSIONS"}}`, err.Error())
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "Tasks", "rec1")
	assert.True(t, IsRemoteAPIError(err))
	assert.Equal(t, http.StatusOK, StatusCode(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(testConfig(url))
	require.NoError(t, err)

	_, err = c.ListTables(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Zero(t, StatusCode(err))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "Tasks", FetchOptions{})
	assert.True(t, IsNetworkError(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindEmptyQuery, KindOf(formula.ErrEmptyQuery))
	assert.Equal(t, KindEmptyQuery, KindOf(NewEmptyQuery("list_tasks")))
	assert.True(t, errors.Is(NewEmptyQuery("x"), formula.ErrEmptyQuery))
	assert.Equal(t, KindConfigurationMissing, KindOf(&config.MissingError{Keys: []string{config.KeyBaseID}}))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestError_Message(t *testing.T) {
	err := NewInvalidArgument("alter_table", "provide at least new_name or fields to update")
	assert.Equal(t, "INVALID_ARGUMENT: alter_table: provide at least new_name or fields to update", err.Error())
}
