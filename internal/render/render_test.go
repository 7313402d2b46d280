package render

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/tablebridge/internal/model"
)

var taskSpec = FieldSpec{
	Title: "Today's tasks",
	Columns: []Column{
		{Field: "Date"},
		{Field: "Task"},
		{Label: "Plot", Field: "Field"},
		{Label: "Worker", Field: "Assignee"},
	},
}

func sampleRecords() []model.Record {
	return []model.Record{
		{ID: "rec1", Fields: model.Fields{
			"Date":     model.Date{Time: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), DateOnly: true},
			"Task":     model.String("Weeding"),
			"Field":    model.List{model.String("North plot")},
			"Assignee": model.List{model.String("Sato"), model.String("Suzuki")},
		}},
		{ID: "rec2", Fields: model.Fields{
			"Task":  model.String("Harvest\nand sort"),
			"Field": model.List{},
		}},
	}
}

func TestRender_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tasks", []byte(Render(sampleRecords(), taskSpec, "Sato")+"\n"))
}

func TestRender_EmptyMessages(t *testing.T) {
	plain := Render(nil, taskSpec, "")
	scoped := Render([]model.Record{}, taskSpec, "Sato")

	assert.Equal(t, "No matching records found.", plain)
	assert.Equal(t, "No matching records found for Sato.", scoped)
	assert.NotEqual(t, plain, scoped)
	assert.Equal(t, NoResults, Empty(""))
}

func TestRender_FallbackUniform(t *testing.T) {
	spec := FieldSpec{Columns: []Column{{Label: "Plot", Field: "Field"}}}

	absent := Line(model.Record{Fields: model.Fields{}}, spec)
	emptyList := Line(model.Record{Fields: model.Fields{"Field": model.List{}}}, spec)
	null := Line(model.Record{Fields: model.Fields{"Field": model.Null{}}}, spec)
	emptyString := Line(model.Record{Fields: model.Fields{"Field": model.String("")}}, spec)

	assert.Equal(t, "Plot: N/A", absent)
	assert.Equal(t, absent, emptyList)
	assert.Equal(t, absent, null)
	assert.Equal(t, absent, emptyString)
}

func TestRender_CustomFallback(t *testing.T) {
	spec := FieldSpec{Columns: []Column{{Field: "Status"}}, Fallback: "-"}
	assert.Equal(t, "Status: -", Line(model.Record{}, spec))
}

func TestRender_Headers(t *testing.T) {
	one := []model.Record{{Fields: model.Fields{"Name": model.String("North plot")}}}
	many := make([]model.Record, 1200)

	tests := []struct {
		name    string
		records []model.Record
		spec    FieldSpec
		subject string
		want    string
	}{
		{"no title", one, FieldSpec{}, "", "Found 1 record:"},
		{"subject only", one, FieldSpec{}, "plot", "Found 1 record for plot:"},
		{"title only", one, FieldSpec{Title: "Plots"}, "", "Plots (1 record):"},
		{"thousands", many, FieldSpec{Title: "Plots"}, "", "Plots (1,200 records):"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(tt.records, tt.spec, tt.subject)
			assert.Equal(t, tt.want, firstLine(out))
		})
	}
}

func TestLine_AllFieldsWhenNoColumns(t *testing.T) {
	rec := model.Record{Fields: model.Fields{
		"b": model.Number(2),
		"a": model.Bool(true),
	}}
	assert.Equal(t, "a: true / b: 2", Line(rec, FieldSpec{}))
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
