package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Number(42)
	var _ Value = Bool(true)
	var _ Value = Date{}
	var _ Value = List{String("a"), Number(1)}
	var _ Value = Object{"key": String("value")}
}

func TestDecodeValue_Scalars(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Value
	}{
		{"string", `"hello"`, String("hello")},
		{"integer", `3`, Number(3)},
		{"decimal", `2.5`, Number(2.5)},
		{"true", `true`, Bool(true)},
		{"null", `null`, Null{}},
		{"date", `"2026-10-16"`, Date{Time: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), DateOnly: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeValue_DateTime(t *testing.T) {
	got, err := DecodeValue([]byte(`"2026-10-16T09:30:00.000Z"`))
	require.NoError(t, err)

	d, ok := got.(Date)
	require.True(t, ok, "expected Date, got %T", got)
	assert.False(t, d.DateOnly)
	assert.Equal(t, "2026-10-16T09:30:00Z", d.Display())
}

func TestDecodeValue_NotADate(t *testing.T) {
	// Ten characters but not a calendar date
	got, err := DecodeValue([]byte(`"2026-13-45"`))
	require.NoError(t, err)
	assert.Equal(t, String("2026-13-45"), got)
}

func TestDecodeValue_NestedLookup(t *testing.T) {
	got, err := DecodeValue([]byte(`[{"id":"usr1","name":"Sato","email":"sato@example.com"}]`))
	require.NoError(t, err)

	list, ok := got.(List)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "Sato", list[0].Display())
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "3", Number(3).Display())
	assert.Equal(t, "0.25", Number(0.25).Display())
	assert.Equal(t, "false", Bool(false).Display())
	assert.Equal(t, "", Null{}.Display())
	assert.Equal(t, "a, b", List{String("a"), String("b")}.Display())
	assert.Equal(t, "a,b", List{String("a"), String("b")}.Join(","))
	assert.Equal(t, "photo.jpg", Object{"filename": String("photo.jpg"), "size": Number(10)}.Display())
	assert.Equal(t, "k=v x=1", Object{"x": Number(1), "k": String("v")}.Display())
}

func TestFirst(t *testing.T) {
	v, ok := First(List{String("only")})
	require.True(t, ok)
	assert.Equal(t, String("only"), v)

	_, ok = First(List{})
	assert.False(t, ok)

	_, ok = First(Null{})
	assert.False(t, ok)

	v, ok = First(Number(7))
	require.True(t, ok)
	assert.Equal(t, Number(7), v)
}

func TestFromNative_Unsupported(t *testing.T) {
	_, err := FromNative(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cell type")
}

func TestMarshalValue(t *testing.T) {
	data, err := MarshalValue(List{String("a"), Number(2), Bool(true), Null{}})
	require.NoError(t, err)
	assert.JSONEq(t, `["a", 2, true, null]`, string(data))

	data, err = MarshalValue(Date{Time: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), DateOnly: true})
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-02"`, string(data))
}

func TestRecordJSON(t *testing.T) {
	raw := `{
		"id": "rec001",
		"createdTime": "2026-10-01T00:00:00.000Z",
		"fields": {
			"Task": "Weeding",
			"Assignee": ["Sato", "Ito"],
			"Hours": 2
		}
	}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	assert.Equal(t, "rec001", rec.ID)
	assert.Equal(t, String("Weeding"), rec.Fields["Task"])
	assert.Equal(t, List{String("Sato"), String("Ito")}, rec.Fields["Assignee"])
	assert.Equal(t, Number(2), rec.Fields["Hours"])

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "rec001",
		"createdTime": "2026-10-01T00:00:00.000Z",
		"fields": {"Task": "Weeding", "Assignee": ["Sato", "Ito"], "Hours": 2}
	}`, string(out))
}
