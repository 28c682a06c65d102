package store

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harp/internal/errors"
)

func TestEntry_ListRoundTrip(t *testing.T) {
	values := []string{"/tmp/x.rs", "3", "9", "  fn main() {", "ünïcödé █"}
	e := NewListEntry(values...)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var back Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.IsRecord())
	assert.Equal(t, values, back.Values())
	assert.True(t, e.Equal(&back))
}

func TestEntry_RecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"path only", Record{Path: Str("/tmp/x.rs")}},
		{"full", Record{Path: Str("/a/b"), Line: Int(3), Column: Int(9), Extra: Str("let x = 1;")}},
		{"extremes", Record{Line: Int(math.MaxInt32), Column: Int(math.MinInt32)}},
		{"zero values kept", Record{Line: Int(0), Extra: Str("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewRecordEntry(tt.rec)
			data, err := json.Marshal(e)
			require.NoError(t, err)

			var back Entry
			require.NoError(t, json.Unmarshal(data, &back))
			require.True(t, back.IsRecord())
			got, _ := back.Record()
			assert.Equal(t, tt.rec, got)
		})
	}
}

func TestEntry_EmptyListMarshalsAsArray(t *testing.T) {
	data, err := json.Marshal(&Entry{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEntry_UnmarshalRejectsScalars(t *testing.T) {
	for _, input := range []string{`"x"`, `3`, `true`, `[1,2]`} {
		var e Entry
		assert.Error(t, json.Unmarshal([]byte(input), &e), "input %s", input)
	}
}

func TestEntry_ClearAppendIdempotent(t *testing.T) {
	once := &Entry{}
	once.Clear()
	once.Append("x", "y", "z")

	twice := NewListEntry("stale")
	for i := 0; i < 2; i++ {
		twice.Clear()
		twice.Append("x", "y", "z")
	}

	assert.True(t, once.Equal(twice))
	assert.Equal(t, []string{"x", "y", "z"}, twice.Values())
}

func TestEntry_ShapeSwitch(t *testing.T) {
	e := NewRecordEntry(Record{Path: Str("/p")})
	e.Append("v")
	assert.False(t, e.IsRecord())
	assert.Equal(t, []string{"v"}, e.Values())

	e.SetRecord(Record{Extra: Str("x")})
	assert.True(t, e.IsRecord())
	assert.Nil(t, e.Values())
}

func TestEntry_RecordIsCopied(t *testing.T) {
	path := "/original"
	e := NewRecordEntry(Record{Path: &path})
	path = "/mutated"

	got, ok := e.Record()
	require.True(t, ok)
	assert.Equal(t, "/original", *got.Path)

	*got.Path = "/also-mutated"
	again, _ := e.Record()
	assert.Equal(t, "/original", *again.Path)
}

func TestContract_View(t *testing.T) {
	e := NewRecordEntry(Record{Path: Str("/a/b.go"), Line: Int(4), Column: Int(2)})

	v, err := e.View("harp_marks", "m", PositionContract())
	require.NoError(t, err)
	assert.Equal(t, "/a/b.go", v.Path)
	assert.Equal(t, 4, v.Line)
	assert.Equal(t, 2, v.Column)
	assert.False(t, v.HasExtra)
}

func TestContract_ArityEnforced(t *testing.T) {
	e := NewRecordEntry(Record{Path: Str("/a/b.go")})

	_, err := e.View("harp_marks", "m", PositionContract())
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrArityMismatch))

	hErr, _ := errors.As(err)
	assert.Equal(t, []string{"line", "column"}, hErr.Details["missing_fields"])
}

func TestContract_ListEntryMissesEverything(t *testing.T) {
	e := NewListEntry("/a/b.go")
	assert.Equal(t, []string{"path"}, e.Missing(PathContract()))

	_, err := e.View("s", "r", PathContract())
	assert.True(t, errors.Is(err, errors.ErrArityMismatch))

	// An empty contract asks for nothing.
	_, err = e.View("s", "r", NewContract())
	assert.NoError(t, err)
}

func TestContract_Dedup(t *testing.T) {
	c := NewContract(FieldPath, FieldPath, FieldExtra)
	assert.Equal(t, []Field{FieldPath, FieldExtra}, c.Fields())
	assert.True(t, c.Requires(FieldExtra))
	assert.False(t, c.Requires(FieldLine))
}

func TestEntry_Empty(t *testing.T) {
	assert.True(t, NewListEntry().Empty())
	assert.True(t, NewRecordEntry(Record{}).Empty())
	assert.False(t, NewListEntry("").Empty())
	assert.False(t, NewRecordEntry(Record{Line: Int(0)}).Empty())

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{}`), &e))
	assert.True(t, e.Empty())
}
