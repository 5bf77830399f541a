package etl

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMarkers_Cells(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want int
	}{
		{"yes marker with note", "X - approved 3/1", 1},
		{"bare yes marker", "X", 1},
		{"lower-case yes marker", "x", 1},
		{"exploring", "exploring options", 0},
		{"exploring any case", "Currently EXPLORING", 0},
		{"exploring wins over yes marker", "exploring, X pending", 0},
		{"missing", nil, 0},
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"already zero", "0", 0},
		{"already one", "1", 1},
		{"padded one", " 1 ", 1},
		{"integer from a database", int64(1), 1},
		{"any x in free text", "next week", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTable([]string{"state", "visits"}, []any{"AL", tt.cell})
			out, err := NormalizeMarkers(in, []string{"visits"}, []string{"no_visits"})
			require.NoError(t, err)
			assert.Equal(t, []any{tt.want}, column(out, "no_visits"))
		})
	}
}

func TestNormalizeMarkers_AddsIntegerColumnsInOrder(t *testing.T) {
	in := newTable([]string{"state", "visits", "phone"},
		[]any{"AL", "X", nil},
		[]any{"AK", nil, "X free calls"},
	)

	out, err := NormalizeMarkers(in, []string{"visits", "phone"}, []string{"no_visits", "phone_access"})
	require.NoError(t, err)

	want := []Field{
		{Name: "state", Type: FieldText},
		{Name: "visits", Type: FieldText},
		{Name: "phone", Type: FieldText},
		{Name: "no_visits", Type: FieldInteger},
		{Name: "phone_access", Type: FieldInteger},
	}
	if diff := cmp.Diff(want, out.Schema.Fields); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []any{1, 0}, column(out, "no_visits"))
	assert.Equal(t, []any{0, 1}, column(out, "phone_access"))
	assert.Equal(t, 2, out.Len())
}

func TestNormalizeMarkers_IdempotentOnBinaryInput(t *testing.T) {
	in := newTable([]string{"no_visits"}, []any{"0"}, []any{"1"}, []any{"1"})

	once, err := NormalizeMarkers(in, []string{"no_visits"}, []string{"no_visits"})
	require.NoError(t, err)
	twice, err := NormalizeMarkers(once, []string{"no_visits"}, []string{"no_visits"})
	require.NoError(t, err)

	assert.Equal(t, []any{0, 1, 1}, column(once, "no_visits"))
	assert.Equal(t, column(once, "no_visits"), column(twice, "no_visits"))
}

func TestNormalizeMarkers_LengthMismatch(t *testing.T) {
	in := newTable([]string{"visits", "phone"}, []any{"X", "X"})

	_, err := NormalizeMarkers(in, []string{"visits", "phone"}, []string{"no_visits"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestNormalizeMarkers_MissingSourceColumn(t *testing.T) {
	in := newTable([]string{"visits"}, []any{"X"})

	_, err := NormalizeMarkers(in, []string{"video"}, []string{"video_access"})
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "video", missing.Column)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNormalizeMarkers_LeftoverTextFails(t *testing.T) {
	in := newTable([]string{"visits"}, []any{"X"}, []any{"approved"})

	_, err := NormalizeMarkers(in, []string{"visits"}, []string{"no_visits"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataQuality)

	var coerce *CoercionError
	require.ErrorAs(t, err, &coerce)
	assert.Equal(t, "visits", coerce.Column)
	assert.Equal(t, 2, coerce.Row)
	assert.Equal(t, "approved", coerce.Value)
}

func TestNormalizeMarkers_NonBinaryNumberFails(t *testing.T) {
	in := newTable([]string{"visits"}, []any{"2"})

	_, err := NormalizeMarkers(in, []string{"visits"}, []string{"no_visits"})
	assert.ErrorIs(t, err, ErrDataQuality)
}

func TestNormalizeMarkers_LeavesInputUntouched(t *testing.T) {
	in := newTable([]string{"visits"}, []any{"X"}, []any{nil})
	before := in.Clone()

	_, err := NormalizeMarkers(in, []string{"visits"}, []string{"no_visits"})
	require.NoError(t, err)
	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input changed (-before +after):\n%s", diff)
	}

	bad := newTable([]string{"visits"}, []any{"X"}, []any{"maybe"})
	badBefore := bad.Clone()
	_, err = NormalizeMarkers(bad, []string{"visits"}, []string{"no_visits"})
	require.Error(t, err)
	if diff := cmp.Diff(badBefore, bad); diff != "" {
		t.Errorf("input changed after failure (-before +after):\n%s", diff)
	}
}
