package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDelimited(t *testing.T) {
	input := "name,age\nJohn,30\n\"Smith, Jane\",25\n"
	ds, err := LoadDelimited(strings.NewReader(input), ',')
	require.NoError(t, err)
	require.Equal(t, []string{"name", "age"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	require.Equal(t, "John", ds.Rows[0]["name"])
	require.Equal(t, "Smith, Jane", ds.Rows[1]["name"])

	// Short rows are padded with empty strings
	ds, err = LoadDelimited(strings.NewReader("a,b\nonly\n"), ',')
	require.NoError(t, err)
	require.Equal(t, "", ds.Rows[0]["b"])

	ds, err = LoadDelimited(strings.NewReader(""), ',')
	require.NoError(t, err)
	require.True(t, ds.IsEmpty())
}

func TestLoadJSON(t *testing.T) {
	input := `[{"name":"John","age":30},{"name":"Jane","score":1.5}]`
	ds, err := LoadJSON(strings.NewReader(input))
	require.NoError(t, err)
	// Columns are the sorted union of all keys
	require.Equal(t, []string{"age", "name", "score"}, ds.Columns)
	require.Equal(t, int64(30), ds.Rows[0]["age"])
	require.Equal(t, 1.5, ds.Rows[1]["score"])

	_, err = LoadJSON(strings.NewReader(`[{"nested":{"a":1}}]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a scalar")

	_, err = LoadJSON(strings.NewReader(`{"not":"an array"}`))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,joined\nJohn,2022-01-09\n"), 0o644))

	ds, err := LoadFile(csvPath, false, "")
	require.NoError(t, err)
	require.Equal(t, "2022-01-09", ds.Rows[0]["joined"])

	ds, err = LoadFile(csvPath, true, "")
	require.NoError(t, err)
	require.Equal(t, "2022-01-09T00:00:00Z", ds.Rows[0]["joined"])

	// The configured timestamp format drives the rewrite
	ds, err = LoadFile(csvPath, true, "Jan 2, 2006")
	require.NoError(t, err)
	require.Equal(t, "Jan 9, 2022", ds.Rows[0]["joined"])

	txtPath := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hi"), 0o644))
	_, err = LoadFile(txtPath, false, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported input file type")

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), false, "")
	require.Error(t, err)
}

func TestNormalizeDatesLeavesNonDatesAlone(t *testing.T) {
	ds := Dataset{
		Columns: []string{"id", "when", "note"},
		Rows: []map[string]any{
			{"id": "12345", "when": "2022-01-09 16:35:58", "note": "not a date"},
		},
	}
	normalizeDates(&ds, "")
	require.Equal(t, "12345", ds.Rows[0]["id"], "bare integers must not be treated as timestamps")
	require.Equal(t, "not a date", ds.Rows[0]["note"])
	require.True(t, strings.HasPrefix(ds.Rows[0]["when"].(string), "2022-01-09T16:35:58"))
}

func TestFormatValue(t *testing.T) {
	testcases := []struct {
		input    any
		expected string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{30, "30"},
		{int64(30), "30"},
		{2.5, "2.5"},
		{float64(1000000), "1000000"},
	}
	for _, tc := range testcases {
		if actual := FormatValue(tc.input); actual != tc.expected {
			t.Fatalf("FormatValue(%#v) returned %#v (expected=%#v)", tc.input, actual, tc.expected)
		}
	}
}
