package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionValue(t *testing.T) {
	testcases := []struct {
		input    string
		expected any
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"report", "report"},
		{"2.5", "2.5"},
		{"", ""},
	}
	for _, tc := range testcases {
		if actual := parseOptionValue(tc.input); actual != tc.expected {
			t.Fatalf("parseOptionValue(%q) returned %#v (expected=%#v)", tc.input, actual, tc.expected)
		}
	}
}

func TestOutputStem(t *testing.T) {
	require.NoError(t, convertCmd.Flags().Set("out", ""))
	require.Equal(t, "data/input", outputStem("data/input.csv", 1))
	require.Equal(t, "noext", outputStem("noext", 1))

	require.NoError(t, convertCmd.Flags().Set("out", "custom/report"))
	require.Equal(t, "custom/report", outputStem("data/input.csv", 1))
	// --out only applies to single-input runs
	require.Equal(t, "data/input", outputStem("data/input.csv", 2))
	require.NoError(t, convertCmd.Flags().Set("out", ""))
}
