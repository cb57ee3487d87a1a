package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/exp/slices"
)

// LoadFile reads a tabular input file, picking the parser based on the file
// extension. When parseDates is set, string values that look like timestamps
// are rewritten using timestampFormat (the config's timestamp_format field);
// an empty format means RFC3339.
func LoadFile(path string, parseDates bool, timestampFormat string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var ds Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = LoadDelimited(f, ',')
	case ".tsv":
		ds, err = LoadDelimited(f, '\t')
	case ".json":
		ds, err = LoadJSON(f)
	default:
		return Dataset{}, fmt.Errorf("unsupported input file type %q (supported: .csv, .tsv, .json)", filepath.Ext(path))
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if parseDates {
		normalizeDates(&ds, timestampFormat)
	}
	return ds, nil
}

// LoadDelimited parses CSV-style input. The first record is the header row.
func LoadDelimited(r io.Reader, delimiter rune) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read delimited input: %w", err)
	}
	if len(records) == 0 {
		return Dataset{}, nil
	}
	columns := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Columns: columns, Rows: rows}, nil
}

// LoadJSON parses a JSON array of flat objects. JSON objects don't preserve
// key order through map decoding, so columns are the sorted union of all keys.
func LoadJSON(r io.Reader) (Dataset, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var rows []map[string]any
	if err := decoder.Decode(&rows); err != nil {
		return Dataset{}, fmt.Errorf("failed to decode JSON input (expected an array of objects): %w", err)
	}
	seen := make(map[string]bool)
	var columns []string
	for i, row := range rows {
		for key, value := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
			switch v := value.(type) {
			case json.Number:
				if n, err := v.Int64(); err == nil {
					row[key] = n
				} else if f, err := v.Float64(); err == nil {
					row[key] = f
				} else {
					row[key] = v.String()
				}
			case map[string]any, []any:
				return Dataset{}, fmt.Errorf("failed to load JSON input: row %d field %q is not a scalar", i, key)
			}
		}
	}
	slices.Sort(columns)
	return Dataset{Columns: columns, Rows: rows}, nil
}

// Only strings with date-ish separators are handed to dateparse, since it is
// happy to interpret bare integers as unix timestamps.
var dateishRegexp = regexp.MustCompile(`^\d{1,4}[-/. ]\d{1,2}[-/. ]\d{1,4}`)

func normalizeDates(ds *Dataset, timestampFormat string) {
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}
	for _, row := range ds.Rows {
		for key, value := range row {
			s, ok := value.(string)
			if !ok || !dateishRegexp.MatchString(s) {
				continue
			}
			if t, err := dateparse.ParseAny(s); err == nil {
				row[key] = t.Format(timestampFormat)
			}
		}
	}
}
