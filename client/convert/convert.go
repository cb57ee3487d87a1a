package convert

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"

	"github.com/tably-dev/tably/client/data"
)

// ErrUnsupportedFormat is returned when a format id has no registered
// serializer. The catalog is closed, so hitting this indicates a programming
// error and it must fail loudly rather than produce empty output.
var ErrUnsupportedFormat = errors.New("unsupported conversion format")

type Category string

const (
	CategoryData     Category = "data"
	CategoryWeb      Category = "web"
	CategoryOffice   Category = "office"
	CategoryDocument Category = "document"
	CategoryDatabase Category = "database"
	CategoryConfig   Category = "config"
)

// categoryOrder is the display order used by Catalog and the formats command.
var categoryOrder = []Category{CategoryData, CategoryWeb, CategoryOffice, CategoryDocument, CategoryDatabase, CategoryConfig}

// Format describes one catalog entry. Immutable after process start.
type Format struct {
	ID          string
	DisplayName string
	Description string
	Extension   string
	MimeType    string
	Category    Category
}

// Options carries the per-format serialization knobs. Values of the wrong
// type fall back to the default, they never error.
type Options map[string]any

func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

func (o Options) String(key string, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

type serializer func(ds data.Dataset, opts Options) (string, error)

type registryEntry struct {
	format   Format
	defaults func() Options
	render   serializer
}

// Adding a format is a data addition here, not a control-flow change: register
// the descriptor, a defaults factory, and a serializer.
var registry = map[string]registryEntry{
	"csv": {
		format:   Format{ID: "csv", DisplayName: "CSV", Description: "Comma-separated values", Extension: "csv", MimeType: "text/csv", Category: CategoryData},
		defaults: func() Options { return Options{"header": true} },
		render:   toCSV,
	},
	"tsv": {
		format:   Format{ID: "tsv", DisplayName: "TSV", Description: "Tab-separated values", Extension: "tsv", MimeType: "text/tab-separated-values", Category: CategoryData},
		defaults: func() Options { return Options{"header": true} },
		render:   toTSV,
	},
	"json": {
		format:   Format{ID: "json", DisplayName: "JSON", Description: "JSON array of objects", Extension: "json", MimeType: "application/json", Category: CategoryData},
		defaults: func() Options { return Options{"pretty": true} },
		render:   toJSON,
	},
	"html": {
		format:   Format{ID: "html", DisplayName: "HTML", Description: "Standalone HTML page with a table", Extension: "html", MimeType: "text/html", Category: CategoryWeb},
		defaults: func() Options { return Options{"title": "Data Export", "tableClass": "data-table", "inlineStyles": false} },
		render:   toHTML,
	},
	"xml": {
		format:   Format{ID: "xml", DisplayName: "XML", Description: "XML document with one element per row", Extension: "xml", MimeType: "application/xml", Category: CategoryWeb},
		defaults: func() Options { return Options{"rootElement": "rows", "itemElement": "row"} },
		render:   toXML,
	},
	"xls": {
		format:   Format{ID: "xls", DisplayName: "Excel", Description: "Excel-compatible HTML spreadsheet", Extension: "xls", MimeType: "application/vnd.ms-excel", Category: CategoryOffice},
		defaults: func() Options { return Options{"sheetName": "Sheet1"} },
		render:   toXLS,
	},
	"markdown": {
		format:   Format{ID: "markdown", DisplayName: "Markdown", Description: "GitHub-flavored pipe table", Extension: "md", MimeType: "text/markdown", Category: CategoryDocument},
		defaults: func() Options { return Options{} },
		render:   toMarkdown,
	},
	"latex": {
		format:   Format{ID: "latex", DisplayName: "LaTeX", Description: "LaTeX tabular environment", Extension: "tex", MimeType: "application/x-latex", Category: CategoryDocument},
		defaults: func() Options { return Options{"caption": "", "label": ""} },
		render:   toLaTeX,
	},
	"sql": {
		format:   Format{ID: "sql", DisplayName: "SQL", Description: "CREATE TABLE plus INSERT statements", Extension: "sql", MimeType: "application/sql", Category: CategoryDatabase},
		defaults: func() Options { return Options{"tableName": "data_export", "createTable": true} },
		render:   toSQL,
	},
	"yaml": {
		format:   Format{ID: "yaml", DisplayName: "YAML", Description: "YAML block sequence of mappings", Extension: "yaml", MimeType: "application/x-yaml", Category: CategoryConfig},
		defaults: func() Options { return Options{} },
		render:   toYAML,
	},
}

// Lookup returns the catalog descriptor for a format id.
func Lookup(id string) (Format, bool) {
	entry, ok := registry[id]
	return entry.format, ok
}

// DefaultOptions returns a fresh options map seeded with the format's
// defaults. Returns an empty map for unknown ids.
func DefaultOptions(id string) Options {
	entry, ok := registry[id]
	if !ok {
		return Options{}
	}
	return entry.defaults()
}

// Convert serializes a dataset into the requested format. A nil opts uses the
// format's defaults.
func Convert(id string, ds data.Dataset, opts Options) (string, error) {
	entry, ok := registry[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, id)
	}
	if opts == nil {
		opts = entry.defaults()
	}
	out, err := entry.render(ds, opts)
	if err != nil {
		return "", fmt.Errorf("failed to convert to %s: %w", entry.format.DisplayName, err)
	}
	return out, nil
}

// Catalog returns all formats grouped by category order, then by id.
func Catalog() []Format {
	formats := lo.Map(lo.Values(registry), func(e registryEntry, _ int) Format { return e.format })
	slices.SortFunc(formats, func(a, b Format) int {
		ca := slices.Index(categoryOrder, a.Category)
		cb := slices.Index(categoryOrder, b.Category)
		if ca != cb {
			return ca - cb
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return formats
}
