package convert

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/tably-dev/tably/client/data"
)

func toCSV(ds data.Dataset, opts Options) (string, error) {
	return renderDelimited(ds, opts, ',')
}

func toTSV(ds data.Dataset, opts Options) (string, error) {
	return renderDelimited(ds, opts, '\t')
}

func renderDelimited(ds data.Dataset, opts Options, delimiter rune) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = delimiter
	if opts.Bool("header", true) && len(ds.Columns) > 0 {
		if err := w.Write(ds.Columns); err != nil {
			return "", fmt.Errorf("failed to write header row: %w", err)
		}
	}
	for _, row := range ds.Rows {
		record := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			record[i] = data.FormatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func toJSON(ds data.Dataset, opts Options) (string, error) {
	rows := ds.Rows
	if rows == nil {
		rows = make([]map[string]any, 0)
	}
	var out []byte
	var err error
	if opts.Bool("pretty", true) {
		out, err = json.MarshalIndent(rows, "", "  ")
	} else {
		out, err = json.Marshal(rows)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return string(out), nil
}

func toHTML(ds data.Dataset, opts Options) (string, error) {
	title := opts.String("title", "Data Export")
	tableClass := opts.String("tableClass", "data-table")
	inlineStyles := opts.Bool("inlineStyles", false)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	if inlineStyles {
		sb.WriteString("<style>\n")
		sb.WriteString(fmt.Sprintf("table.%s { border-collapse: collapse; }\n", tableClass))
		sb.WriteString(fmt.Sprintf("table.%s th, table.%s td { border: 1px solid #ccc; padding: 4px 8px; }\n", tableClass, tableClass))
		sb.WriteString("</style>\n")
	}
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(title)))
	if ds.IsEmpty() {
		sb.WriteString("<p>No data available</p>\n")
	} else {
		sb.WriteString(htmlTable(ds, tableClass))
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

func htmlTable(ds data.Dataset, tableClass string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<table class=\"%s\">\n<thead>\n<tr>", html.EscapeString(tableClass)))
	for _, col := range ds.Columns {
		sb.WriteString(fmt.Sprintf("<th>%s</th>", html.EscapeString(col)))
	}
	sb.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range ds.Rows {
		sb.WriteString("<tr>")
		for _, col := range ds.Columns {
			sb.WriteString(fmt.Sprintf("<td>%s</td>", html.EscapeString(data.FormatValue(row[col]))))
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>\n")
	return sb.String()
}

func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func toMarkdown(ds data.Dataset, _ Options) (string, error) {
	if len(ds.Columns) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(ds.Rows)+2)
	header := make([]string, len(ds.Columns))
	separator := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = escapeMarkdownCell(col)
		separator[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(header, " | ")+" |")
	lines = append(lines, "| "+strings.Join(separator, " | ")+" |")
	for _, row := range ds.Rows {
		cells := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			cells[i] = escapeMarkdownCell(data.FormatValue(row[col]))
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return strings.Join(lines, "\n"), nil
}

var latexEscaper = strings.NewReplacer(
	"\\", "\\textbackslash{}",
	"&", "\\&",
	"%", "\\%",
	"$", "\\$",
	"#", "\\#",
	"_", "\\_",
	"{", "\\{",
	"}", "\\}",
	"~", "\\textasciitilde{}",
	"^", "\\textasciicircum{}",
)

func toLaTeX(ds data.Dataset, opts Options) (string, error) {
	caption := opts.String("caption", "")
	label := opts.String("label", "")

	var sb strings.Builder
	sb.WriteString("\\begin{table}[h]\n\\centering\n")
	sb.WriteString(fmt.Sprintf("\\begin{tabular}{%s}\n", strings.Repeat("l", max(len(ds.Columns), 1))))
	sb.WriteString("\\hline\n")
	header := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = latexEscaper.Replace(col)
	}
	sb.WriteString(strings.Join(header, " & ") + " \\\\\n\\hline\n")
	for _, row := range ds.Rows {
		cells := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			cells[i] = latexEscaper.Replace(data.FormatValue(row[col]))
		}
		sb.WriteString(strings.Join(cells, " & ") + " \\\\\n")
	}
	sb.WriteString("\\hline\n\\end{tabular}\n")
	if caption != "" {
		sb.WriteString(fmt.Sprintf("\\caption{%s}\n", latexEscaper.Replace(caption)))
	}
	if label != "" {
		sb.WriteString(fmt.Sprintf("\\label{%s}\n", label))
	}
	sb.WriteString("\\end{table}\n")
	return sb.String(), nil
}

func sqlQuoteIdentifier(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}

func sqlQuoteValue(v any) string {
	switch v.(type) {
	case nil:
		return "NULL"
	case int, int64, float64:
		return data.FormatValue(v)
	case bool:
		return strings.ToUpper(data.FormatValue(v))
	default:
		// Embedded quotes are escaped by doubling them.
		return "'" + strings.ReplaceAll(data.FormatValue(v), "'", "''") + "'"
	}
}

func toSQL(ds data.Dataset, opts Options) (string, error) {
	tableName := opts.String("tableName", "data_export")
	var sb strings.Builder
	if opts.Bool("createTable", true) {
		sb.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", sqlQuoteIdentifier(tableName)))
		for i, col := range ds.Columns {
			sb.WriteString(fmt.Sprintf("  %s TEXT", sqlQuoteIdentifier(col)))
			if i < len(ds.Columns)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(");\n\n")
	}
	columnList := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		columnList[i] = sqlQuoteIdentifier(col)
	}
	for _, row := range ds.Rows {
		values := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			values[i] = sqlQuoteValue(row[col])
		}
		sb.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);\n",
			sqlQuoteIdentifier(tableName), strings.Join(columnList, ", "), strings.Join(values, ", ")))
	}
	return sb.String(), nil
}

// Column names that can appear unquoted as YAML mapping keys. Anything else
// (embedded colons, leading indicator characters, words YAML folds to
// booleans or null) gets JSON-quoted.
var plainYAMLKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

var ambiguousYAMLKeys = map[string]bool{
	"true": true, "false": true, "null": true,
	"yes": true, "no": true, "on": true, "off": true,
}

func yamlKey(name string) string {
	if plainYAMLKeyRegexp.MatchString(name) && !ambiguousYAMLKeys[strings.ToLower(name)] {
		return name
	}
	literal, _ := json.Marshal(name)
	return string(literal)
}

// toYAML emits a block sequence with one mapping per row. Scalars are encoded
// as JSON literals, which are valid YAML, rather than relying on YAML's scalar
// folding rules.
func toYAML(ds data.Dataset, _ Options) (string, error) {
	if ds.IsEmpty() {
		return "[]\n", nil
	}
	var sb strings.Builder
	for _, row := range ds.Rows {
		prefix := "- "
		for _, col := range ds.Columns {
			literal, err := json.Marshal(row[col])
			if err != nil {
				return "", fmt.Errorf("failed to encode value for column %q: %w", col, err)
			}
			sb.WriteString(fmt.Sprintf("%s%s: %s\n", prefix, yamlKey(col), string(literal)))
			prefix = "  "
		}
	}
	return sb.String(), nil
}

var invalidXMLNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// xmlElementName maps a column header to a legal XML element name.
func xmlElementName(name string) string {
	sanitized := invalidXMLNameChars.ReplaceAllString(name, "_")
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') {
		sanitized = "_" + sanitized
	}
	return sanitized
}

var xmlTextEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func toXML(ds data.Dataset, opts Options) (string, error) {
	root := xmlElementName(opts.String("rootElement", "rows"))
	item := xmlElementName(opts.String("itemElement", "row"))

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString(fmt.Sprintf("<%s>\n", root))
	for _, row := range ds.Rows {
		sb.WriteString(fmt.Sprintf("  <%s>\n", item))
		for _, col := range ds.Columns {
			element := xmlElementName(col)
			sb.WriteString(fmt.Sprintf("    <%s>%s</%s>\n", element, xmlTextEscaper.Replace(data.FormatValue(row[col])), element))
		}
		sb.WriteString(fmt.Sprintf("  </%s>\n", item))
	}
	sb.WriteString(fmt.Sprintf("</%s>\n", root))
	return sb.String(), nil
}

// toXLS emits the HTML-based spreadsheet dialect that Excel has opened since
// the early 2000s. It is a text format, which keeps the download sink simple.
func toXLS(ds data.Dataset, opts Options) (string, error) {
	sheetName := opts.String("sheetName", "Sheet1")
	var sb strings.Builder
	sb.WriteString("<html xmlns:o=\"urn:schemas-microsoft-com:office:office\" xmlns:x=\"urn:schemas-microsoft-com:office:excel\">\n")
	sb.WriteString("<head>\n<meta charset=\"UTF-8\">\n")
	sb.WriteString("<!--[if gte mso 9]><xml>\n<x:ExcelWorkbook><x:ExcelWorksheets><x:ExcelWorksheet>\n")
	sb.WriteString(fmt.Sprintf("<x:Name>%s</x:Name>\n", html.EscapeString(sheetName)))
	sb.WriteString("<x:WorksheetOptions><x:DisplayGridlines/></x:WorksheetOptions>\n")
	sb.WriteString("</x:ExcelWorksheet></x:ExcelWorksheets></x:ExcelWorkbook>\n</xml><![endif]-->\n")
	sb.WriteString("</head>\n<body>\n")
	if ds.IsEmpty() {
		sb.WriteString("<p>No data available</p>\n")
	} else {
		sb.WriteString(htmlTable(ds, "excel-table"))
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}
