package data

import (
	"fmt"
	"os"
	"strconv"
)

const (
	CONFIG_PATH = ".tably.config"
	DB_PATH     = ".tably.db"
	LOG_PATH    = "tably.log"
)

const defaultTablyPath = ".tably"

// GetTablyPath returns the directory that holds the config file, the local DB,
// and the log file. TABLY_PATH overrides it, which is how tests redirect all
// local state to a temporary directory.
func GetTablyPath() string {
	tablyPath := os.Getenv("TABLY_PATH")
	if tablyPath != "" {
		return tablyPath
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	return fmt.Sprintf("%s/%s", userHome, defaultTablyPath)
}

// Dataset is the in-memory representation of a loaded tabular file. Columns
// carries the presentation order, since Go maps don't preserve one. Row values
// are scalars: string, bool, int64, float64, or nil.
type Dataset struct {
	Columns []string
	Rows    []map[string]any
}

func (d Dataset) IsEmpty() bool {
	return len(d.Rows) == 0
}

// FormatValue renders a scalar cell value the way every serializer displays
// it: empty string for nil, no scientific notation for floats.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
