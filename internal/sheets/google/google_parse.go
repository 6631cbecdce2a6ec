package google

import (
	"fmt"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

const (
	colLabel  = 0
	colAmount = 1
)

// parseEntries converts a values matrix (as returned by the Sheets API) into
// raw entries. Rows with no label and no amount are skipped, as are rows whose
// label starts with '#'. Amounts are kept as text; the engine decides later
// whether they are usable.
func parseEntries(values [][]interface{}) []core.RawEntry {
	out := make([]core.RawEntry, 0, len(values))
	for _, raw := range values {
		row := toStrings(raw)
		label := strings.TrimSpace(safeGet(row, colLabel))
		amount := strings.TrimSpace(safeGet(row, colAmount))
		if label == "" && amount == "" {
			continue
		}
		if strings.HasPrefix(label, "#") {
			continue
		}
		out = append(out, core.RawEntry{Label: label, Value: amount})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
