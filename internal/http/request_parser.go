package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"bilancio/internal/core"
)

const (
	maxLabelRunes = 80
	maxValueRunes = 32
	maxBodyBytes  = 1 << 20

	minCanvas = 100
	maxCanvas = 4000
)

// entriesPayload is the JSON shape of a budget's two entry lists.
type entriesPayload struct {
	Income  []core.RawEntry `json:"income"`
	Expense []core.RawEntry `json:"expense"`
}

// sanitizeInput removes control characters except tab/newline/CR and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func cleanEntry(e core.RawEntry) core.RawEntry {
	return core.RawEntry{
		ID:    truncate(sanitizeInput(e.ID), 64),
		Label: truncate(sanitizeInput(e.Label), maxLabelRunes),
		Value: truncate(sanitizeInput(e.Value), maxValueRunes),
	}
}

func cleanEntries(rows []core.RawEntry) []core.RawEntry {
	out := make([]core.RawEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, cleanEntry(r))
	}
	return out
}

// ParseEntriesForm reads the editor rows of one side. Rows are submitted as
// parallel <side>_id, <side>_label and <side>_value fields; rows with neither
// label nor amount are dropped.
func ParseEntriesForm(form url.Values, side core.Side) []core.RawEntry {
	prefix := string(side)
	ids := form[prefix+"_id"]
	labels := form[prefix+"_label"]
	values := form[prefix+"_value"]

	n := max(len(labels), len(values))
	rows := make([]core.RawEntry, 0, n)
	for i := 0; i < n; i++ {
		e := cleanEntry(core.RawEntry{
			ID:    at(ids, i),
			Label: at(labels, i),
			Value: at(values, i),
		})
		if e.Label == "" && e.Value == "" {
			continue
		}
		rows = append(rows, e)
	}
	return rows
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// ParseCanvasSize reads w and h from the query, falling back to the defaults.
// Values outside [minCanvas, maxCanvas] are rejected.
func ParseCanvasSize(query url.Values, defWidth, defHeight int) (float64, float64, error) {
	w, err := sizeParam(query, "w", defWidth)
	if err != nil {
		return 0, 0, err
	}
	h, err := sizeParam(query, "h", defHeight)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func sizeParam(query url.Values, key string, def int) (float64, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return float64(def), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a whole number", key, v)
	}
	return checkCanvas(key, float64(n))
}

func checkCanvas(key string, v float64) (float64, error) {
	if v < minCanvas || v > maxCanvas {
		return 0, fmt.Errorf("invalid %s %v: must be between %d and %d", key, v, minCanvas, maxCanvas)
	}
	return v, nil
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("request body larger than %d bytes", maxBodyBytes)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: unexpected trailing data")
	}
	return nil
}

// wantsSVG reports whether the client asked for an SVG image instead of JSON.
func wantsSVG(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "image/svg+xml")
}
