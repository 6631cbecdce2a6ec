package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Rent  ", "Rent"},
		{"Ren\x00t\x07", "Rent"},
		{"line\tone", "line\tone"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("càffè", 3); got != "càf" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ok", 10); got != "ok" {
		t.Errorf("truncate = %q", got)
	}
}

func TestParseEntriesForm(t *testing.T) {
	form := url.Values{
		"expense_id":    {"e1"},
		"expense_label": {" Rent ", "", "Food"},
		"expense_value": {"1200", "", "abc"},
	}
	got := ParseEntriesForm(form, core.SideExpense)
	want := []core.RawEntry{
		{ID: "e1", Label: "Rent", Value: "1200"},
		{Label: "Food", Value: "abc"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if rows := ParseEntriesForm(form, core.SideIncome); len(rows) != 0 {
		t.Errorf("income rows = %+v", rows)
	}
}

func TestParseEntriesForm_TruncatesLongLabels(t *testing.T) {
	form := url.Values{"income_label": {strings.Repeat("x", 200)}, "income_value": {"1"}}
	got := ParseEntriesForm(form, core.SideIncome)
	if len(got) != 1 || len([]rune(got[0].Label)) != maxLabelRunes {
		t.Fatalf("got %+v", got)
	}
}

func TestParseCanvasSize(t *testing.T) {
	tests := []struct {
		query   string
		w, h    float64
		wantErr bool
	}{
		{"", 960, 540, false},
		{"w=800&h=400", 800, 400, false},
		{"w=99", 0, 0, true},
		{"h=4001", 0, 0, true},
		{"w=abc", 0, 0, true},
		{"w=12.5", 0, 0, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		w, h, err := ParseCanvasSize(q, 960, 540)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.query, err)
			continue
		}
		if !tt.wantErr && (w != tt.w || h != tt.h) {
			t.Errorf("%q: got %vx%v", tt.query, w, h)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) error {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p entriesPayload
		return decodeJSON(httptest.NewRecorder(), r, &p)
	}
	if err := decode(`{"income":[{"label":"a","value":"1"}]}`); err != nil {
		t.Errorf("valid body: %v", err)
	}
	if err := decode(`{"incomes":[]}`); err == nil {
		t.Errorf("unknown field accepted")
	}
	if err := decode(`{} {}`); err == nil {
		t.Errorf("trailing data accepted")
	}
	if err := decode(`{"income":"` + strings.Repeat("x", maxBodyBytes) + `"}`); err == nil {
		t.Errorf("oversized body accepted")
	}
}

func TestWantsSVG(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if wantsSVG(r) {
		t.Errorf("no Accept header")
	}
	r.Header.Set("Accept", "image/svg+xml, */*")
	if !wantsSVG(r) {
		t.Errorf("svg accept not detected")
	}
}
