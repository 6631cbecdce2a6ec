package google

import (
	"reflect"
	"testing"

	"bilancio/internal/core"
)

func TestParseEntries(t *testing.T) {
	values := [][]interface{}{
		{"Salary", 2000.0},
		{"Freelance", "350,50"},
		{},
		{"", ""},
		{"# ignored row", 10.0},
		{"Bonus"},
		{"", 12.5},
		{"  Rent ", " 1200 "},
	}

	got := parseEntries(values)
	want := []core.RawEntry{
		{Label: "Salary", Value: "2000"},
		{Label: "Freelance", Value: "350,50"},
		{Label: "Bonus", Value: ""},
		{Label: "", Value: "12.5"},
		{Label: "Rent", Value: "1200"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseEntries() = %#v, want %#v", got, want)
	}
}

func TestParseEntries_Empty(t *testing.T) {
	if got := parseEntries(nil); len(got) != 0 {
		t.Fatalf("parseEntries(nil) = %v, want empty", got)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{1200.0, 0.1, "x", nil, true})
	want := []string{"1200", "0.1", "x", "", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toStrings() = %v, want %v", got, want)
	}
}
