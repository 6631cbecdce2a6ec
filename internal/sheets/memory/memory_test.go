package memory

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestSource(t *testing.T) {
	s := New([]core.RawEntry{{Label: "Salary", Value: "10"}}, nil)

	income, expense, err := s.ReadEntries(context.Background())
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(income) != 1 || len(expense) != 0 {
		t.Fatalf("ReadEntries() = %v, %v", income, expense)
	}

	income[0].Label = "changed"
	again, _, _ := s.ReadEntries(context.Background())
	if again[0].Label != "Salary" {
		t.Errorf("ReadEntries() leaked internal slice")
	}

	boom := errors.New("boom")
	s.SetError(boom)
	if _, _, err := s.ReadEntries(context.Background()); !errors.Is(err, boom) {
		t.Errorf("ReadEntries() error = %v, want %v", err, boom)
	}
	if s.Reads() != 3 {
		t.Errorf("Reads() = %d, want 3", s.Reads())
	}
}
