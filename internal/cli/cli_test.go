package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

const yamlEntries = `
income:
  - label: Salary
    value: 2500
expense:
  - label: Rent
    value: "900,50"
  - label: Food
    value: "300"
`

func TestParseEntries_Formats(t *testing.T) {
	want := EntriesFile{
		Income:  []core.RawEntry{{Label: "Salary", Value: "2500"}},
		Expense: []core.RawEntry{{Label: "Rent", Value: "900,50"}, {Label: "Food", Value: "300"}},
	}

	tests := []struct {
		ext  string
		data string
	}{
		{".yaml", yamlEntries},
		{".YML", yamlEntries},
		{".json", `{"income":[{"label":"Salary","value":"2500"}],"expense":[{"label":"Rent","value":"900,50"},{"label":"Food","value":"300"}]}`},
		{".toml", `
[[income]]
label = "Salary"
value = "2500"

[[expense]]
label = "Rent"
value = "900,50"

[[expense]]
label = "Food"
value = "300"
`},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := ParseEntries([]byte(tt.data), tt.ext)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseEntries_Errors(t *testing.T) {
	_, err := ParseEntries([]byte("x"), ".csv")
	assert.ErrorContains(t, err, "unsupported")

	_, err = ParseEntries([]byte(`{"incomes":[]}`), ".json")
	assert.Error(t, err)

	_, err = ParseEntries([]byte("bogus: 1\n"), ".yaml")
	assert.Error(t, err)

	_, err = ParseEntries([]byte("nope = 1\n"), ".toml")
	assert.ErrorContains(t, err, "unknown key")

	var many strings.Builder
	many.WriteString("income:\n")
	for i := 0; i <= core.MaxEntriesPerSide; i++ {
		many.WriteString("  - {label: x, value: \"1\"}\n")
	}
	_, err = ParseEntries([]byte(many.String()), ".yaml")
	assert.ErrorIs(t, err, core.ErrTooManyItems)

	got, err := ParseEntries(nil, ".yaml")
	require.NoError(t, err)
	assert.Empty(t, got.Income)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	totals := PrintSummary(&buf,
		[]core.RawEntry{{Label: "Salary", Value: "1000"}},
		[]core.RawEntry{{Label: "Rent", Value: "1250"}, {Label: "Typo", Value: "abc"}},
	)

	assert.Equal(t, 1000.0, totals.Income)
	assert.Equal(t, 1250.0, totals.Expense)
	assert.Equal(t, 250.0, totals.Debt)
	out := buf.String()
	assert.Contains(t, out, "Debt")
	assert.NotContains(t, out, "Savings")
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestRenderCommand_Stdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "march.yaml", yamlEntries)

	cmd := NewRenderCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{path, "--width", "800", "--height", "400"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(stdout.String(), "<svg"))
	assert.Contains(t, stdout.String(), `width="800"`)
	assert.Contains(t, stdout.String(), "Salary")
	assert.Contains(t, stderr.String(), "Savings")
}

func TestRenderCommand_OutFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.json", `{"income":[],"expense":[{"label":"Rent","value":"-5"}]}`)
	out := filepath.Join(dir, "diagram.svg")

	cmd := NewRenderCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{path, "-o", out})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, stdout.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Add some income or expenses")
	assert.Contains(t, stderr.String(), "Wrote")

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".bilancio-*"))
	assert.Empty(t, leftovers)
}

func TestRenderCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", nil, "entries file or --sheet"},
		{"both inputs", []string{"a.yaml", "--sheet"}, "not both"},
		{"watch without out", []string{"a.yaml", "--watch"}, "--watch needs --out"},
		{"tiny canvas", []string{"a.yaml", "--width", "10"}, "out of range"},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.yaml")}, "read entries file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRenderCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWatch_ReRendersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "budget.yaml", yamlEntries)

	cfg := applog.DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	logger := applog.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logger, func() error {
			calls <- struct{}{}
			return nil
		})
	}()

	// Keep touching the file until the watcher has picked it up: the watch is
	// registered asynchronously.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case <-calls:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(yamlEntries+"\n"), 0o644))
		case <-deadline:
			t.Fatal("watch callback never ran")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "out.svg", "old")

	require.NoError(t, writeFileAtomic(path, []byte("new")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
