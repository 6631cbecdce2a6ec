package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bilancio/internal/config"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/render"
	"bilancio/internal/sheets/google"
)

type renderOptions struct {
	width  int
	height int
	out    string
	layout string
	sheet  bool
	watch  bool
}

// NewRenderCommand builds the bilancio-render root command.
func NewRenderCommand() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "bilancio-render [entries-file]",
		Short: "Render a budget flow diagram to SVG",
		Long: "Render income and expense entries as a flow diagram.\n\n" +
			"Entries come from a .yaml, .json or .toml file with income and expense\n" +
			"lists of {label, value} rows, or from the configured Google spreadsheet\n" +
			"with --sheet. A summary is printed to stderr and the SVG is written to\n" +
			"--out, or stdout when no output file is given.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runRender(cmd.Context(), cmd, opts, file)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.width, "width", 960, "canvas width in pixels")
	f.IntVar(&opts.height, "height", 540, "canvas height in pixels")
	f.StringVarP(&opts.out, "out", "o", "", "output SVG file (default stdout)")
	f.StringVar(&opts.layout, "layout", "", "TOML file overriding the diagram layout constants")
	f.BoolVar(&opts.sheet, "sheet", false, "read entries from the spreadsheet configured in the environment")
	f.BoolVarP(&opts.watch, "watch", "w", false, "re-render whenever the entries file changes")

	return cmd
}

func (o renderOptions) validate(file string) error {
	switch {
	case file == "" && !o.sheet:
		return errors.New("an entries file or --sheet is required")
	case file != "" && o.sheet:
		return errors.New("use either an entries file or --sheet, not both")
	case o.watch && file == "":
		return errors.New("--watch needs an entries file")
	case o.watch && o.out == "":
		return errors.New("--watch needs --out")
	case o.width < 100 || o.width > 10000 || o.height < 100 || o.height > 10000:
		return fmt.Errorf("canvas %dx%d out of range (100 to 10000)", o.width, o.height)
	}
	return nil
}

func runRender(ctx context.Context, cmd *cobra.Command, opts renderOptions, file string) error {
	if err := opts.validate(file); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stderr := cmd.ErrOrStderr()
	logCfg := applog.DefaultConfig()
	logCfg.Output = stderr
	logCfg.Component = applog.ComponentCLI
	logger := applog.New(logCfg)

	params, err := config.LoadLayout(opts.layout)
	if err != nil {
		return err
	}

	load := func() (EntriesFile, error) { return LoadEntriesFile(file) }
	if opts.sheet {
		LoadEnvFile()
		cfg := config.Load()
		src, err := google.New(ctx, SheetsConfig(cfg))
		if err != nil {
			return fmt.Errorf("connect to spreadsheet: %w", err)
		}
		load = func() (EntriesFile, error) {
			income, expense, err := src.ReadEntries(ctx)
			return EntriesFile{Income: income, Expense: expense}, err
		}
	}

	once := func() error {
		entries, err := load()
		if err != nil {
			return err
		}
		return renderEntries(cmd.OutOrStdout(), stderr, entries, opts, params)
	}

	if err := once(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return Watch(ctx, file, logger, once)
}

// renderEntries prints the summary and writes the SVG.
func renderEntries(stdout, stderr io.Writer, entries EntriesFile, opts renderOptions, params flow.Params) error {
	PrintSummary(stderr, entries.Income, entries.Expense)

	svg, err := render.Budget(entries.Income, entries.Expense, float64(opts.width), float64(opts.height), params)
	if err != nil {
		return err
	}
	if opts.out == "" {
		_, err := stdout.Write(svg)
		return err
	}
	if err := writeFileAtomic(opts.out, svg); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "  %s %s (%d bytes)\n", labelColor.Sprintf("%-9s", "Wrote"), opts.out, len(svg))
	return nil
}

// writeFileAtomic replaces path in one rename so viewers never see a
// partially written diagram.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bilancio-*.svg")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
