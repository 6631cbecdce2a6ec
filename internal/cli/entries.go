package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"bilancio/internal/core"
)

// EntriesFile is the on-disk shape of a budget for the render command:
//
//	income:
//	  - {label: Salary, value: "2500"}
//	expense:
//	  - {label: Rent, value: "900"}
type EntriesFile struct {
	Income  []core.RawEntry `json:"income" yaml:"income" toml:"income"`
	Expense []core.RawEntry `json:"expense" yaml:"expense" toml:"expense"`
}

// LoadEntriesFile reads a yaml, json or toml entries file, picked by
// extension.
func LoadEntriesFile(path string) (EntriesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EntriesFile{}, fmt.Errorf("read entries file: %w", err)
	}
	f, err := ParseEntries(data, filepath.Ext(path))
	if err != nil {
		return EntriesFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseEntries decodes data in the format named by ext (".yaml", ".yml",
// ".json" or ".toml").
func ParseEntries(data []byte, ext string) (EntriesFile, error) {
	var f EntriesFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return EntriesFile{}, fmt.Errorf("decode yaml: %w", err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return EntriesFile{}, fmt.Errorf("decode json: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return EntriesFile{}, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return EntriesFile{}, fmt.Errorf("decode toml: unknown key %s", undecoded[0])
		}
	default:
		return EntriesFile{}, fmt.Errorf("unsupported entries format %q (use .yaml, .json or .toml)", ext)
	}
	if len(f.Income) > core.MaxEntriesPerSide || len(f.Expense) > core.MaxEntriesPerSide {
		return EntriesFile{}, core.ErrTooManyItems
	}
	return f, nil
}
