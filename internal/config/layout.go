package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"bilancio/internal/flow"
)

// LoadLayout returns the diagram constants. An empty path yields the
// defaults; otherwise the TOML file at path overrides whichever keys it sets.
// Unknown keys are rejected so typos do not pass silently.
func LoadLayout(path string) (flow.Params, error) {
	p := flow.DefaultParams()
	if path == "" {
		return p, nil
	}

	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return flow.Params{}, fmt.Errorf("decode layout file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return flow.Params{}, fmt.Errorf("layout file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := validateLayout(p); err != nil {
		return flow.Params{}, fmt.Errorf("layout file %s: %w", path, err)
	}
	return p, nil
}

func validateLayout(p flow.Params) error {
	var errors []string
	if p.NodeWidth <= 0 {
		errors = append(errors, fmt.Sprintf("node_width %v must be positive", p.NodeWidth))
	}
	if p.NodePadding < 0 {
		errors = append(errors, fmt.Sprintf("node_padding %v must not be negative", p.NodePadding))
	}
	if p.MinNodeHeight <= 0 {
		errors = append(errors, fmt.Sprintf("min_node_height %v must be positive", p.MinNodeHeight))
	}
	if p.MinZoom <= 0 || p.MaxZoom < p.MinZoom {
		errors = append(errors, fmt.Sprintf("zoom range [%v, %v] is invalid", p.MinZoom, p.MaxZoom))
	}
	if p.SettleDuration < 0 || p.FadeDuration < 0 {
		errors = append(errors, "durations must not be negative")
	}
	if len(errors) > 0 {
		return fmt.Errorf("invalid layout:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
