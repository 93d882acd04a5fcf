// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

// Output formats accepted by Render.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for anything but yaml, toml
// and json.
var ErrUnknownFormat = errors.New("unknown format")

// Format names a config rendering.
type Format string

// toMapAPI keeps integers as int64 so YAML and TOML print them verbatim.
var toMapAPI = sonic.Config{UseInt64: true, SortMapKeys: true}.Froze()

// ParseFormat validates a --format value. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatYAML, nil
	case FormatYAML, FormatTOML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q (want yaml, toml or json)", ErrUnknownFormat, s)
	}
}

// Render encodes cfg with the snake_case keys the config file uses.
// Passwords and secret keys are masked.
func Render(cfg *Config, format Format) ([]byte, error) {
	redacted := *cfg
	redacted.Users = make([]UserConfig, len(cfg.Users))
	for i, u := range cfg.Users {
		if u.Password != "" {
			u.Password = "********"
		}
		redacted.Users[i] = u
	}
	if redacted.Persistence.S3.SecretKey != "" {
		redacted.Persistence.S3.SecretKey = "********"
	}

	if format == FormatJSON {
		out, err := toMapAPI.MarshalIndent(&redacted, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		return append(out, '\n'), nil
	}

	raw, err := toMapAPI.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var tree map[string]any
	if err := toMapAPI.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	pruneNil(tree)

	switch format {
	case FormatYAML:
		return yaml.Marshal(tree)
	case FormatTOML:
		return toml.Marshal(tree)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

// pruneNil drops null values, which TOML cannot represent.
func pruneNil(m map[string]any) {
	for k, v := range m {
		switch tv := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			pruneNil(tv)
		case []any:
			for _, item := range tv {
				if sub, ok := item.(map[string]any); ok {
					pruneNil(sub)
				}
			}
		}
	}
}
