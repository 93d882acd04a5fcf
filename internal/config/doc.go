// SPDX-License-Identifier: MPL-2.0

// Package config loads vshell settings with Viper.
//
// Settings come from, in increasing precedence: built-in defaults, the
// config file ($XDG_CONFIG_HOME/vshell/config.yaml unless --config names
// another), and VSHELL_* environment variables. YAML, TOML, JSON and CUE
// files are accepted. Whatever the source, the merged settings are checked
// against the embedded CUE schema (schema.cue) before they are decoded.
package config
