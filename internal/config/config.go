// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/invowk/vshell/internal/issue"
)

const (
	// AppName is the directory name used under the XDG base directories.
	AppName = "vshell"
	// ConfigFileName is the config file looked up in Dir.
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides (VSHELL_QUOTA_BYTES, ...).
	EnvPrefix = "VSHELL"

	maxConfigFileSize = 1 << 20
)

//go:embed schema.cue
var configSchema string

// Dir returns the vshell configuration directory under $XDG_CONFIG_HOME.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the directory for snapshots and the SSH host key under
// $XDG_DATA_HOME.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// load resolves the config file, merges it over the defaults, applies the
// environment and validates the result. The second return value is the
// file that was read, empty when only defaults applied.
func load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		settings, err := readFile(path)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check the file against the keys listed by 'vshell config show'").
				WithSuggestion("YAML, TOML, JSON and CUE files are accepted; the extension selects the format").
				Wrap(err).
				BuildError()
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, "", fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Environment overrides use the VSHELL_ prefix, e.g. VSHELL_SSH_PORT").
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

// resolvePath picks the explicit file, or the default file when it exists.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the --config path is correct").
				WithSuggestion("Run 'vshell config show' to see the defaults").
				Wrap(fmt.Errorf("config file not found: %w", fs.ErrNotExist)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}
	dir := opts.ConfigDirPath
	if dir == "" {
		dir = Dir()
	}
	p := filepath.Join(dir, ConfigFileName)
	if fileExists(p) {
		return p, nil
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("hostname", d.Hostname)
	v.SetDefault("quota_bytes", d.QuotaBytes)
	v.SetDefault("default_user", d.DefaultUser)
	v.SetDefault("sudoers_path", d.SudoersPath)
	v.SetDefault("password_tries", d.PasswordTries)
	v.SetDefault("bcrypt_cost", d.BcryptCost)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("users", d.Users)
	v.SetDefault("groups", d.Groups)
	v.SetDefault("persistence.backend", d.Persistence.Backend)
	v.SetDefault("persistence.key", d.Persistence.Key)
	v.SetDefault("persistence.file.dir", d.Persistence.File.Dir)
	v.SetDefault("persistence.postgres.dsn", d.Persistence.Postgres.DSN)
	v.SetDefault("persistence.postgres.table", d.Persistence.Postgres.Table)
	v.SetDefault("persistence.s3.bucket", "")
	v.SetDefault("persistence.s3.prefix", "")
	v.SetDefault("persistence.s3.region", "")
	v.SetDefault("persistence.s3.endpoint", "")
	v.SetDefault("persistence.s3.access_key", "")
	v.SetDefault("persistence.s3.secret_key", "")
	v.SetDefault("persistence.s3.path_style", false)
	v.SetDefault("ssh.host", d.SSH.Host)
	v.SetDefault("ssh.port", int(d.SSH.Port))
	v.SetDefault("ssh.host_key_path", d.SSH.HostKeyPath)
}

// readFile decodes a config file into a settings map and checks it against
// the #Config schema. CUE files are compiled directly; every other format
// goes through Viper's decoders first.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return nil, fmt.Errorf("config file is %d bytes, limit is %d", len(data), maxConfigFileSize)
	}

	cctx := cuecontext.New()
	schemaValue := cctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compile config schema: %w", schemaValue.Err())
	}
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))

	var userValue cue.Value
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		userValue = cctx.CompileBytes(data, cue.Filename(path))
	} else {
		fv := viper.New()
		fv.SetConfigFile(path)
		if err := fv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		userValue = cctx.Encode(integralNumbers(fv.AllSettings()))
	}
	if err := userValue.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatCUEError(err)
	}
	var settings map[string]any
	if err := unified.Decode(&settings); err != nil {
		return nil, formatCUEError(err)
	}
	return settings, nil
}

// formatCUEError flattens a CUE error list into one line per problem.
func formatCUEError(err error) error {
	var lines []string
	for _, e := range cueerrors.Errors(err) {
		lines = append(lines, e.Error())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(lines, "; "))
}

// integralNumbers turns whole float64 values, which the JSON decoder
// produces for every number, into int64 so they satisfy int constraints.
func integralNumbers(v any) any {
	switch tv := v.(type) {
	case float64:
		if tv == math.Trunc(tv) && math.Abs(tv) < 1<<53 {
			return int64(tv)
		}
	case map[string]any:
		for k, sub := range tv {
			tv[k] = integralNumbers(sub)
		}
	case []any:
		for i, sub := range tv {
			tv[i] = integralNumbers(sub)
		}
	}
	return v
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
