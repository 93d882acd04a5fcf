// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/invowk/vshell/internal/persist"
	"github.com/invowk/vshell/pkg/types"
)

// Defaults applied before any file or environment override.
const (
	DefaultHostname      = "vshell"
	DefaultUser          = "alice"
	DefaultSudoersPath   = "/etc/sudoers"
	DefaultPasswordTries = 3
	DefaultBcryptCost    = 10
	DefaultLogLevel      = "warn"
	DefaultQuotaBytes    = 1 << 20
	DefaultSnapshotKey   = "vfs.json"
	DefaultPostgresTable = "vshell_snapshots"
	DefaultSSHHost       = "127.0.0.1"
	DefaultSSHPort       = 2222
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the full set of vshell settings.
	Config struct {
		Hostname      string       `json:"hostname" mapstructure:"hostname"`
		QuotaBytes    int64        `json:"quota_bytes" mapstructure:"quota_bytes"`
		DefaultUser   string       `json:"default_user" mapstructure:"default_user"`
		SudoersPath   string       `json:"sudoers_path" mapstructure:"sudoers_path"`
		PasswordTries int          `json:"password_tries" mapstructure:"password_tries"`
		BcryptCost    int          `json:"bcrypt_cost" mapstructure:"bcrypt_cost"`
		LogLevel      string       `json:"log_level" mapstructure:"log_level"`
		Users         []UserConfig `json:"users" mapstructure:"users"`
		Groups        []string     `json:"groups" mapstructure:"groups"`
		Persistence   Persistence  `json:"persistence" mapstructure:"persistence"`
		SSH           SSHConfig    `json:"ssh" mapstructure:"ssh"`
	}

	// UserConfig declares an account created at startup.
	UserConfig struct {
		Name     string   `json:"name" mapstructure:"name"`
		Password string   `json:"password,omitempty" mapstructure:"password"`
		Groups   []string `json:"groups,omitempty" mapstructure:"groups"`
	}

	// Persistence selects the snapshot backend.
	Persistence struct {
		Backend  string         `json:"backend" mapstructure:"backend"`
		Key      string         `json:"key" mapstructure:"key"`
		File     FileConfig     `json:"file" mapstructure:"file"`
		Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
		S3       S3Config       `json:"s3" mapstructure:"s3"`
	}

	// FileConfig configures the local file backend. An empty Dir means the
	// XDG data directory.
	FileConfig struct {
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// PostgresConfig configures the Postgres backend.
	PostgresConfig struct {
		DSN   string `json:"dsn" mapstructure:"dsn"`
		Table string `json:"table" mapstructure:"table"`
	}

	// S3Config configures the S3 backend.
	S3Config struct {
		Bucket    string `json:"bucket" mapstructure:"bucket"`
		Prefix    string `json:"prefix" mapstructure:"prefix"`
		Region    string `json:"region" mapstructure:"region"`
		Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		PathStyle bool   `json:"path_style" mapstructure:"path_style"`
	}

	// SSHConfig configures `vshell serve`. An empty HostKeyPath means a key
	// kept in the XDG data directory.
	SSHConfig struct {
		Host        string           `json:"host" mapstructure:"host"`
		Port        types.ListenPort `json:"port" mapstructure:"port"`
		HostKeyPath string           `json:"host_key_path" mapstructure:"host_key_path"`
	}

	// InvalidConfigError collects every field that failed validation.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when nothing overrides it:
// three demo users, alice with full sudo, bob in wheel, and an in-memory
// filesystem of 1 MiB.
func DefaultConfig() *Config {
	return &Config{
		Hostname:      DefaultHostname,
		QuotaBytes:    DefaultQuotaBytes,
		DefaultUser:   DefaultUser,
		SudoersPath:   DefaultSudoersPath,
		PasswordTries: DefaultPasswordTries,
		BcryptCost:    DefaultBcryptCost,
		LogLevel:      DefaultLogLevel,
		Users: []UserConfig{
			{Name: "alice", Password: "alice"},
			{Name: "bob", Password: "bob", Groups: []string{"wheel"}},
			{Name: "carol", Password: "carol"},
		},
		Groups: []string{"wheel"},
		Persistence: Persistence{
			Backend:  persist.BackendMemory,
			Key:      DefaultSnapshotKey,
			Postgres: PostgresConfig{Table: DefaultPostgresTable},
		},
		SSH: SSHConfig{Host: DefaultSSHHost, Port: DefaultSSHPort},
	}
}

// Validate checks the decoded values, including those that came from the
// environment and so never passed through the schema.
func (c *Config) Validate() error {
	var errs []error
	if c.Hostname == "" {
		errs = append(errs, errors.New("hostname: must not be empty"))
	}
	if c.QuotaBytes < 0 {
		errs = append(errs, fmt.Errorf("quota_bytes: %d is negative", c.QuotaBytes))
	}
	if c.PasswordTries < 1 {
		errs = append(errs, fmt.Errorf("password_tries: %d is below 1", c.PasswordTries))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := c.SSH.Port.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ssh.port: %w", err))
	}
	switch c.Persistence.Backend {
	case persist.BackendMemory, persist.BackendFile:
	case persist.BackendPostgres:
		if c.Persistence.Postgres.DSN == "" {
			errs = append(errs, errors.New("persistence.postgres.dsn: required for the postgres backend"))
		}
	case persist.BackendS3:
		if c.Persistence.S3.Bucket == "" {
			errs = append(errs, errors.New("persistence.s3.bucket: required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("persistence.backend: unknown backend %q", c.Persistence.Backend))
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if seen[u.Name] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate user %q", i, u.Name))
		}
		seen[u.Name] = true
	}
	if c.DefaultUser != "root" && !slices.ContainsFunc(c.Users, func(u UserConfig) bool { return u.Name == c.DefaultUser }) {
		errs = append(errs, fmt.Errorf("default_user: %q is not declared in users", c.DefaultUser))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// PersistSpec converts the persistence section into an adapter spec.
// dataDir fills in the file backend directory when none is configured.
func (c *Config) PersistSpec(dataDir string) persist.Spec {
	p := c.Persistence
	dir := p.File.Dir
	if dir == "" {
		dir = dataDir
	}
	return persist.Spec{
		Backend:     p.Backend,
		FileDir:     dir,
		PostgresDSN: p.Postgres.DSN,
		Table:       p.Postgres.Table,
		S3: persist.S3Config{
			Bucket:    p.S3.Bucket,
			Prefix:    p.S3.Prefix,
			Region:    p.S3.Region,
			Endpoint:  p.S3.Endpoint,
			AccessKey: p.S3.AccessKey,
			SecretKey: p.S3.SecretKey,
			PathStyle: p.S3.PathStyle,
		},
	}
}

// Level returns the configured log level. Validate guarantees it parses.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
