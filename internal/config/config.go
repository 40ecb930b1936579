// Package config resolves the sync settings from flags, the environment and
// an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/factory"
	"github.com/yuya-takeyama/site-sync/pkg/inventory"
	"github.com/yuya-takeyama/site-sync/pkg/planner"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// Setting names. Each is read from the environment in upper or lower case.
const (
	KeyDir          = "sync_dir"
	KeyType         = factory.KeyType
	KeyRegion       = backend.KeyRegion
	KeyBucket       = backend.KeyBucket
	KeyAccessID     = backend.KeyAccessID
	KeyAccessSecret = backend.KeyAccessSecret
	KeyEndpoint     = backend.KeyEndpoint
	KeyUnused       = "sync_opt_unused"
	KeyExclude      = "sync_exclude"
	KeyConcurrency  = "sync_concurrency"
	KeyTimeout      = "sync_timeout"
	KeyFailFast     = "sync_fail_fast"
)

const workspaceEnv = "GITHUB_WORKSPACE"

var keys = []string{
	KeyDir, KeyType, KeyRegion, KeyBucket, KeyAccessID, KeyAccessSecret, KeyEndpoint,
	KeyUnused, KeyExclude, KeyConcurrency, KeyTimeout, KeyFailFast,
}

// flagNames maps command-line flags to settings. Credentials have no flag.
var flagNames = map[string]string{
	"dir":         KeyDir,
	"type":        KeyType,
	"region":      KeyRegion,
	"bucket":      KeyBucket,
	"endpoint":    KeyEndpoint,
	"unused":      KeyUnused,
	"exclude":     KeyExclude,
	"concurrency": KeyConcurrency,
	"timeout":     KeyTimeout,
	"fail-fast":   KeyFailFast,
}

type Config struct {
	Dir          string
	Type         string
	Region       string
	Bucket       string
	AccessID     string
	AccessSecret string
	Endpoint     string
	Unused       planner.UnusedPolicy
	Excludes     inventory.Excludes
	Concurrency  int
	Timeout      time.Duration
	FailFast     bool
}

// New returns a viper instance with defaults and environment bindings.
// Flag values, once bound with BindFlags, take precedence.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyDir, "_site")
	v.SetDefault(KeyType, "aws")
	v.SetDefault(KeyUnused, string(planner.UnusedKeep))
	v.SetDefault(KeyConcurrency, 8)
	v.SetDefault(KeyTimeout, "5m")
	v.SetDefault(KeyFailFast, false)

	for _, key := range keys {
		_ = v.BindEnv(key, strings.ToUpper(key), key)
	}
	return v
}

// BindFlags binds every known flag present in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagNames {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadDotenv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads and validates the settings. It does not touch the filesystem
// or the network. Backend-specific settings are validated when the backend
// is configured.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Dir:          strings.TrimSpace(v.GetString(KeyDir)),
		Type:         strings.ToLower(strings.TrimSpace(v.GetString(KeyType))),
		Region:       strings.TrimSpace(v.GetString(KeyRegion)),
		Bucket:       strings.TrimSpace(v.GetString(KeyBucket)),
		AccessID:     strings.TrimSpace(v.GetString(KeyAccessID)),
		AccessSecret: v.GetString(KeyAccessSecret),
		Endpoint:     strings.TrimSpace(v.GetString(KeyEndpoint)),
		Excludes:     splitList(v.GetStringSlice(KeyExclude)),
		FailFast:     v.GetBool(KeyFailFast),
	}

	if c.Dir == "" {
		return nil, syncerr.Missing(KeyDir)
	}
	if ws := os.Getenv(workspaceEnv); ws != "" && !filepath.IsAbs(c.Dir) {
		c.Dir = filepath.Join(ws, c.Dir)
	}

	if c.Type == "" {
		return nil, syncerr.Missing(KeyType)
	}

	unused, err := planner.ParseUnusedPolicy(v.GetString(KeyUnused))
	if err != nil {
		return nil, &syncerr.ConfigError{Key: KeyUnused, Err: errors.Join(syncerr.ErrInvalid, err)}
	}
	c.Unused = unused

	if err := c.Excludes.Validate(); err != nil {
		return nil, &syncerr.ConfigError{Key: KeyExclude, Err: errors.Join(syncerr.ErrInvalid, err)}
	}

	c.Concurrency = v.GetInt(KeyConcurrency)
	if c.Concurrency < 1 {
		return nil, syncerr.Invalid(KeyConcurrency, "%q must be a positive integer", v.GetString(KeyConcurrency))
	}

	c.Timeout = v.GetDuration(KeyTimeout)
	if secs, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyTimeout))); err == nil {
		c.Timeout = time.Duration(secs) * time.Second
	}
	if c.Timeout <= 0 {
		return nil, syncerr.Invalid(KeyTimeout, "%q must be a positive duration", v.GetString(KeyTimeout))
	}

	return c, nil
}

// Settings returns what the backend needs.
func (c *Config) Settings() backend.Settings {
	return backend.Settings{
		Region:       c.Region,
		Bucket:       c.Bucket,
		AccessID:     c.AccessID,
		AccessSecret: c.AccessSecret,
		Endpoint:     c.Endpoint,
	}
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
