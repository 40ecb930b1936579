package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-sync/pkg/planner"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// clearEnv blanks every setting so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(workspaceEnv, "")
	for _, key := range keys {
		t.Setenv(key, "")
		t.Setenv(strings.ToUpper(key), "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "_site", c.Dir)
	assert.Equal(t, "aws", c.Type)
	assert.Equal(t, planner.UnusedKeep, c.Unused)
	assert.Equal(t, 8, c.Concurrency)
	assert.Equal(t, 5*time.Minute, c.Timeout)
	assert.False(t, c.FailFast)
	assert.Empty(t, c.Excludes)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("sync_dir", "public")
	t.Setenv("sync_type", "Cloudflare")
	t.Setenv("sync_region", "acct123")
	t.Setenv("SYNC_BUCKET", "site")
	t.Setenv("sync_access_id", "id")
	t.Setenv("sync_access_secret", "secret")
	t.Setenv("sync_opt_unused", "delete")
	t.Setenv("SYNC_EXCLUDE", ".git/, **/*.map")
	t.Setenv("SYNC_CONCURRENCY", "4")
	t.Setenv("SYNC_TIMEOUT", "90")
	t.Setenv("SYNC_FAIL_FAST", "true")

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "public", c.Dir)
	assert.Equal(t, "cloudflare", c.Type)
	assert.Equal(t, planner.UnusedDelete, c.Unused)
	assert.Equal(t, []string{".git/", "**/*.map"}, []string(c.Excludes))
	assert.Equal(t, 4, c.Concurrency)
	assert.Equal(t, 90*time.Second, c.Timeout)
	assert.True(t, c.FailFast)

	s := c.Settings()
	assert.Equal(t, "acct123", s.Region)
	assert.Equal(t, "site", s.Bucket)
	assert.Equal(t, "id", s.AccessID)
	assert.Equal(t, "secret", s.AccessSecret)
}

func TestUpperCaseWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYNC_BUCKET", "upper")
	t.Setenv("sync_bucket", "lower")

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "upper", c.Bucket)
}

func TestGitHubWorkspace(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	t.Setenv(workspaceEnv, ws)

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "_site"), c.Dir)

	abs := filepath.Join(t.TempDir(), "out")
	t.Setenv("SYNC_DIR", abs)
	c, err = Load(New())
	require.NoError(t, err)
	assert.Equal(t, abs, c.Dir)
}

func TestFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYNC_BUCKET", "from-env")
	t.Setenv("SYNC_REGION", "us-west-2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("bucket", "", "")
	flags.String("region", "", "")
	flags.StringSlice("exclude", nil, "")
	flags.Int("concurrency", 0, "")
	require.NoError(t, flags.Parse([]string{"--bucket", "from-flag", "--exclude", "a/,b/*", "--concurrency", "2"}))

	v := New()
	require.NoError(t, BindFlags(v, flags))
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", c.Bucket)
	assert.Equal(t, "us-west-2", c.Region)
	assert.Equal(t, []string{"a/", "b/*"}, []string(c.Excludes))
	assert.Equal(t, 2, c.Concurrency)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
		wantErr error
	}{
		{"blank dir", map[string]string{"SYNC_DIR": " "}, KeyDir, syncerr.ErrMissing},
		{"blank type", map[string]string{"SYNC_TYPE": " "}, KeyType, syncerr.ErrMissing},
		{"unknown policy", map[string]string{"sync_opt_unused": "purge"}, KeyUnused, syncerr.ErrInvalid},
		{"bad exclude", map[string]string{"SYNC_EXCLUDE": "[a-"}, KeyExclude, syncerr.ErrInvalid},
		{"zero concurrency", map[string]string{"SYNC_CONCURRENCY": "0"}, KeyConcurrency, syncerr.ErrInvalid},
		{"bad concurrency", map[string]string{"SYNC_CONCURRENCY": "many"}, KeyConcurrency, syncerr.ErrInvalid},
		{"bad timeout", map[string]string{"SYNC_TIMEOUT": "soon"}, KeyTimeout, syncerr.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(New())
			var cfgErr *syncerr.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("sync_bucket=dotenv-bucket\nSYNC_REGION=eu-west-1\n"), 0600))
	t.Setenv("SYNC_REGION", "already-set")
	os.Unsetenv("sync_bucket")

	require.NoError(t, LoadDotenv(path))

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "dotenv-bucket", c.Bucket)
	assert.Equal(t, "already-set", c.Region)

	assert.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), "missing.env")))
}
