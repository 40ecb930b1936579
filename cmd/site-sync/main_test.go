package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/backend/memory"
	"github.com/yuya-takeyama/site-sync/pkg/factory"
)

var testStorage *memory.Backend

func init() {
	factory.RegisterStorage("memory", func() backend.Backend { return testStorage })
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GITHUB_WORKSPACE", "")
	for _, key := range []string{"SYNC_DIR", "SYNC_TYPE", "SYNC_BUCKET", "SYNC_REGION", "SYNC_OPT_UNUSED", "SYNC_EXCLUDE"} {
		t.Setenv(key, "")
		t.Setenv(strings.ToLower(key), "")
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func siteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "site.css"), []byte("body{}"), 0644))
	return dir
}

func TestRunSync(t *testing.T) {
	testStorage = memory.New()
	testStorage.Put("css/site.css", []byte("old"))
	testStorage.Put("stale.txt", []byte("gone"))

	dir := siteDir(t)
	resultFile := filepath.Join(t.TempDir(), "result.json")

	out, err := runCmd(t, "--type", "memory", "--bucket", "site", "--dir", dir,
		"--unused", "delete", "--result-json-file", resultFile)
	require.NoError(t, err, out)

	assert.Equal(t, []string{"css/site.css", "index.html"}, testStorage.Keys())
	assert.Contains(t, out, "upload: ")
	assert.Contains(t, out, "memory://site/index.html")
	assert.Contains(t, out, "delete: memory://site/stale.txt")

	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)
	var result SyncResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.Summary.Created)
	assert.Equal(t, 1, result.Summary.Updated)
	assert.Equal(t, 1, result.Summary.Deleted)
	assert.Empty(t, result.Errors)
}

func TestRunDryRun(t *testing.T) {
	testStorage = memory.New()
	dir := siteDir(t)
	planFile := filepath.Join(t.TempDir(), "plan.json")
	resultFile := filepath.Join(t.TempDir(), "result.json")

	out, err := runCmd(t, "--type", "memory", "--bucket", "site", "--dir", dir, "--dryrun",
		"--plan-json-file", planFile, "--result-json-file", resultFile)
	require.NoError(t, err, out)

	assert.Empty(t, testStorage.Uploads())
	assert.Contains(t, out, "(dryrun) upload: ")

	data, err := os.ReadFile(planFile)
	require.NoError(t, err)
	var plan PlanResult
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, 2, plan.Summary.Create)
	require.Len(t, plan.Files, 2)
	assert.Equal(t, "memory://site/css/site.css", plan.Files[0].Target)

	_, err = os.Stat(resultFile)
	assert.True(t, os.IsNotExist(err), "no result file on dry run")
}

func TestRunFailures(t *testing.T) {
	testStorage = memory.New()
	testStorage.UploadErr = func(key string) error {
		if key == "index.html" {
			return assert.AnError
		}
		return nil
	}
	dir := siteDir(t)
	resultFile := filepath.Join(t.TempDir(), "result.json")

	_, err := runCmd(t, "--type", "memory", "--bucket", "site", "--dir", dir, "--result-json-file", resultFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 operations failed")

	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)
	var result SyncResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.Summary.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "create", result.Errors[0].Action)
	assert.Equal(t, "memory://site/index.html", result.Errors[0].Target)
}

func TestRunReportsWriteFailures(t *testing.T) {
	testStorage = memory.New()
	testStorage.UploadErr = func(key string) error {
		if key == "index.html" {
			return assert.AnError
		}
		return nil
	}
	dir := siteDir(t)
	resultFile := filepath.Join(t.TempDir(), "missing", "result.json")

	out, err := runCmd(t, "--type", "memory", "--bucket", "site", "--dir", dir, "--result-json-file", resultFile)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "1 operations failed")
	assert.Contains(t, err.Error(), "failed to write result JSON")
	assert.Contains(t, out, "write result failed: "+resultFile)
	assert.Contains(t, out, "sync finished with errors")
	assert.Contains(t, out, "Error: ")
}

func TestRunPrintsConfigErrors(t *testing.T) {
	testStorage = memory.New()

	out, err := runCmd(t, "--type", "ftp", "--bucket", "b")
	require.Error(t, err)
	assert.Contains(t, out, "Error: "+err.Error())
}

func TestRunConfigErrors(t *testing.T) {
	testStorage = memory.New()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown type", []string{"--type", "ftp", "--bucket", "b"}, "sync_type"},
		{"missing bucket", []string{"--type", "memory"}, "sync_bucket"},
		{"bad unused", []string{"--type", "memory", "--bucket", "b", "--unused", "purge"}, "sync_opt_unused"},
		{"missing dir", []string{"--type", "memory", "--bucket", "b", "--dir", "/does/not/exist"}, "/does/not/exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, testStorage.Uploads())
		})
	}
}
