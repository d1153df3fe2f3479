package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/production"
)

// execute runs the root command with args in a clean environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cleanEnv(t)
	return run(t, args...)
}

// cleanEnv moves to an empty directory, so no .env file is found, and
// unsets the settings the commands read.
func cleanEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"ACTORCHART_SNAPSHOT_DIR", "ACTORCHART_SNAPSHOT_FORMAT", "ACTORCHART_REDIS_URL",
		"ACTORCHART_LOG_LEVEL", "ACTORCHART_LOG_FORMAT",
	} {
		if _, set := os.LookupEnv(key); !set {
			continue
		}
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testdata(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return path
}

func TestValidate(t *testing.T) {
	light := testdata(t, "light.yaml")

	out, err := execute(t, "validate", light)
	require.NoError(t, err)
	assert.Contains(t, out, `machine "light", 4 states, 1 global handlers`)

	out, err = run(t, "--format", "json", "validate", light)
	require.NoError(t, err)
	var res ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, "light", res.Machine)
	assert.Equal(t, 4, res.States)
	assert.NotEmpty(t, res.Fingerprint)
}

func TestValidateStrict(t *testing.T) {
	out, err := execute(t, "validate", "--strict", testdata(t, "light.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "countCycle")
}

func TestValidateInvalid(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", testdata(t, "broken.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid definition")

	var res ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "nowhere")

	_, err = run(t, "validate", "missing.yaml")
	require.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", testdata(t, "light.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDot(t *testing.T) {
	light := testdata(t, "light.yaml")

	out, err := execute(t, "dot", "--current", "red", light)
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "light" {`)
	assert.Contains(t, out, `"red" -> "green" [label="TIMER [cycles < 3]"];`)
	assert.Contains(t, out, `"green" -> "yellow" [label="after 1s", style=dashed];`)
	assert.Contains(t, out, "fillcolor=lightgreen")

	out, err = run(t, "--format", "json", "dot", light)
	require.NoError(t, err)
	var v production.DefinitionView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "light", v.ID)

	_, err = run(t, "dot", "--current", "purple", light)
	require.Error(t, err)
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo", "--tick", "2ms", "--cycles", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "traffic-light-demo starts in green")
	assert.Contains(t, out, "green -> yellow")
	assert.Contains(t, out, "yellow -> red")
	assert.Contains(t, out, "red -> green")
	assert.Contains(t, out, "red -> off")
	assert.Contains(t, out, "emit: done")
	assert.Contains(t, out, "finished after 2 cycles")
	assert.NotContains(t, out, "error:")
}

func TestDemoResumesFromFiles(t *testing.T) {
	dir := t.TempDir()
	cleanEnv(t)
	t.Setenv("ACTORCHART_SNAPSHOT_DIR", dir)

	out, err := run(t, "demo", "--tick", "2ms", "--cycles", "1", "--id", "light-1")
	require.NoError(t, err)
	assert.Contains(t, out, "finished after 1 cycles")
	assert.FileExists(t, filepath.Join(dir, "light-1.json"))

	out, err = run(t, "demo", "--tick", "2ms", "--cycles", "1", "--id", "light-1")
	require.NoError(t, err)
	assert.Contains(t, out, "light-1 starts in off")
	assert.Contains(t, out, "off -> green")
	assert.Contains(t, out, "finished after 1 cycles")
}

func TestDemoResumesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cleanEnv(t)
	t.Setenv("ACTORCHART_REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("ACTORCHART_SNAPSHOT_FORMAT", "yaml")

	out, err := run(t, "demo", "--tick", "2ms", "--cycles", "1", "--id", "light-2")
	require.NoError(t, err)
	assert.Contains(t, out, "finished after 1 cycles")
	assert.True(t, mr.Exists("actorchart:checkpoint:light-2"))

	out, err = run(t, "demo", "--tick", "2ms", "--cycles", "1", "--id", "light-2")
	require.NoError(t, err)
	assert.Contains(t, out, "light-2 starts in off")
}

func TestDemoRejectsBadCycles(t *testing.T) {
	_, err := execute(t, "demo", "--cycles", "0")
	require.Error(t, err)
}
