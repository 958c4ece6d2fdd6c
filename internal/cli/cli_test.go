package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/logger"
)

const sampleCache = `workspaces:
  home:
    displayName: Home
    description: Dotfiles and scripts
    tags: [personal]
    verbAliases:
      exec: [x]
  work: {}
workspaceLocations:
  home: /home/me
  work: /src/work
`

// fakeFlow installs a shell script as the flow binary for this test.
// Debug builds honour FLOW_BINARY_PATH, and /bin/sh as SHELL skips profile
// sourcing.
func fakeFlow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	t.Setenv(config.EnvBinaryPath, path)
	return path
}

// testEnv isolates settings, shell and cache location.
func testEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvShell, "/bin/sh")
	cacheDir := t.TempDir()
	t.Setenv(config.EnvCacheDir, cacheDir)

	oldVersion, oldLog := version, logger.Default()
	version = "dev"
	t.Cleanup(func() {
		version = oldVersion
		logger.SetDefault(oldLog)
		appConfig = config.DefaultConfig()
	})
	return cacheDir
}

func writeCache(t *testing.T, cacheDir, content string) string {
	t.Helper()
	path := filepath.Join(cacheDir, "latestcache", "workspace")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with fresh flag state.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	machineMode, verbose, noColor, cfgFile = false, false, false, ""
	runParams, runFormat, runQuiet, versionShort = nil, "generic", false, false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExecCommand(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo "$@"`)

	stdout, stderr, err := runCLI(t, "exec", "workspace", "list", "--output", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "workspace list --output yaml\n", stdout)
	// Dev mode logs the command line.
	assert.Contains(t, stderr, "running:")
}

func TestExecCommand_JSON(t *testing.T) {
	testEnv(t)
	bin := fakeFlow(t, `printf 'synced'`)

	stdout, _, err := runCLI(t, "--json", "exec", "sync")
	require.NoError(t, err)

	var env struct {
		Success bool       `json:"success"`
		Data    ExecOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "synced", env.Data.Output)
	assert.Equal(t, bin+" sync", env.Data.Command)
}

func TestExecCommand_NonZeroExit(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo nope >&2; exit 3`)

	_, _, err := runCLI(t, "exec", "workspace", "get", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNonZeroExit))
	assert.Equal(t, 3, errors.ExitCode(err))
	assert.Equal(t, 3, exitCodeFor(err))
}

func TestJSONCommand(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo "{\"args\": \"$*\", \"count\": 2}"`)

	stdout, _, err := runCLI(t, "json", "workspace", "list")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "workspace list --output json", got["args"])
	assert.Equal(t, float64(2), got["count"])
	assert.Contains(t, stdout, "\n  \"count\"")
}

func TestJSONCommand_ParseError(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo "not json"`)

	_, _, err := runCLI(t, "json", "config", "get")
	require.Error(t, err)
	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindParse, cmdErr.Kind)
	assert.Equal(t, "not json\n", cmdErr.Output)
}

func TestRunCommand_Console(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo "out $*"; echo "warn" >&2`)

	stdout, stderr, err := runCLI(t, "run", "exec", "my/ws:app", "--param", "b=2", "-p", "a=1", "--", "--fast")
	require.NoError(t, err)
	assert.Equal(t, "out exec my/ws:app --fast --param a=1 --param b=2\n", stdout)
	assert.Contains(t, stderr, "warn\n")
	assert.Contains(t, stderr, "✓ ")
	assert.Contains(t, stderr, "exit 0")
}

func TestRunCommand_Quiet(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo hi`)

	_, stderr, err := runCLI(t, "run", "--quiet", "exec", "ws:app")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "exit 0")
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo failing; exit 4`)

	stdout, stderr, err := runCLI(t, "run", "exec", "ws:test")
	require.Error(t, err)

	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 4, code)
	assert.Equal(t, "failing\n", stdout)
	assert.Contains(t, stderr, "exit 4")
	assert.Contains(t, stderr, "Command failed with exit code 4")
}

func TestRunCommand_JSONLines(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo one; echo two`)

	stdout, _, err := runCLI(t, "--json", "run", "exec", "ws:app")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)

	var last struct {
		Event   string `json:"event"`
		Payload struct {
			Success  bool `json:"success"`
			ExitCode *int `json:"exit_code"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "command-complete", last.Event)
	assert.True(t, last.Payload.Success)
	require.NotNil(t, last.Payload.ExitCode)
	assert.Equal(t, 0, *last.Payload.ExitCode)
	assert.Contains(t, lines[0], `"line":"one"`)
}

func TestRunCommand_InvalidInput(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `exit 0`)

	_, _, err := runCLI(t, "run", "exec", "ws:app", "--param", "novalue")
	assert.True(t, errors.IsCode(err, errors.ErrUsage))

	_, _, err = runCLI(t, "run", "exec", "ws:app", "--format", "fancy")
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
	assert.Contains(t, err.Error(), "generic, passthrough")
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, map[string]string{}, false},
		{"simple", []string{"env=staging"}, map[string]string{"env": "staging"}, false},
		{"value with equals", []string{"q=a=b"}, map[string]string{"q": "a=b"}, false},
		{"empty value", []string{"flag="}, map[string]string{"flag": ""}, false},
		{"later wins", []string{"k=1", "k=2"}, map[string]string{"k": "2"}, false},
		{"missing equals", []string{"env"}, nil, true},
		{"missing key", []string{"=v"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrUsage))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCachePathCommand(t *testing.T) {
	cacheDir := testEnv(t)

	stdout, _, err := runCLI(t, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "latestcache", "workspace")+"\n", stdout)
}

func TestCacheShowCommand(t *testing.T) {
	cacheDir := testEnv(t)
	writeCache(t, cacheDir, sampleCache)

	stdout, _, err := runCLI(t, "cache", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "home (Home)")
	assert.Contains(t, stdout, "/src/work")

	stdout, _, err = runCLI(t, "cache", "show", "home")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dotfiles and scripts")
	assert.Contains(t, stdout, "personal")
	assert.Contains(t, stdout, "alias exec")

	_, _, err = runCLI(t, "cache", "show", "nope")
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
}

func TestCacheShowCommand_JSON(t *testing.T) {
	cacheDir := testEnv(t)
	writeCache(t, cacheDir, sampleCache)

	stdout, _, err := runCLI(t, "--json", "cache", "show")
	require.NoError(t, err)

	var env struct {
		Data struct {
			WorkspaceLocations map[string]string `json:"workspaceLocations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, "/home/me", env.Data.WorkspaceLocations["home"])
}

func TestCacheShowCommand_MissingFileIsEmpty(t *testing.T) {
	testEnv(t)

	stdout, _, err := runCLI(t, "cache", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No workspaces registered")
}

func TestCacheShowCommand_Malformed(t *testing.T) {
	cacheDir := testEnv(t)
	writeCache(t, cacheDir, "workspaces: [\n")

	_, _, err := runCLI(t, "cache", "show")
	assert.True(t, errors.IsCode(err, errors.ErrCache))
}

func TestDoctorCommand_JSON(t *testing.T) {
	cacheDir := testEnv(t)
	writeCache(t, cacheDir, sampleCache)
	fakeFlow(t, `echo "flow version 9.9.9"`)

	stdout, _, err := runCLI(t, "--json", "doctor")
	require.NoError(t, err)

	var env struct {
		Data DoctorOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))

	// Dev mode and the unrecognised /bin/sh shell are warnings.
	assert.Equal(t, 0, env.Data.Summary.Fail)
	assert.Equal(t, 2, env.Data.Summary.Warn)
	assert.False(t, env.Data.Summary.AllClear)
	assert.Len(t, env.Data.Results, 6)
}

func TestDoctorCommand_MissingBinaryFails(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvBinaryPath, filepath.Join(t.TempDir(), "missing-flow"))

	stdout, _, err := runCLI(t, "doctor")
	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "flow not usable")
	assert.Contains(t, stdout, "issues found")
}

func TestVersionCommand(t *testing.T) {
	testEnv(t)
	fakeFlow(t, `echo "flow version 1.0.0"`)

	stdout, _, err := runCLI(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)

	stdout, _, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "flowbridge dev")
	assert.Contains(t, stdout, "flow: flow version 1.0.0")
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
	assert.Equal(t, "", formatVersion(""))
}

func TestSetup_InvalidConfig(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	_, _, err := runCLI(t, "--config", path, "cache", "path")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestCompletionCommand(t *testing.T) {
	testEnv(t)

	stdout, _, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "flowbridge")
}
