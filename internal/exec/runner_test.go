package exec

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/flowexec/flowbridge/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var posixShell = shell.Shell{Kind: shell.Unknown, Path: "/bin/sh"}

// fakeFlow writes an executable shell script standing in for the flow binary.
func fakeFlow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func newTestRunner(t *testing.T, body string, opts ...Option) *Runner {
	t.Helper()
	base := []Option{WithShell(posixShell), WithLogger(logger.Noop())}
	return NewWithConfig(config.BinaryConfig{BinaryPath: fakeFlow(t, body)}, append(base, opts...)...)
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		name  string
		shell shell.Shell
		args  []string
		want  string
	}{
		{
			name:  "unknown shell has no preamble",
			shell: posixShell,
			args:  []string{"workspace", "list"},
			want:  "flow workspace list",
		},
		{
			name:  "bash sources profile",
			shell: shell.Shell{Kind: shell.Bash},
			args:  []string{"workspace", "list"},
			want:  "source ~/.bashrc 2>/dev/null || source ~/.bash_profile 2>/dev/null || true && flow workspace list",
		},
		{
			name:  "zsh sources profile",
			shell: shell.Shell{Kind: shell.Zsh},
			args:  []string{"sync"},
			want:  "source ~/.zshrc 2>/dev/null || true && flow sync",
		},
		{
			name:  "whitespace argument is quoted",
			shell: posixShell,
			args:  []string{"exec", "ws/greet", "--param", "MSG=hello world"},
			want:  "flow exec ws/greet --param 'MSG=hello world'",
		},
		{
			name:  "no args",
			shell: posixShell,
			want:  "flow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithConfig(config.BinaryConfig{BinaryPath: "flow"}, WithShell(tt.shell), WithLogger(logger.Noop()))
			assert.Equal(t, tt.want, r.CommandString(tt.args))
		})
	}
}

func TestCommandString_ParsesAsShell(t *testing.T) {
	r := NewWithConfig(config.BinaryConfig{BinaryPath: "flow"}, WithShell(shell.Shell{Kind: shell.Bash}))
	cmd := r.CommandString([]string{"exec", "a b", "it's", "$HOME", "x;y"})
	assert.NoError(t, shell.Validate(cmd))
}

func TestBuild(t *testing.T) {
	r := NewWithConfig(config.BinaryConfig{BinaryPath: "flow"}, WithShell(posixShell), WithLogger(logger.Noop()))
	cmd := r.Build(context.Background(), []string{"sync"})

	assert.Equal(t, []string{"/bin/sh", "-c", "flow sync"}, cmd.Args)
	assert.Nil(t, cmd.Stdin)
	assert.Nil(t, cmd.Stdout)
	assert.Nil(t, cmd.Stderr)
}

func TestNew_ResolvesFromEnvironment(t *testing.T) {
	env := config.EnvironmentFromMap(map[string]string{
		config.EnvDevMode:    "true",
		config.EnvBinaryPath: "/opt/flow/bin/flow",
		config.EnvShell:      "/usr/bin/zsh",
	})

	r := New(WithEnvironment(env), WithLogger(logger.Noop()))

	assert.Equal(t, config.BinaryConfig{BinaryPath: "/opt/flow/bin/flow", DevMode: true}, r.Binary())
	assert.Equal(t, shell.Shell{Kind: shell.Zsh}, r.Shell())
}

func TestNew_ReleaseIgnoresOverride(t *testing.T) {
	env := config.EnvironmentFromMap(map[string]string{config.EnvBinaryPath: "/opt/flow"})

	r := New(WithEnvironment(env), WithLogger(logger.Noop()))

	assert.Equal(t, "flow", r.Binary().BinaryPath)
	assert.False(t, r.Binary().DevMode)
	assert.Equal(t, shell.Shell{Kind: shell.Bash}, r.Shell(), "unset SHELL falls back to bash")
}

func TestExecute_Success(t *testing.T) {
	r := newTestRunner(t, `echo "hello $1"`)

	out, err := r.Execute(context.Background(), []string{"world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestExecute_ArgumentsWithSpacesSurvive(t *testing.T) {
	r := newTestRunner(t, `printf '%s|' "$@"`)

	out, err := r.Execute(context.Background(), []string{"a b", "c'd", "$HOME"})
	require.NoError(t, err)
	assert.Equal(t, "a b|c'd|$HOME|", out)
}

func TestExecute_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, `echo out; echo err >&2; exit 2`)

	_, err := r.Execute(context.Background(), []string{"workspace", "get", "nope"})
	require.Error(t, err)

	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindNonZeroExit, cmdErr.Kind)
	assert.Equal(t, 2, cmdErr.Code)
	assert.Equal(t, "stdout: out\n\nstderr: err\n", cmdErr.Output)
	assert.Contains(t, cmdErr.Command, "workspace get nope")
	assert.Empty(t, cmdErr.Suggestion)
}

func TestExecute_NonZeroExitIgnoresStdoutContent(t *testing.T) {
	r := newTestRunner(t, `echo '{"ok":true}'; exit 2`)

	_, err := r.Execute(context.Background(), nil)
	assert.Equal(t, 2, errors.ExitCode(err))
}

func TestExecute_CommandNotFoundSuggestion(t *testing.T) {
	r := NewWithConfig(config.BinaryConfig{BinaryPath: filepath.Join(t.TempDir(), "missing-flow")},
		WithShell(posixShell), WithLogger(logger.Noop()))

	_, err := r.Execute(context.Background(), []string{"--version"})
	require.Error(t, err)

	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, 127, cmdErr.Code)
	assert.NotEmpty(t, cmdErr.Suggestion)
}

func TestExecute_InvalidUTF8(t *testing.T) {
	r := newTestRunner(t, `printf '\377\376'`)

	_, err := r.Execute(context.Background(), nil)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestExecute_SpawnFailure(t *testing.T) {
	r := NewWithConfig(config.BinaryConfig{BinaryPath: "flow"},
		WithShell(shell.Shell{Kind: shell.Unknown, Path: filepath.Join(t.TempDir(), "no-such-shell")}),
		WithLogger(logger.Noop()))

	_, err := r.Execute(context.Background(), []string{"sync"})
	assert.True(t, errors.IsKind(err, errors.KindExecution))
}

func TestExecute_Timeout(t *testing.T) {
	r := newTestRunner(t, `sleep 5`, WithTimeout(100*time.Millisecond))

	start := time.Now()
	_, err := r.Execute(context.Background(), nil)

	assert.True(t, errors.IsKind(err, errors.KindExecution))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecute_Concurrent(t *testing.T) {
	r := newTestRunner(t, `echo "$1"`)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := r.Execute(context.Background(), []string{string(rune('a' + i))})
			if err == nil {
				results[i] = out
			}
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		assert.Equal(t, string(rune('a'+i))+"\n", out)
	}
}

func TestExecute_DevModeLogsCommand(t *testing.T) {
	buf := logger.NewBufferLogger()
	r := NewWithConfig(config.BinaryConfig{BinaryPath: fakeFlow(t, "true"), DevMode: true},
		WithShell(posixShell), WithLogger(buf))

	_, err := r.Execute(context.Background(), []string{"sync"})
	require.NoError(t, err)
	assert.True(t, buf.HasLevel("info"))
	assert.True(t, buf.Contains("sync"))
}

type workspace struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestExecuteJSON_Success(t *testing.T) {
	r := newTestRunner(t, `echo '{"name":"ws","count":3}'`)

	got, err := ExecuteJSON[workspace](context.Background(), r, []string{"workspace", "get", "ws"})
	require.NoError(t, err)
	assert.Equal(t, workspace{Name: "ws", Count: 3}, got)
}

func TestExecuteJSON_AppendsOutputFlag(t *testing.T) {
	r := newTestRunner(t, `printf '{"name":"%s"}' "$*"`)

	args := []string{"workspace", "list"}
	got, err := ExecuteJSON[workspace](context.Background(), r, args)
	require.NoError(t, err)
	assert.Equal(t, "workspace list --output json", got.Name)
	assert.Equal(t, []string{"workspace", "list"}, args, "caller's slice is untouched")
}

func TestWithJSONOutput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"appended", []string{"workspace", "list"}, []string{"workspace", "list", "--output", "json"}},
		{"before separator", []string{"exec", "ws/x", "--", "a"}, []string{"exec", "ws/x", "--output", "json", "--", "a"}},
		{"leading separator", []string{"--", "a"}, []string{"--output", "json", "--", "a"}},
		{"explicit flag kept", []string{"sync", "-o", "yaml"}, []string{"sync", "-o", "yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]string(nil), tt.args...)
			assert.Equal(t, tt.want, withJSONOutput(in))
			assert.Equal(t, tt.args, in, "input slice is untouched")
		})
	}
}

func TestExecuteJSON_OutputFlagBeforeSeparator(t *testing.T) {
	r := newTestRunner(t, `printf '{"name":"%s"}' "$*"`)

	got, err := ExecuteJSON[workspace](context.Background(), r, []string{"exec", "ws/x", "--", "extra"})
	require.NoError(t, err)
	assert.Equal(t, "exec ws/x --output json -- extra", got.Name)
}

func TestExecuteJSON_KeepsExplicitOutputFlag(t *testing.T) {
	r := newTestRunner(t, `printf '{"name":"%s"}' "$*"`)

	got, err := ExecuteJSON[workspace](context.Background(), r, []string{"workspace", "list", "-o", "json"})
	require.NoError(t, err)
	assert.Equal(t, "workspace list -o json", got.Name)
}

func TestExecuteJSON_ParseErrorKeepsRawOutput(t *testing.T) {
	r := newTestRunner(t, `echo 'not json'`)

	_, err := ExecuteJSON[workspace](context.Background(), r, []string{"workspace", "list"})
	require.Error(t, err)

	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindParse, cmdErr.Kind)
	assert.Equal(t, "not json\n", cmdErr.Output)
	assert.Contains(t, cmdErr.Command, "--output json")
}

func TestExecuteJSON_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, `exit 4`)

	var v map[string]interface{}
	err := r.ExecuteJSONInto(context.Background(), []string{"vault", "list"}, &v)
	assert.Equal(t, 4, errors.ExitCode(err))
}

func TestHasOutputFlag(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"workspace", "list"}, false},
		{[]string{"--output", "yaml"}, true},
		{[]string{"--output=json"}, true},
		{[]string{"-o", "json"}, true},
		{[]string{"exec", "x", "--", "--output"}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasOutputFlag(tt.args), "%v", tt.args)
	}
}

func TestCheckBinary(t *testing.T) {
	r := newTestRunner(t, `echo "flow version 1.2.3"`)

	version, err := r.CheckBinary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flow version 1.2.3", version)
}

func TestCheckBinary_Missing(t *testing.T) {
	r := NewWithConfig(config.BinaryConfig{BinaryPath: filepath.Join(t.TempDir(), "flow")},
		WithShell(posixShell), WithLogger(logger.Noop()))

	_, err := r.CheckBinary(context.Background())
	require.Error(t, err)

	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindExecution, cmdErr.Kind)
	assert.NotEmpty(t, cmdErr.Suggestion)
}

func TestCheckBinary_Failing(t *testing.T) {
	r := newTestRunner(t, `echo broken >&2; exit 1`)

	_, err := r.CheckBinary(context.Background())
	cmdErr, ok := errors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindExecution, cmdErr.Kind)
	assert.Equal(t, "broken", cmdErr.Output)
}
