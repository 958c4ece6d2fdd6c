package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	runParams       []string
	runFormat       string
	runQuiet        bool
	cacheWatchPlain bool
)

// execCmd captures the output of a flow invocation.
var execCmd = &cobra.Command{
	Use:   "exec <flow args...>",
	Short: "Run flow and print its output",
	Long: `Run flow with the given arguments through your login shell and print
what it wrote to stdout once it exits.

Everything after the first argument is passed to flow untouched, including
flags.

Examples:
  flowbridge exec workspace list
  flowbridge exec config get --output yaml
  flowbridge --json exec sync`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execCommand(cmd, args)
	},
}

// jsonCmd runs flow with --output json and pretty prints the result.
var jsonCmd = &cobra.Command{
	Use:   "json <flow args...>",
	Short: "Run flow and decode its JSON output",
	Long: `Run flow with "--output json" appended (unless an output flag is already
present), decode the result and print it indented.

Examples:
  flowbridge json workspace list
  flowbridge json executable get exec my/ws:build`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return jsonCommand(cmd, args)
	},
}

// runCmd streams an executable's output.
var runCmd = &cobra.Command{
	Use:   "run <verb> <executable-id> [-- args...]",
	Short: "Run a flow executable and stream its output",
	Long: `Run a flow executable and stream each line of its output as it is
produced. Parameters become "--param key=value" arguments, in key order.

With --json every line and the final completion are written as JSON events,
one per line.

Examples:
  flowbridge run exec my/ws:build
  flowbridge run exec my/ws:deploy --param env=staging -- --dry-run
  flowbridge --json run exec my/ws:test`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, runParams, runFormat, runQuiet)
	},
}

// cacheCmd groups the workspace cache commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect flow's workspace cache",
	Long: `Read the workspace cache file flow maintains on disk.

The file lives at $FLOW_CACHE_DIR/latestcache/workspace, or under the
platform cache directory when FLOW_CACHE_DIR is unset.`,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the workspace cache file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cachePathCommand(cmd)
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show [workspace]",
	Short: "Show cached workspaces",
	Long: `Show every cached workspace as a table, or the full record of one.

Examples:
  flowbridge cache show
  flowbridge cache show home
  flowbridge --json cache show`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheShowCommand(cmd, args)
	},
}

var cacheWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the workspace cache as flow rewrites it",
	Long: `Watch the workspace cache file and redraw whenever flow writes a new
snapshot. Writes that fail to decode are ignored.

On a terminal this shows a live view (press q to quit). With --json, or when
output is not a terminal, each snapshot is written as a JSON event line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheWatchCommand(cmd, cacheWatchPlain)
	},
}

// doctorCmd diagnoses the environment.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the flow binary, shell and cache",
	Long: `Run diagnostic checks to find why flow invocations fail.

Checks:
  - Settings file validity
  - flow binary availability and version
  - Development mode overrides
  - Login shell detection and command syntax
  - Workspace cache file

Examples:
  flowbridge doctor
  flowbridge --json doctor`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for flowbridge.

Examples:
  # Bash
  flowbridge completion bash > /etc/bash_completion.d/flowbridge

  # Zsh
  flowbridge completion zsh > "${fpath[1]}/_flowbridge"

  # Fish
  flowbridge completion fish > ~/.config/fish/completions/flowbridge.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	// flow's own flags must reach flow, so stop parsing at the first argument.
	execCmd.Flags().SetInterspersed(false)
	jsonCmd.Flags().SetInterspersed(false)

	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "executable parameter as key=value (repeatable)")
	runCmd.Flags().StringVar(&runFormat, "format", "generic", "line formatter: generic or passthrough")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress the completion status line")

	cacheWatchCmd.Flags().BoolVar(&cacheWatchPlain, "plain", !isTerminal(os.Stdout), "print JSON event lines instead of the live view")

	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheWatchCmd)

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(jsonCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(completionCmd)
}
