package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/flowexec/flowbridge/internal/ui"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

// appConfig holds the settings loaded by the root command's pre-run hook.
var appConfig = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "flowbridge",
	Short: "Drive the flow CLI from scripts and terminals",
	Long: `flowbridge runs the flow binary through your login shell so PATH and
profile customisations apply, and turns its output into structured results.

Commands can capture output (exec), decode JSON (json), stream an
executable's output line by line (run), or follow flow's workspace cache
as it changes (cache watch).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default ~/.config/flowbridge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// setup loads settings and configures logging and color before any
// subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	appConfig = cfg

	switch {
	case noColor || machineMode:
		ui.DisableColors()
	default:
		ui.ApplyColorMode(cfg.Output.Color, cmd.OutOrStdout())
	}

	level := cfg.Log.Level
	env := config.EnvironmentFromOS()
	if verbose || config.IsDevMode(env, config.DebugBuild(version)) {
		level = "debug"
	}
	l, err := logger.New(logger.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid log settings", "Check log.level and log.format")
	}
	logger.SetDefault(l)
	return nil
}

// Config returns the explicit --config path, if any.
func Config() string {
	return cfgFile
}

// Execute runs the root command and exits with the resulting status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(handleError(err, os.Stdout, os.Stderr))
}

// handleError renders err for a human or a machine and returns the process
// exit status.
func handleError(err error, stdout, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	// Already reported; only the status is left to deliver.
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	if machineMode {
		_ = WriteJSONFromError(stdout, err)
		return exitCodeFor(err)
	}

	if isUnknownCommandError(err) {
		fmt.Fprintln(stderr, ui.ErrorStyle().Render(ui.SymbolFail)+" "+err.Error())
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(stderr, "\n  To pass it to flow, run: flowbridge exec %s\n", name)
		}
		return 2
	}

	fmt.Fprint(stderr, renderError(err))
	return exitCodeFor(err)
}

// renderError produces the human form of err.
func renderError(err error) string {
	if cmdErr, ok := errors.AsCommandError(err); ok {
		var b strings.Builder
		b.WriteString(ui.ErrorStyle().Render(ui.SymbolFail) + " " + cmdErr.Error() + "\n")
		if cmdErr.Suggestion != "" {
			b.WriteString("\n  " + cmdErr.Suggestion + "\n")
		}
		return b.String()
	}
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !strings.HasPrefix(msg, ui.SymbolFail) {
		msg = ui.SymbolFail + " " + msg
	}
	return msg
}

// exitCodeFor mirrors flow's status for non-zero exits and uses 1 otherwise.
func exitCodeFor(err error) int {
	if code := errors.ExitCode(err); code > 0 {
		return code
	}
	if errors.IsCode(err, errors.ErrUsage) {
		return 2
	}
	return 1
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls foo out of `unknown command "foo" for "flowbridge"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
