package cli

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// versionShort controls whether to show short or full version output
var versionShort bool

// flowVersionTimeout bounds the flow --version check.
const flowVersionTimeout = 5 * time.Second

// VersionOutput is the --json payload of the version command.
type VersionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Flow    string `json:"flow,omitempty"`
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash and build date of flowbridge, plus the version of the flow binary it would run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			_, err := fmt.Fprintln(out, version)
			return err
		}

		info := VersionOutput{
			Version: formatVersion(version),
			Commit:  commit,
			Date:    date,
			Go:      runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Flow:    flowVersion(cmd.Context()),
		}
		if machineMode {
			return WriteJSONSuccess(out, info)
		}

		fmt.Fprintf(out, "flowbridge %s\n", info.Version)
		fmt.Fprintf(out, "commit: %s\n", info.Commit)
		fmt.Fprintf(out, "built: %s\n", info.Date)
		fmt.Fprintf(out, "go: %s\n", info.Go)
		fmt.Fprintf(out, "os/arch: %s/%s\n", info.OS, info.Arch)
		flow := info.Flow
		if flow == "" {
			flow = "not found"
		}
		fmt.Fprintf(out, "flow: %s\n", flow)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// flowVersion asks the resolved flow binary for its version. Failures
// yield "".
func flowVersion(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, flowVersionTimeout)
	defer cancel()
	v, err := newRunner().CheckBinary(ctx)
	if err != nil {
		return ""
	}
	return firstLine(v)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// formatVersion ensures version has a 'v' prefix for display
func formatVersion(v string) string {
	if v == "" || v == "dev" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// SetVersionInfo sets the version information (called from main).
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// GetVersion returns the current version string.
func GetVersion() string {
	return version
}
