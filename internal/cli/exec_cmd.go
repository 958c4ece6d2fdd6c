package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowexec/flowbridge/internal/exec"
)

// ExecOutput is the --json payload of the exec command.
type ExecOutput struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// flowLabel is the spinner text for a flow invocation.
func flowLabel(args []string) string {
	return "flow " + strings.Join(args, " ")
}

func execCommand(cmd *cobra.Command, args []string) error {
	runner := newRunner()
	spinner := startSpinner(cmd.ErrOrStderr(), flowLabel(args))
	out, err := runner.Execute(cmd.Context(), args)
	finishSpinner(spinner, err)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), ExecOutput{
			Command: runner.CommandString(args),
			Output:  out,
		})
	}

	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func jsonCommand(cmd *cobra.Command, args []string) error {
	spinner := startSpinner(cmd.ErrOrStderr(), flowLabel(args))
	data, err := exec.ExecuteJSON[interface{}](cmd.Context(), newRunner(), args)
	finishSpinner(spinner, err)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(cmd.OutOrStdout(), data)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
