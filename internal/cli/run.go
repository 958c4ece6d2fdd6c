package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/output"
)

// exitInterrupted is the conventional status for a command stopped by SIGINT.
const exitInterrupted = 130

// parseParams turns repeated key=value flags into a map. Later keys win.
func parseParams(raw []string) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.New(errors.ErrUsage,
				fmt.Sprintf("'%s' isn't a key=value parameter", p),
				"Pass parameters like --param env=staging")
		}
		params[key] = value
	}
	return params, nil
}

// eventChannel picks where streamed events go: JSON lines on stdout in
// machine mode, otherwise the styled console.
func eventChannel(cmd *cobra.Command, format string, quiet bool) (events.Channel, error) {
	if machineMode {
		return events.JSONLines(cmd.OutOrStdout()), nil
	}

	registry := output.NewFormatterRegistry()
	f, ok := registry.Lookup(format)
	if !ok {
		return nil, errors.New(errors.ErrUsage,
			fmt.Sprintf("Unknown format '%s'", format),
			"Use one of: "+strings.Join(registry.Names(), ", "))
	}

	opts := []output.ConsoleOption{output.WithFormatter(f)}
	if quiet {
		opts = append(opts, output.Quiet())
	}
	h := output.NewStreamHandler(cmd.OutOrStdout(), cmd.ErrOrStderr())
	return output.NewConsole(h, opts...), nil
}

func runCommand(cmd *cobra.Command, args, rawParams []string, format string, quiet bool) error {
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}
	ch, err := eventChannel(cmd, format, quiet)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	verb, id, rest := args[0], args[1], args[2:]
	err = newRunner().ExecuteExecutable(ctx, ch, verb, id, rest, params)
	switch {
	case err == nil:
		return nil
	case errors.IsKind(err, errors.KindNonZeroExit):
		// The output and completion were already streamed.
		return errors.NewExitError(errors.ExitCode(err))
	case ctx.Err() != nil:
		return errors.NewExitError(exitInterrupted)
	default:
		return err
	}
}
