package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowexec/flowbridge/internal/doctor"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/ui"
)

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Results []doctor.CheckResult `json:"results"`
	Summary SummaryOutput        `json:"summary"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

// collectChecks assembles every diagnostic for the current environment.
func collectChecks() []doctor.Check {
	runner := newRunner()
	sh := runner.Shell()
	cachePath, _ := workspaceCachePath()

	return []doctor.Check{
		&doctor.ConfigCheck{Path: Config()},
		&doctor.BinaryCheck{Runner: runner},
		&doctor.DevModeCheck{Binary: runner.Binary()},
		&doctor.ShellCheck{Shell: sh},
		&doctor.CommandCheck{Shell: sh, Command: runner.CommandString([]string{"--version"})},
		&doctor.CacheCheck{Path: cachePath},
	}
}

func summarize(results []doctor.CheckResult) SummaryOutput {
	counts := doctor.CountByStatus(results)
	return SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
}

func toRows(results []doctor.CheckResult) []ui.DoctorCheckRow {
	rows := make([]ui.DoctorCheckRow, len(results))
	for i, r := range results {
		rows[i] = ui.DoctorCheckRow{
			Status:     ui.CheckStatus(r.Status.String()),
			Category:   r.Category,
			Message:    r.Message,
			Suggestion: r.Suggestion,
		}
	}
	return rows
}

// doctorCommand implements the doctor command logic.
func doctorCommand(cmd *cobra.Command) error {
	checks := collectChecks()
	out := cmd.OutOrStdout()

	if machineMode {
		results := doctor.RunAllParallel(cmd.Context(), checks)
		if err := WriteJSONSuccess(out, DoctorOutput{Results: results, Summary: summarize(results)}); err != nil {
			return err
		}
		if doctor.HasFailures(results) {
			return errors.NewExitError(1)
		}
		return nil
	}

	var spinner *ui.Spinner
	if isTerminal(cmd.ErrOrStderr()) {
		spinner = ui.NewSpinner("Running checks")
		spinner.SetWriter(cmd.ErrOrStderr())
		spinner.Start()
	}
	results := doctor.RunAllParallel(cmd.Context(), checks)
	if spinner != nil {
		spinner.Clear()
	}

	fmt.Fprint(out, ui.RenderDoctorTable(toRows(results)))

	summary := doctor.Summary(results)
	switch {
	case doctor.HasFailures(results):
		fmt.Fprintln(out, ui.ErrorStyle().Render(ui.SymbolFail+" "+summary))
		return errors.NewExitError(1)
	case doctor.HasIssues(results):
		fmt.Fprintln(out, ui.WarningStyle().Render(ui.SymbolWarning+" "+summary))
	default:
		fmt.Fprintln(out, ui.SuccessStyle().Render(ui.SymbolSuccess+" "+summary))
	}
	return nil
}
