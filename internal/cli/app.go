package cli

import (
	"io"

	"github.com/flowexec/flowbridge/internal/cache"
	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/exec"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/flowexec/flowbridge/internal/ui"
)

// newRunner builds a process runner from the loaded settings and the
// current environment.
func newRunner() *exec.Runner {
	return exec.New(
		exec.WithLogger(logger.Default().With("component", "exec")),
		exec.WithTimeout(appConfig.Exec.Timeout),
		exec.WithDebugBuild(config.DebugBuild(version)),
	)
}

// workspaceCachePath resolves the cache file location.
func workspaceCachePath() (string, error) {
	path, err := cache.Path(config.EnvironmentFromOS())
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCache,
			"Couldn't locate the workspace cache",
			"Set FLOW_CACHE_DIR to flow's cache directory")
	}
	return path, nil
}

func isTerminal(w io.Writer) bool {
	return ui.IsTerminal(w)
}

// startSpinner animates label on w while a blocking flow call runs. It
// returns nil in machine mode or when w is not a terminal.
func startSpinner(w io.Writer, label string) *ui.Spinner {
	if machineMode || !isTerminal(w) {
		return nil
	}
	s := ui.NewSpinner(label)
	s.SetWriter(w)
	s.Start()
	return s
}

// finishSpinner settles s according to err. A nil spinner is ignored.
func finishSpinner(s *ui.Spinner, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.Fail()
		return
	}
	s.Success()
}
