package exec

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// readBufferSize is the read chunk size; lines longer than it are still
// delivered whole.
const readBufferSize = 64 * 1024

// ExecutableArgs builds "<verb> <id> [args...] [--param key=value]..." with
// parameters in sorted key order.
func ExecutableArgs(verb, id string, args []string, params map[string]string) []string {
	argv := make([]string, 0, 2+len(args)+2*len(params))
	argv = append(argv, verb, id)
	argv = append(argv, args...)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		argv = append(argv, "--param", k+"="+params[k])
	}
	return argv
}

// ExecuteExecutable runs a flow executable and streams its output to ch, one
// command-output event per line. Exactly one command-complete event follows
// once both streams are drained and the process has exited. A non-zero exit
// returns a KindNonZeroExit error whose output points at the streamed lines.
//
// ExecuteExecutable is not bounded by the runner's timeout; cancel ctx to
// stop it.
func (r *Runner) ExecuteExecutable(ctx context.Context, ch events.Channel, verb, id string, args []string, params map[string]string) error {
	if ch == nil {
		ch = events.Discard
	}

	command := r.CommandString(ExecutableArgs(verb, id, args, params))
	log := r.log.With("run_id", uuid.NewString())
	cmd := r.buildCommand(ctx, command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return r.spawnFailed(ch, log, command, "failed to capture stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return r.spawnFailed(ch, log, command, "failed to capture stderr", err)
	}

	if err := cmd.Start(); err != nil {
		return r.spawnFailed(ch, log, command, "failed to start "+r.binary.BinaryPath, err)
	}
	log.Debug("started %s %s (pid %d)", verb, id, cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error { return r.pump(stdout, events.Stdout, ch, log) })
	g.Go(func() error { return r.pump(stderr, events.Stderr, ch, log) })
	readErr := g.Wait()

	waitErr := cmd.Wait()
	code := 0
	if waitErr != nil {
		code = -1
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	success := waitErr == nil && readErr == nil
	r.publish(ch, log, events.NewCompletion(command, success, code))
	log.Debug("finished %s %s with code %d", verb, id, code)

	switch {
	case ctx.Err() != nil && waitErr != nil:
		return errors.Execution("command cancelled", ctx.Err()).WithCommand(command)
	case readErr != nil:
		return errors.Execution("failed to read command output", readErr).WithCommand(command)
	case waitErr != nil && code < 0:
		var exitErr *exec.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return errors.Execution("failed to wait for command", waitErr).WithCommand(command)
		}
		return errors.NonZeroExit(command, code, errors.StreamedOutputNotice)
	case code != 0:
		return errors.NonZeroExit(command, code, errors.StreamedOutputNotice)
	}
	return nil
}

// pump publishes every line of rd, however long. A trailing line without a
// newline is published too. On a read error the rest of the stream is
// discarded so the child never blocks on a full pipe.
func (r *Runner) pump(rd io.Reader, stream string, ch events.Channel, log logger.Logger) error {
	br := bufio.NewReaderSize(rd, readBufferSize)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			r.publish(ch, log, events.NewOutputLine(stream, trimEOL(line), r.now()))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			_, _ = io.Copy(io.Discard, rd)
			return err
		}
	}
}

// trimEOL drops the line terminator, "\n" or "\r\n".
func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

func (r *Runner) publish(ch events.Channel, log logger.Logger, e events.Event) {
	if err := ch.Publish(e); err != nil {
		log.Debug("dropped %s event: %v", e.Topic, err)
	}
}

func (r *Runner) spawnFailed(ch events.Channel, log logger.Logger, command, msg string, err error) error {
	r.publish(ch, log, events.NewCompletion(command, false, -1))
	return errors.Execution(msg, err).WithCommand(command)
}
