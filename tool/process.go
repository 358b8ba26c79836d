package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	Name    string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ProcessResult is the captured outcome of a completed process.
type ProcessResult struct {
	Stdout     []byte
	Stderr     []byte
	ExitCode   int
	DurationMS int64
}

// ProcessRunner spawns external diagnostic binaries.
//
// Run returns a TOOL_UNAVAILABLE error when the binary cannot be found and a
// TIMEOUT error when the wall-clock bound elapses. A non-zero exit code is not
// an error; callers inspect ExitCode and Stderr.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (ProcessResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Paths overrides the executable used for a command name.
	Paths map[string]string
}

// NewExecRunner returns a runner with optional binary path overrides.
func NewExecRunner(paths map[string]string) *ExecRunner {
	cloned := make(map[string]string, len(paths))
	for name, path := range paths {
		if strings.TrimSpace(path) != "" {
			cloned[name] = strings.TrimSpace(path)
		}
	}
	return &ExecRunner{Paths: cloned}
}

// Run executes cmd and waits for it to exit or for its timeout to elapse.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (ProcessResult, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return ProcessResult{}, NewError(CodeInternalFailure, "process: command name is empty", nil)
	}
	binary := name
	if r != nil {
		if override, ok := r.Paths[name]; ok {
			binary = override
		}
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return ProcessResult{}, Unavailable(name+" command", err)
	}

	execCtx, cancel := withProcessTimeout(ctx, cmd.Timeout)
	defer cancel()

	// #nosec G204 -- arguments are produced from validated operation inputs.
	proc := exec.CommandContext(execCtx, path, cmd.Args...)
	if len(cmd.Env) > 0 {
		proc.Env = append(os.Environ(), flattenEnv(cmd.Env)...)
	}
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = time.Second

	start := time.Now()
	runErr := proc.Run()
	result := ProcessResult{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if execCtx.Err() != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			limit := cmd.Timeout
			if ctx.Err() != nil || limit <= 0 {
				// the caller's deadline fired before the command's own bound
				limit = roundElapsed(time.Since(start))
			}
			return result, WithDetails(
				Timeout(fmt.Sprintf("%s timed out after %s", name, limit)),
				map[string]any{"command": cmd.String()},
			)
		}
		return result, NewError(CodeInternalFailure, name+" canceled", execCtx.Err())
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return result, Unavailable(name+" command", runErr)
		}
		return result, NewError(CodeInternalFailure, "process: start "+name, runErr)
	}
	return result, nil
}

func roundElapsed(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}

func withProcessTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// CommandNotFound reports whether a shell-style stderr message says the
// binary is missing.
func CommandNotFound(stderr []byte) bool {
	msg := strings.ToLower(string(stderr))
	return strings.Contains(msg, "command not found") || strings.Contains(msg, "not recognized")
}

func flattenEnv(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(values))
	for _, key := range keys {
		out = append(out, key+"="+values[key])
	}
	return out
}
