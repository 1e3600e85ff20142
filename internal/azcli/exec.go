package azcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Cmd is a model of one control-plane invocation.
type Cmd struct {
	Name string
	Args []string
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ExitError is returned when the command ran but exited non-zero.
type ExitError struct {
	Cmd  Cmd
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmd.Name, e.Code)
}

// Runner runs external commands.
type Runner interface {
	// LookPath reports where name is on PATH.
	LookPath(name string) (string, error)
	// Output runs cmd to completion and returns its combined stdout and
	// stderr. A non-zero exit is reported as *ExitError together with the
	// output.
	Output(ctx context.Context, cmd Cmd) (string, error)
	// Attached runs cmd with the caller's stdio so the user can interact
	// with it.
	Attached(ctx context.Context, cmd Cmd) error
}

// ExecRunner is the os/exec Runner.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *ExecRunner) Output(ctx context.Context, cmd Cmd) (string, error) {
	osCmd := r.command(ctx, cmd)
	var out bytes.Buffer
	osCmd.Stdout = &out
	osCmd.Stderr = &out
	err := osCmd.Run()
	return out.String(), r.exitError(cmd, err)
}

func (r *ExecRunner) Attached(ctx context.Context, cmd Cmd) error {
	osCmd := r.command(ctx, cmd)
	osCmd.Stdin, osCmd.Stdout, osCmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if r.Stdin != nil {
		osCmd.Stdin = r.Stdin
	}
	if r.Stdout != nil {
		osCmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		osCmd.Stderr = r.Stderr
	}
	return r.exitError(cmd, osCmd.Run())
}

func (r *ExecRunner) command(ctx context.Context, cmd Cmd) *exec.Cmd {
	if r.Logger != nil {
		r.Logger.Debug("exec", zap.Stringer("cmd", cmd))
	}
	osCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	return osCmd
}

func (r *ExecRunner) exitError(cmd Cmd, err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Cmd: cmd, Code: ee.ExitCode()}
	}
	return err
}
