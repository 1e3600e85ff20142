// Package azcli drives the Azure CLI for WebJob management.
package azcli

import (
	"context"
	"errors"
	"fmt"

	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

const DefaultBinary = "az"

// Client issues control-plane calls through the az binary.
type Client struct {
	Binary string
	Runner Runner
}

func New(binary string, runner Runner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{Binary: binary, Runner: runner}
}

// Available returns an error when the binary is not on PATH.
func (c *Client) Available() error {
	if _, err := c.Runner.LookPath(c.Binary); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", c.Binary, err)
	}
	return nil
}

// LoggedIn probes the local credential cache. Any failure of the probe
// counts as no session.
func (c *Client) LoggedIn(ctx context.Context) bool {
	_, err := c.Runner.Output(ctx, c.cmd("account", "show", "--output", "none"))
	return err == nil
}

// Login runs the interactive login flow. It blocks until the user finishes.
func (c *Client) Login(ctx context.Context) error {
	return c.Runner.Attached(ctx, c.cmd("login"))
}

// Upload pushes the archive to the job slot and returns the raw CLI output.
func (c *Client) Upload(ctx context.Context, req deployment.DeployRequest) (string, error) {
	return c.Runner.Output(ctx, UploadCmd(c.Binary, req))
}

// Start runs a triggered job once, or starts a continuous one.
func (c *Client) Start(ctx context.Context, slot deployment.Slot) (string, error) {
	return c.Runner.Output(ctx, StartCmd(c.Binary, slot))
}

func (c *Client) cmd(args ...string) Cmd {
	return Cmd{Name: c.Binary, Args: args}
}

// UploadCmd builds the upload invocation for req.
func UploadCmd(binary string, req deployment.DeployRequest) Cmd {
	return Cmd{
		Name: binary,
		Args: append(webjobArgs(req.Slot, "upload"), "--file", req.ArchivePath),
	}
}

// StartCmd builds the invocation that runs a triggered job once or starts
// a continuous one.
func StartCmd(binary string, slot deployment.Slot) Cmd {
	verb := "run"
	if slot.JobType == deployment.JobContinuous {
		verb = "start"
	}
	return Cmd{Name: binary, Args: webjobArgs(slot, verb)}
}

func webjobArgs(slot deployment.Slot, verb string) []string {
	jobType := slot.JobType
	if jobType == "" {
		jobType = deployment.JobTriggered
	}
	return []string{
		"webapp", "webjob", string(jobType), verb,
		"--resource-group", slot.ResourceGroup,
		"--name", slot.ServiceName,
		"--webjob-name", slot.JobName,
	}
}

// ExitCode extracts the process exit code from err, or -1 if err did not
// come from a finished process.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}
