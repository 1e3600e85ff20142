package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balaji-balu/wjdeploy/internal/deployer"
)

func newStartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [resource-group service-name job-name [type]]",
		Short: "Run a triggered WebJob or start a continuous one",
		Args:  cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := a.slot(cmd, args)
			if err != nil {
				return err
			}
			out, err := a.orchestrator().Start(cmd.Context(), slot)
			if err != nil {
				deployer.WriteFailure(cmd.ErrOrStderr(), a.cfg.CLI, err, out)
				return &reportedError{err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🚀 WebJob '%s' started on '%s'\n", slot.JobName, slot.ServiceName)
			if out = strings.TrimSpace(out); out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	addSlotFlags(cmd.Flags())
	return cmd
}
