package cmd

import (
	"github.com/spf13/cobra"

	"github.com/balaji-balu/wjdeploy/internal/deployer"
	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

func newDeployCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [resource-group service-name job-name archive [type]]",
		Short: "Upload a WebJob archive to a web app",
		Long: `Uploads a WebJob zip to the named web app through the Azure CLI.

The target can be given as positional arguments, as flags, as WJDEPLOY_*
environment variables or in the config file.`,
		Example: `  wjdeploy deploy demo-rg demo-app nightly ./nightly.zip
  wjdeploy deploy -g demo-rg -n demo-app -j worker -f ./worker.zip -t continuous`,
		Args: cobra.MaximumNArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := a.resolve(cmd, args, fieldResourceGroup, fieldName, fieldJob, fieldFile, fieldType)
			if err != nil {
				return err
			}
			slot, err := slotFrom(vals[0], vals[1], vals[2], vals[4])
			if err != nil {
				return err
			}
			req := deployment.DeployRequest{Slot: slot, ArchivePath: vals[3]}

			res, err := a.orchestrator().Deploy(cmd.Context(), req)
			if err != nil {
				deployer.WriteFailure(cmd.ErrOrStderr(), a.cfg.CLI, err, res.RawOutput)
				return &reportedError{err}
			}
			deployer.WriteSuccess(cmd.OutOrStdout(), a.cfg.CLI, req, res)
			return nil
		},
	}
	addSlotFlags(cmd.Flags())
	cmd.Flags().StringP(fieldFile.flag, "f", "", "path to the WebJob zip")
	return cmd
}
