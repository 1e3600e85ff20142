package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balaji-balu/wjdeploy/internal/packager"
)

func newPackageCmd(a *app) *cobra.Command {
	var manifestPath, out string
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build a WebJob archive from a manifest",
		Long: `Builds a WebJob zip from a YAML manifest. Scheduled triggered jobs get a
settings.job carrying their CRON schedule, and every archive gets a
config.json with the non-secret settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := packager.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			data, err := packager.Builder{}.Build(m)
			if err != nil {
				return err
			}
			if out == "" {
				out = m.Name + ".zip"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}
			a.logger.Info("Archive written", zap.String("path", out), zap.Int("bytes", len(data)))
			fmt.Fprintf(cmd.OutOrStdout(), "📦 Wrote %s (%s WebJob '%s')\n", out, m.Type, m.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "webjob.yaml", "path to the job manifest")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output archive (default <name>.zip)")
	return cmd
}
