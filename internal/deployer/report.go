package deployer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/balaji-balu/wjdeploy/internal/azcli"
	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

// Application settings the deployed job reads. The tool itself never does.
const (
	EnvStorageConnectionString   = "AZURE_STORAGE_CONNECTION_STRING"
	EnvAIProjectConnectionString = "AZURE_AI_PROJECT_CONNECTION_STRING"
)

// DefaultSchedule is the CRON suggested for triggered jobs: 09:00 daily.
const DefaultSchedule = "0 0 9 * * *"

// WriteSuccess prints the success line and the operator's next steps.
func WriteSuccess(w io.Writer, binary string, req deployment.DeployRequest, res deployment.DeployResult) {
	fmt.Fprintf(w, "✅ WebJob '%s' deployed successfully to '%s' (resource group '%s')\n",
		req.JobName, req.ServiceName, req.ResourceGroup)
	if res.DeploymentID != "" {
		fmt.Fprintf(w, "   deployment id: %s\n", res.DeploymentID)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Start the WebJob:")
	fmt.Fprintf(w, "       %s\n", azcli.StartCmd(binary, req.Slot))
	fmt.Fprintln(w, "  2. Configure the execution schedule:")
	if req.JobType == deployment.JobContinuous {
		fmt.Fprintln(w, "       continuous jobs run as soon as they start; scale and restart policy live in the portal")
	} else {
		fmt.Fprintf(w, "       add a settings.job to the archive, e.g. {\"schedule\": %q}, or trigger it on demand\n", DefaultSchedule)
	}
	fmt.Fprintln(w, "  3. Set the application settings on the web app:")
	fmt.Fprintf(w, "       %s (required)\n", EnvStorageConnectionString)
	fmt.Fprintf(w, "       %s (optional)\n", EnvAIProjectConnectionString)
}

// WriteFailure explains err to the operator. The raw CLI output is included
// verbatim when there is any.
func WriteFailure(w io.Writer, binary string, err error, rawOutput string) {
	fmt.Fprintf(w, "❌ %v\n", err)
	if hint := Hint(binary, err); hint != "" {
		fmt.Fprintf(w, "   %s\n", hint)
	}
	if out := strings.TrimRight(rawOutput, "\n"); out != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Output:")
		fmt.Fprintln(w, out)
	}
}

// Hint returns an actionable suggestion for a deployer error.
func Hint(binary string, err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "usage: wjdeploy deploy <resource-group> <service-name> <job-name> <archive> [triggered|continuous]"
	case errors.Is(err, ErrToolingMissing):
		return fmt.Sprintf("install the Azure CLI (https://aka.ms/installazurecli) or set --cli to its path (looked for %q)", binary)
	case errors.Is(err, ErrArtifactNotFound):
		return "build the archive first, e.g. wjdeploy package --manifest webjob.yaml"
	case errors.Is(err, ErrNotAuthenticated):
		return fmt.Sprintf("run '%s login' and try again, or pass --login=always", binary)
	case errors.Is(err, ErrUploadFailed):
		return "check that the web app exists and the job name is valid"
	case errors.Is(err, ErrStartFailed):
		return "check the WebJob logs in the portal"
	}
	return ""
}
