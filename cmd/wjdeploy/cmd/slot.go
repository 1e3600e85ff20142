package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

// field is one target value that may come from a flag, a positional
// argument, the environment or the config file.
type field struct {
	flag string
	key  string
}

var (
	fieldResourceGroup = field{"resource-group", "resource_group"}
	fieldName          = field{"name", "name"}
	fieldJob           = field{"webjob-name", "webjob_name"}
	fieldFile          = field{"file", "file"}
	fieldType          = field{"type", "type"}
)

func addSlotFlags(fs *pflag.FlagSet) {
	fs.StringP(fieldResourceGroup.flag, "g", "", "resource group of the web app")
	fs.StringP(fieldName.flag, "n", "", "name of the web app")
	fs.StringP(fieldJob.flag, "j", "", "name of the WebJob")
	fs.StringP(fieldType.flag, "t", "", "WebJob type: triggered or continuous (default triggered)")
}

// resolve fills one value per field. Positional args map onto fields in
// order; a field given both as a flag and as an argument is an error.
// Anything left unset falls back to WJDEPLOY_* and the config file.
func (a *app) resolve(cmd *cobra.Command, args []string, fields ...field) ([]string, error) {
	vals := make([]string, len(fields))
	for i, f := range fields {
		vals[i] = a.v.GetString(f.key)
		changed := cmd.Flags().Changed(f.flag)
		if changed {
			vals[i], _ = cmd.Flags().GetString(f.flag)
		}
		if i < len(args) {
			if changed {
				return nil, fmt.Errorf("--%s given both as a flag and as argument %d", f.flag, i+1)
			}
			vals[i] = args[i]
		}
	}
	return vals, nil
}

func (a *app) slot(cmd *cobra.Command, args []string) (deployment.Slot, error) {
	vals, err := a.resolve(cmd, args, fieldResourceGroup, fieldName, fieldJob, fieldType)
	if err != nil {
		return deployment.Slot{}, err
	}
	return slotFrom(vals[0], vals[1], vals[2], vals[3])
}

func slotFrom(rg, name, job, typ string) (deployment.Slot, error) {
	jt, err := deployment.ParseJobType(typ)
	if err != nil {
		return deployment.Slot{}, err
	}
	return deployment.Slot{ResourceGroup: rg, ServiceName: name, JobName: job, JobType: jt}, nil
}
