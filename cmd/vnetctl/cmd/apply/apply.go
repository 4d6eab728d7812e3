// Package apply provides the apply command, which creates or
// reconfigures a virtual network to match its desired specification.
package apply

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nebulaops/vnetctl"
	"github.com/nebulaops/vnetctl/internal/cmd/output"
	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// AppContext defines the interface the apply command needs from the app.
type AppContext interface {
	ManagerWithOptions(...vnetctl.Option) (vnetctl.Manager, error)
	Logger() *zerolog.Logger
	OutputFormat() string
}

// NewCommand creates the apply command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or reconfigure a virtual network",
		Long: `Apply reconciles a virtual network to its desired specification.

A missing network is created, a diverged template is replaced, and a
network that already matches is left alone. The specification comes
either from flags or from a YAML file passed with -f.`,
		Example: `  vnetctl apply --name web --template-file web.tmpl   # Create or update from a template file
  vnetctl apply --id 7 --template 'MTU = "9000"'      # Reconfigure by id
  vnetctl apply -f network.yaml                       # Apply a YAML specification
  vnetctl apply -f network.yaml --check               # Show what would change`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := buildSpec(cmd)
			if err != nil {
				return err
			}

			check, _ := cmd.Flags().GetBool("check")
			manager, err := app.ManagerWithOptions(vnetctl.WithDryRun(check))
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			result, err := manager.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.FormatResult(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().Int("id", 0, "network id")
	cmd.Flags().String("name", "", "network name")
	cmd.Flags().String("template", "", "template body in OpenNebula template syntax")
	cmd.Flags().String("template-file", "", "file containing the template body")
	cmd.Flags().StringP("file", "f", "", "YAML file with the full network specification")
	cmd.Flags().Int("owner", 0, "user id to own the network")
	cmd.Flags().Int("group", 0, "group id to own the network")
	cmd.Flags().Bool("check", false, "report what would change without changing anything")
	cmd.MarkFlagsMutuallyExclusive("template", "template-file")
	cmd.MarkFlagsMutuallyExclusive("file", "template")
	cmd.MarkFlagsMutuallyExclusive("file", "template-file")

	return cmd
}

// buildSpec assembles the desired specification from the -f file or from
// individual flags.
func buildSpec(cmd *cobra.Command) (vnet.Spec, error) {
	var spec vnet.Spec

	specFile, _ := cmd.Flags().GetString("file")
	if specFile != "" {
		data, err := os.ReadFile(specFile)
		if err != nil {
			return spec, errors.WrapResource("read", "spec file", specFile, err)
		}
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, errors.WrapParse("yaml", specFile, err)
		}
		return spec, nil
	}

	if cmd.Flags().Changed("id") {
		id, _ := cmd.Flags().GetInt("id")
		spec.ID = &id
	}
	spec.Name, _ = cmd.Flags().GetString("name")

	spec.Template, _ = cmd.Flags().GetString("template")
	if templateFile, _ := cmd.Flags().GetString("template-file"); templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return spec, errors.WrapResource("read", "template file", templateFile, err)
		}
		spec.Template = string(data)
	}

	if cmd.Flags().Changed("owner") {
		owner, _ := cmd.Flags().GetInt("owner")
		spec.Owner = &owner
	}
	if cmd.Flags().Changed("group") {
		group, _ := cmd.Flags().GetInt("group")
		spec.Group = &group
	}

	if spec.ID == nil && spec.Name == "" {
		return spec, fmt.Errorf("either --id or --name is required (or pass -f)")
	}

	return spec, nil
}
