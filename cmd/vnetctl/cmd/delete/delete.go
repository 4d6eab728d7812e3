// Package delete provides the delete command, which ensures a virtual
// network is absent.
package delete

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nebulaops/vnetctl"
	"github.com/nebulaops/vnetctl/internal/cmd/output"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// AppContext defines the interface the delete command needs from the app.
type AppContext interface {
	ManagerWithOptions(...vnetctl.Option) (vnetctl.Manager, error)
	Logger() *zerolog.Logger
	OutputFormat() string
}

// NewCommand creates the delete command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a virtual network",
		Long: `Delete ensures the named virtual network is absent.

Deleting a network that does not exist is not an error: the command
reports that nothing changed.`,
		Example: `  vnetctl delete --name web       # Delete by name
  vnetctl delete --id 7           # Delete by id
  vnetctl delete --id 7 --check   # Show whether a delete would happen`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var spec vnet.Spec
			if cmd.Flags().Changed("id") {
				id, _ := cmd.Flags().GetInt("id")
				spec.ID = &id
			}
			spec.Name, _ = cmd.Flags().GetString("name")
			if spec.ID == nil && spec.Name == "" {
				return fmt.Errorf("either --id or --name is required")
			}

			check, _ := cmd.Flags().GetBool("check")
			manager, err := app.ManagerWithOptions(vnetctl.WithDryRun(check))
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			result, err := manager.Delete(cmd.Context(), spec)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.FormatResult(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().Int("id", 0, "network id")
	cmd.Flags().String("name", "", "network name")
	cmd.Flags().Bool("check", false, "report what would change without changing anything")

	return cmd
}
