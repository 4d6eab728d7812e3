// Package get provides the get command, which lists virtual networks or
// shows a single one.
package get

import (
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nebulaops/vnetctl"
	"github.com/nebulaops/vnetctl/internal/cmd/output"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// AppContext defines the interface the get command needs from the app.
type AppContext interface {
	Manager() (vnetctl.Manager, error)
	Logger() *zerolog.Logger
	OutputFormat() string
}

// NewCommand creates the get command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get [network]",
		Short:   "List virtual networks or show one",
		Aliases: []string{"list"},
		Args:    cobra.MaximumNArgs(1),
		Long: `Get lists the virtual networks visible to the session, or shows a
single network when a name or numeric id is given. The frontend is
never modified.`,
		Example: `  vnetctl get              # List all networks
  vnetctl get web          # Show the network named "web"
  vnetctl get 7            # Show network 7
  vnetctl get -o wide      # Include driver and bridge columns`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.Manager()
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())

			if len(args) == 0 {
				networks, err := manager.List(cmd.Context())
				if err != nil {
					return err
				}
				return output.FormatNetworks(cmd.OutOrStdout(), format, networks)
			}

			spec := specForHandle(args[0])
			result, err := manager.Query(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return output.FormatResult(cmd.OutOrStdout(), format, result)
		},
	}

	return cmd
}

// specForHandle treats a numeric argument as an id and anything else as
// a name.
func specForHandle(arg string) vnet.Spec {
	if id, err := strconv.Atoi(arg); err == nil {
		return vnet.Spec{ID: &id}
	}
	return vnet.Spec{Name: arg}
}
