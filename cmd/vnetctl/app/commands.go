package app

import (
	"github.com/spf13/cobra"

	"github.com/nebulaops/vnetctl/cmd/vnetctl/cmd/apply"
	"github.com/nebulaops/vnetctl/cmd/vnetctl/cmd/delete"
	"github.com/nebulaops/vnetctl/cmd/vnetctl/cmd/get"
)

// registerCommands registers all subcommands with the root command.
// This is where we wire up all the command handlers.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(apply.NewCommand(a))
	rootCmd.AddCommand(delete.NewCommand(a))
	rootCmd.AddCommand(get.NewCommand(a))
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("vnetctl %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
