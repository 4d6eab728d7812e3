package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the vnetctl CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "vnetctl",
		Short:   "OpenNebula virtual network CLI",
		Version: a.version,
		Long: `Vnetctl manages OpenNebula virtual networks declaratively.

Describe the desired state of a network and vnetctl reconciles the
frontend to match it: networks are created, reconfigured, or deleted
as needed, and unchanged networks are left alone. Re-running the same
command is always safe.

Connection settings follow the OpenNebula CLI conventions: the
ONE_XMLRPC environment variable names the endpoint and ONE_AUTH holds
the credential (or the path of a file containing one).`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.vnetctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", "", "output format: table, json, yaml, wide")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().StringVar(&a.config.Endpoint, "endpoint", a.config.Endpoint, "XML-RPC endpoint URL (default from ONE_XMLRPC)")
	rootCmd.PersistentFlags().StringVar(&a.config.Credential, "auth", a.config.Credential, "credential as user:password or a file path (default from ONE_AUTH)")
	rootCmd.PersistentFlags().BoolVar(&a.config.Insecure, "insecure", false, "skip TLS certificate verification")

	rootCmd.SetVersionTemplate("vnetctl {{.Version}}\n")

	// Register all commands
	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// Update config from parsed flags. These are persistent flags
	// defined in createRootCommand, so errors indicate programming
	// errors.
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	// An explicit --config reloads the configuration from that file.
	// The persistent flags above bind into the config built at startup,
	// so flag-set connection values carry over the reload.
	if configFile := mustGetString(cmd, "config"); configFile != "" {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("endpoint") {
			cfg.Endpoint = a.config.Endpoint
		}
		if cmd.Flags().Changed("auth") {
			cfg.Credential = a.config.Credential
		}
		if cmd.Flags().Changed("insecure") {
			cfg.Insecure = a.config.Insecure
		}
		cfg.ConfigFile = configFile
		a.config = cfg
	}

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
