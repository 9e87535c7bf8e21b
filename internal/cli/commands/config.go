package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"glhost/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the settings file",
		Long: `Show or initialize the glhost settings file.

The settings file lives in $GLHOST_CONFIG_DIR, $XDG_CONFIG_HOME/glhost or
~/.config/glhost. Built-in defaults apply when it does not exist.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", config.SettingsPath())
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				return fmt.Errorf("failed to encode settings: %w", err)
			}
			return enc.Close()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := config.InitSettings()
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.SettingsPath())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", config.SettingsPath())
			}
			return nil
		},
	}

	configCmd.AddCommand(showCmd, initCmd)
	return configCmd
}
