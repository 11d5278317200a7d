package cli

import (
	"fmt"

	"github.com/forPelevin/vidsub/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			b, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			if cfg.Paths.ConfigPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.Paths.ConfigPath)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
