package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/forPelevin/vidsub/internal/ports/adapters/tessdata"
	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model <lang>",
		Short: "Download the OCR model for a language ahead of time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := tessdata.ValidateBaseURL(cfg.OCR.TessdataURL, cfg.OCR.AllowedHosts); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := tessdata.CheckLanguage(args[0]); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			p, err := tessdata.New(cfg.OCR.TessdataDir, cfg.OCR.TessdataURL).Ensure(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
