package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/forPelevin/vidsub/internal/logging"
	"github.com/forPelevin/vidsub/internal/pipeline"
	"github.com/forPelevin/vidsub/internal/progress"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Write the burned-in subtitles of a local video to a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0])
		},
	}
	cmd.Flags().String("lang", "", "OCR language code, e.g. eng, fas, chi_sim")
	cmd.Flags().Bool("crop", false, "Only read the bottom-centre band of each frame")
	cmd.Flags().String("out", "", "Output directory")
	cmd.Flags().String("format", "", "Subtitle format: srt or ass")
	cmd.Flags().Int("duration", 0, "Video length in seconds (probed when 0)")
	cmd.Flags().Bool("flat", false, "Write into --out directly instead of a per-run directory")
	return cmd
}

func runExtract(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("lang"); v != "" {
		cfg.OCR.Language = v
	}
	if cmd.Flags().Changed("crop") {
		cfg.OCR.Crop, _ = cmd.Flags().GetBool("crop")
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.Output.Format = v
	}
	duration, _ := cmd.Flags().GetInt("duration")
	flat, _ := cmd.Flags().GetBool("flat")

	logger, err := logging.Configure(cfg)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := progress.ForTerminal(logger)
	pc := pipelineConfig(cfg)
	pc.Input = absIn
	pc.DurationSec = duration
	pc.Flat = flat
	pc.Logf = logger.Infof
	pc.Progress = rep

	if err := pc.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	res, err := pipeline.Run(ctx, pc)
	if bar, ok := rep.(*progress.Bar); ok {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Subtitles)
	return nil
}
