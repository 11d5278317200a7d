package cli

import (
	"time"

	"github.com/forPelevin/vidsub/internal/config"
	"github.com/forPelevin/vidsub/internal/pipeline"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// pipelineConfig maps the file config onto a pipeline template. Input and
// per-run fields are left for the caller.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Language: cfg.OCR.Language,
		Crop:     cfg.OCR.Crop,
		OutDir:   cfg.Output.Dir,
		Format:   cfg.Output.Format,

		Step:       time.Duration(cfg.Sampling.StepMS) * time.Millisecond,
		Similarity: cfg.Sampling.Similarity,
		Tail:       time.Duration(cfg.Sampling.TailMS) * time.Millisecond,

		CacheDir: cfg.Paths.CacheDir,

		FFmpegPath:  cfg.FFmpeg.FFmpegPath,
		FFprobePath: cfg.FFmpeg.FFprobePath,
		FFmpegArgs:  cfg.FFmpeg.ExtraArgs,

		TesseractPath:        cfg.OCR.TesseractPath,
		TesseractArgs:        cfg.OCR.ExtraArgs,
		TessdataDir:          cfg.OCR.TessdataDir,
		TessdataURL:          cfg.OCR.TessdataURL,
		TessdataAllowedHosts: cfg.OCR.AllowedHosts,
	}
}
