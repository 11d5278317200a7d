package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/forPelevin/vidsub/internal/usecase"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRoot()
	if err := root.Execute(); err != nil {
		if errors.Is(err, usecase.ErrNoTextDetected) {
			fmt.Fprintln(os.Stderr, "no text detected")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "vidsub",
		Short:        "Extract burned-in subtitles from videos",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (default ~/.config/vidsub/config.toml)")

	root.AddCommand(newExtractCmd(), newServeCmd(), newModelCmd(), newConfigCmd())
	return root
}
