package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/forPelevin/vidsub/internal/bot"
	"github.com/forPelevin/vidsub/internal/jobstore"
	"github.com/forPelevin/vidsub/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the subtitle extractor bot server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	jobs, err := jobstore.Open(cfg.Paths.DBPath)
	if err != nil {
		return err
	}
	defer jobs.Close()

	srv := bot.New(bot.Options{
		Base:           pipelineConfig(cfg),
		DataDir:        filepath.Join(cfg.Paths.StateDir, "bot"),
		MaxJobs:        cfg.Server.MaxJobs,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Jobs:           jobs,
		Logger:         logger,
		Retention:      time.Duration(cfg.Server.RetentionMin) * time.Minute,
	})
	defer srv.Close()
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("bot listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.CancelAll()
	err = httpSrv.Shutdown(shutdownCtx)
	srv.Wait()
	return err
}
