package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/api"
	"github.com/sells-group/leadscore/internal/config"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, config.ModeServe, true)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := []api.Option{
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
			api.WithDefaultBatchLimit(cfg.Batch.DefaultLimit),
		}
		// Sync over HTTP is only offered when the source is fully configured.
		if err := cfg.Validate(config.ModeSync); err == nil {
			job, err := newSyncJob(env, cfg)
			if err != nil {
				zap.L().Warn("sync endpoint disabled", zap.Error(err))
			} else {
				opts = append(opts, api.WithSyncer(job))
			}
		} else {
			zap.L().Info("sync endpoint disabled", zap.Error(err))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.New(env.Store, env.Predictor, env.Stats, opts...).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
