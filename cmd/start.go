package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/btnalit/clash-cfg-edit/internal/config"
	"github.com/btnalit/clash-cfg-edit/internal/http/server"
	"github.com/btnalit/clash-cfg-edit/internal/logger"
	"github.com/btnalit/clash-cfg-edit/internal/mihomo"
	"github.com/btnalit/clash-cfg-edit/internal/session"
	"github.com/btnalit/clash-cfg-edit/internal/storage"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the configuration editor backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		l, err := logger.New(cfg.Log.Level, cfg.Log.Path)
		if err != nil {
			return err
		}
		defer l.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		sessions := session.New(l)
		sessions.Run(ctx)

		store, err := storage.New(cfg.ConfigDir, l)
		if err != nil {
			l.Fatal("start: cannot open config directory", zap.Error(err))
		}

		s := server.New(cfg, l, sessions, store, mihomo.NewClient(l))
		s.Run()

		l.Info(
			"start: running...",
			zap.String("address", cfg.HttpServer.Host),
			zap.Int("port", cfg.HttpServer.Port),
			zap.String("configs", cfg.ConfigDir),
			zap.Bool("auth", cfg.Auth.Enabled),
		)

		<-ctx.Done()

		s.Close()
		return nil
	},
}
