package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brainstudio/minutes-backend/internal/gateway"
	"github.com/brainstudio/minutes-backend/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "ゲートウェイを起動する（SIGINT/SIGTERMで停止）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return fmt.Errorf("ロガーの初期化に失敗: %w", err)
			}
			defer func() { _ = log.Sync() }()

			gin.SetMode(cfg.GinMode)

			server, err := gateway.NewServer(cfg, log)
			if err != nil {
				log.Error("ゲートウェイの初期化に失敗", zap.Error(err))
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := server.Run(runCtx); err != nil {
				log.Error("ゲートウェイが異常終了", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
