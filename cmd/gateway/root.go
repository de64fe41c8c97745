package main

import (
	"fmt"
	"sync"

	"github.com/brainstudio/minutes-backend/internal/config"
	"github.com/spf13/cobra"
)

// commandContext はサブコマンド間で共有する設定の読み込み状態。
type commandContext struct {
	configPath *string

	once sync.Once
	cfg  *config.Config
	err  error
}

// loadConfig は設定を一度だけ読み込む。
func (c *commandContext) loadConfig() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, c.err = config.Load(*c.configPath)
		if c.err != nil {
			c.err = fmt.Errorf("設定の読み込みに失敗: %w", c.err)
		}
	})
	return c.cfg, c.err
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configPath: &configFlag}

	serveCmd := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "minutes-gateway",
		Short:         "議事録アプリのバックエンドゲートウェイ",
		SilenceUsage:  true,
		SilenceErrors: true,
		// サブコマンド省略時はサーバーを起動する
		RunE: serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "設定ファイルのパス（環境変数で上書きされる）")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newRoutesCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
