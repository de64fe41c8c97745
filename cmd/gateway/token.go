package main

import (
	"fmt"

	"github.com/brainstudio/minutes-backend/pkg/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "設定済みのシークレットでトークンを発行する（動作確認用）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if username == "" {
				username = cfg.Admin.Username
			}

			tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
			token, err := tokens.Issue(username)
			if err != nil {
				return fmt.Errorf("トークンの発行に失敗: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			// 標準出力はトークンだけにしてパイプで渡せるようにする
			fmt.Fprintf(cmd.ErrOrStderr(), "user=%s ttl=%s\n", username, tokens.TTL())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "トークンに含めるユーザー名（省略時はADMIN_USER）")
	return cmd
}
