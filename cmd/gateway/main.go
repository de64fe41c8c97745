// ゲートウェイのエントリポイント。
// 管理者ログインと、OpenAI・Fireflies・Geminiへの認証付きプロキシを提供する。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
