// Package config はゲートウェイの起動時設定を読み込む。
//
// 環境変数（および任意の設定ファイル）から一度だけ読み込み、
// 検証済みの Config を生成する。生成後の Config は読み取り専用として扱い、
// トークンサービスやプロキシルーターへ参照で渡す。
package config
