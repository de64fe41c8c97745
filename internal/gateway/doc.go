// Package gateway は議事録アプリのバックエンドゲートウェイを提供する。
//
// 管理者ログインによるJWT発行と、OpenAI・Fireflies・Geminiの各上流APIへの
// 認証付きリバースプロキシを担当する。上流APIのキーはサーバー側だけで保持し、
// クライアントには渡さない。データは永続化せず、単一のステートレスなプロセスとして動作する。
package gateway
