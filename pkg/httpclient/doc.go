// Package httpclient は上流APIへの通信に使うHTTPトランスポートを提供する。
//
// ゲートウェイのリバースプロキシが使用する。
// 接続とTLSハンドシェイクにはそれぞれ上限を設け、
// 上流APIの応答待ちにはレスポンスヘッダー到着までのタイムアウトを適用する。
// レスポンスボディは転送時間全体ではなく受信の途絶だけを制限するため（NewIdleTimeoutBody）、
// ストリーミング応答も受信が続く限り途中で切られない。
package httpclient
