// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// CORS設定、Bearerトークンによる認証ゲート、リクエストIDの付与、
// 構造化アクセスログ、パニックリカバリを含む。
package middleware
