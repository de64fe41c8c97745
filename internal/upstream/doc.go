// Package upstream は上流API（OpenAI、Fireflies、Gemini）へのリバースプロキシを提供する。
//
// 各上流APIは Route という記述子で表す。Route はパス接頭辞、転送先、
// 認証情報を注入するヘッダー、転送前後のフックを持つ。
// Proxy は Route に従ってパスの接頭辞を取り除き、Hostを転送先に差し替え、
// サーバー側で保持するAPIキーを注入してリクエストを転送する。
//
// 上流APIが401または403を返した場合、クライアントには502として返す。
// クライアントがこれを自身のセッション切れと誤認してログアウトしないようにするため。
// 実際のステータスはサーバーログに記録する。
package upstream
