// Package auth は管理者の認証情報の照合とセッショントークンの発行・検証を提供する。
//
// 認証対象は設定で与えられる単一の管理者アイデンティティのみで、
// ロールやスコープの概念は持たない。トークンは HS256 で署名した JWT で、
// サーバー側に状態を持たないため、どのレプリカでも検証できる。
package auth
