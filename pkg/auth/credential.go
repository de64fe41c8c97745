package auth

import (
	"crypto/subtle"
	"errors"
)

// ErrInvalidCredentials はユーザー名またはパスワードが一致しないことを表す。
var ErrInvalidCredentials = errors.New("ユーザー名またはパスワードが一致しません")

// Credential は起動時に設定から読み込まれる管理者の認証情報。
// 起動後は変更されない。
type Credential struct {
	// Username は管理者のユーザー名。
	Username string `validate:"required"`
	// Password は管理者のパスワード（平文）。
	Password string `validate:"required"`
}

// Check は入力されたユーザー名とパスワードを完全一致で照合する。
// 一致しない場合は ErrInvalidCredentials を返す。
func (c Credential) Check(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}
