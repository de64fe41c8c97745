package httpclient

import (
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// ErrIdleTimeout は上流からのレスポンスボディの受信が一定時間途絶えたことを表す。
var ErrIdleTimeout = errors.New("上流からの受信が途絶えました")

// idleTimeoutBody は最後の読み込みから timeout 経過すると元のボディを閉じる。
type idleTimeoutBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

// NewIdleTimeoutBody はレスポンスボディに受信途絶の上限を設ける。
// timeout の間に一度も読み込みが進まなければボディを閉じ、以降の Read は ErrIdleTimeout を返す。
// onExpire は切断時に一度だけ呼ばれる。timeout が0以下の場合は body をそのまま返す。
func NewIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, onExpire func()) io.ReadCloser {
	if timeout <= 0 {
		return body
	}

	b := &idleTimeoutBody{body: body, timeout: timeout}
	b.timer = time.AfterFunc(timeout, func() {
		if !b.expired.CompareAndSwap(false, true) {
			return
		}
		if onExpire != nil {
			onExpire()
		}
		// 読み込み中のReadを解除する
		_ = body.Close()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if b.expired.Load() {
		return n, ErrIdleTimeout
	}
	b.timer.Reset(b.timeout)
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	return b.body.Close()
}
