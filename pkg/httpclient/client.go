package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultResponseHeaderTimeout は上流APIのレスポンスヘッダー待ちの既定値。
	DefaultResponseHeaderTimeout = 60 * time.Second
	// defaultDialTimeout はTCP接続確立の上限。
	defaultDialTimeout = 10 * time.Second
	// defaultTLSHandshakeTimeout はTLSハンドシェイクの上限。
	defaultTLSHandshakeTimeout = 10 * time.Second
	// defaultIdleConnTimeout はアイドル接続を保持する時間。
	defaultIdleConnTimeout = 90 * time.Second
	// defaultMaxIdleConnsPerHost はホストごとに保持するアイドル接続数。
	defaultMaxIdleConnsPerHost = 16
)

// Options はトランスポートの設定。
type Options struct {
	// ResponseHeaderTimeout はリクエスト送信後、レスポンスヘッダーを受け取るまでの上限。
	// 0以下の場合は DefaultResponseHeaderTimeout を使う。
	ResponseHeaderTimeout time.Duration
	// DialTimeout はTCP接続確立の上限。0以下の場合は既定値を使う。
	DialTimeout time.Duration
}

// NewTransport は上流API向けの *http.Transport を生成する。
// http.DefaultTransport を複製し、プロキシ環境変数やHTTP/2の設定を引き継ぐ。
func NewTransport(opts Options) *http.Transport {
	headerTimeout := opts.ResponseHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = DefaultResponseHeaderTimeout
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = defaultTLSHandshakeTimeout
	transport.ResponseHeaderTimeout = headerTimeout
	transport.IdleConnTimeout = defaultIdleConnTimeout
	transport.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	return transport
}

// IsTimeout はエラーが上流APIのタイムアウトによるものかを判定する。
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsCanceled はエラーがクライアント側のキャンセルによるものかを判定する。
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
