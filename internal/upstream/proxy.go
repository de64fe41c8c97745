package upstream

import (
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/brainstudio/minutes-backend/pkg/httpclient"
	"github.com/brainstudio/minutes-backend/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserAgent は上流APIへ送るUser-Agent。ボット判定によるブロックを避けるため固定値にする。
	UserAgent = "BrainStudioMinutes/1.0"
	// HeaderUpstreamRequestID は上流APIが返したリクエストIDを退避するヘッダー。
	HeaderUpstreamRequestID = "X-Upstream-Request-ID"

	// defaultFlushInterval はストリーミング以外のレスポンスをフラッシュする間隔。
	defaultFlushInterval = 100 * time.Millisecond
	// statusClientClosedRequest はクライアント切断をアクセスログ上で区別するためのステータス。
	statusClientClosedRequest = 499
)

// 転送失敗の種類。Observer に渡す。
const (
	FailureTimeout  = "timeout"
	FailureNetwork  = "network"
	FailureCanceled = "canceled"
	// FailureIdle はレスポンスボディの受信途絶による切断。
	FailureIdle = "idle"
)

// Observer は転送結果を受け取る。*metrics.Metrics が実装する。
type Observer interface {
	// ObserveResponse は上流の実ステータスとクライアントへ返すステータスを受け取る。
	ObserveResponse(upstream string, upstreamStatus, status int, elapsed time.Duration)
	// ObserveFailure は上流からレスポンスを得られなかった理由を受け取る。
	ObserveFailure(upstream, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveResponse(string, int, int, time.Duration) {}
func (nopObserver) ObserveFailure(string, string)                  {}

// Proxy は Route に従って上流APIへリクエストを転送する。
type Proxy struct {
	// transport は全ルートで共有する上流向けトランスポート。
	transport http.RoundTripper
	// logger は転送結果を記録するロガー。
	logger *zap.Logger
	// observer は転送結果の集計先。
	observer Observer
	// idleTimeout はレスポンスボディの受信が途絶えてから切断するまでの時間。0で無効。
	idleTimeout time.Duration
}

// ProxyOption はProxyの任意設定。
type ProxyOption func(*Proxy)

// WithObserver は転送結果の集計先を設定する。
func WithObserver(o Observer) ProxyOption {
	return func(p *Proxy) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithIdleTimeout はレスポンスボディの受信途絶で切断するまでの時間を設定する。
// ヘッダー送信後に上流が応答を止めた接続もこの時間で解放される。
func WithIdleTimeout(d time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.idleTimeout = d
	}
}

// NewProxy は新しいProxyを生成する。
func NewProxy(transport http.RoundTripper, logger *zap.Logger, opts ...ProxyOption) *Proxy {
	p := &Proxy{transport: transport, logger: logger, observer: nopObserver{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler は指定ルートへ転送するGinハンドラを返す。
func (p *Proxy) Handler(route *Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.newReverseProxy(c, route).ServeHTTP(c.Writer, c.Request)
	}
}

// newReverseProxy はリクエストごとのリバースプロキシを生成する。
func (p *Proxy) newReverseProxy(c *gin.Context, route *Route) *httputil.ReverseProxy {
	start := time.Now()
	log := p.logger.With(
		zap.String("upstream", route.Name),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.RequestIDFromContext(c.Request.Context())),
	)

	return &httputil.ReverseProxy{
		Transport:     p.transport,
		FlushInterval: defaultFlushInterval,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = route.StripPrefix(pr.In.URL.Path)
			if pr.In.URL.RawPath != "" {
				pr.Out.URL.RawPath = route.StripPrefix(pr.In.URL.RawPath)
			}
			// Hostは転送先に差し替わる
			pr.SetURL(route.Target)

			// ゲートウェイのセッショントークンは上流へ渡さない
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Set("User-Agent", UserAgent)
			if route.HasSecret() {
				pr.Out.Header.Set(route.CredentialHeader, route.CredentialValue())
			}
			for _, hook := range route.BeforeForward {
				hook(pr.Out)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			stripCORSHeaders(resp.Header)
			if id := resp.Header.Get(middleware.HeaderRequestID); id != "" {
				resp.Header.Del(middleware.HeaderRequestID)
				resp.Header.Set(HeaderUpstreamRequestID, id)
			}

			upstreamStatus := resp.StatusCode
			for _, hook := range route.AfterResponse {
				if err := hook(resp); err != nil {
					return err
				}
			}

			p.observer.ObserveResponse(route.Name, upstreamStatus, resp.StatusCode, time.Since(start))
			resp.Body = httpclient.NewIdleTimeoutBody(resp.Body, p.idleTimeout, func() {
				p.observer.ObserveFailure(route.Name, FailureIdle)
				log.Warn("上流APIからの受信が途絶えたため切断", zap.Duration("idle_timeout", p.idleTimeout))
			})

			switch {
			case resp.StatusCode != upstreamStatus:
				log.Error("上流APIのエラーステータスを変換",
					zap.Int("upstream_status", upstreamStatus),
					zap.Int("status", resp.StatusCode),
					zap.Bool("credential_set", route.HasSecret()),
				)
			case upstreamStatus >= http.StatusBadRequest:
				log.Warn("上流APIがエラーを返却", zap.Int("upstream_status", upstreamStatus))
			default:
				log.Debug("上流APIが応答", zap.Int("upstream_status", upstreamStatus))
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			switch {
			case httpclient.IsCanceled(err) || httpclient.IsCanceled(r.Context().Err()):
				p.observer.ObserveFailure(route.Name, FailureCanceled)
				log.Info("クライアントが切断したため転送を中止", zap.Error(err))
				c.Abort()
				w.WriteHeader(statusClientClosedRequest)
			case httpclient.IsTimeout(err):
				p.observer.ObserveFailure(route.Name, FailureTimeout)
				log.Error("上流APIがタイムアウト", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
				c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"message": "Upstream timeout"})
			default:
				p.observer.ObserveFailure(route.Name, FailureNetwork)
				log.Error("上流APIへの転送に失敗", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Proxy Error"})
			}
		},
	}
}

// stripCORSHeaders は上流が返したCORSヘッダーを取り除く。
// ゲートウェイ自身のCORSポリシーと重複させないため。
func stripCORSHeaders(h http.Header) {
	for key := range h {
		if strings.HasPrefix(key, "Access-Control-") {
			h.Del(key)
		}
	}
}
