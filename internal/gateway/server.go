package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brainstudio/minutes-backend/internal/config"
	"github.com/brainstudio/minutes-backend/internal/metrics"
	"github.com/brainstudio/minutes-backend/internal/upstream"
	"github.com/brainstudio/minutes-backend/pkg/auth"
	"github.com/brainstudio/minutes-backend/pkg/httpclient"
	"github.com/brainstudio/minutes-backend/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// readHeaderTimeout はクライアントからのリクエストヘッダー受信の上限。
const readHeaderTimeout = 10 * time.Second

// Server はゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *config.Config
	// tokens はログイン時のトークン発行と認証ゲートでの検証を行う。
	tokens *auth.TokenService
	// routes は上流APIへの転送規則。
	routes *upstream.Table
	// proxy は上流APIへの転送を行う。
	proxy *upstream.Proxy
	// metrics は上流APIへの転送結果の集計。
	metrics *metrics.Metrics
	// logger は構造化ロガー。
	logger *zap.Logger
}

// loginRequest はログインAPIのリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewServer は新しいゲートウェイサーバーを生成する。
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	routes, err := upstream.DefaultTable(cfg)
	if err != nil {
		return nil, fmt.Errorf("上流ルートの生成に失敗: %w", err)
	}

	transport := httpclient.NewTransport(httpclient.Options{
		ResponseHeaderTimeout: cfg.UpstreamTimeout,
		DialTimeout:           cfg.UpstreamDialTimeout,
	})

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSOrigins,
		MaxAge:         10 * time.Minute,
	}))

	m := metrics.New()
	proxy := upstream.NewProxy(transport, logger,
		upstream.WithObserver(m),
		upstream.WithIdleTimeout(cfg.UpstreamIdleTimeout),
	)

	s := &Server{
		router:  router,
		cfg:     cfg,
		tokens:  auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		routes:  routes,
		proxy:   proxy,
		metrics: m,
		logger:  logger,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Routes は上流ルートの一覧を返す。
func (s *Server) Routes() []*upstream.Route {
	return s.routes.Routes()
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック（認証不要）
	s.router.GET("/health", s.handleHealth())
	s.router.HEAD("/health", s.handleHealth())

	// メトリクス（認証不要）
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// ログイン（認証不要）
	s.router.POST("/api/login", s.handleLogin())

	// 上流APIへのプロキシ。認証ゲートは設定で切り替える。
	api := s.router.Group("/")
	if s.cfg.AuthEnabled {
		api.Use(middleware.JWTAuth(s.tokens, s.logger))
		api.GET("/api/me", s.handleMe())
	}
	for _, route := range s.routes.Routes() {
		h := s.proxy.Handler(route)
		api.Any(route.Prefix, h)
		api.Any(route.Prefix+"/*path", h)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleLogin は管理者の認証情報を照合してトークンを発行するハンドラを返す。
// JSONボディの解析はこのハンドラだけで行い、プロキシ経路のボディには触れない。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}

		if err := s.cfg.Admin.Check(req.Username, req.Password); err != nil {
			s.logger.Info("ログインに失敗",
				zap.String("username", req.Username),
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.Error(err),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}

		token, err := s.tokens.Issue(req.Username)
		if err != nil {
			s.logger.Error("トークン発行に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}

		s.logger.Info("ログインに成功", zap.String("username", req.Username))
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// handleMe は提示されたトークンのユーザー名と有効期限を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.GetClaims(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		resp := gin.H{"username": middleware.GetUsername(c)}
		if claims.ExpiresAt != nil {
			resp["expiresAt"] = claims.ExpiresAt.Time.UTC()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Run は設定されたポートでHTTPサーバーを起動し、ctxが終了するまで待つ。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("ポート %d のリッスンに失敗: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は指定したリスナーでHTTPサーバーを起動する。
// ctxが終了すると新規接続の受付を止め、ShutdownTimeout まで処理中のリクエストを待つ。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logStartup(ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーが停止: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("シャットダウンを開始", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	s.logger.Info("シャットダウンが完了")
	return nil
}

// logStartup は起動時の設定概要と警告を出力する。APIキーの値は出力しない。
func (s *Server) logStartup(addr string) {
	s.logger.Info("ゲートウェイを起動",
		zap.String("addr", addr),
		zap.Bool("auth_enabled", s.cfg.AuthEnabled),
		zap.Strings("cors_origins", s.cfg.CORSOrigins),
		zap.Duration("upstream_timeout", s.cfg.UpstreamTimeout),
		zap.Duration("upstream_idle_timeout", s.cfg.UpstreamIdleTimeout),
	)
	for _, r := range s.routes.Routes() {
		s.logger.Info("上流ルート",
			zap.String("upstream", r.Name),
			zap.String("prefix", r.Prefix),
			zap.String("target", r.Target.String()),
			zap.Bool("credential_set", r.HasSecret()),
		)
	}
	for _, w := range s.cfg.Warnings() {
		s.logger.Warn(w.Message, zap.String("key", w.Key))
	}
}
