package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// HeaderGoogAPIKey はGemini APIのAPIキーを渡すカスタムヘッダー。
const HeaderGoogAPIKey = "x-goog-api-key"

// DefaultAllowedMethods はCORSで許可するHTTPメソッドの既定値。
var DefaultAllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// DefaultAllowedHeaders はCORSで許可するリクエストヘッダーの既定値。
var DefaultAllowedHeaders = []string{"Content-Type", "Authorization", HeaderGoogAPIKey}

// CORSConfig はCORSポリシーの設定。
type CORSConfig struct {
	// AllowedOrigins は許可するオリジンの完全一致リスト。空の場合は全オリジンを許可する。
	AllowedOrigins []string
	// AllowedMethods は許可するメソッド。空の場合は DefaultAllowedMethods。
	AllowedMethods []string
	// AllowedHeaders は許可するリクエストヘッダー。空の場合は DefaultAllowedHeaders。
	AllowedHeaders []string
	// MaxAge はプリフライト結果のキャッシュ期間。
	MaxAge time.Duration
}

// CORS はクロスオリジンリクエストを許可するGinミドルウェアを返す。
// すべてのルートに同一のポリシーを適用し、OPTIONSプリフライトは
// 認証を経由せずに204で応答する。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowAny := len(cfg.AllowedOrigins) == 0
	originsSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		originsSet[o] = struct{}{}
	}

	methods := strings.Join(lo.Ternary(len(cfg.AllowedMethods) > 0, cfg.AllowedMethods, DefaultAllowedMethods), ", ")
	headers := strings.Join(lo.Ternary(len(cfg.AllowedHeaders) > 0, cfg.AllowedHeaders, DefaultAllowedHeaders), ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		switch {
		case allowAny && origin != "":
			allowed = origin
		case allowAny:
			allowed = "*"
		default:
			if _, ok := originsSet[origin]; ok {
				allowed = origin
			}
		}

		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Expose-Headers", HeaderRequestID)
			if maxAge != "" {
				c.Header("Access-Control-Max-Age", maxAge)
			}
		}
		if allowed != "*" {
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
