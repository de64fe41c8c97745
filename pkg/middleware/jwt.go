package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brainstudio/minutes-backend/pkg/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrUnauthenticated はAuthorizationヘッダーまたはBearerトークンが無いことを表す。
var ErrUnauthenticated = errors.New("Bearerトークンがありません")

// コンテキストキー。
const (
	contextKeyUsername = "username"
	contextKeyClaims   = "claims"
)

// TokenVerifier はBearerトークンを検証してクレームを返す。
// *auth.TokenService が実装する。
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// BearerToken はAuthorizationヘッダーの値からBearerトークンを取り出す。
// スキームが Bearer でない場合やトークンが空の場合は ErrUnauthenticated を返す。
func BearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// JWTAuth はBearerトークンを検証する認証ゲートのGinミドルウェアを返す。
// トークンが無い場合は401、無効または期限切れの場合は403で処理を中断する。
// 検証に成功した場合、コンテキストにユーザー名とクレームを設定する。
func JWTAuth(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Unauthorized",
			})
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			logger.Info("トークン検証に失敗",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Forbidden",
			})
			return
		}

		c.Set(contextKeyUsername, claims.Username)
		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

// GetUsername はGinコンテキストから認証済みユーザー名を取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUsername(c *gin.Context) string {
	return c.GetString(contextKeyUsername)
}

// GetClaims はGinコンテキストからトークンのクレームを取得する。
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
