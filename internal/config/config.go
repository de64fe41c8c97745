package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brainstudio/minutes-backend/pkg/auth"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// 設定キー。環境変数名はキーを大文字にしたもの（例: port → PORT）。
const (
	keyPort            = "port"
	keyAdminUser       = "admin_user"
	keyAdminPassword   = "admin_password"
	keyJWTSecret       = "jwt_secret"
	keyTokenTTL        = "token_ttl"
	keyAuthEnabled     = "auth_enabled"
	keyCORSOrigin      = "cors_origin"
	keyUpstreamTimeout = "upstream_timeout"
	keyShutdownTimeout = "shutdown_timeout"
	keyLogLevel        = "log_level"
	keyLogFormat       = "log_format"
	keyGinMode         = "gin_mode"

	keyUpstreamDialTimeout = "upstream_dial_timeout"
	keyUpstreamIdleTimeout = "upstream_idle_timeout"

	keyOpenAIAPIKey     = "openai_api_key"
	keyOpenAIBaseURL    = "openai_base_url"
	keyFirefliesAPIKey  = "fireflies_api_key"
	keyFirefliesBaseURL = "fireflies_base_url"
	keyGeminiAPIKey     = "gemini_api_key"
	keyGeminiBaseURL    = "gemini_base_url"
)

// DefaultEnvFile は設定ファイル未指定時に読み込むdotenv形式のファイル。
const DefaultEnvFile = ".env"

// 既定値。
const (
	DefaultPort          = 8080
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "password"
	DefaultJWTSecret     = "secret_key"

	DefaultOpenAIBaseURL    = "https://api.openai.com"
	DefaultFirefliesBaseURL = "https://api.fireflies.ai"
	DefaultGeminiBaseURL    = "https://generativelanguage.googleapis.com"
)

// Config はゲートウェイの設定。
type Config struct {
	// Port はリッスンポート。
	Port int `validate:"min=1,max=65535"`
	// Admin はログインを許可する唯一の認証情報。
	Admin auth.Credential
	// JWTSecret はトークン署名用の共有シークレット。
	JWTSecret string `validate:"required"`
	// TokenTTL はトークンの有効期間。
	TokenTTL time.Duration `validate:"gt=0"`
	// AuthEnabled がfalseの場合、プロキシルートで認証ゲートを適用しない。
	AuthEnabled bool
	// CORSOrigins は許可するオリジン。空の場合は全オリジンを許可する。
	CORSOrigins []string
	// UpstreamTimeout は上流APIのレスポンスヘッダー待ちの上限。
	UpstreamTimeout time.Duration `validate:"gt=0"`
	// UpstreamDialTimeout は上流APIへのTCP接続確立の上限。
	UpstreamDialTimeout time.Duration `validate:"gt=0"`
	// UpstreamIdleTimeout はレスポンスボディの受信が途絶えてから切断するまでの時間。0で無効。
	UpstreamIdleTimeout time.Duration `validate:"gte=0"`
	// ShutdownTimeout はグレースフルシャットダウンで処理中のリクエストを待つ上限。
	ShutdownTimeout time.Duration `validate:"gt=0"`

	OpenAI    Upstream
	Fireflies Upstream
	Gemini    Upstream

	Log Log
	// GinMode はGinの動作モード。
	GinMode string `validate:"oneof=debug release test"`
}

// Upstream は上流APIごとの接続設定。
type Upstream struct {
	// BaseURL は転送先のベースURL。
	BaseURL string `validate:"required,url"`
	// APIKey はサーバー側で保持する上流APIのキー。空の場合は認証なしで転送する。
	APIKey string
}

// Log はロガーの設定。
type Log struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// Addr はリッスンアドレスを返す。
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load は環境変数から設定を読み込む。
// pathが空でなければ設定ファイルも読み込み、環境変数で上書きする。
// pathが空でカレントディレクトリに .env があれば、それを設定ファイルとして読み込む。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			path = DefaultEnvFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s の確認に失敗: %w", DefaultEnvFile, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	return fromViper(v)
}

// setDefaults は既定値を登録する。
// AutomaticEnv は登録済みのキーに対してのみ環境変数を参照するため、全キーを登録する。
func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, DefaultPort)
	v.SetDefault(keyAdminUser, DefaultAdminUser)
	v.SetDefault(keyAdminPassword, DefaultAdminPassword)
	v.SetDefault(keyJWTSecret, DefaultJWTSecret)
	v.SetDefault(keyTokenTTL, auth.DefaultTokenTTL)
	v.SetDefault(keyAuthEnabled, true)
	v.SetDefault(keyCORSOrigin, "")
	v.SetDefault(keyUpstreamTimeout, 60*time.Second)
	v.SetDefault(keyUpstreamDialTimeout, 10*time.Second)
	v.SetDefault(keyUpstreamIdleTimeout, 120*time.Second)
	v.SetDefault(keyShutdownTimeout, 10*time.Second)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyGinMode, "release")

	v.SetDefault(keyOpenAIAPIKey, "")
	v.SetDefault(keyOpenAIBaseURL, DefaultOpenAIBaseURL)
	v.SetDefault(keyFirefliesAPIKey, "")
	v.SetDefault(keyFirefliesBaseURL, DefaultFirefliesBaseURL)
	v.SetDefault(keyGeminiAPIKey, "")
	v.SetDefault(keyGeminiBaseURL, DefaultGeminiBaseURL)
}

// fromViper はviperの値からConfigを組み立てて検証する。
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port: v.GetInt(keyPort),
		Admin: auth.Credential{
			Username: v.GetString(keyAdminUser),
			Password: v.GetString(keyAdminPassword),
		},
		JWTSecret:       v.GetString(keyJWTSecret),
		TokenTTL:        v.GetDuration(keyTokenTTL),
		AuthEnabled:     v.GetBool(keyAuthEnabled),
		CORSOrigins:     ParseOrigins(v.GetString(keyCORSOrigin)),
		UpstreamTimeout: v.GetDuration(keyUpstreamTimeout),
		ShutdownTimeout: v.GetDuration(keyShutdownTimeout),

		UpstreamDialTimeout: v.GetDuration(keyUpstreamDialTimeout),
		UpstreamIdleTimeout: v.GetDuration(keyUpstreamIdleTimeout),

		OpenAI: Upstream{
			BaseURL: strings.TrimRight(v.GetString(keyOpenAIBaseURL), "/"),
			APIKey:  v.GetString(keyOpenAIAPIKey),
		},
		Fireflies: Upstream{
			BaseURL: strings.TrimRight(v.GetString(keyFirefliesBaseURL), "/"),
			APIKey:  v.GetString(keyFirefliesAPIKey),
		},
		Gemini: Upstream{
			BaseURL: strings.TrimRight(v.GetString(keyGeminiBaseURL), "/"),
			APIKey:  v.GetString(keyGeminiAPIKey),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString(keyLogLevel)),
			Format: strings.ToLower(v.GetString(keyLogFormat)),
		},
		GinMode: v.GetString(keyGinMode),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("設定値が不正です: %w", err)
	}
	return cfg, nil
}

// ParseOrigins はカンマ区切りのオリジン指定をリストに変換する。
// 空要素と重複は取り除く。"*" を含む場合は全オリジン許可として空リストを返す。
func ParseOrigins(raw string) []string {
	origins := lo.Uniq(lo.FilterMap(strings.Split(raw, ","), func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if len(origins) == 0 || lo.Contains(origins, "*") {
		return nil
	}
	return origins
}

// Warning は起動時に一度だけ出力する設定上の警告。
type Warning struct {
	// Key は警告の原因となった環境変数名。
	Key string
	// Message は警告の内容。
	Message string
}

// Warnings は安全でない既定値や未設定の上流APIキーを列挙する。
// 上流APIキーの欠落では起動を止めない。
func (c *Config) Warnings() []Warning {
	var warnings []Warning
	if c.JWTSecret == DefaultJWTSecret {
		warnings = append(warnings, Warning{Key: "JWT_SECRET", Message: "JWTシークレットが既定値のままです"})
	}
	if c.Admin.Password == DefaultAdminPassword {
		warnings = append(warnings, Warning{Key: "ADMIN_PASSWORD", Message: "管理者パスワードが既定値のままです"})
	}
	if !c.AuthEnabled {
		warnings = append(warnings, Warning{Key: "AUTH_ENABLED", Message: "認証ゲートが無効です。プロキシルートは認証なしで利用できます"})
	}
	for _, u := range []struct {
		key string
		up  Upstream
	}{
		{key: "OPENAI_API_KEY", up: c.OpenAI},
		{key: "FIREFLIES_API_KEY", up: c.Fireflies},
		{key: "GEMINI_API_KEY", up: c.Gemini},
	} {
		if u.up.APIKey == "" {
			warnings = append(warnings, Warning{Key: u.key, Message: "上流APIキーが未設定です。リクエストは認証なしで転送されます"})
		}
	}
	return warnings
}
