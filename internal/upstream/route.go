package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brainstudio/minutes-backend/internal/config"
	"github.com/brainstudio/minutes-backend/pkg/middleware"
	"github.com/samber/lo"
)

// ErrRouteNotFound はパスに一致するルートが無いことを表す。
var ErrRouteNotFound = errors.New("一致する上流ルートがありません")

// 上流API名。ログの upstream フィールドに出力する。
const (
	NameOpenAI    = "openai"
	NameFireflies = "fireflies"
	NameGemini    = "gemini"
)

// BeforeForwardFunc は上流へ送信する直前のリクエストを変更するフック。
type BeforeForwardFunc func(out *http.Request)

// AfterResponseFunc はクライアントへ返す前の上流レスポンスを変更するフック。
type AfterResponseFunc func(resp *http.Response) error

// Route は1つの上流APIへの転送規則。起動時に生成し、以後変更しない。
type Route struct {
	// Name は上流API名。
	Name string
	// Prefix は受信パスの接頭辞（例: /api/openai）。転送時に取り除く。
	Prefix string
	// Target は転送先のベースURL。
	Target *url.URL
	// CredentialHeader はAPIキーを注入するヘッダー名。
	CredentialHeader string
	// CredentialScheme はヘッダー値の前に付けるスキーム（例: Bearer）。空の場合はキーのみ。
	CredentialScheme string
	// Secret はサーバー側で保持するAPIキー。空の場合は注入しない。
	Secret string
	// BeforeForward は転送前に順に適用するフック。
	BeforeForward []BeforeForwardFunc
	// AfterResponse はレスポンス受信後に順に適用するフック。
	AfterResponse []AfterResponseFunc
}

// HasSecret はAPIキーが設定されているかを返す。
func (r *Route) HasSecret() bool {
	return r.Secret != ""
}

// CredentialValue は注入するヘッダー値を返す。
func (r *Route) CredentialValue() string {
	if r.CredentialScheme == "" {
		return r.Secret
	}
	return r.CredentialScheme + " " + r.Secret
}

// Matches はパスがこのルートの接頭辞に一致するかを返す。
// 接頭辞はパスセグメント単位で比較する（/api/openaiX には一致しない）。
func (r *Route) Matches(path string) bool {
	return path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/")
}

// StripPrefix は受信パスから接頭辞を取り除いた上流パスを返す。
// 残りが空の場合は "/" を返す。
func (r *Route) StripPrefix(path string) string {
	rest := strings.TrimPrefix(path, r.Prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

// ForceJSONContentType はクライアントの指定にかかわらず Content-Type を application/json にする。
// FirefliesのGraphQL APIで使用する。
func ForceJSONContentType(out *http.Request) {
	out.Header.Set("Content-Type", "application/json")
}

// TranslateAuthFailure は上流の401と403を502に置き換える。
// それ以外のステータスは変更しない。
func TranslateAuthFailure(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.StatusCode = http.StatusBadGateway
		resp.Status = fmt.Sprintf("%d %s", http.StatusBadGateway, http.StatusText(http.StatusBadGateway))
	}
	return nil
}

// Table はパス接頭辞で検索できる上流ルートの一覧。
type Table struct {
	routes []*Route
}

// NewTable はルート一覧を生成する。
// 名前や接頭辞が重複している場合、または必須項目が欠けている場合はエラーを返す。
func NewTable(routes ...*Route) (*Table, error) {
	for _, r := range routes {
		if r.Name == "" || r.Target == nil || r.CredentialHeader == "" {
			return nil, fmt.Errorf("ルート定義が不完全です: %+v", r)
		}
		if !strings.HasPrefix(r.Prefix, "/") || strings.HasSuffix(r.Prefix, "/") {
			return nil, fmt.Errorf("ルート %s の接頭辞が不正です: %q", r.Name, r.Prefix)
		}
	}
	if dup := lo.FindDuplicatesBy(routes, func(r *Route) string { return r.Prefix }); len(dup) > 0 {
		return nil, fmt.Errorf("接頭辞が重複しています: %s", dup[0].Prefix)
	}
	if dup := lo.FindDuplicatesBy(routes, func(r *Route) string { return r.Name }); len(dup) > 0 {
		return nil, fmt.Errorf("ルート名が重複しています: %s", dup[0].Name)
	}
	return &Table{routes: routes}, nil
}

// Routes は登録順のルート一覧を返す。
func (t *Table) Routes() []*Route {
	return append([]*Route(nil), t.routes...)
}

// Match はパスに一致するルートを返す。
// 一致するルートが無い場合は ErrRouteNotFound を返す。
func (t *Table) Match(path string) (*Route, error) {
	route, ok := lo.Find(t.routes, func(r *Route) bool { return r.Matches(path) })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	return route, nil
}

// DefaultTable は設定から OpenAI、Fireflies、Gemini の3ルートを生成する。
func DefaultTable(cfg *config.Config) (*Table, error) {
	defs := []struct {
		name     string
		upstream config.Upstream
		header   string
		scheme   string
		before   []BeforeForwardFunc
	}{
		{name: NameOpenAI, upstream: cfg.OpenAI, header: "Authorization", scheme: "Bearer"},
		{name: NameFireflies, upstream: cfg.Fireflies, header: "Authorization", scheme: "Bearer",
			before: []BeforeForwardFunc{ForceJSONContentType}},
		{name: NameGemini, upstream: cfg.Gemini, header: middleware.HeaderGoogAPIKey},
	}

	routes := make([]*Route, 0, len(defs))
	for _, d := range defs {
		target, err := url.Parse(d.upstream.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s の転送先URLが不正です: %w", d.name, err)
		}
		routes = append(routes, &Route{
			Name:             d.name,
			Prefix:           "/api/" + d.name,
			Target:           target,
			CredentialHeader: d.header,
			CredentialScheme: d.scheme,
			Secret:           d.upstream.APIKey,
			BeforeForward:    d.before,
			AfterResponse:    []AfterResponseFunc{TranslateAuthFailure},
		})
	}
	return NewTable(routes...)
}
