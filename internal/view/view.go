// Package view はサーバーサイドレンダリングのHTMLテンプレートを提供する。
// テンプレートはバイナリに埋め込み、起動時に一度だけ解析する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/chirper/internal/chirp"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/security"
)

//go:embed templates
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsGlob = "templates/partials/*.html"
	timeLayout   = "2006-01-02 15:04"
)

// テンプレート名
const (
	ChirpsIndex  = "chirps/index"
	ChirpsCreate = "chirps/create"
	ChirpsShow   = "chirps/show"
	ChirpsEdit   = "chirps/edit"
	AuthLogin    = "auth/login"
	AuthRegister = "auth/register"
	ErrorPage    = "error"
)

// Data はすべての画面に共通するテンプレートデータ。
// Contentには画面ごとの値（ChirpIndex、ChirpFormなど）を格納する。
type Data struct {
	Title     string
	User      *model.User
	CSRFToken string
	Errors    *model.ValidationError
	Old       map[string]string
	Content   any
}

// ChirpIndex はチャープ一覧画面の値。
type ChirpIndex struct {
	Page      *chirp.Page
	MaxLength int
}

// ChirpForm はチャープの作成・表示・編集画面の値。
type ChirpForm struct {
	Chirp     *model.Chirp
	MaxLength int
	CanUpdate bool
	CanDelete bool
}

// AuthForm はログイン・登録画面の値。
type AuthForm struct {
	GoogleEnabled bool
}

// ErrorContent はエラー画面の値。
type ErrorContent struct {
	Status int
	Error  *model.AppError
}

// Renderer はテンプレート名を指定してHTMLを描画する。
type Renderer struct {
	pages     map[string]*template.Template
	formatter security.MessageFormatterService
}

// NewRenderer は埋め込みテンプレートをすべて解析してRendererを生成する。
func NewRenderer(formatter security.MessageFormatterService) (*Renderer, error) {
	r := &Renderer{
		pages:     make(map[string]*template.Template),
		formatter: formatter,
	}

	pageFiles, err := pageTemplateFiles()
	if err != nil {
		return nil, err
	}

	for _, file := range pageFiles {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		tmpl, err := template.New(path.Base(layoutFile)).
			Funcs(r.funcs()).
			ParseFS(templateFS, layoutFile, partialsGlob, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	return r, nil
}

// Render はテンプレートをバッファに描画してからレスポンスに書き込む。
// 描画に失敗した場合はレスポンスに何も書き込まずにエラーを返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data *Data) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Has は指定した名前のテンプレートが登録されているかを返す。
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"formatMessage": r.formatter.Format,
		"formatTime":    formatTime,
		"fieldError":    fieldError,
		"hasError":      hasError,
		"pageURL":       pageURL,
	}
}

// pageTemplateFiles はlayoutとpartialsを除くページテンプレートのパスを返す。
func pageTemplateFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		if p == layoutFile || path.Dir(p) == "templates/partials" {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return files, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// fieldError は指定フィールドの最初のエラーメッセージを返す。
func fieldError(errs *model.ValidationError, field string) string {
	msgs := errs.Get(field)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

func hasError(errs *model.ValidationError, field string) bool {
	return len(errs.Get(field)) > 0
}

func pageURL(page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return "/chirps?" + q.Encode()
}
