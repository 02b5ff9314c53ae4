// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageFormatter はユーザーが投稿したチャープ本文を表示用HTMLに変換する。
// 本文はエスケープし、改行を<br>に、http(s)のURLをリンクに変換する。
// 最終的な出力はbluemondayの許可リストポリシーで検証され、
// br要素とhref属性のみを持つa要素以外は出力されない。
package security

import (
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageFormatterService はチャープ本文の表示用整形のインターフェース。
type MessageFormatterService interface {
	// Format は本文をエスケープし、改行を<br>に、URLをリンクに変換した安全なHTMLを返す。
	// 空文字列の入力には空文字列を返す。
	Format(message string) template.HTML
}

// messageFormatter はMessageFormatterServiceの実装。
type messageFormatter struct {
	policy *bluemonday.Policy
}

var (
	newlineReplacer = strings.NewReplacer("\r\n", "<br>", "\r", "<br>", "\n", "<br>")

	// urlPattern はリンク化するURL。RFC 3986で使用できるASCII文字のみを対象とする。
	urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)
)

// urlTrailingPunct はURL末尾に続く文の区切り記号。リンクには含めない。
const urlTrailingPunct = ".,!?;:'"

// NewMessageFormatter はMessageFormatterを生成する。
// ポリシーの内容:
//   - 許可タグ: br, a
//   - aのhref属性: 絶対URLのhttp/httpsのみ
//   - aタグ: rel="nofollow noreferrer noopener" と target="_blank" を付与
func NewMessageFormatter() *messageFormatter {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")

	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &messageFormatter{policy: p}
}

// Format は本文をエスケープし、改行を<br>に、URLをリンクに変換した安全なHTMLを返す。
func (f *messageFormatter) Format(message string) template.HTML {
	if message == "" {
		return ""
	}

	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(message, -1) {
		start, end := loc[0], loc[1]
		link := strings.TrimRight(message[start:end], urlTrailingPunct)
		if strings.HasSuffix(link, "://") {
			continue
		}
		end = start + len(link)

		b.WriteString(escapeText(message[last:start]))
		escaped := html.EscapeString(link)
		b.WriteString(`<a href="` + escaped + `">` + escaped + `</a>`)
		last = end
	}
	b.WriteString(escapeText(message[last:]))

	return template.HTML(f.policy.Sanitize(b.String()))
}

func escapeText(s string) string {
	return newlineReplacer.Replace(html.EscapeString(s))
}

// compile-time interface check
var _ MessageFormatterService = (*messageFormatter)(nil)
