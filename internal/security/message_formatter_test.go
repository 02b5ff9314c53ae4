package security

import (
	"strings"
	"testing"
)

// TestFormat_EscapesMarkup はHTMLタグがエスケープされることを検証する。
func TestFormat_EscapesMarkup(t *testing.T) {
	f := NewMessageFormatter()

	tests := []struct {
		name       string
		input      string
		notContain []string
		contain    []string
	}{
		{
			name:       "scriptタグ",
			input:      `<script>alert("xss")</script>`,
			notContain: []string{"<script", "</script>"},
			contain:    []string{"&lt;script&gt;"},
		},
		{
			name:       "imgタグのイベント属性",
			input:      `<img src=x onerror=alert(1)>`,
			notContain: []string{"<img"},
			contain:    []string{"&lt;img"},
		},
		{
			name:       "入力中のbrタグもエスケープされる",
			input:      `a<br>b`,
			notContain: []string{"<br"},
			contain:    []string{"&lt;br&gt;"},
		},
		{
			name:       "アンパサンド",
			input:      "Tom & Jerry",
			notContain: []string{"Tom & Jerry"},
			contain:    []string{"Tom &amp; Jerry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(f.Format(tt.input))
			for _, s := range tt.notContain {
				if strings.Contains(got, s) {
					t.Errorf("Format(%q) = %q, should not contain %q", tt.input, got, s)
				}
			}
			for _, s := range tt.contain {
				if !strings.Contains(got, s) {
					t.Errorf("Format(%q) = %q, should contain %q", tt.input, got, s)
				}
			}
		})
	}
}

// TestFormat_ConvertsNewlines は改行が<br>に変換されることを検証する。
func TestFormat_ConvertsNewlines(t *testing.T) {
	f := NewMessageFormatter()

	for _, input := range []string{"行1\n行2", "行1\r\n行2", "行1\r行2"} {
		got := string(f.Format(input))
		if strings.Count(got, "<br") != 1 {
			t.Errorf("Format(%q) = %q, want exactly one <br>", input, got)
		}
		if !strings.HasPrefix(got, "行1") || !strings.HasSuffix(got, "行2") {
			t.Errorf("Format(%q) = %q, text is not preserved", input, got)
		}
	}
}

// TestFormat_PlainText は通常のテキストがそのまま出力されることを検証する。
func TestFormat_PlainText(t *testing.T) {
	f := NewMessageFormatter()

	if got := f.Format("hello world"); got != "hello world" {
		t.Errorf("Format() = %q, want %q", got, "hello world")
	}
	if got := f.Format(""); got != "" {
		t.Errorf("Format(\"\") = %q, want empty", got)
	}
}

// TestFormat_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestFormat_Idempotent(t *testing.T) {
	f := NewMessageFormatter()
	input := "<b>bold</b>\nnext"

	if f.Format(input) != f.Format(input) {
		t.Error("同一入力に対して出力が異なる")
	}
}

// TestFormat_LinksURLs はURLがリンクに変換され、ポリシーによりrelとtargetが付与されることを検証する。
func TestFormat_LinksURLs(t *testing.T) {
	f := NewMessageFormatter()

	tests := []struct {
		name     string
		input    string
		wantHref string
		wantText []string
	}{
		{
			name:     "http URL",
			input:    "見て http://example.com/a",
			wantHref: `href="http://example.com/a"`,
			wantText: []string{"見て "},
		},
		{
			name:     "日本語に続くURL",
			input:    "詳細はhttps://example.com/docsです",
			wantHref: `href="https://example.com/docs"`,
			wantText: []string{"詳細は", "です"},
		},
		{
			name:     "末尾の句読点はリンクに含めない",
			input:    "see https://example.com.",
			wantHref: `href="https://example.com"`,
			wantText: []string{"</a>."},
		},
		{
			name:     "クエリのアンパサンドはエスケープされる",
			input:    "https://example.com/?a=1&b=2",
			wantHref: `href="https://example.com/?a=1&amp;b=2"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(f.Format(tt.input))
			for _, s := range append([]string{tt.wantHref, `target="_blank"`, "nofollow", "noreferrer", "noopener"}, tt.wantText...) {
				if !strings.Contains(got, s) {
					t.Errorf("Format(%q) = %q, should contain %q", tt.input, got, s)
				}
			}
			if strings.Count(got, "<a ") != 1 {
				t.Errorf("Format(%q) = %q, want exactly one link", tt.input, got)
			}
		})
	}
}

// TestFormat_DropsUnparseableLinks は解析できないURLのリンクがポリシーにより除去され、
// テキストのみが残ることを検証する。
func TestFormat_DropsUnparseableLinks(t *testing.T) {
	f := NewMessageFormatter()

	got := string(f.Format("壊れたURL http://%zz です"))
	if strings.Contains(got, "<a") {
		t.Errorf("Format() = %q, should not contain a link", got)
	}
	if !strings.Contains(got, "http://%zz") {
		t.Errorf("Format() = %q, should keep the text", got)
	}
}

// TestFormat_NoLinkForBareScheme はスキームのみの文字列をリンクにしないことを検証する。
func TestFormat_NoLinkForBareScheme(t *testing.T) {
	f := NewMessageFormatter()

	if got := string(f.Format("http://.")); strings.Contains(got, "<a") {
		t.Errorf("Format() = %q, should not contain a link", got)
	}
}

// TestFormat_QuoteInURLCannotBreakAttribute は入力中の引用符で属性を閉じられないことを検証する。
func TestFormat_QuoteInURLCannotBreakAttribute(t *testing.T) {
	f := NewMessageFormatter()

	got := string(f.Format(`https://example.com/'onmouseover='alert(1)`))
	if strings.Contains(got, " onmouseover") {
		t.Errorf("Format() = %q, event attribute leaked", got)
	}
	if strings.Count(got, "<a ") != 1 {
		t.Errorf("Format() = %q, want exactly one link", got)
	}
}
