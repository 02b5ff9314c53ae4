package chirp

import (
	"strconv"

	"github.com/hitoshi/chirper/internal/model"
)

// DefaultPerPage は1ページあたりのチャープ件数のデフォルト値。
const DefaultPerPage = 15

const (
	// pageWindow はカレントページの前後に表示するページ番号の数。
	pageWindow = 3
	// pageEdge は先頭と末尾に常に表示するページ番号の数。
	pageEdge = 2
	// PageGap はNumbersの中で省略箇所を表す値。
	PageGap = 0
)

// Item は一覧表示用のチャープ。操作可否はPolicyで判定済み。
type Item struct {
	model.ChirpWithAuthor
	CanUpdate bool
	CanDelete bool
}

// Page はページ分割されたチャープ一覧とページ情報を表す。
type Page struct {
	Items       []Item
	Total       int
	PerPage     int
	CurrentPage int
	LastPage    int
}

// ParsePageNumber はクエリ文字列のページ番号を解釈する。
// 数値でない値や1未満は1として扱う。
func ParsePageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func newPage(total, perPage, current int) *Page {
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	return &Page{
		Items:       []Item{},
		Total:       total,
		PerPage:     perPage,
		CurrentPage: current,
		LastPage:    last,
	}
}

// offset はカレントページの先頭位置を返す。
func (p *Page) offset() int {
	return (p.CurrentPage - 1) * p.PerPage
}

// HasPrev は前のページが存在するかを返す。
func (p *Page) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext は次のページが存在するかを返す。
func (p *Page) HasNext() bool {
	return p.CurrentPage < p.LastPage
}

// PrevPage は前のページ番号を返す。範囲外のページにいる場合は最終ページを返す。
func (p *Page) PrevPage() int {
	if p.CurrentPage > p.LastPage {
		return p.LastPage
	}
	return p.CurrentPage - 1
}

// NextPage は次のページ番号を返す。
func (p *Page) NextPage() int {
	return p.CurrentPage + 1
}

// HasPages はページリンクを表示する必要があるかを返す。
func (p *Page) HasPages() bool {
	return p.LastPage > 1 || p.CurrentPage > 1
}

// From はカレントページの先頭が全体の何件目か（1始まり）を返す。空の場合は0。
func (p *Page) From() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.offset() + 1
}

// To はカレントページの末尾が全体の何件目かを返す。空の場合は0。
func (p *Page) To() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.offset() + len(p.Items)
}

// Numbers はページリンクに表示するページ番号を返す。
// 先頭と末尾のpageEdge件、カレントページ前後pageWindow件のみを含み、
// 間の省略箇所にはPageGapを入れる。1ページだけの省略は番号で埋める。
func (p *Page) Numbers() []int {
	center := min(p.CurrentPage, p.LastPage)
	show := func(n int) bool {
		return n <= pageEdge || n > p.LastPage-pageEdge ||
			(n >= center-pageWindow && n <= center+pageWindow)
	}

	nums := make([]int, 0, 2*pageEdge+2*pageWindow+3)
	for n := 1; n <= p.LastPage; n++ {
		switch {
		case show(n):
			nums = append(nums, n)
		case show(n-1) && show(n+1):
			nums = append(nums, n)
		case show(n - 1):
			nums = append(nums, PageGap)
			n = nextShown(n, center, p.LastPage) - 1
		}
	}
	return nums
}

// nextShown は省略箇所の後で最初に表示するページ番号を返す。
func nextShown(n, center, last int) int {
	if n < center-pageWindow {
		return center - pageWindow
	}
	return last - pageEdge + 1
}
