package chirp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"1", 1},
		{"3", 3},
		{"0", 1},
		{"-2", 1},
		{"abc", 1},
		{"2.5", 1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, ParsePageNumber(tt.raw))
		})
	}
}

func TestNewPage_LastPage(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 15, 1},
		{1, 15, 1},
		{15, 15, 1},
		{16, 15, 2},
		{31, 15, 3},
	}
	for _, tt := range tests {
		p := newPage(tt.total, tt.perPage, 1)
		require.Equal(t, tt.want, p.LastPage, "total=%d", tt.total)
		require.Len(t, p.Numbers(), tt.want)
	}
}

func TestPage_HasPages(t *testing.T) {
	require.False(t, newPage(3, 15, 1).HasPages())
	require.True(t, newPage(16, 15, 1).HasPages())
	require.True(t, newPage(3, 15, 4).HasPages(), "範囲外のページでは戻るリンクを表示する")
}

func TestPage_FromToEmpty(t *testing.T) {
	p := newPage(0, 15, 1)
	require.Zero(t, p.From())
	require.Zero(t, p.To())
}

func TestPage_Numbers(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		current int
		want    []int
	}{
		{"ページが少ない場合は全番号", 45, 2, []int{1, 2, 3}},
		{"先頭付近", 1500, 1, []int{1, 2, 3, 4, PageGap, 99, 100}},
		{"中央", 1500, 50, []int{1, 2, PageGap, 47, 48, 49, 50, 51, 52, 53, PageGap, 99, 100}},
		{"1ページだけの省略は番号で埋める", 1500, 7, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, PageGap, 99, 100}},
		{"末尾", 1500, 100, []int{1, 2, PageGap, 97, 98, 99, 100}},
		{"範囲外のページは末尾を基準にする", 1500, 300, []int{1, 2, PageGap, 97, 98, 99, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, newPage(tt.total, 15, tt.current).Numbers())
		})
	}
}

func TestPage_NumbersBoundedForLargeTables(t *testing.T) {
	for _, current := range []int{1, 2, 5000, 33334, 66666, 66667} {
		p := newPage(1_000_000, 15, current)
		require.Equal(t, 66667, p.LastPage)

		nums := p.Numbers()
		require.LessOrEqual(t, len(nums), 13, "current=%d", current)
		require.Contains(t, nums, current)
		require.Equal(t, 1, nums[0])
		require.Equal(t, p.LastPage, nums[len(nums)-1])
	}
}
