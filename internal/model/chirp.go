package model

import "time"

// Chirp はユーザーが投稿する短いテキスト投稿を表す。
// UserIDは作成時に一度だけ設定され、以後変更されない。
type Chirp struct {
	ID        string
	UserID    string
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEdited は作成後に更新されたかを返す。
func (c *Chirp) IsEdited() bool {
	return c.UpdatedAt.After(c.CreatedAt)
}

// ChirpWithAuthor はチャープと投稿者名を結合した一覧表示用の構造体。
type ChirpWithAuthor struct {
	Chirp
	AuthorName string
}
