package repository

import "errors"

var (
	// ErrChirpNotFound は更新・削除対象のチャープが存在しないことを示す。
	ErrChirpNotFound = errors.New("chirp not found")

	// ErrDuplicateEmail はメールアドレスが既に登録済みであることを示す。
	ErrDuplicateEmail = errors.New("email already registered")
)
