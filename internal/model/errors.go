package model

import (
	"fmt"
	"sort"
	"strings"
)

// AppError は統一エラーフォーマットを表す。
// エラーページに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chirp, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeChirpNotFound      = "CHIRP_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeCSRF               = "CSRF_TOKEN_MISMATCH"
	ErrCodeOAuthFailed        = "OAUTH_FAILED"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewChirpNotFoundError はチャープ未検出エラーを生成する。
func NewChirpNotFoundError(chirpID string) *AppError {
	return &AppError{
		Code:     ErrCodeChirpNotFound,
		Message:  fmt.Sprintf("指定されたチャープが見つかりません: %s", chirpID),
		Category: "chirp",
		Action:   "一覧から対象のチャープを選び直してください。",
	}
}

// NewForbiddenError は操作が許可されていない場合のエラーを生成する。
// actionには update、delete などの操作名を渡す。
func NewForbiddenError(action string) *AppError {
	return &AppError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", action),
		Category: "auth",
		Action:   "自分が投稿したチャープのみ編集・削除できます。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが一致しない場合のエラーを生成する。
// ユーザー列挙を防ぐため、どちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewEmailTakenError は登録済みメールアドレスでの新規登録エラーを生成する。
func NewEmailTakenError() *AppError {
	return &AppError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewNotFoundError はページ未検出エラーを生成する。
func NewNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  "ページが見つかりません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *AppError {
	return &AppError{
		Code:     ErrCodeCSRF,
		Message:  "フォームの有効期限が切れたか、不正なリクエストです。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度送信してください。",
	}
}

// NewOAuthFailedError は外部IdPによるログインの失敗エラーを生成する。
func NewOAuthFailedError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeOAuthFailed,
		Message:  message,
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
	}
}

// NewPayloadTooLargeError は送信されたフォームが上限サイズを超えた場合のエラーを生成する。
func NewPayloadTooLargeError(maxBytes int64) *AppError {
	return &AppError{
		Code:     ErrCodePayloadTooLarge,
		Message:  fmt.Sprintf("送信内容が大きすぎます（上限 %dバイト）。", maxBytes),
		Category: "validation",
		Action:   "入力内容を短くして再度送信してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *AppError {
	return &AppError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// ValidationError はフォーム入力の検証エラーを表す。
// Fieldsはフィールド名ごとのエラーメッセージを保持する。
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError は空のValidationErrorを生成する。
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add はフィールドにエラーメッセージを追加する。
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Has は指定フィールドにエラーがあるかを返す。
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Get は指定フィールドのエラーメッセージを返す。
func (e *ValidationError) Get(field string) []string {
	if e == nil {
		return nil
	}
	return e.Fields[field]
}

// Empty はエラーが1件もないかを返す。
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], ", ")))
	}
	return fmt.Sprintf("[%s] %s", ErrCodeValidation, strings.Join(parts, "; "))
}
