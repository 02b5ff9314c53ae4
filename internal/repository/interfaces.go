// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/chirper/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスは大文字小文字を区別せずに比較する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はパスワード登録ユーザーを作成する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create は既存ユーザーにidentityを紐付ける。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ChirpRepository はチャープデータの永続化インターフェース。
// 認可判定は行わない。所有者チェックはサービス層のポリシーが担う。
type ChirpRepository interface {
	// FindByID は指定IDのチャープを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Chirp, error)

	// Create はチャープを作成する。
	Create(ctx context.Context, chirp *model.Chirp) error

	// UpdateMessage はチャープの本文とupdated_atを更新する。
	// 対象が存在しない場合はErrChirpNotFoundを返す。
	UpdateMessage(ctx context.Context, id, message string, updatedAt time.Time) error

	// Delete は指定IDのチャープを物理削除する。
	// 対象が存在しない場合はErrChirpNotFoundを返す。
	Delete(ctx context.Context, id string) error

	// ListLatest はチャープを投稿者名付きでcreated_at降順（同時刻はid降順）に取得する。
	ListLatest(ctx context.Context, offset, limit int) ([]model.ChirpWithAuthor, error)

	// Count はチャープの総数を返す。
	Count(ctx context.Context) (int, error)
}
