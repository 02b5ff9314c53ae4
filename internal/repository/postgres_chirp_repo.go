package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/chirper/internal/model"
)

// PostgresChirpRepo はPostgreSQLを使用したチャープリポジトリ。
type PostgresChirpRepo struct {
	db *sql.DB
}

// NewPostgresChirpRepo はPostgresChirpRepoを生成する。
func NewPostgresChirpRepo(db *sql.DB) *PostgresChirpRepo {
	return &PostgresChirpRepo{db: db}
}

// FindByID は指定IDのチャープを取得する。見つからない場合はnilを返す。
func (r *PostgresChirpRepo) FindByID(ctx context.Context, id string) (*model.Chirp, error) {
	chirp := &model.Chirp{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, message, created_at, updated_at
		 FROM chirps WHERE id = $1`,
		id,
	).Scan(&chirp.ID, &chirp.UserID, &chirp.Message, &chirp.CreatedAt, &chirp.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャープの取得に失敗しました: %w", err)
	}

	return chirp, nil
}

// Create はチャープを作成する。
func (r *PostgresChirpRepo) Create(ctx context.Context, chirp *model.Chirp) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chirps (id, user_id, message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		chirp.ID, chirp.UserID, chirp.Message, chirp.CreatedAt, chirp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("チャープの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateMessage はチャープの本文とupdated_atを更新する。
func (r *PostgresChirpRepo) UpdateMessage(ctx context.Context, id, message string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE chirps SET message = $2, updated_at = $3 WHERE id = $1`,
		id, message, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("チャープの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrChirpNotFound, id)
	}
	return nil
}

// Delete は指定IDのチャープを削除する。
func (r *PostgresChirpRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chirps WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("チャープの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrChirpNotFound, id)
	}
	return nil
}

// ListLatest はチャープを投稿者名付きで新しい順に取得する。
// created_atが同一の場合はid降順で並べ、ページをまたいでも順序が安定するようにする。
func (r *PostgresChirpRepo) ListLatest(ctx context.Context, offset, limit int) ([]model.ChirpWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.message, c.created_at, c.updated_at, u.name
		 FROM chirps c
		 JOIN users u ON u.id = c.user_id
		 ORDER BY c.created_at DESC, c.id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("チャープ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var chirps []model.ChirpWithAuthor
	for rows.Next() {
		var c model.ChirpWithAuthor
		if err := rows.Scan(&c.ID, &c.UserID, &c.Message, &c.CreatedAt, &c.UpdatedAt, &c.AuthorName); err != nil {
			return nil, fmt.Errorf("チャープ行の読み取りに失敗しました: %w", err)
		}
		chirps = append(chirps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チャープ一覧の走査に失敗しました: %w", err)
	}
	return chirps, nil
}

// Count はチャープの総数を返す。
func (r *PostgresChirpRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chirps`).Scan(&count); err != nil {
		return 0, fmt.Errorf("チャープ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ChirpRepository = (*PostgresChirpRepo)(nil)
