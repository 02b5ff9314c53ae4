// Package chirp はチャープ（短いテキスト投稿）のドメインロジックを提供する。
// 入力検証、所有者ポリシーによる認可、一覧のページ分割を担う。
package chirp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hitoshi/chirper/internal/metrics"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/repository"
)

// Config はServiceの設定値。
type Config struct {
	PerPage   int // 1ページあたりの件数（デフォルト: 15）
	MaxLength int // 本文の最大文字数（デフォルト: 250）
}

// Service はチャープのサービス層。
type Service struct {
	repo      repository.ChirpRepository
	policy    Policy
	validator *FormValidator
	perPage   int
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(repo repository.ChirpRepository, policy Policy, cfg Config, collector metrics.MetricsCollector) *Service {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Service{
		repo:      repo,
		policy:    policy,
		validator: NewFormValidator(cfg.MaxLength),
		perPage:   perPage,
		metrics:   collector,
		now:       time.Now,
	}
}

// MaxLength は本文の最大文字数を返す。
func (s *Service) MaxLength() int {
	return s.validator.MaxLength()
}

// PerPage は1ページあたりの件数を返す。
func (s *Service) PerPage() int {
	return s.perPage
}

// Can はactorIDがチャープに対してactionを実行できるかを返す。
func (s *Service) Can(actorID string, action Action, chirp *model.Chirp) bool {
	return s.policy.CanPerform(actorID, action, chirp)
}

// List はチャープを新しい順にページ分割して返す。
// 各項目にはactorIDが更新・削除できるかの判定結果を付与する。
// 最終ページを超えるページ番号は空の一覧として返す。
func (s *Service) List(ctx context.Context, actorID string, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("チャープ数の取得に失敗しました: %w", err)
	}

	p := newPage(total, s.perPage, page)
	if p.offset() >= total {
		return p, nil
	}

	rows, err := s.repo.ListLatest(ctx, p.offset(), s.perPage)
	if err != nil {
		return nil, fmt.Errorf("チャープ一覧の取得に失敗しました: %w", err)
	}

	p.Items = lo.Map(rows, func(row model.ChirpWithAuthor, _ int) Item {
		return Item{
			ChirpWithAuthor: row,
			CanUpdate:       s.policy.CanPerform(actorID, ActionUpdate, &row.Chirp),
			CanDelete:       s.policy.CanPerform(actorID, ActionDelete, &row.Chirp),
		}
	})
	return p, nil
}

// Create はactorIDを投稿者としてチャープを作成する。
// 本文は前後の空白を取り除いた上で検証する。
func (s *Service) Create(ctx context.Context, actorID, message string) (*model.Chirp, error) {
	if actorID == "" {
		return nil, model.NewUnauthorizedError()
	}

	form := NewMessageForm(message)
	if err := s.validate(form); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	chirp := &model.Chirp{
		ID:        uuid.NewString(),
		UserID:    actorID,
		Message:   form.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, chirp); err != nil {
		return nil, fmt.Errorf("チャープの作成に失敗しました: %w", err)
	}

	s.recordOperation("create")
	return chirp, nil
}

// Get は指定IDのチャープを返す。存在しないIDや不正な形式のIDはNotFoundとする。
func (s *Service) Get(ctx context.Context, id string) (*model.Chirp, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewChirpNotFoundError(id)
	}

	chirp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チャープの取得に失敗しました: %w", err)
	}
	if chirp == nil {
		return nil, model.NewChirpNotFoundError(id)
	}
	return chirp, nil
}

// GetForEdit は編集フォーム表示用にチャープを返す。
// actorIDが更新権限を持たない場合はForbiddenを返す。
func (s *Service) GetForEdit(ctx context.Context, actorID, id string) (*model.Chirp, error) {
	chirp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actorID, ActionUpdate, chirp); err != nil {
		return nil, err
	}
	return chirp, nil
}

// Update はチャープの本文を更新する。
// 認可は検証より先に行い、拒否された場合は入力内容に関わらずForbiddenを返す。
// 検証エラーの場合は更新前のチャープと*model.ValidationErrorを返す。
// updated_atは常に直前の値より後の時刻になる。
func (s *Service) Update(ctx context.Context, actorID, id, message string) (*model.Chirp, error) {
	chirp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actorID, ActionUpdate, chirp); err != nil {
		return nil, err
	}

	form := NewMessageForm(message)
	if err := s.validate(form); err != nil {
		return chirp, err
	}

	updatedAt := s.now().UTC().Truncate(time.Microsecond)
	if !updatedAt.After(chirp.UpdatedAt) {
		updatedAt = chirp.UpdatedAt.Add(time.Microsecond)
	}

	if err := s.repo.UpdateMessage(ctx, chirp.ID, form.Message, updatedAt); err != nil {
		if errors.Is(err, repository.ErrChirpNotFound) {
			return nil, model.NewChirpNotFoundError(id)
		}
		return nil, fmt.Errorf("チャープの更新に失敗しました: %w", err)
	}

	chirp.Message = form.Message
	chirp.UpdatedAt = updatedAt
	s.recordOperation("update")
	return chirp, nil
}

// Delete はチャープを削除する。投稿者以外はForbiddenとなる。
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	chirp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actorID, ActionDelete, chirp); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, chirp.ID); err != nil {
		if errors.Is(err, repository.ErrChirpNotFound) {
			return model.NewChirpNotFoundError(id)
		}
		return fmt.Errorf("チャープの削除に失敗しました: %w", err)
	}

	s.recordOperation("delete")
	return nil
}

func (s *Service) authorize(actorID string, action Action, chirp *model.Chirp) error {
	if s.policy.CanPerform(actorID, action, chirp) {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordAuthorizationDenied(string(action))
	}
	return model.NewForbiddenError(string(action))
}

func (s *Service) validate(form MessageForm) error {
	err := s.validator.Validate(form)
	if err != nil && s.metrics != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			s.metrics.RecordValidationFailure("chirp")
		}
	}
	return err
}

func (s *Service) recordOperation(op string) {
	if s.metrics != nil {
		s.metrics.RecordChirpOperation(op)
	}
}
