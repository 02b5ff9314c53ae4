package chirp

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/repository"
)

// --- モック ---

// memChirpRepo はChirpRepositoryのインメモリ実装。
type memChirpRepo struct {
	mu      sync.Mutex
	chirps  map[string]model.Chirp
	authors map[string]string

	createErr error
	countErr  error
}

func newMemChirpRepo() *memChirpRepo {
	return &memChirpRepo{
		chirps:  make(map[string]model.Chirp),
		authors: map[string]string{"user-a": "A", "user-b": "B"},
	}
}

func (r *memChirpRepo) FindByID(ctx context.Context, id string) (*model.Chirp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chirps[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memChirpRepo) Create(ctx context.Context, chirp *model.Chirp) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chirps[chirp.ID] = *chirp
	return nil
}

func (r *memChirpRepo) UpdateMessage(ctx context.Context, id, message string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chirps[id]
	if !ok {
		return repository.ErrChirpNotFound
	}
	c.Message = message
	c.UpdatedAt = updatedAt
	r.chirps[id] = c
	return nil
}

func (r *memChirpRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chirps[id]; !ok {
		return repository.ErrChirpNotFound
	}
	delete(r.chirps, id)
	return nil
}

func (r *memChirpRepo) ListLatest(ctx context.Context, offset, limit int) ([]model.ChirpWithAuthor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.ChirpWithAuthor, 0, len(r.chirps))
	for _, c := range r.chirps {
		all = append(all, model.ChirpWithAuthor{Chirp: c, AuthorName: r.authors[c.UserID]})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memChirpRepo) Count(ctx context.Context) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chirps), nil
}

type spyMetrics struct {
	ops         []string
	denied      []string
	validations int
}

func (m *spyMetrics) RecordChirpOperation(operation string) { m.ops = append(m.ops, operation) }
func (m *spyMetrics) RecordAuthorizationDenied(action string) { m.denied = append(m.denied, action) }
func (m *spyMetrics) RecordValidationFailure(form string) { m.validations++ }
func (m *spyMetrics) RecordLoginAttempt(method string, success bool) {}
func (m *spyMetrics) RecordHTTPStatus(statusCode int) {}
func (m *spyMetrics) RecordRequestLatency(duration time.Duration) {}

// fakeClock は呼び出しごとに指定した刻みで進む時計。
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func newTestService(t *testing.T, cfg Config) (*Service, *memChirpRepo, *spyMetrics) {
	t.Helper()
	repo := newMemChirpRepo()
	spy := &spyMetrics{}
	svc := NewService(repo, OwnerPolicy{}, cfg, spy)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Second}
	svc.now = clock.Now
	return svc, repo, spy
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *model.AppError
	require.True(t, errors.As(err, &appErr), "AppErrorが返るべき: %v", err)
	require.Equal(t, code, appErr.Code)
}

func requireValidationError(t *testing.T, err error) *model.ValidationError {
	t.Helper()
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr), "ValidationErrorが返るべき: %v", err)
	require.True(t, verr.Has(FieldMessage))
	return verr
}

// --- Create ---

func TestService_Create_StoresTrimmedMessage(t *testing.T) {
	svc, repo, spy := newTestService(t, Config{})

	chirp, err := svc.Create(context.Background(), "user-a", "  hello  ")
	require.NoError(t, err)
	require.Equal(t, "hello", chirp.Message)
	require.Equal(t, "user-a", chirp.UserID)
	require.NotEmpty(t, chirp.ID)
	require.Equal(t, chirp.CreatedAt, chirp.UpdatedAt)

	stored, _ := repo.FindByID(context.Background(), chirp.ID)
	require.NotNil(t, stored)
	require.Equal(t, "hello", stored.Message)
	require.Equal(t, []string{"create"}, spy.ops)
}

func TestService_Create_BoundaryLengths(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{name: "1文字", message: "a", wantErr: false},
		{name: "最大長ちょうど", message: strings.Repeat("a", 250), wantErr: false},
		{name: "マルチバイト最大長", message: strings.Repeat("あ", 250), wantErr: false},
		{name: "最大長超過", message: strings.Repeat("a", 251), wantErr: true},
		{name: "空文字", message: "", wantErr: true},
		{name: "空白のみ", message: " \t\n ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, Config{})

			chirp, err := svc.Create(context.Background(), "user-a", tt.message)
			count, _ := repo.Count(context.Background())
			if tt.wantErr {
				requireValidationError(t, err)
				require.Nil(t, chirp)
				require.Zero(t, count, "検証失敗時は作成されないこと")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.message, chirp.Message)
			require.Equal(t, 1, count)
		})
	}
}

func TestService_Create_ValidationMessages(t *testing.T) {
	svc, _, spy := newTestService(t, Config{MaxLength: 5})

	_, err := svc.Create(context.Background(), "user-a", "")
	verr := requireValidationError(t, err)
	require.Equal(t, []string{"メッセージを入力してください。"}, verr.Get(FieldMessage))

	_, err = svc.Create(context.Background(), "user-a", "123456")
	verr = requireValidationError(t, err)
	require.Equal(t, []string{"メッセージは5文字以内で入力してください。"}, verr.Get(FieldMessage))

	require.Equal(t, 2, spy.validations)
}

func TestService_Create_RequiresActor(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.Create(context.Background(), "", "hello")
	requireAppErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestService_Create_WrapsRepositoryError(t *testing.T) {
	svc, repo, spy := newTestService(t, Config{})
	repo.createErr = errors.New("connection refused")

	_, err := svc.Create(context.Background(), "user-a", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
	require.Empty(t, spy.ops)
}

// --- Get / GetForEdit ---

func TestService_Get_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	requireAppErrorCode(t, err, model.ErrCodeChirpNotFound)
}

func TestService_Get_MalformedIDIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.Get(context.Background(), "not-a-uuid")
	requireAppErrorCode(t, err, model.ErrCodeChirpNotFound)
}

func TestService_GetForEdit(t *testing.T) {
	svc, _, spy := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "hello")
	require.NoError(t, err)

	got, err := svc.GetForEdit(ctx, "user-a", chirp.ID)
	require.NoError(t, err)
	require.Equal(t, chirp.ID, got.ID)

	_, err = svc.GetForEdit(ctx, "user-b", chirp.ID)
	requireAppErrorCode(t, err, model.ErrCodeForbidden)
	require.Equal(t, []string{"update"}, spy.denied)
}

// --- Update ---

func TestService_Update_ByAuthorAdvancesUpdatedAt(t *testing.T) {
	svc, repo, _ := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "hello")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "user-a", chirp.ID, "hello world")
	require.NoError(t, err)
	require.Equal(t, "hello world", updated.Message)
	require.True(t, updated.UpdatedAt.After(chirp.CreatedAt))
	require.True(t, updated.IsEdited())

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.Equal(t, "hello world", stored.Message)
	require.Equal(t, chirp.CreatedAt, stored.CreatedAt)
	require.Equal(t, "user-a", stored.UserID)
}

func TestService_Update_UpdatedAtStrictlyIncreasesWithFrozenClock(t *testing.T) {
	svc, repo, _ := newTestService(t, Config{})
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }
	ctx := context.Background()

	chirp, err := svc.Create(ctx, "user-a", "v1")
	require.NoError(t, err)

	first, err := svc.Update(ctx, "user-a", chirp.ID, "v2")
	require.NoError(t, err)
	require.True(t, first.UpdatedAt.After(chirp.UpdatedAt))

	second, err := svc.Update(ctx, "user-a", chirp.ID, "v3")
	require.NoError(t, err)
	require.True(t, second.UpdatedAt.After(first.UpdatedAt))

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.Equal(t, second.UpdatedAt, stored.UpdatedAt)
}

func TestService_Update_ByNonAuthorIsForbiddenBeforeValidation(t *testing.T) {
	svc, repo, spy := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "hello")
	require.NoError(t, err)

	for _, message := range []string{"hijack", "", strings.Repeat("x", 300)} {
		_, err = svc.Update(ctx, "user-b", chirp.ID, message)
		requireAppErrorCode(t, err, model.ErrCodeForbidden)
	}

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.Equal(t, *chirp, *stored, "拒否された更新でチャープが変化しないこと")
	require.Zero(t, spy.validations)
}

func TestService_Update_InvalidMessageLeavesChirpUnchanged(t *testing.T) {
	svc, repo, _ := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "hello")
	require.NoError(t, err)

	current, err := svc.Update(ctx, "user-a", chirp.ID, "   ")
	requireValidationError(t, err)
	require.NotNil(t, current, "再表示用に更新前のチャープを返すこと")
	require.Equal(t, *chirp, *current)

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.Equal(t, *chirp, *stored)
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.Update(context.Background(), "user-a", "00000000-0000-0000-0000-000000000000", "x")
	requireAppErrorCode(t, err, model.ErrCodeChirpNotFound)
}

// --- Delete ---

func TestService_Delete_ByAuthor(t *testing.T) {
	svc, repo, spy := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "bye")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-a", chirp.ID))

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.Nil(t, stored)
	require.Equal(t, []string{"create", "delete"}, spy.ops)

	err = svc.Delete(ctx, "user-a", chirp.ID)
	requireAppErrorCode(t, err, model.ErrCodeChirpNotFound)
}

func TestService_Delete_ByNonAuthorIsForbidden(t *testing.T) {
	svc, repo, spy := newTestService(t, Config{})
	ctx := context.Background()
	chirp, err := svc.Create(ctx, "user-a", "keep")
	require.NoError(t, err)

	err = svc.Delete(ctx, "user-b", chirp.ID)
	requireAppErrorCode(t, err, model.ErrCodeForbidden)

	stored, _ := repo.FindByID(ctx, chirp.ID)
	require.NotNil(t, stored)
	require.Equal(t, []string{"delete"}, spy.denied)
}

// --- List ---

func TestService_List_NewestFirstWithFixedPageSize(t *testing.T) {
	svc, _, _ := newTestService(t, Config{PerPage: 15})
	ctx := context.Background()

	var created []*model.Chirp
	for i := 0; i < 20; i++ {
		c, err := svc.Create(ctx, "user-a", "msg")
		require.NoError(t, err)
		created = append(created, c)
	}

	first, err := svc.List(ctx, "user-a", 1)
	require.NoError(t, err)
	require.Len(t, first.Items, 15)
	require.Equal(t, 20, first.Total)
	require.Equal(t, 2, first.LastPage)
	require.Equal(t, created[19].ID, first.Items[0].ID)
	require.False(t, first.HasPrev())
	require.True(t, first.HasNext())
	require.Equal(t, 1, first.From())
	require.Equal(t, 15, first.To())

	second, err := svc.List(ctx, "user-a", 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 5)
	require.Equal(t, created[0].ID, second.Items[4].ID)
	require.True(t, second.HasPrev())
	require.False(t, second.HasNext())

	all := append(append([]Item{}, first.Items...), second.Items...)
	for i := 1; i < len(all); i++ {
		require.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "新しい順であること")
	}
}

func TestService_List_TieBreakIsStable(t *testing.T) {
	svc, _, _ := newTestService(t, Config{PerPage: 2})
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "user-a", "same time")
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var ids []string
	for page := 1; page <= 3; page++ {
		p, err := svc.List(ctx, "user-a", page)
		require.NoError(t, err)
		for _, item := range p.Items {
			require.False(t, seen[item.ID], "ページ間で重複しないこと")
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}
	require.Len(t, ids, 5)
	require.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] > ids[j] }))
}

func TestService_List_PageBeyondEndIsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	_, err := svc.Create(ctx, "user-a", "only one")
	require.NoError(t, err)

	p, err := svc.List(ctx, "user-a", 9)
	require.NoError(t, err)
	require.Empty(t, p.Items)
	require.Equal(t, 1, p.Total)
	require.Equal(t, 9, p.CurrentPage)
	require.Equal(t, 1, p.LastPage)
	require.True(t, p.HasPrev())
	require.Equal(t, 1, p.PrevPage())
	require.False(t, p.HasNext())
}

func TestService_List_InvalidPageFallsBackToFirst(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	p, err := svc.List(context.Background(), "user-a", -3)
	require.NoError(t, err)
	require.Equal(t, 1, p.CurrentPage)
	require.Empty(t, p.Items)
	require.Equal(t, 1, p.LastPage)
}

func TestService_List_FlagsFollowPolicy(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	_, err := svc.Create(ctx, "user-a", "by a")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-b", "by b")
	require.NoError(t, err)

	p, err := svc.List(ctx, "user-a", 1)
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	for _, item := range p.Items {
		own := item.UserID == "user-a"
		require.Equal(t, own, item.CanUpdate, item.Message)
		require.Equal(t, own, item.CanDelete, item.Message)
	}
	require.Equal(t, "B", p.Items[0].AuthorName)
}

func TestService_List_CountError(t *testing.T) {
	svc, repo, _ := newTestService(t, Config{})
	repo.countErr = errors.New("db down")

	_, err := svc.List(context.Background(), "user-a", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "db down")
}

// --- シナリオ ---

// TestService_OwnershipScenario はAが投稿し、Bの改ざんが拒否され、Aが更新・削除する一連の流れを検証する。
func TestService_OwnershipScenario(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	chirp, err := svc.Create(ctx, "user-a", "hello")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "user-b", chirp.ID, "hijack")
	requireAppErrorCode(t, err, model.ErrCodeForbidden)

	got, err := svc.Get(ctx, chirp.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Message)

	updated, err := svc.Update(ctx, "user-a", chirp.ID, "hello world")
	require.NoError(t, err)
	require.Equal(t, "hello world", updated.Message)
	require.True(t, updated.UpdatedAt.After(chirp.CreatedAt))

	require.NoError(t, svc.Delete(ctx, "user-a", chirp.ID))

	p, err := svc.List(ctx, "user-a", 1)
	require.NoError(t, err)
	require.Empty(t, p.Items)
}
