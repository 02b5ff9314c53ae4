package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chirper/internal/chirp"
	"github.com/hitoshi/chirper/internal/middleware"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/view"
)

const (
	chirpsPath   = "/chirps"
	chirpIDParam = "chirp"
)

// ChirpServiceInterface はチャープハンドラーが必要とするサービスインターフェース。
type ChirpServiceInterface interface {
	// MaxLength は本文の最大文字数を返す。
	MaxLength() int
	// Can はactorIDがチャープに対してactionを実行できるかを返す。
	Can(actorID string, action chirp.Action, c *model.Chirp) bool
	// List はチャープを新しい順にページ分割して返す。
	List(ctx context.Context, actorID string, page int) (*chirp.Page, error)
	// Create はactorIDを投稿者としてチャープを作成する。
	Create(ctx context.Context, actorID, message string) (*model.Chirp, error)
	// Get はチャープを取得する。
	Get(ctx context.Context, id string) (*model.Chirp, error)
	// GetForEdit は編集権限を確認した上でチャープを取得する。
	GetForEdit(ctx context.Context, actorID, id string) (*model.Chirp, error)
	// Update は本文を更新する。検証エラーの場合は更新前のチャープも返す。
	Update(ctx context.Context, actorID, id, message string) (*model.Chirp, error)
	// Delete はチャープを削除する。
	Delete(ctx context.Context, actorID, id string) error
}

// ChirpHandler はチャープのHTTPハンドラー。
type ChirpHandler struct {
	service ChirpServiceInterface
	pages   pageRenderer
}

// NewChirpHandler はChirpHandlerを生成する。
func NewChirpHandler(service ChirpServiceInterface, renderer Renderer) *ChirpHandler {
	return &ChirpHandler{
		service: service,
		pages:   pageRenderer{renderer: renderer},
	}
}

// Index はチャープ一覧と作成フォームを表示する。
// GET /chirps?page=N
func (h *ChirpHandler) Index(w http.ResponseWriter, r *http.Request) {
	page := chirp.ParsePageNumber(r.URL.Query().Get("page"))
	h.renderIndex(w, r, http.StatusOK, page, nil, nil)
}

// Create は作成フォームを表示する。
// GET /chirps/create
func (h *ChirpHandler) Create(w http.ResponseWriter, r *http.Request) {
	data := h.pages.data(r, "チャープを投稿", view.ChirpForm{MaxLength: h.service.MaxLength()})
	h.pages.render(w, r, http.StatusOK, view.ChirpsCreate, data)
}

// Store はチャープを作成する。
// 検証エラーの場合は入力値とエラーを添えて一覧画面を422で再表示する。
// POST /chirps
func (h *ChirpHandler) Store(w http.ResponseWriter, r *http.Request) {
	actorID := actorFromRequest(r)
	message := r.PostFormValue("message")

	if _, err := h.service.Create(r.Context(), actorID, message); err != nil {
		if verr, ok := asValidationError(err); ok {
			h.renderIndex(w, r, http.StatusUnprocessableEntity, 1, verr, map[string]string{"message": message})
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

// Show はチャープを1件表示する。
// GET /chirps/{chirp}
func (h *ChirpHandler) Show(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, chirpIDParam))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	actorID := actorFromRequest(r)
	data := h.pages.data(r, "チャープ", view.ChirpForm{
		Chirp:     c,
		MaxLength: h.service.MaxLength(),
		CanUpdate: h.service.Can(actorID, chirp.ActionUpdate, c),
		CanDelete: h.service.Can(actorID, chirp.ActionDelete, c),
	})
	h.pages.render(w, r, http.StatusOK, view.ChirpsShow, data)
}

// Edit は編集フォームを表示する。作者以外は403。
// GET /chirps/{chirp}/edit
func (h *ChirpHandler) Edit(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetForEdit(r.Context(), actorFromRequest(r), chi.URLParam(r, chirpIDParam))
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.renderEdit(w, r, http.StatusOK, c, nil, map[string]string{"message": c.Message})
}

// Update はチャープの本文を更新する。
// 作者以外は検証より先に403を返す。検証エラーの場合は編集画面を422で再表示する。
// PUT/PATCH /chirps/{chirp}
func (h *ChirpHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, chirpIDParam)
	message := r.PostFormValue("message")

	c, err := h.service.Update(r.Context(), actorFromRequest(r), id, message)
	if err != nil {
		if verr, ok := asValidationError(err); ok && c != nil {
			h.renderEdit(w, r, http.StatusUnprocessableEntity, c, verr, map[string]string{"message": message})
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

// Destroy はチャープを削除する。作者以外は403。
// DELETE /chirps/{chirp}
func (h *ChirpHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, chirpIDParam)); err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

func (h *ChirpHandler) renderIndex(w http.ResponseWriter, r *http.Request, status, page int, verr *model.ValidationError, old map[string]string) {
	p, err := h.service.List(r.Context(), actorFromRequest(r), page)
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	data := h.pages.data(r, "Chirps", view.ChirpIndex{Page: p, MaxLength: h.service.MaxLength()})
	data.Errors = verr
	data.Old = old
	h.pages.render(w, r, status, view.ChirpsIndex, data)
}

func (h *ChirpHandler) renderEdit(w http.ResponseWriter, r *http.Request, status int, c *model.Chirp, verr *model.ValidationError, old map[string]string) {
	data := h.pages.data(r, "チャープを編集", view.ChirpForm{Chirp: c, MaxLength: h.service.MaxLength()})
	data.Errors = verr
	data.Old = old
	h.pages.render(w, r, status, view.ChirpsEdit, data)
}

// actorFromRequest は認証済みユーザーIDを返す。未認証の場合は空文字列。
func actorFromRequest(r *http.Request) string {
	userID, _ := middleware.UserIDFromContext(r.Context())
	return userID
}
