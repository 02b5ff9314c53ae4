package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/hitoshi/chirper/internal/chirp"
	"github.com/hitoshi/chirper/internal/middleware"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/view"
)

// --- モック定義 ---

// renderCall はRenderの呼び出し内容。
type renderCall struct {
	status int
	name   string
	data   *view.Data
}

// recordingRenderer はRenderの呼び出しを記録するRenderer。
type recordingRenderer struct {
	calls []renderCall
	err   error
}

func (m *recordingRenderer) Render(w http.ResponseWriter, status int, name string, data *view.Data) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, renderCall{status: status, name: name, data: data})
	w.WriteHeader(status)
	return nil
}

func (m *recordingRenderer) last() renderCall {
	if len(m.calls) == 0 {
		return renderCall{}
	}
	return m.calls[len(m.calls)-1]
}

type mockChirpService struct {
	listFn       func(ctx context.Context, actorID string, page int) (*chirp.Page, error)
	createFn     func(ctx context.Context, actorID, message string) (*model.Chirp, error)
	getFn        func(ctx context.Context, id string) (*model.Chirp, error)
	getForEditFn func(ctx context.Context, actorID, id string) (*model.Chirp, error)
	updateFn     func(ctx context.Context, actorID, id, message string) (*model.Chirp, error)
	deleteFn     func(ctx context.Context, actorID, id string) error
}

func (m *mockChirpService) MaxLength() int { return 250 }

func (m *mockChirpService) Can(actorID string, action chirp.Action, c *model.Chirp) bool {
	return chirp.OwnerPolicy{}.CanPerform(actorID, action, c)
}

func (m *mockChirpService) List(ctx context.Context, actorID string, page int) (*chirp.Page, error) {
	if m.listFn != nil {
		return m.listFn(ctx, actorID, page)
	}
	return &chirp.Page{Items: []chirp.Item{}, PerPage: 15, CurrentPage: page, LastPage: 1}, nil
}

func (m *mockChirpService) Create(ctx context.Context, actorID, message string) (*model.Chirp, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actorID, message)
	}
	return &model.Chirp{ID: "new", UserID: actorID, Message: message}, nil
}

func (m *mockChirpService) Get(ctx context.Context, id string) (*model.Chirp, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewChirpNotFoundError(id)
}

func (m *mockChirpService) GetForEdit(ctx context.Context, actorID, id string) (*model.Chirp, error) {
	if m.getForEditFn != nil {
		return m.getForEditFn(ctx, actorID, id)
	}
	return nil, model.NewChirpNotFoundError(id)
}

func (m *mockChirpService) Update(ctx context.Context, actorID, id, message string) (*model.Chirp, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actorID, id, message)
	}
	return &model.Chirp{ID: id, UserID: actorID, Message: message}, nil
}

func (m *mockChirpService) Delete(ctx context.Context, actorID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, id)
	}
	return nil
}

type mockAuthService struct {
	oauthEnabled     bool
	getLoginURLFn    func(state string) (string, error)
	registerFn       func(ctx context.Context, in registerInput) (*model.Session, error)
	loginFn          func(ctx context.Context, in loginInput) (*model.Session, error)
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) OAuthEnabled() bool { return m.oauthEnabled }

func (m *mockAuthService) GetLoginURL(state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
}

func (m *mockAuthService) Register(ctx context.Context, in registerInput) (*model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.Session{ID: "new-session"}, nil
}

func (m *mockAuthService) Login(ctx context.Context, in loginInput) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return &model.Session{ID: "login-session"}, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return &model.Session{ID: "oauth-session"}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ Renderer = (*recordingRenderer)(nil)
var _ ChirpServiceInterface = (*mockChirpService)(nil)
var _ AuthServiceInterface = (*mockAuthService)(nil)

// --- ヘルパー ---

// withUser はユーザーとCSRFトークンを注入したリクエストを返す。
func withUser(req *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUser(req.Context(), &model.User{ID: userID, Name: userID})
	ctx = middleware.ContextWithCSRFToken(ctx, "csrf-token")
	return req.WithContext(ctx)
}

func newFormRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
