// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/futari/internal/auth"
	"github.com/hitoshi/futari/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// RegisterLocal はメールアドレスとパスワードでユーザーを登録する。
	RegisterLocal(ctx context.Context, email, password string) (*model.User, error)
	// AuthenticateLocal はローカル認証でセッションを発行する。
	AuthenticateLocal(ctx context.Context, email, password string) (*auth.SessionBundle, error)
	// LoginURL はGoogle認可エンドポイントへのURLを生成する。
	LoginURL(state string) string
	// BeginFederation は認可コードを交換してハンドオフコードを発行する。
	BeginFederation(ctx context.Context, code string) (string, error)
	// RedeemHandoff はハンドオフコードを引き換えてセッションを発行する。
	RedeemHandoff(ctx context.Context, handoffCode string) (*auth.SessionBundle, error)
	// AuthenticateKakao はKakaoアクセストークンでセッションを発行する。
	AuthenticateKakao(ctx context.Context, accessToken string) (*auth.SessionBundle, error)
	// RefreshSession はリフレッシュトークンでセッションを再発行する。
	RefreshSession(ctx context.Context, refreshToken string) (*auth.SessionBundle, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// DeeplinkURL はGoogleコールバック後にクライアントアプリへ戻るための
	// ディープリンク。securityCodeクエリパラメータ付きでリダイレクトする。
	DeeplinkURL string
	// SecureState はOAuth stateパラメータの照合値。空の場合は照合しない。
	SecureState string
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{service: service, config: config}
}

// --- リクエスト・レスポンス型 ---

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Code     string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	SecurityCode string `json:"securityCode"`
}

type kakaoLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register はローカルユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("emailとpasswordは必須です"))
		return
	}

	user, err := h.service.RegisterLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		ID:       user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
		Code:     user.Code,
	})
}

// Login はローカル認証でログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("emailとpasswordは必須です"))
		return
	}

	bundle, err := h.service.AuthenticateLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// GoogleLogin はGoogleの認可エンドポイントへリダイレクトする。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.service.LoginURL(h.config.SecureState), http.StatusFound)
}

// GoogleCallback はGoogleからのコールバックを処理する。
// 認可コードを交換し、ハンドオフコード付きのディープリンクへリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.config.SecureState != "" && r.URL.Query().Get("state") != h.config.SecureState {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("stateパラメータが一致しません"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("codeパラメータがありません"))
		return
	}

	handoffCode, err := h.service.BeginFederation(r.Context(), code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	redirect := h.config.DeeplinkURL + "?securityCode=" + url.QueryEscape(handoffCode)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// GoogleVerify はディープリンクで受け取ったハンドオフコードを引き換える。
// POST /auth/google/verify
func (h *AuthHandler) GoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.SecurityCode == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("securityCodeは必須です"))
		return
	}

	bundle, err := h.service.RedeemHandoff(r.Context(), req.SecurityCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// KakaoLogin はKakaoアクセストークンでログインする。
// POST /auth/kakao
func (h *AuthHandler) KakaoLogin(w http.ResponseWriter, r *http.Request) {
	var req kakaoLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.AccessToken == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("accessTokenは必須です"))
		return
	}

	bundle, err := h.service.AuthenticateKakao(r.Context(), req.AccessToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// Refresh はリフレッシュトークンでセッションを再発行する。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.RefreshToken == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("refreshTokenは必須です"))
		return
	}

	bundle, err := h.service.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
