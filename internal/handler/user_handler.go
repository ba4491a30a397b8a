package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/futari/internal/middleware"
	"github.com/hitoshi/futari/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile はプロフィールを部分更新し、更新後のユーザーを返す。
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	// DeleteAccount はユーザーを退会させる。
	DeleteAccount(ctx context.Context, userID string) error
}

// UserHandler はユーザー関連のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type updateProfileRequest struct {
	Nickname   *string    `json:"nickname"`
	ProfileURL *string    `json:"profileUrl"`
	Birthday   *time.Time `json:"birthday"`
}

type profileResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Nickname   string     `json:"nickname"`
	ProfileURL string     `json:"profileUrl"`
	Code       string     `json:"code"`
	Birthday   *time.Time `json:"birthday,omitempty"`
}

// UpdateProfile はプロフィールを部分更新する。省略したフィールドは変更しない。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.Nickname == nil && req.ProfileURL == nil && req.Birthday == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("更新するフィールドがありません"))
		return
	}
	if req.Nickname != nil && *req.Nickname == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("nicknameは空にできません"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, model.ProfileUpdate{
		Nickname:   req.Nickname,
		ProfileURL: req.ProfileURL,
		Birthday:   req.Birthday,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:         user.ID,
		Email:      user.Email,
		Nickname:   user.Nickname,
		ProfileURL: user.ProfileURL,
		Code:       user.Code,
		Birthday:   user.Birthday,
	})
}

// Withdraw はユーザーを退会させる。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
