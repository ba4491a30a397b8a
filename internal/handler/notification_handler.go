package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/futari/internal/middleware"
	"github.com/hitoshi/futari/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// ListAndMarkRead はユーザーの全通知を新しい順で返し、未読を既読に更新する。
	ListAndMarkRead(ctx context.Context, userID string) ([]*model.Notification, error)
	// DeleteOne は指定ユーザーが所有する通知を1件削除する。
	DeleteOne(ctx context.Context, userID, notificationID string) error
	// DeleteAll は指定ユーザーの全通知を削除する。
	DeleteAll(ctx context.Context, userID string) error
}

// PushTokenRegistrar はプッシュトークンの登録を行う。
type PushTokenRegistrar interface {
	RegisterPushToken(ctx context.Context, userID, pushToken string) error
}

// NotificationHandler は通知関連のHTTPハンドラー。
type NotificationHandler struct {
	service    NotificationServiceInterface
	pushTokens PushTokenRegistrar
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, pushTokens PushTokenRegistrar) *NotificationHandler {
	return &NotificationHandler{service: service, pushTokens: pushTokens}
}

type notificationResponse struct {
	ID        string                    `json:"id"`
	Type      model.NotificationType    `json:"type"`
	Payload   model.NotificationPayload `json:"payload"`
	IsRead    bool                      `json:"isRead"`
	CreatedAt time.Time                 `json:"createdAt"`
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

// List はユーザーの全通知を返す。取得と同時に未読は既読へ更新されるが、
// レスポンスのisReadには取得前の状態が入る。
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.service.ListAndMarkRead(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, notificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Payload:   n.Payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, responses)
}

// DeleteOne は通知を1件削除する。
// DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("通知IDがありません"))
		return
	}

	if err := h.service.DeleteOne(r.Context(), userID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll はユーザーの全通知を削除する。
// DELETE /api/notifications
func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteAll(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterPushToken はユーザーのプッシュ通知トークンを登録する。
// POST /api/notifications/token
func (h *NotificationHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}
	if req.Token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("tokenは必須です"))
		return
	}

	if err := h.pushTokens.RegisterPushToken(r.Context(), userID, req.Token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
