package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/futari/internal/middleware"
	"github.com/hitoshi/futari/internal/model"
)

// --- モック定義 ---

type mockNotificationService struct {
	listAndMarkReadFn func(ctx context.Context, userID string) ([]*model.Notification, error)
	deleteOneFn       func(ctx context.Context, userID, notificationID string) error
	deleteAllFn       func(ctx context.Context, userID string) error
}

func (m *mockNotificationService) ListAndMarkRead(ctx context.Context, userID string) ([]*model.Notification, error) {
	if m.listAndMarkReadFn != nil {
		return m.listAndMarkReadFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockNotificationService) DeleteOne(ctx context.Context, userID, notificationID string) error {
	if m.deleteOneFn != nil {
		return m.deleteOneFn(ctx, userID, notificationID)
	}
	return errors.New("not implemented")
}

func (m *mockNotificationService) DeleteAll(ctx context.Context, userID string) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx, userID)
	}
	return errors.New("not implemented")
}

var _ NotificationServiceInterface = (*mockNotificationService)(nil)

type mockPushTokenRegistrar struct {
	registerFn func(ctx context.Context, userID, pushToken string) error
}

func (m *mockPushTokenRegistrar) RegisterPushToken(ctx context.Context, userID, pushToken string) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, userID, pushToken)
	}
	return errors.New("not implemented")
}

var _ PushTokenRegistrar = (*mockPushTokenRegistrar)(nil)

// newNotificationTestRouter はURLパラメータ解決込みでハンドラーを検証するための
// chiルーターを構築する。
func newNotificationTestRouter(h *NotificationHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/", h.DeleteAll)
		r.Delete("/{id}", h.DeleteOne)
		r.Post("/token", h.RegisterPushToken)
	})
	return r
}

func authedRequest(method, target, body, userID string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// --- List ---

func TestNotificationHandler_List_ReturnsNotifications(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockNotificationService{
		listAndMarkReadFn: func(ctx context.Context, userID string) ([]*model.Notification, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return []*model.Notification{
				{
					ID:     "01J0000000000000000000001",
					UserID: "user-1",
					Type:   model.NotificationTypeItemDone,
					Payload: model.NotificationPayload{
						Title: "完了のお知らせ",
						Body:  "パートナーがアイテムを完了しました",
					},
					IsRead:    false,
					CreatedAt: createdAt,
				},
			}, nil
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(svc, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/notifications", "", "user-1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body []notificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("len(body) = %d, want 1", len(body))
	}
	if body[0].ID != "01J0000000000000000000001" {
		t.Errorf("id = %q", body[0].ID)
	}
	if body[0].Type != model.NotificationTypeItemDone {
		t.Errorf("type = %q", body[0].Type)
	}
	// リスト応答のisReadは取得前の状態
	if body[0].IsRead {
		t.Error("isRead = true, want false")
	}
}

func TestNotificationHandler_List_EmptyReturnsArray(t *testing.T) {
	svc := &mockNotificationService{
		listAndMarkReadFn: func(ctx context.Context, userID string) ([]*model.Notification, error) {
			return []*model.Notification{}, nil
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(svc, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodGet, "/api/notifications", "", "user-1"))

	// nullではなく[]を返す
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestNotificationHandler_List_Unauthenticated(t *testing.T) {
	router := newNotificationTestRouter(NewNotificationHandler(&mockNotificationService{}, &mockPushTokenRegistrar{}))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- DeleteOne ---

func TestNotificationHandler_DeleteOne_Success(t *testing.T) {
	svc := &mockNotificationService{
		deleteOneFn: func(ctx context.Context, userID, notificationID string) error {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			if notificationID != "notif-1" {
				t.Errorf("notificationID = %q, want notif-1", notificationID)
			}
			return nil
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(svc, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/notifications/notif-1", "", "user-1"))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestNotificationHandler_DeleteOne_NotFound(t *testing.T) {
	svc := &mockNotificationService{
		deleteOneFn: func(ctx context.Context, userID, notificationID string) error {
			return model.NewNotificationNotFoundError(notificationID)
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(svc, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/notifications/other-users", "", "user-1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if body := decodeErrorBody(t, resp); body["code"] != model.ErrCodeNotificationNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeNotificationNotFound)
	}
}

// --- DeleteAll ---

func TestNotificationHandler_DeleteAll_Success(t *testing.T) {
	deleted := false
	svc := &mockNotificationService{
		deleteAllFn: func(ctx context.Context, userID string) error {
			deleted = true
			return nil
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(svc, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/notifications", "", "user-1"))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if !deleted {
		t.Error("DeleteAll was not called")
	}
}

// --- RegisterPushToken ---

func TestNotificationHandler_RegisterPushToken_Success(t *testing.T) {
	registrar := &mockPushTokenRegistrar{
		registerFn: func(ctx context.Context, userID, pushToken string) error {
			if userID != "user-1" || pushToken != "fcm-token-1" {
				t.Errorf("unexpected args: %q, %q", userID, pushToken)
			}
			return nil
		},
	}
	router := newNotificationTestRouter(NewNotificationHandler(&mockNotificationService{}, registrar))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/notifications/token", `{"token":"fcm-token-1"}`, "user-1"))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestNotificationHandler_RegisterPushToken_MissingToken(t *testing.T) {
	router := newNotificationTestRouter(NewNotificationHandler(&mockNotificationService{}, &mockPushTokenRegistrar{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPost, "/api/notifications/token", `{}`, "user-1"))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
