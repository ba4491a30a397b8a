package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hitoshi/futari/internal/metrics"
	"github.com/hitoshi/futari/internal/model"
	"github.com/hitoshi/futari/internal/repository"
)

// Service は通知のディスパッチと取得・削除を提供する。
type Service struct {
	repo     repository.NotificationRepository
	registry *Registry
	metrics  metrics.MetricsCollector

	// テストで差し替えるための現在時刻取得関数
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.NotificationRepository, registry *Registry, collector metrics.MetricsCollector) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		metrics:  collector,
		now:      time.Now,
	}
}

// Dispatch は通知を永続化し、受信者が購読中であればライブ配信する。
// 永続化の失敗はエラーとして返す。ライブ配信の失敗は通知の成立に影響せず、
// ログとメトリクスに記録するだけに留める。
func (s *Service) Dispatch(ctx context.Context, recipientID string, typ model.NotificationType, payload model.NotificationPayload) (*model.Notification, error) {
	n := &model.Notification{
		ID:        ulid.Make().String(),
		UserID:    recipientID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	delivered := s.registry.Deliver(recipientID, Event{Type: typ, Payload: payload})
	s.metrics.RecordNotificationDispatched(delivered)
	if !delivered {
		slog.Debug("notification not delivered live",
			slog.String("notification_id", n.ID),
			slog.String("recipient_id", recipientID),
		)
	}
	return n, nil
}

// ListAndMarkRead はユーザーの全通知を新しい順で返し、未読を既読に更新する。
func (s *Service) ListAndMarkRead(ctx context.Context, userID string) ([]*model.Notification, error) {
	notifications, err := s.repo.ListAndMarkRead(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// DeleteOne は指定ユーザーが所有する通知を1件削除する。
func (s *Service) DeleteOne(ctx context.Context, userID, notificationID string) error {
	return s.repo.DeleteOwned(ctx, userID, notificationID)
}

// DeleteAll は指定ユーザーの全通知を削除する。
func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

// HasUnread は指定ユーザーに未読通知が存在するかを返す。
func (s *Service) HasUnread(ctx context.Context, userID string) (bool, error) {
	return s.repo.HasUnread(ctx, userID)
}
