// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/futari/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindBySub は外部IdPのsubでユーザーを検索する。見つからない場合はnilを返す。
	FindBySub(ctx context.Context, sub string) (*model.User, error)

	// FindByCode は公開コードでユーザーを検索する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdatePushToken はユーザーのプッシュトークンを更新する。
	UpdatePushToken(ctx context.Context, userID, pushToken string) error

	// UpdateProfile はユーザーのプロフィールを部分更新する。
	// nilのフィールドは変更しない。
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error

	// Delete はユーザーを削除する。存在しない場合はUserNotFoundエラーを返す。
	Delete(ctx context.Context, userID string) error
}

// CoupleRepository はカップル連携情報の読み取りインターフェース。
// 本サブシステムでは連携の作成・解消は扱わず、セッション応答の組み立てにのみ使用する。
type CoupleRepository interface {
	// FindActiveByUserID は指定ユーザーが属するカップルを取得する。
	// 連携していない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Couple, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListAndMarkRead は指定ユーザーの全通知を作成日時降順で取得し、
	// 同一トランザクション内で未読のものを既読に更新する。
	// 返される通知のIsReadは取得時点の値（更新前）を保持する。
	ListAndMarkRead(ctx context.Context, userID string) ([]*model.Notification, error)

	// DeleteOwned は指定ユーザーが所有する通知を削除する。
	// 通知が存在しない、または他ユーザーの所有である場合はNotificationNotFoundエラーを返す。
	DeleteOwned(ctx context.Context, userID, notificationID string) error

	// DeleteAllByUser は指定ユーザーの全通知を削除する。0件でも成功する。
	DeleteAllByUser(ctx context.Context, userID string) error

	// HasUnread は指定ユーザーに未読通知が存在するかを返す。
	HasUnread(ctx context.Context, userID string) (bool, error)
}
