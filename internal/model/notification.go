package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationTypeCoupleLinked はカップル連携成立の通知。
	NotificationTypeCoupleLinked NotificationType = "COUPLE_LINKED"
	// NotificationTypeItemDone はパートナーが共有アイテムを完了した通知。
	NotificationTypeItemDone NotificationType = "ITEM_DONE"
	// NotificationTypeAnniversary は記念日リマインダーの通知。
	NotificationTypeAnniversary NotificationType = "ANNIVERSARY"
)

// NotificationPayload は通知の表示内容を表す。
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notification は永続化された通知レコードを表す。
// ライブ配信の成否にかかわらず必ず永続化され、受信者は後からリストAPIで
// 取得できる。IsReadはリスト取得時にまとめて更新される。
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Payload   NotificationPayload
	IsRead    bool
	CreatedAt time.Time
}
