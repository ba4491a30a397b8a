// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダーの識別子。
const (
	ProviderGoogle = "Google"
	ProviderKakao  = "Kakao"
)

// User はサービス利用ユーザーを表す。
// ローカル認証ユーザーはPasswordHashを持ち、OAuth連携ユーザーはSubと
// AuthProviderを持つ。Codeはカップル連携に使用する公開用ランダムコード。
type User struct {
	ID           string
	Email        string
	PasswordHash string // OAuth連携ユーザーの場合は空
	Nickname     string
	ProfileURL   string
	Code         string // カップル連携用の公開コード（一意）
	Sub          string // 外部IdPが発行する安定したユーザー識別子（一意、ローカルユーザーは空）
	AuthProvider string // "Google", "Kakao" 等。ローカルユーザーは空
	PushToken    string
	Birthday     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate はプロフィールの部分更新内容を表す。
// nilのフィールドは変更対象に含めない。
type ProfileUpdate struct {
	Nickname   *string
	ProfileURL *string
	Birthday   *time.Time
}

// Couple は2ユーザー間の連携関係を表す。
// 本サブシステムでは読み取り専用のコラボレーターとして扱う。
type Couple struct {
	ID          string
	UserAID     string
	UserBID     string
	Anniversary *time.Time
	CreatedAt   time.Time
}

// FederatedIdentity は外部IdPから取得し正規化したユーザー情報を表す。
type FederatedIdentity struct {
	Subject    string // IdP発行の安定識別子（sub）
	Email      string
	Nickname   string
	ProfileURL string
	Provider   string // "Google", "Kakao" 等
}
