package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, notification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeBadCredential        = "BAD_CREDENTIAL"
	ErrCodeInvalidHandoffCode   = "INVALID_HANDOFF_CODE"
	ErrCodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	ErrCodeUpstreamFailure      = "UPSTREAM_FAILURE"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeTransient            = "TRANSIENT_FAILURE"
)

// NewDuplicateEmailError は登録済みメールアドレスの再登録エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "すでに登録されているメールアドレスです。",
		Category: "auth",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "メールアドレスを確認するか、新規登録してください。",
	}
}

// NewBadCredentialError はパスワード不一致エラーを生成する。
func NewBadCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredential,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewInvalidHandoffCodeError は無効なハンドオフコードのエラーを生成する。
// 未発行・使用済み・期限切れのいずれの場合も同一のエラーを返し、
// 外部からコードの状態を区別できないようにする。
func NewInvalidHandoffCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidHandoffCode,
		Message:  "無効なログインコードです。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewInvalidRefreshTokenError は無効なリフレッシュトークンのエラーを生成する。
// 署名不正・期限切れ・ローテーション済みのいずれの場合も同一のエラーを返す。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "無効なリフレッシュトークンです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUpstreamFailureError は外部IdP呼び出し失敗のエラーを生成する。
func NewUpstreamFailureError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  fmt.Sprintf("%sとの通信に失敗しました。", provider),
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotificationNotFoundError は通知が見つからない場合のエラーを生成する。
// 他ユーザーの通知IDを指定した場合も同じエラーを返し、存在を漏らさない。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "notification",
		Action:   "通知IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認して再度お試しください。",
	}
}

// NewTransientError はストア障害など再試行可能な内部エラーを生成する。
// 元のエラー詳細はログのみに記録し、境界を越えて伝播させない。
func NewTransientError() *APIError {
	return &APIError{
		Code:     ErrCodeTransient,
		Message:  "一時的なエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
