// Package auth は外部IdP連携、ローカル認証、セッション発行を提供する。
package auth

import (
	"context"

	"github.com/hitoshi/futari/internal/model"
)

// OAuthProvider は認可コードフローによる外部IdP連携のインターフェース。
type OAuthProvider interface {
	// LoginURL はIdPの認可エンドポイントURLを生成する。
	LoginURL(state string) string
	// ExchangeCode は認可コードを交換し、正規化したユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.FederatedIdentity, error)
}

// BearerProvider はクライアント取得済みアクセストークンによる
// 外部IdP連携のインターフェース。
type BearerProvider interface {
	// Identify はアクセストークンの持ち主を特定し、正規化したユーザー情報を返す。
	Identify(ctx context.Context, accessToken string) (*model.FederatedIdentity, error)
}
