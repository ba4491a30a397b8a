// Package token はHS256署名のアクセストークンとリフレッシュトークンを扱う。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// トークン種別。token_typeクレームに格納され、検証時に照合される。
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// sessionClaims はセッショントークンのクレーム。
// Subjectにユーザーを識別するIDを格納する。
type sessionClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager はトークンの発行と検証を行う。
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// テストで差し替えるための現在時刻取得関数
	now func() time.Time
}

// NewManager は新しいManagerを生成する。
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccess はユーザーIDに対するアクセストークンを発行する。
func (m *Manager) IssueAccess(userID string) (string, error) {
	return m.issue(userID, TypeAccess, m.accessTTL)
}

// IssueRefresh はユーザーIDに対するリフレッシュトークンを発行する。
func (m *Manager) IssueRefresh(userID string) (string, error) {
	return m.issue(userID, TypeRefresh, m.refreshTTL)
}

func (m *Manager) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
			// iat/expは秒精度のため、同一秒内の連続発行でもトークンが
			// 一意になるようjtiを付与する。ローテーション後の旧トークン
			// 照合がこの一意性に依存している。
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Verify はトークンを検証し、ユーザーIDを返す。
// 署名不正・期限切れ・種別不一致のいずれの場合もエラーを返す。
func (m *Manager) Verify(tokenString, wantType string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)

	claims := &sessionClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.TokenType != wantType {
		return "", fmt.Errorf("unexpected token type: got %q, want %q", claims.TokenType, wantType)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
