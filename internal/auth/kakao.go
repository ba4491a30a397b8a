package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/futari/internal/model"
)

const defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

// KakaoConfig はKakaoプロバイダーの設定。
type KakaoConfig struct {
	// テスト用にオーバーライド可能なURL
	UserInfoURL string
}

// KakaoProvider はクライアントが取得済みのKakaoアクセストークンで
// ユーザーを特定する。認可コードフローはクライアント側で完結する。
type KakaoProvider struct {
	config KakaoConfig
}

// NewKakaoProvider はKakaoProviderを生成する。
func NewKakaoProvider(config KakaoConfig) *KakaoProvider {
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultKakaoUserInfoURL
	}
	return &KakaoProvider{config: config}
}

// kakaoUserResponse はKakaoのユーザー情報エンドポイントのレスポンス。
type kakaoUserResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Identify はアクセストークンでKakaoのユーザー情報を取得する。
func (p *KakaoProvider) Identify(ctx context.Context, accessToken string) (*model.FederatedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userResp kakaoUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userResp.ID == 0 {
		return nil, fmt.Errorf("empty id in user info response")
	}

	return &model.FederatedIdentity{
		Subject:    strconv.FormatInt(userResp.ID, 10),
		Email:      userResp.KakaoAccount.Email,
		Nickname:   userResp.KakaoAccount.Profile.Nickname,
		ProfileURL: userResp.KakaoAccount.Profile.ProfileImageURL,
		Provider:   model.ProviderKakao,
	}, nil
}

// compile-time interface check
var _ BearerProvider = (*KakaoProvider)(nil)
