package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/futari/internal/cache"
	"github.com/hitoshi/futari/internal/metrics"
	"github.com/hitoshi/futari/internal/model"
	"github.com/hitoshi/futari/internal/repository"
	"github.com/hitoshi/futari/internal/token"
)

// refreshKeyPrefix はリフレッシュトークン保管キーの接頭辞。
// ユーザーごとに1キーのみ保持し、発行のたびに上書きする。
const refreshKeyPrefix = "refresh_token:"

// TokenIssuer はセッショントークンの発行と検証のインターフェース。
type TokenIssuer interface {
	IssueAccess(userID string) (string, error)
	IssueRefresh(userID string) (string, error)
	Verify(tokenString, wantType string) (string, error)
}

// UserView はログイン応答に含まれる本人のビュー。
type UserView struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Nickname   string     `json:"nickname"`
	ProfileURL string     `json:"profileUrl"`
	Code       string     `json:"code"`
	CoupleID   string     `json:"coupleId,omitempty"`
	Birthday   *time.Time `json:"birthday,omitempty"`
}

// PartnerView はログイン応答に含まれるパートナーのビュー。
type PartnerView struct {
	Nickname   string     `json:"nickname"`
	ProfileURL string     `json:"profileUrl"`
	Birthday   *time.Time `json:"birthday,omitempty"`
}

// CoupleView はログイン応答に含まれるカップル情報のビュー。
type CoupleView struct {
	Anniversary *time.Time `json:"anniversary,omitempty"`
}

// SessionBundle はログイン・リフレッシュ成功時の応答一式。
type SessionBundle struct {
	AccessToken            string       `json:"accessToken"`
	RefreshToken           string       `json:"refreshToken"`
	User                   UserView     `json:"user"`
	Partner                *PartnerView `json:"partner,omitempty"`
	Couple                 *CoupleView  `json:"couple,omitempty"`
	HasUnreadNotifications bool         `json:"hasUnreadNotifications"`
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	HandoffCodeTTL    time.Duration
	RefreshTokenTTL   time.Duration
	DefaultProfileURL string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	google     OAuthProvider
	kakao      BearerProvider
	userRepo   repository.UserRepository
	coupleRepo repository.CoupleRepository
	notifRepo  repository.NotificationRepository
	store      cache.Store
	tokens     TokenIssuer
	metrics    metrics.MetricsCollector
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	google OAuthProvider,
	kakao BearerProvider,
	userRepo repository.UserRepository,
	coupleRepo repository.CoupleRepository,
	notifRepo repository.NotificationRepository,
	store cache.Store,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		google:     google,
		kakao:      kakao,
		userRepo:   userRepo,
		coupleRepo: coupleRepo,
		notifRepo:  notifRepo,
		store:      store,
		tokens:     tokens,
		metrics:    collector,
		config:     config,
	}
}

// RegisterLocal はメールアドレスとパスワードでユーザーを登録する。
// ニックネームの初期値はメールアドレスのローカルパートから導出する。
func (s *Service) RegisterLocal(ctx context.Context, email, password string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     nicknameFromEmail(email),
		ProfileURL:   s.config.DefaultProfileURL,
		Code:         uuid.New().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("local user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// AuthenticateLocal はメールアドレスとパスワードでログインし、セッションを発行する。
func (s *Service) AuthenticateLocal(ctx context.Context, email, password string) (*SessionBundle, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		s.metrics.RecordLogin(metrics.LoginMethodLocal, metrics.ResultFailure)
		return nil, model.NewUserNotFoundError()
	}

	// OAuth連携アカウントにはパスワードが設定されていない
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.metrics.RecordLogin(metrics.LoginMethodLocal, metrics.ResultFailure)
		return nil, model.NewBadCredentialError()
	}

	bundle, err := s.issueSession(ctx, user)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginMethodLocal, metrics.ResultFailure)
		return nil, err
	}
	s.metrics.RecordLogin(metrics.LoginMethodLocal, metrics.ResultSuccess)
	return bundle, nil
}

// LoginURL はGoogle認可エンドポイントへのリダイレクトURLを生成する。
func (s *Service) LoginURL(state string) string {
	return s.google.LoginURL(state)
}

// BeginFederation はGoogleコールバックの認可コードを交換し、
// 正規化したユーザー情報を一回限りのハンドオフコードに紐付けて保管する。
// 返されたコードはディープリンク経由でクライアントに渡る。
func (s *Service) BeginFederation(ctx context.Context, code string) (string, error) {
	identity, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("google code exchange failed", slog.String("error", err.Error()))
		s.metrics.RecordLogin(metrics.LoginMethodGoogle, metrics.ResultFailure)
		return "", model.NewUpstreamFailureError(model.ProviderGoogle)
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal federated identity: %w", err)
	}

	handoffCode := uuid.New().String()
	s.store.Set(handoffKey(handoffCode), string(payload), s.config.HandoffCodeTTL)

	slog.Info("federation handoff issued", slog.String("provider", identity.Provider))
	return handoffCode, nil
}

// RedeemHandoff はハンドオフコードを引き換えてセッションを発行する。
// コードは取得と同時に削除され、二重引き換えは必ず失敗する。
// 未発行・期限切れ・使用済みは呼び出し側から区別できない。
func (s *Service) RedeemHandoff(ctx context.Context, handoffCode string) (*SessionBundle, error) {
	payload, ok := s.store.Take(handoffKey(handoffCode))
	if !ok {
		s.metrics.RecordHandoffRedeem(metrics.ResultFailure)
		return nil, model.NewInvalidHandoffCodeError()
	}

	identity := &model.FederatedIdentity{}
	if err := json.Unmarshal([]byte(payload), identity); err != nil {
		s.metrics.RecordHandoffRedeem(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to unmarshal federated identity: %w", err)
	}

	user, err := s.findOrCreateFederated(ctx, identity)
	if err != nil {
		s.metrics.RecordHandoffRedeem(metrics.ResultFailure)
		return nil, err
	}

	bundle, err := s.issueSession(ctx, user)
	if err != nil {
		s.metrics.RecordHandoffRedeem(metrics.ResultFailure)
		return nil, err
	}
	s.metrics.RecordHandoffRedeem(metrics.ResultSuccess)
	s.metrics.RecordLogin(metrics.LoginMethodGoogle, metrics.ResultSuccess)
	return bundle, nil
}

// AuthenticateKakao はクライアント取得済みのKakaoアクセストークンで
// ログインし、セッションを発行する。
func (s *Service) AuthenticateKakao(ctx context.Context, accessToken string) (*SessionBundle, error) {
	identity, err := s.kakao.Identify(ctx, accessToken)
	if err != nil {
		slog.Error("kakao identify failed", slog.String("error", err.Error()))
		s.metrics.RecordLogin(metrics.LoginMethodKakao, metrics.ResultFailure)
		return nil, model.NewUpstreamFailureError(model.ProviderKakao)
	}

	user, err := s.findOrCreateFederated(ctx, identity)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginMethodKakao, metrics.ResultFailure)
		return nil, err
	}

	bundle, err := s.issueSession(ctx, user)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginMethodKakao, metrics.ResultFailure)
		return nil, err
	}
	s.metrics.RecordLogin(metrics.LoginMethodKakao, metrics.ResultSuccess)
	return bundle, nil
}

// RefreshSession はリフレッシュトークンを検証し、セッションを再発行する。
// 保管中のトークンと完全一致しない場合は拒否する。再発行のたびに
// 保管値が上書きされるため、古いリフレッシュトークンは自動的に無効になる。
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*SessionBundle, error) {
	userID, err := s.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		return nil, model.NewInvalidRefreshTokenError()
	}

	stored, ok := s.store.Get(refreshKeyPrefix + userID)
	if !ok || stored != refreshToken {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		return nil, model.NewInvalidRefreshTokenError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		return nil, model.NewInvalidRefreshTokenError()
	}

	bundle, err := s.issueSession(ctx, user)
	if err != nil {
		s.metrics.RecordTokenRefresh(metrics.ResultFailure)
		return nil, err
	}
	s.metrics.RecordTokenRefresh(metrics.ResultSuccess)
	return bundle, nil
}

// RegisterPushToken はユーザーのプッシュトークンを保存する。
func (s *Service) RegisterPushToken(ctx context.Context, userID, pushToken string) error {
	if err := s.userRepo.UpdatePushToken(ctx, userID, pushToken); err != nil {
		return err
	}
	slog.Info("push token registered", slog.String("user_id", userID))
	return nil
}

// UpdateProfile はユーザーのプロフィールを部分更新し、更新後のユーザーを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// DeleteAccount はユーザーを退会させる。
// 保管中のリフレッシュトークンを破棄してから行を削除する。
// 通知とカップル連携はDBのCASCADE削除で処理される。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	s.store.Delete(refreshKeyPrefix + userID)

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	slog.Info("user account deleted", slog.String("user_id", userID))
	return nil
}

// findOrCreateFederated はsubで既存ユーザーを検索し、なければ作成する。
func (s *Service) findOrCreateFederated(ctx context.Context, identity *model.FederatedIdentity) (*model.User, error) {
	user, err := s.userRepo.FindBySub(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by sub: %w", err)
	}
	if user != nil {
		return user, nil
	}

	nickname := identity.Nickname
	if nickname == "" {
		nickname = nicknameFromEmail(identity.Email)
	}

	now := time.Now()
	user = &model.User{
		ID:           uuid.New().String(),
		Email:        identity.Email,
		Nickname:     nickname,
		ProfileURL:   s.config.DefaultProfileURL,
		Code:         uuid.New().String(),
		Sub:          identity.Subject,
		AuthProvider: identity.Provider,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create federated user: %w", err)
	}

	slog.Info("federated user created",
		slog.String("user_id", user.ID),
		slog.String("provider", identity.Provider),
	)
	return user, nil
}

// issueSession はアクセス・リフレッシュトークンを発行し、応答一式を組み立てる。
// リフレッシュトークンは新規ログインを含む毎回の発行で上書きされるため、
// 同一ユーザーの有効セッションは常に1つになる。
func (s *Service) issueSession(ctx context.Context, user *model.User) (*SessionBundle, error) {
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	s.store.Set(refreshKeyPrefix+user.ID, refresh, s.config.RefreshTokenTTL)

	bundle := &SessionBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		User: UserView{
			ID:         user.ID,
			Email:      user.Email,
			Nickname:   user.Nickname,
			ProfileURL: user.ProfileURL,
			Code:       user.Code,
			Birthday:   user.Birthday,
		},
	}

	couple, err := s.coupleRepo.FindActiveByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find couple: %w", err)
	}
	if couple != nil {
		bundle.User.CoupleID = couple.ID
		bundle.Couple = &CoupleView{Anniversary: couple.Anniversary}

		partnerID := couple.UserAID
		if partnerID == user.ID {
			partnerID = couple.UserBID
		}
		partner, err := s.userRepo.FindByID(ctx, partnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to find partner: %w", err)
		}
		if partner != nil {
			bundle.Partner = &PartnerView{
				Nickname:   partner.Nickname,
				ProfileURL: partner.ProfileURL,
				Birthday:   partner.Birthday,
			}
		}
	}

	hasUnread, err := s.notifRepo.HasUnread(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check unread notifications: %w", err)
	}
	bundle.HasUnreadNotifications = hasUnread

	return bundle, nil
}

// nicknameFromEmail はメールアドレスのローカルパートをニックネームにする。
func nicknameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

func handoffKey(code string) string {
	return "handoff:" + code
}
