package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/futari/internal/metrics"
	"github.com/hitoshi/futari/internal/middleware"
	"github.com/hitoshi/futari/internal/notification"
)

// HealthChecker はデータベース接続の死活確認を行う。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 通知
	NotificationService NotificationServiceInterface
	PushTokens          PushTokenRegistrar
	Registry            *notification.Registry

	// ユーザー
	UserService UserServiceInterface

	// 運用
	Metrics       metrics.MetricsCollector
	MetricsSource prometheus.Gatherer
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Auth → RateLimit(General)
//
// 認証ルート（/auth/*）は認証チェーンの外に配置し、代わりにクライアントIP
// キーのログイン用レート制限をかける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	notificationHandler := NewNotificationHandler(deps.NotificationService, deps.PushTokens)
	sseHandler := NewSSEHandler(deps.Registry, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// 認証ルート（トークン発行前なのでIPキーのレート制限をかける）
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.LoginMiddleware())

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/google/verify", authHandler.GoogleVerify)

		r.Post("/kakao", authHandler.KakaoLogin)
	})

	// ヘルスチェック（DB接続まで確認する）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := deps.HealthChecker.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusメトリクス
	if deps.MetricsSource != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsSource))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 通知管理
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Delete("/", notificationHandler.DeleteAll)
			r.Delete("/{id}", notificationHandler.DeleteOne)

			// プッシュ通知トークン登録
			r.Post("/token", notificationHandler.RegisterPushToken)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Patch("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.Withdraw)
		})

		// SSEライブ配信（長時間接続のため一般レート制限の対象に含める）
		r.Get("/sse/subscribe", sseHandler.Subscribe)
	})

	return r
}
