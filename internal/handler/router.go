package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/middleware"
	"github.com/hitoshi/farmsconnect/internal/revocation"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TokenVerifier     auth.TokenVerifier
	Revocations       revocation.Registry
	HTTPMetrics       middleware.HTTPMetrics
	// リクエストごとのトレースを開始するミドルウェア。nilの場合は使わない
	Tracing func(http.Handler) http.Handler

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 出品
	ListingService  ListingServiceInterface
	UploadMaxMemory int64

	// カテゴリ
	CategoryService CategoryServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Tracing → RequestID → Recovery → SecurityHeaders → CORS → Logging → Metrics → (Auth)
//
// 認証ミドルウェアは変更操作と自身の情報を扱うルートにのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.Tracing != nil {
		r.Use(deps.Tracing)
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	requireAuth := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.Revocations)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	listingHandler := NewListingHandler(deps.ListingService, deps.UploadMaxMemory)
	categoryHandler := NewCategoryHandler(deps.CategoryService)

	// --- 運用エンドポイント ---
	r.Get("/", Root)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		r.With(requireAuth).Get("/profile", authHandler.Profile)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
	})

	// 出品
	r.Route("/api/listings", func(r chi.Router) {
		r.Get("/", listingHandler.Search)
		r.With(requireAuth).Get("/my", listingHandler.ListMine)
		r.With(requireAuth).Post("/", listingHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", listingHandler.Get)
			r.With(requireAuth).Put("/", listingHandler.Update)
			r.With(requireAuth).Delete("/", listingHandler.Delete)
		})
	})

	// カテゴリ（全操作で認証が必要）
	r.Route("/api/categories", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", categoryHandler.Ingest)
		r.Get("/", categoryHandler.List)
		r.Put("/{id}", categoryHandler.Update)
		r.Delete("/{id}", categoryHandler.Delete)
	})

	return r
}
