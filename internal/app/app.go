package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/category"
	"github.com/hitoshi/farmsconnect/internal/config"
	"github.com/hitoshi/farmsconnect/internal/database"
	"github.com/hitoshi/farmsconnect/internal/handler"
	"github.com/hitoshi/farmsconnect/internal/listing"
	"github.com/hitoshi/farmsconnect/internal/logger"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/metrics"
	"github.com/hitoshi/farmsconnect/internal/repository"
	"github.com/hitoshi/farmsconnect/internal/revocation"
	"github.com/hitoshi/farmsconnect/internal/security"
	"github.com/hitoshi/farmsconnect/internal/telemetry"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み、環境変数からConfigを読み込んでJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envの読み込み（既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("falling back to info log level", slog.String("error", err.Error()))
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRollback:
		return runRollback(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		return err
	}
	slog.Info("database connection established")

	// 2. トレース
	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	// 3. 失効レジストリ
	revocations, closeRegistry, err := newRevocationRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	// 4. 画像アップロード
	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}

	// 5. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 6. リポジトリとサービスの初期化
	router := newRouter(cfg, db, revocations, uploader, collector, metrics.Handler(registry))

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newRouter はリポジトリ・サービス・ハンドラーを組み立てる。
func newRouter(
	cfg *config.Config,
	db *sql.DB,
	revocations revocation.Registry,
	uploader media.Uploader,
	collector *metrics.Collector,
	metricsHandler http.Handler,
) http.Handler {
	userRepo := repository.NewPostgresUserRepo(db)
	listingRepo := repository.NewPostgresListingRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)

	sanitizer := security.NewTextSanitizer()
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	var oauth auth.OAuthProvider
	if cfg.GoogleOAuthEnabled() {
		oauth = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Transport:    telemetry.NewTransport(nil),
		})
	} else {
		slog.Info("google oauth is not configured; google login disabled")
	}

	authService := auth.NewService(
		userRepo, auth.NewBcryptHasher(auth.DefaultBcryptCost), tokens, oauth,
		revocations, uploader, sanitizer,
	)
	listingService := listing.NewService(listingRepo, userRepo, uploader, sanitizer, collector)
	categoryService := category.NewService(categoryRepo, sanitizer, cfg.CategoryIngestMaxConcurrent, collector)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TokenVerifier:     tokens,
		Revocations:       revocations,
		HTTPMetrics:       collector,

		HealthChecker:  db,
		MetricsHandler: metricsHandler,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:  cfg.FrontendURL,
			CookieSecure: cfg.CookieSecure,
			MaxMemory:    cfg.UploadMaxMemory,
		},

		ListingService:  listingService,
		UploadMaxMemory: cfg.UploadMaxMemory,

		CategoryService: categoryService,
	}
	if cfg.OTLPEndpoint != "" {
		deps.Tracing = telemetry.NewMiddleware(cfg.ServiceName)
	}

	return handler.NewRouter(deps)
}

// newRevocationRegistry はREDIS_URLが設定されていればRedis、なければプロセス内のレジストリを返す。
func newRevocationRegistry(ctx context.Context, cfg *config.Config) (revocation.Registry, func(), error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL is not set; revoked tokens are kept in memory only")
		return revocation.NewMemoryRegistry(), func() {}, nil
	}

	client, err := revocation.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pingRedis(ctx, client); err != nil {
		client.Close()
		return nil, nil, err
	}

	slog.Info("redis connection established")
	return revocation.NewRedisRegistry(client), func() { client.Close() }, nil
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// newUploader はS3が設定されていればS3Uploaderを返す。未設定の場合はnil。
func newUploader(ctx context.Context, cfg *config.Config) (media.Uploader, error) {
	if !cfg.S3Enabled() {
		slog.Info("S3 is not configured; image uploads disabled")
		return nil, nil
	}

	uploader, err := media.NewS3Uploader(ctx, media.S3Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		PublicBaseURL:  cfg.S3PublicBaseURL,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 uploader: %w", err)
	}
	return uploader, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logMigrationVersion(cfg.DatabaseURL)
	slog.Info("database migrations completed successfully")
	return nil
}

// runRollback は直近のマイグレーションを1つ取り消す。
func runRollback(cfg *config.Config) error {
	slog.Info("rolling back the latest migration",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	logMigrationVersion(cfg.DatabaseURL)
	return nil
}

func logMigrationVersion(databaseURL string) {
	version, dirty, err := database.Version(databaseURL)
	if err != nil {
		slog.Warn("failed to read migration version", slog.String("error", err.Error()))
		return
	}
	slog.Info("migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}
