// Package auth はパスワード認証・Google OAuth・アクセストークンの発行と失効を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/model"
	"github.com/hitoshi/farmsconnect/internal/repository"
	"github.com/hitoshi/farmsconnect/internal/revocation"
	"github.com/hitoshi/farmsconnect/internal/security"
)

// profileImageFolder はプロフィール画像のアップロード先フォルダ。
const profileImageFolder = "farmsconnect/profiles"

// ErrOAuthDisabled はGoogle OAuthが設定されていない場合のエラー。
var ErrOAuthDisabled = errors.New("google oauth is not configured")

var validate = validator.New()

// SignupInput はパスワードによる新規登録の入力。
type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Result は認証成功時に返すトークンとユーザー。
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	oauth     OAuthProvider
	revoked   revocation.Registry
	uploader  media.Uploader
	sanitizer security.TextSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
// oauthがnilの場合はGoogleログインを無効とし、uploaderがnilの場合はプロフィール画像を保存しない。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	oauth OAuthProvider,
	revoked revocation.Registry,
	uploader media.Uploader,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		oauth:     oauth,
		revoked:   revoked,
		uploader:  uploader,
		sanitizer: sanitizer,
		logger:    slog.Default(),
	}
}

// Signup はユーザーを登録し、アクセストークンを発行する。
// 既に登録済みのメールアドレスの場合はUserExistsエラーを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput, profileImage *media.File) (*Result, error) {
	in.Name = s.sanitizer.SanitizeText(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, model.NewValidationError("name, a valid email and password are required")
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}

	if profileImage != nil && s.uploader != nil {
		url, err := s.uploader.Upload(ctx, profileImageFolder, *profileImage)
		if err != nil {
			return nil, fmt.Errorf("プロフィール画像のアップロードに失敗しました: %w", err)
		}
		user.ProfileImage = url
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "ユーザーを登録しました", slog.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login はメールアドレスとパスワードで認証する。
// ユーザーが存在しない場合とパスワードが一致しない場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewInvalidLoginError()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, model.NewInvalidLoginError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidLoginError()
	}

	s.logger.InfoContext(ctx, "ユーザーがログインしました", slog.String("user_id", user.ID.String()))
	return s.issue(user)
}

// GoogleLoginURL はGoogleの同意画面のURLを返す。
func (s *Service) GoogleLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.LoginURL(state), nil
}

// GoogleCallback は認可コードからユーザーを特定し、アクセストークンを発行する。
//
// GoogleアカウントID、メールアドレスの順に既存ユーザーを探す。
// メールアドレスで見つかった場合はGoogleアカウントを紐付け、見つからなければ新規登録する。
func (s *Service) GoogleCallback(ctx context.Context, code string) (*Result, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}

	info, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.users.FindByGoogleID(ctx, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user != nil {
		return s.issue(user)
	}

	user, err = s.users.FindByEmail(ctx, info.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	if user != nil {
		if user.GoogleID == "" {
			if err := s.users.LinkGoogleID(ctx, user.ID, info.ProviderUserID, info.Picture); err != nil {
				return nil, fmt.Errorf("Googleアカウントの紐付けに失敗しました: %w", err)
			}
			user.GoogleID = info.ProviderUserID
			if user.ProfileImage == "" {
				user.ProfileImage = info.Picture
			}
			s.logger.InfoContext(ctx, "Googleアカウントを紐付けました", slog.String("user_id", user.ID.String()))
		}
		return s.issue(user)
	}

	user = &model.User{
		Name:         s.sanitizer.SanitizeText(info.Name),
		Email:        info.Email,
		GoogleID:     info.ProviderUserID,
		ProfileImage: info.Picture,
	}
	if user.Name == "" {
		user.Name, _, _ = strings.Cut(info.Email, "@")
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "Googleアカウントでユーザーを登録しました", slog.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Profile はユーザー情報を返す。
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Logout は提示されたトークンを有効期限まで失効させる。
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if err := s.revoked.Revoke(ctx, token, expiresAt); err != nil {
		return fmt.Errorf("トークンの失効に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "ユーザーがログアウトしました", slog.String("user_id", userID.String()))
	return nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
