// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/middleware"
	"github.com/hitoshi/farmsconnect/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	GoogleLoginURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*auth.Result, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	Logout(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string
	CookieSecure bool
	// プロフィール画像付き登録フォームのメモリ上限
	MaxMemory int64
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.MaxMemory <= 0 {
		config.MaxMemory = DefaultUploadMaxMemory
	}
	config.FrontendURL = strings.TrimRight(config.FrontendURL, "/")
	return &AuthHandler{service: service, config: config}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はクライアントに返すユーザー情報。パスワードハッシュは含めない。
type userResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Signup はパスワードでユーザーを登録する。
// JSON、またはprofileImageを含むマルチパートフォームを受け付ける。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	var profileImage *media.File

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.config.MaxMemory); err != nil {
			writeAPIError(w, model.NewValidationError("Invalid multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		req = signupRequest{
			Name:     r.FormValue("name"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}
		if fhs := r.MultipartForm.File["profileImage"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				writeAPIError(w, model.NewValidationError("Uploaded image could not be read"))
				return
			}
			defer f.Close()
			profileImage = &media.File{
				Name:        fhs[0].Filename,
				ContentType: fhs[0].Header.Get("Content-Type"),
				Size:        fhs[0].Size,
				Body:        f,
			}
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, invalidBodyError())
			return
		}
	}

	result, err := h.service.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, profileImage)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTokenResponse(result))
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, invalidBodyError())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(result))
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	loginURL, err := h.service.GoogleLoginURL(state)
	if err != nil {
		slog.WarnContext(r.Context(), "google login unavailable", slog.String("error", err.Error()))
		h.redirectAuthFailed(w, r)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理し、トークン付きでフロントエンドへリダイレクトする。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.WarnContext(r.Context(), "oauth state mismatch")
		h.redirectAuthFailed(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectAuthFailed(w, r)
		return
	}

	result, err := h.service.GoogleCallback(r.Context(), code)
	if err != nil {
		if !errors.Is(err, auth.ErrOAuthDisabled) {
			slog.ErrorContext(r.Context(), "oauth callback failed", slog.String("error", err.Error()))
		}
		h.redirectAuthFailed(w, r)
		return
	}

	http.Redirect(w, r, h.config.FrontendURL+"/?token="+url.QueryEscape(result.Token), http.StatusTemporaryRedirect)
}

// Profile は認証ユーザーの情報を返す。
// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// Logout は提示されたトークンを失効させる。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	token, expiresAt, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		writeAPIError(w, model.NewUnauthorizedError("No token provided"))
		return
	}

	if err := h.service.Logout(r.Context(), userID, token, expiresAt); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) redirectAuthFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.FrontendURL+"/login?error=auth_failed", http.StatusTemporaryRedirect)
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}

func toTokenResponse(result *auth.Result) tokenResponse {
	return tokenResponse{Token: result.Token, User: toUserResponse(result.User)}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
