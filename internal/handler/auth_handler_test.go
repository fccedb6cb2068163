package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/middleware"
	"github.com/hitoshi/farmsconnect/internal/model"
)

var testAuthConfig = AuthHandlerConfig{FrontendURL: "http://localhost:5173/"}

func testResult(user *model.User) *auth.Result {
	return &auth.Result{Token: "jwt-token", ExpiresAt: time.Now().Add(time.Hour), User: user}
}

func TestAuthHandler_Signup_JSON(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash"}
	var gotInput auth.SignupInput
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error) {
			gotInput = in
			if profileImage != nil {
				t.Error("JSON signup should not carry a profile image")
			}
			return testResult(user), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotInput.Email != "ada@example.com" || gotInput.Password != "pw" {
		t.Errorf("input = %+v", gotInput)
	}
	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Error("password hash must not be returned")
	}
	resp := decodeBody[tokenResponse](t, w)
	if resp.Token != "jwt-token" || resp.User.ID != user.ID {
		t.Errorf("response = %+v", resp)
	}
}

func TestAuthHandler_Signup_MultipartWithImage(t *testing.T) {
	var gotImage string
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error) {
			if profileImage == nil {
				t.Fatal("expected profile image")
			}
			b, _ := io.ReadAll(profileImage.Body)
			gotImage = profileImage.Name + ":" + string(b)
			return testResult(&model.User{ID: uuid.New(), Name: in.Name, Email: in.Email}), nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Ada")
	mw.WriteField("email", "ada@example.com")
	mw.WriteField("password", "pw")
	fw, _ := mw.CreateFormFile("profileImage", "me.png")
	fw.Write([]byte("png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotImage != "me.png:png" {
		t.Errorf("image = %q", gotImage)
	}
}

func TestAuthHandler_Signup_UserExists(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error) {
			return nil, model.NewUserExistsError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"name":"a","email":"a@b.c","password":"p"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := parseAPIErrorResponse(t, w); resp.Message != "User already exists" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		loginErr   error
		wantStatus int
	}{
		{"正常系", `{"email":"ada@example.com","password":"pw"}`, nil, http.StatusOK},
		{"認証失敗", `{"email":"ada@example.com","password":"bad"}`, model.NewInvalidLoginError(), http.StatusBadRequest},
		{"不正なJSON", `{`, nil, http.StatusBadRequest},
		{"内部エラー", `{"email":"a@b.c","password":"p"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
					if tt.loginErr != nil {
						return nil, tt.loginErr
					}
					return testResult(&model.User{ID: uuid.New(), Email: email}), nil
				},
			}
			h := NewAuthHandler(svc, testAuthConfig)

			w := httptest.NewRecorder()
			h.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthHandler_GoogleLogin_SetsStateAndRedirects(t *testing.T) {
	var gotState string
	svc := &mockAuthService{
		googleLoginURLFn: func(state string) (string, error) {
			gotState = state
			return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	w := httptest.NewRecorder()
	h.GoogleLogin(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if gotState == "" {
		t.Fatal("state should be generated")
	}
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value != gotState || !stateCookie.HttpOnly {
		t.Errorf("state cookie = %+v", stateCookie)
	}
}

func TestAuthHandler_GoogleLogin_Disabled_RedirectsToLogin(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig)

	w := httptest.NewRecorder()
	h.GoogleLogin(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	if got := w.Header().Get("Location"); got != "http://localhost:5173/login?error=auth_failed" {
		t.Errorf("Location = %q", got)
	}
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		cookie       string
		callbackErr  error
		wantLocation string
	}{
		{"正常系", "?code=abc&state=s1", "s1", nil, "http://localhost:5173/?token=jwt-token"},
		{"state不一致", "?code=abc&state=s1", "other", nil, "http://localhost:5173/login?error=auth_failed"},
		{"stateなし", "?code=abc", "", nil, "http://localhost:5173/login?error=auth_failed"},
		{"codeなし", "?state=s1", "s1", nil, "http://localhost:5173/login?error=auth_failed"},
		{"交換失敗", "?code=abc&state=s1", "s1", errors.New("exchange failed"), "http://localhost:5173/login?error=auth_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				googleCallbackFn: func(ctx context.Context, code string) (*auth.Result, error) {
					if tt.callbackErr != nil {
						return nil, tt.callbackErr
					}
					return testResult(&model.User{ID: uuid.New()}), nil
				},
			}
			h := NewAuthHandler(svc, testAuthConfig)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			h.GoogleCallback(w, req)

			if w.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	userID := uuid.New()

	t.Run("正常系", func(t *testing.T) {
		svc := &mockAuthService{
			profileFn: func(ctx context.Context, id uuid.UUID) (*model.User, error) {
				return &model.User{ID: id, Name: "Ada", Email: "ada@example.com"}, nil
			},
		}
		h := NewAuthHandler(svc, testAuthConfig)

		w := httptest.NewRecorder()
		h.Profile(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), userID))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		body := decodeBody[map[string]userResponse](t, w)
		if body["user"].ID != userID {
			t.Errorf("user.id = %v, want %v", body["user"].ID, userID)
		}
	})

	t.Run("存在しないユーザー", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{}, testAuthConfig)

		w := httptest.NewRecorder()
		h.Profile(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), userID))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestAuthHandler_Logout_RevokesPresentedToken(t *testing.T) {
	userID := uuid.New()
	expiresAt := time.Now().Add(30 * time.Minute)
	var gotToken string
	var gotExpiry time.Time
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, id uuid.UUID, token string, exp time.Time) error {
			gotToken = token
			gotExpiry = exp
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), userID)
	req = req.WithContext(middleware.ContextWithToken(req.Context(), "presented", expiresAt))
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotToken != "presented" || !gotExpiry.Equal(expiresAt) {
		t.Errorf("token = %q expiry = %v", gotToken, gotExpiry)
	}
	if body := decodeBody[map[string]string](t, w); body["message"] != "Logged out successfully" {
		t.Errorf("message = %q", body["message"])
	}
}
