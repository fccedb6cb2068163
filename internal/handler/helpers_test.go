package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/auth"
	"github.com/hitoshi/farmsconnect/internal/category"
	"github.com/hitoshi/farmsconnect/internal/listing"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/middleware"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// --- モック定義 ---

// mockListingService はListingServiceInterfaceのモック実装。
type mockListingService struct {
	searchFn   func(ctx context.Context, filter model.ListingFilter) (*listing.SearchResult, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*model.ListingDetail, error)
	listMineFn func(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error)
	createFn   func(ctx context.Context, ownerID uuid.UUID, in listing.CreateInput, images listing.Images) (*model.Listing, error)
	updateFn   func(ctx context.Context, requesterID, id uuid.UUID, build listing.PatchFunc) (*model.Listing, error)
	deleteFn   func(ctx context.Context, requesterID, id uuid.UUID) error
}

func (m *mockListingService) Search(ctx context.Context, filter model.ListingFilter) (*listing.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return &listing.SearchResult{Items: []*model.Listing{}}, nil
}

func (m *mockListingService) Get(ctx context.Context, id uuid.UUID) (*model.ListingDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewListingNotFoundError()
}

func (m *mockListingService) ListMine(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, ownerID)
	}
	return []*model.Listing{}, nil
}

func (m *mockListingService) Create(ctx context.Context, ownerID uuid.UUID, in listing.CreateInput, images listing.Images) (*model.Listing, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, in, images)
	}
	return &model.Listing{ID: uuid.New(), OwnerID: ownerID}, nil
}

func (m *mockListingService) Update(ctx context.Context, requesterID, id uuid.UUID, build listing.PatchFunc) (*model.Listing, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, requesterID, id, build)
	}
	if _, err := build(); err != nil {
		return nil, err
	}
	return &model.Listing{ID: id, OwnerID: requesterID}, nil
}

func (m *mockListingService) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, requesterID, id)
	}
	return nil
}

// mockCategoryService はCategoryServiceInterfaceのモック実装。
type mockCategoryService struct {
	ingestFn func(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error)
	listFn   func(ctx context.Context) ([]*model.Category, error)
	updateFn func(ctx context.Context, id uuid.UUID, ch category.Changes) (*model.Category, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCategoryService) Ingest(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, descriptors)
	}
	return &category.IngestResult{}, nil
}

func (m *mockCategoryService) List(ctx context.Context) ([]*model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Category{}, nil
}

func (m *mockCategoryService) Update(ctx context.Context, id uuid.UUID, ch category.Changes) (*model.Category, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, ch)
	}
	return &model.Category{ID: id}, nil
}

func (m *mockCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn         func(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error)
	loginFn          func(ctx context.Context, email, password string) (*auth.Result, error)
	googleLoginURLFn func(state string) (string, error)
	googleCallbackFn func(ctx context.Context, code string) (*auth.Result, error)
	profileFn        func(ctx context.Context, userID uuid.UUID) (*model.User, error)
	logoutFn         func(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput, profileImage *media.File) (*auth.Result, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in, profileImage)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidLoginError()
}

func (m *mockAuthService) GoogleLoginURL(state string) (string, error) {
	if m.googleLoginURLFn != nil {
		return m.googleLoginURLFn(state)
	}
	return "", auth.ErrOAuthDisabled
}

func (m *mockAuthService) GoogleCallback(ctx context.Context, code string) (*auth.Result, error) {
	if m.googleCallbackFn != nil {
		return m.googleCallbackFn(ctx, code)
	}
	return nil, auth.ErrOAuthDisabled
}

func (m *mockAuthService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockAuthService) Logout(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID, token, expiresAt)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディを任意の型にデコードするヘルパー。
func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
