package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/category"
	"github.com/hitoshi/farmsconnect/internal/model"
)

func TestCategoryHandler_Ingest_PartialSuccess(t *testing.T) {
	svc := &mockCategoryService{
		ingestFn: func(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error) {
			result := &category.IngestResult{}
			for _, d := range descriptors {
				if d.Slug == "fruits" {
					result.Failed = append(result.Failed, category.Failure{
						CategoryData: d,
						Reason:       fmt.Sprintf("Category with slug %q already exists.", d.Slug),
					})
					continue
				}
				result.Created = append(result.Created, &model.Category{ID: uuid.New(), Name: d.Name, Slug: d.Slug})
			}
			return result, nil
		},
	}
	h := NewCategoryHandler(svc)

	body := `[{"name":"Fruits","slug":"fruits"},{"name":"Grains","slug":"grains"},{"name":"Tubers","slug":"tubers"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	resp := decodeBody[ingestResponse](t, w)
	if len(resp.Created) != 2 || len(resp.Failed) != 1 {
		t.Fatalf("created=%d failed=%d, want 2/1", len(resp.Created), len(resp.Failed))
	}
	if !strings.Contains(resp.Failed[0].Reason, "fruits") {
		t.Errorf("reason = %q, should name the slug", resp.Failed[0].Reason)
	}
	if resp.Failed[0].CategoryData.Slug != "fruits" {
		t.Errorf("categoryData.slug = %q", resp.Failed[0].CategoryData.Slug)
	}
	if resp.Message != "2 categories created successfully." {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCategoryHandler_Ingest_AllFailed_Returns400(t *testing.T) {
	svc := &mockCategoryService{
		ingestFn: func(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error) {
			return &category.IngestResult{Failed: []category.Failure{
				{CategoryData: descriptors[0], Reason: "Missing name or slug."},
			}}, nil
		},
	}
	h := NewCategoryHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`[{"name":"NoSlug"}]`))
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := decodeBody[map[string]any](t, w)
	if _, ok := resp["created"]; ok {
		t.Error("created should be omitted when nothing was created")
	}
	if resp["message"] != "No categories were created." {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestCategoryHandler_Ingest_BodyShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCalled bool
		wantLen    int
		wantStatus int
	}{
		{"配列", `[{"name":"A","slug":"a"}]`, true, 1, http.StatusCreated},
		{"categoriesでラップ", `{"categories":[{"name":"A","slug":"a"},{"name":"B","slug":"b"}]}`, true, 2, http.StatusCreated},
		{"オブジェクト単体", `"oops"`, false, 0, http.StatusBadRequest},
		{"空のボディ", ``, false, 0, http.StatusBadRequest},
		{"不正なJSON", `[{`, false, 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotLen int
			svc := &mockCategoryService{
				ingestFn: func(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error) {
					called = true
					gotLen = len(descriptors)
					created := make([]*model.Category, len(descriptors))
					for i, d := range descriptors {
						created[i] = &model.Category{ID: uuid.New(), Slug: d.Slug}
					}
					return &category.IngestResult{Created: created}, nil
				},
			}
			h := NewCategoryHandler(svc)

			w := httptest.NewRecorder()
			h.Ingest(w, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
			if gotLen != tt.wantLen {
				t.Errorf("len = %d, want %d", gotLen, tt.wantLen)
			}
		})
	}
}

func TestCategoryHandler_Ingest_EmptyArray(t *testing.T) {
	svc := &mockCategoryService{
		ingestFn: func(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error) {
			return nil, model.NewValidationError(msgEmptyBatch)
		},
	}
	h := NewCategoryHandler(svc)

	w := httptest.NewRecorder()
	h.Ingest(w, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`[]`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := parseAPIErrorResponse(t, w); resp.Message != msgEmptyBatch {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCategoryHandler_List(t *testing.T) {
	svc := &mockCategoryService{
		listFn: func(ctx context.Context) ([]*model.Category, error) {
			return []*model.Category{{ID: uuid.New(), Name: "Fruits", Slug: "fruits", Subcategories: []string{}}}, nil
		},
	}
	h := NewCategoryHandler(svc)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	got := decodeBody[[]model.Category](t, w)
	if len(got) != 1 || got[0].Slug != "fruits" {
		t.Errorf("categories = %+v", got)
	}
}

func TestCategoryHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		updateErr  error
		wantStatus int
	}{
		{"正常系", uuid.NewString(), `{"name":"Veg"}`, nil, http.StatusOK},
		{"slug重複", uuid.NewString(), `{"slug":"fruits"}`, model.NewDuplicateSlugError("fruits"), http.StatusBadRequest},
		{"存在しないカテゴリ", uuid.NewString(), `{}`, model.NewCategoryNotFoundError(), http.StatusNotFound},
		{"不正なID", "abc", `{}`, nil, http.StatusNotFound},
		{"不正なJSON", uuid.NewString(), `{`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotChanges category.Changes
			svc := &mockCategoryService{
				updateFn: func(ctx context.Context, id uuid.UUID, ch category.Changes) (*model.Category, error) {
					gotChanges = ch
					if tt.updateErr != nil {
						return nil, tt.updateErr
					}
					return &model.Category{ID: id, Name: *ch.Name}, nil
				},
			}
			h := NewCategoryHandler(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/categories/"+tt.id, strings.NewReader(tt.body))
			req = withChiURLParam(req, "id", tt.id)
			w := httptest.NewRecorder()

			h.Update(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (gotChanges.Name == nil || *gotChanges.Name != "Veg") {
				t.Errorf("changes.Name = %v, want Veg", gotChanges.Name)
			}
		})
	}
}

func TestCategoryHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		deleteErr  error
		wantStatus int
	}{
		{"正常系", nil, http.StatusOK},
		{"存在しないカテゴリ", model.NewCategoryNotFoundError(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCategoryService{
				deleteFn: func(ctx context.Context, id uuid.UUID) error { return tt.deleteErr },
			}
			h := NewCategoryHandler(svc)

			id := uuid.NewString()
			req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/api/categories/"+id, nil), "id", id)
			w := httptest.NewRecorder()

			h.Delete(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
