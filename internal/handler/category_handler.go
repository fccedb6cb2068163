package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/category"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// maxCategoryBodyBytes は一括登録リクエストボディの上限。
const maxCategoryBodyBytes = 1 << 20

const msgEmptyBatch = "Request body must be a non-empty array of categories."

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	Ingest(ctx context.Context, descriptors []category.Descriptor) (*category.IngestResult, error)
	List(ctx context.Context) ([]*model.Category, error)
	Update(ctx context.Context, id uuid.UUID, ch category.Changes) (*model.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// updateCategoryRequest はカテゴリ更新リクエストのボディ。
type updateCategoryRequest struct {
	Name          *string   `json:"name"`
	Slug          *string   `json:"slug"`
	Icon          *string   `json:"icon"`
	Subcategories *[]string `json:"subcategories"`
}

// ingestResponse は一括登録のレスポンス。全件失敗時はcreatedを含めない。
type ingestResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Created []*model.Category  `json:"created,omitempty"`
	Failed  []category.Failure `json:"failed"`
}

// Ingest はカテゴリを一括登録する。1件でも作成できれば201、全件失敗なら400。
// POST /api/categories
func (h *CategoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	descriptors, err := decodeDescriptors(http.MaxBytesReader(w, r.Body, maxCategoryBodyBytes))
	if err != nil {
		writeAPIError(w, model.NewValidationError(msgEmptyBatch))
		return
	}

	result, err := h.service.Ingest(r.Context(), descriptors)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []category.Failure{}
	}

	if len(result.Created) == 0 {
		writeJSON(w, http.StatusBadRequest, ingestResponse{
			Success: false,
			Message: "No categories were created.",
			Failed:  failed,
		})
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Success: true,
		Message: fmt.Sprintf("%d categories created successfully.", len(result.Created)),
		Created: result.Created,
		Failed:  failed,
	})
}

// List は全カテゴリを返す。
// GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Update はカテゴリを更新する。
// PUT /api/categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeAPIError(w, model.NewCategoryNotFoundError())
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, invalidBodyError())
		return
	}

	updated, err := h.service.Update(r.Context(), id, category.Changes{
		Name:          req.Name,
		Slug:          req.Slug,
		Icon:          req.Icon,
		Subcategories: req.Subcategories,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete はカテゴリを削除する。
// DELETE /api/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeAPIError(w, model.NewCategoryNotFoundError())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Category deleted successfully"})
}

// decodeDescriptors は配列、または{"categories": [...]}形式のボディを解釈する。
func decodeDescriptors(body io.Reader) ([]category.Descriptor, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	var descriptors []category.Descriptor
	switch raw[0] {
	case '[':
		err = json.Unmarshal(raw, &descriptors)
	case '{':
		var wrapped struct {
			Categories []category.Descriptor `json:"categories"`
		}
		err = json.Unmarshal(raw, &wrapped)
		descriptors = wrapped.Categories
	default:
		err = fmt.Errorf("unexpected body")
	}
	if err != nil {
		return nil, err
	}
	return descriptors, nil
}
