package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/listing"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// DefaultUploadMaxMemory はマルチパートフォームをメモリに保持する上限。
const DefaultUploadMaxMemory = 32 << 20

// ListingServiceInterface は出品ハンドラーが必要とするサービスインターフェース。
type ListingServiceInterface interface {
	Search(ctx context.Context, filter model.ListingFilter) (*listing.SearchResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ListingDetail, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error)
	Create(ctx context.Context, ownerID uuid.UUID, in listing.CreateInput, images listing.Images) (*model.Listing, error)
	Update(ctx context.Context, requesterID, id uuid.UUID, build listing.PatchFunc) (*model.Listing, error)
	Delete(ctx context.Context, requesterID, id uuid.UUID) error
}

// ListingHandler は出品のHTTPハンドラー。
type ListingHandler struct {
	service   ListingServiceInterface
	maxMemory int64
}

// NewListingHandler はListingHandlerを生成する。
// maxMemoryが0以下の場合はDefaultUploadMaxMemoryを使う。
func NewListingHandler(service ListingServiceInterface, maxMemory int64) *ListingHandler {
	if maxMemory <= 0 {
		maxMemory = DefaultUploadMaxMemory
	}
	return &ListingHandler{service: service, maxMemory: maxMemory}
}

// updateListingRequest は出品更新リクエストのボディ。
// 数値項目は数値・数値文字列のどちらも受け付ける。
type updateListingRequest struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	Price            *json.Number    `json:"price"`
	Quantity         *json.Number    `json:"quantity"`
	Category         *string         `json:"category"`
	Subcategory      *string         `json:"subcategory"`
	Location         *string         `json:"location"`
	MainImage        *string         `json:"mainImage"`
	AdditionalImages *[]string       `json:"additionalImages"`
	Coordinates      *coordinatesReq `json:"coordinates"`
}

// coordinatesReq は座標の更新値。lng・latは両方必須。
type coordinatesReq struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

// listingListResponse は出品一覧のレスポンス。
type listingListResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Data    []*model.Listing `json:"data"`
}

// Search は条件に合う出品を返す。
// GET /api/listings
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := listing.ParseQuery(r.URL.Query())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.service.Search(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listingListResponse{Success: true, Count: result.Count, Data: result.Items})
}

// Get は出品詳細を出品者情報付きで返す。
// GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeAPIError(w, model.NewInvalidIDError("listing"))
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": detail})
}

// ListMine は認証ユーザー自身の出品を返す。
// GET /api/listings/my
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listingListResponse{Success: true, Count: len(items), Data: items})
}

// Create はマルチパートフォームから出品を作成する。
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeAPIError(w, model.NewValidationError("Invalid multipart form"))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := listing.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Quantity:    r.FormValue("quantity"),
		Category:    r.FormValue("category"),
		Subcategory: r.FormValue("subcategory"),
		Location:    r.FormValue("location"),
		Lat:         r.FormValue("lat"),
		Lng:         r.FormValue("lng"),
	}

	images, closeAll, err := formImages(r.MultipartForm)
	defer closeAll()
	if err != nil {
		slog.WarnContext(r.Context(), "failed to open uploaded image", slog.String("error", err.Error()))
		writeAPIError(w, model.NewValidationError("Uploaded image could not be read"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, in, images)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": created})
}

// Update は出品を部分更新する。所有者以外は403。
// PUT /api/listings/{id}
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeAPIError(w, model.NewInvalidIDError("listing"))
		return
	}

	// ボディは所有者確認の後に読む
	build := func() (listing.Patch, error) {
		var req updateListingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return listing.Patch{}, invalidBodyError()
		}
		return req.toPatch()
	}

	updated, err := h.service.Update(r.Context(), userID, id, build)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": updated})
}

// Delete は出品を削除する。所有者以外は403。
// DELETE /api/listings/{id}
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeAPIError(w, model.NewInvalidIDError("listing"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Listing successfully deleted"})
}

func (req updateListingRequest) toPatch() (listing.Patch, error) {
	p := listing.Patch{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		Location:         req.Location,
		MainImage:        req.MainImage,
		AdditionalImages: req.AdditionalImages,
	}
	if req.Coordinates != nil {
		if req.Coordinates.Lng == nil || req.Coordinates.Lat == nil {
			return listing.Patch{}, model.NewValidationError("coordinates must include both lng and lat")
		}
		p.Coordinates = &model.GeoPoint{Lng: *req.Coordinates.Lng, Lat: *req.Coordinates.Lat}
	}
	if req.Price != nil {
		v, err := req.Price.Float64()
		if err != nil {
			return listing.Patch{}, model.NewValidationError("price must be a number")
		}
		p.Price = &v
	}
	if req.Quantity != nil {
		v, err := req.Quantity.Int64()
		if err != nil {
			return listing.Patch{}, model.NewValidationError("quantity must be an integer")
		}
		q := int(v)
		p.Quantity = &q
	}
	return p, nil
}

// formImages はmainImage(1枚)とadditionalImages(先頭4枚)を開く。
// 返すclose関数は常に呼び出す必要がある。
func formImages(form *multipart.Form) (listing.Images, func(), error) {
	var images listing.Images
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	if form == nil {
		return images, closeAll, nil
	}

	open := func(fh *multipart.FileHeader) (media.File, error) {
		f, err := fh.Open()
		if err != nil {
			return media.File{}, err
		}
		closers = append(closers, f)
		return media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}, nil
	}

	if mains := form.File["mainImage"]; len(mains) > 0 {
		f, err := open(mains[0])
		if err != nil {
			return images, closeAll, err
		}
		images.Main = &f
	}

	additional := form.File["additionalImages"]
	if len(additional) > model.MaxAdditionalImages {
		additional = additional[:model.MaxAdditionalImages]
	}
	for _, fh := range additional {
		f, err := open(fh)
		if err != nil {
			return images, closeAll, err
		}
		images.Additional = append(images.Additional, f)
	}

	return images, closeAll, nil
}
