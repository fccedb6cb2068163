package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/media"
	"github.com/hitoshi/farmsconnect/internal/model"
	"github.com/hitoshi/farmsconnect/internal/repository"
	"github.com/hitoshi/farmsconnect/internal/security"
)

// imageFolder は出品画像のアップロード先フォルダ。
const imageFolder = "farmsconnect/listings"

// SearchResult は検索結果とその件数。
type SearchResult struct {
	Count int
	Items []*model.Listing
}

// CreateInput は出品作成フォームの入力値。数値項目も文字列のまま受け取る。
type CreateInput struct {
	Title       string
	Description string
	Price       string
	Quantity    string
	Category    string
	Subcategory string
	Location    string
	Lat         string
	Lng         string
}

// Images は出品作成時にアップロードされた画像。
type Images struct {
	Main       *media.File
	Additional []media.File
}

// Patch は出品の部分更新。nilの項目は変更しない。
// 所有者は変更できないため含まない。
type Patch struct {
	Title            *string
	Description      *string
	Price            *float64
	Quantity         *int
	Category         *string
	Subcategory      *string
	Location         *string
	MainImage        *string
	AdditionalImages *[]string
	Coordinates      *model.GeoPoint
}

// PatchFunc は所有者確認の後に呼ばれ、適用するパッチを返す。
type PatchFunc func() (Patch, error)

// StaticPatch は常にpを返すPatchFuncを返す。
func StaticPatch(p Patch) PatchFunc {
	return func() (Patch, error) { return p, nil }
}

// Metrics は出品操作の計測インターフェース。
type Metrics interface {
	ObserveListingQuery(d time.Duration, results int)
	IncListingMutation(op string)
}

// Service は出品の検索・作成・更新・削除のサービス層。
type Service struct {
	listings  repository.ListingRepository
	users     repository.UserRepository
	uploader  media.Uploader
	sanitizer security.TextSanitizer
	metrics   Metrics
	logger    *slog.Logger
}

// NewService はServiceを生成する。
// uploaderがnilの場合、画像はアップロードされずプレースホルダー画像が使われる。
// metricsはnilでもよい。
func NewService(
	listings repository.ListingRepository,
	users repository.UserRepository,
	uploader media.Uploader,
	sanitizer security.TextSanitizer,
	metrics Metrics,
) *Service {
	return &Service{
		listings:  listings,
		users:     users,
		uploader:  uploader,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    slog.Default(),
	}
}

// Search は条件に一致する出品を返す。一致しない場合は空の結果を返す。
func (s *Service) Search(ctx context.Context, filter model.ListingFilter) (*SearchResult, error) {
	start := time.Now()

	items, err := s.listings.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("出品の検索に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.Listing{}
	}

	if s.metrics != nil {
		s.metrics.ObserveListingQuery(time.Since(start), len(items))
	}

	return &SearchResult{Count: len(items), Items: items}, nil
}

// Get は出品を出品者情報付きで返す。
// 出品者が削除済みの場合はOwnerをnilのまま返す。
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ListingDetail, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if l == nil {
		return nil, model.NewListingNotFoundError()
	}

	detail := &model.ListingDetail{Listing: l}

	owner, err := s.users.FindByID(ctx, l.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("出品者の取得に失敗しました: %w", err)
	}
	if owner != nil {
		summary := owner.Summary()
		detail.Owner = &summary
	}

	return detail, nil
}

// ListMine は出品者自身の出品を作成日時の降順で返す。
func (s *Service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error) {
	items, err := s.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("出品一覧の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.Listing{}
	}
	return items, nil
}

// Create は出品を作成する。出品者は認証済みのownerIDに固定される。
//
// 画像がない場合はmainImageにプレースホルダーを設定し、追加画像は先頭4枚のみ使う。
// 座標はlat・lngの両方が指定された場合のみ設定する。
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput, images Images) (*model.Listing, error) {
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	quantity, err := parseQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	coords, err := parseCoordinates(in.Lat, in.Lng)
	if err != nil {
		return nil, err
	}

	l := &model.Listing{
		OwnerID:          ownerID,
		Title:            s.sanitizer.SanitizeText(in.Title),
		Description:      s.sanitizer.SanitizeText(in.Description),
		Price:            price,
		Quantity:         quantity,
		Category:         s.sanitizer.SanitizeText(in.Category),
		Subcategory:      s.sanitizer.SanitizeText(in.Subcategory),
		Location:         s.sanitizer.SanitizeText(in.Location),
		MainImage:        model.PlaceholderImage,
		AdditionalImages: []string{},
		Coordinates:      coords,
	}

	// 検証はアップロードより前に行う
	if err := validateListing(l); err != nil {
		return nil, err
	}

	if err := s.attachImages(ctx, l, images); err != nil {
		return nil, err
	}

	if err := s.listings.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("出品の作成に失敗しました: %w", err)
	}

	s.recordMutation("create")
	s.logger.InfoContext(ctx, "出品を作成しました",
		slog.String("listing_id", l.ID.String()),
		slog.String("owner_id", ownerID.String()),
	)

	return l, nil
}

// attachImages は画像をアップロードしてURLを設定する。
func (s *Service) attachImages(ctx context.Context, l *model.Listing, images Images) error {
	if s.uploader == nil {
		return nil
	}

	if images.Main != nil {
		url, err := s.uploader.Upload(ctx, imageFolder, *images.Main)
		if err != nil {
			return fmt.Errorf("メイン画像のアップロードに失敗しました: %w", err)
		}
		l.MainImage = url
	}

	additional := images.Additional
	if len(additional) > model.MaxAdditionalImages {
		additional = additional[:model.MaxAdditionalImages]
	}
	for _, f := range additional {
		url, err := s.uploader.Upload(ctx, imageFolder, f)
		if err != nil {
			return fmt.Errorf("追加画像のアップロードに失敗しました: %w", err)
		}
		l.AdditionalImages = append(l.AdditionalImages, url)
	}

	return nil
}

// Update は出品を部分更新する。
// 出品が存在しなければNotFound、所有者でなければパッチの内容に関わらずForbiddenを返す。
// buildは所有者確認に成功した場合のみ呼ばれる。
func (s *Service) Update(ctx context.Context, requesterID, id uuid.UUID, build PatchFunc) (*model.Listing, error) {
	l, err := s.findOwned(ctx, requesterID, id, "update")
	if err != nil {
		return nil, err
	}

	p, err := build()
	if err != nil {
		return nil, err
	}

	s.applyPatch(l, p)

	if err := validateListing(l); err != nil {
		return nil, err
	}

	if err := s.listings.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("出品の更新に失敗しました: %w", err)
	}

	s.recordMutation("update")
	return l, nil
}

func (s *Service) applyPatch(l *model.Listing, p Patch) {
	if p.Title != nil {
		l.Title = s.sanitizer.SanitizeText(*p.Title)
	}
	if p.Description != nil {
		l.Description = s.sanitizer.SanitizeText(*p.Description)
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.Category != nil {
		l.Category = s.sanitizer.SanitizeText(*p.Category)
	}
	if p.Subcategory != nil {
		l.Subcategory = s.sanitizer.SanitizeText(*p.Subcategory)
	}
	if p.Location != nil {
		l.Location = s.sanitizer.SanitizeText(*p.Location)
	}
	if p.MainImage != nil {
		l.MainImage = *p.MainImage
	}
	if p.AdditionalImages != nil {
		l.AdditionalImages = *p.AdditionalImages
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		l.Coordinates = &c
	}
}

// Delete は出品を削除する。参照している画像は削除しない。
func (s *Service) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, requesterID, id, "delete"); err != nil {
		return err
	}

	deleted, err := s.listings.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("出品の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewListingNotFoundError()
	}

	s.recordMutation("delete")
	s.logger.InfoContext(ctx, "出品を削除しました",
		slog.String("listing_id", id.String()),
		slog.String("owner_id", requesterID.String()),
	)
	return nil
}

// findOwned は出品を取得し、requesterIDが所有者であることを確認する。
func (s *Service) findOwned(ctx context.Context, requesterID, id uuid.UUID, action string) (*model.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if l == nil {
		return nil, model.NewListingNotFoundError()
	}
	if l.OwnerID != requesterID {
		return nil, model.NewForbiddenError(action)
	}
	return l, nil
}

func (s *Service) recordMutation(op string) {
	if s.metrics != nil {
		s.metrics.IncListingMutation(op)
	}
}
