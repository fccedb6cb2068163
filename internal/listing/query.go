// Package listing は出品の検索と、所有者による出品の作成・更新・削除を提供する。
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/farmsconnect/internal/geo"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// 並び替え指定のクエリ値
const (
	sortByPrice    = "price"
	sortByDate     = "date"
	priceLowToHigh = "lowToHigh"
	dateOldest     = "oldestToLatest"
)

// ParseQuery はクエリパラメータから検索条件を組み立てる。
//
// 対応パラメータ: search, category, subcategory, sortBy, priceOrder, dateOrder,
// lat, lng, radius。範囲条件はlat・lng・radiusの3つが揃った場合のみ適用する。
// sortByが未指定または不明な値の場合は作成日時の降順になる。
func ParseQuery(q url.Values) (model.ListingFilter, error) {
	filter := model.ListingFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		Category:    strings.TrimSpace(q.Get("category")),
		Subcategory: strings.TrimSpace(q.Get("subcategory")),
		Sort:        parseSort(q.Get("sortBy"), q.Get("priceOrder"), q.Get("dateOrder")),
	}

	lat, lng, radius := q.Get("lat"), q.Get("lng"), q.Get("radius")
	if lat == "" || lng == "" || radius == "" {
		return filter, nil
	}

	near, err := parseGeoFilter(lat, lng, radius)
	if err != nil {
		return model.ListingFilter{}, err
	}
	filter.Near = near

	return filter, nil
}

func parseGeoFilter(latStr, lngStr, radiusStr string) (*model.GeoFilter, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, model.NewValidationError("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, model.NewValidationError("lng must be a number")
	}
	radius, err := strconv.ParseFloat(radiusStr, 64)
	if err != nil {
		return nil, model.NewValidationError("radius must be a number")
	}

	if !geo.ValidPoint(lng, lat) {
		return nil, model.NewValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	if radius < 0 || !isFinite(radius) {
		return nil, model.NewValidationError("radius must be a non-negative number")
	}

	return &model.GeoFilter{
		Center:   model.GeoPoint{Lng: lng, Lat: lat},
		RadiusKm: radius,
	}, nil
}

func parseSort(sortBy, priceOrder, dateOrder string) model.ListingSort {
	switch sortBy {
	case sortByPrice:
		return model.ListingSort{Field: model.SortByPrice, Ascending: priceOrder == priceLowToHigh}
	case sortByDate:
		return model.ListingSort{Field: model.SortByCreatedAt, Ascending: dateOrder == dateOldest}
	default:
		return model.DefaultListingSort
	}
}
