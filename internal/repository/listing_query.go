package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/farmsconnect/internal/geo"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// listingColumns はSELECTする列。search_vectorは内部用のため含めない。
const listingColumns = `id, owner_id, title, description, price, quantity, category, subcategory,
	location, main_image, additional_images, longitude, latitude, created_at, updated_at`

// angularDistanceSQL は(longitude, latitude)と中心点の大円角距離（ラジアン）を求めるhaversine式。
// %[1]s=中心経度, %[2]s=中心緯度 のプレースホルダに置換して使う。
const angularDistanceSQL = `2 * asin(least(1, sqrt(
		power(sin(radians(latitude - %[2]s) / 2), 2) +
		cos(radians(%[2]s)) * cos(radians(latitude)) *
		power(sin(radians(longitude - %[1]s) / 2), 2))))`

// listingQueryBuilder は$n形式のプレースホルダと引数を組み立てる。
type listingQueryBuilder struct {
	conds []string
	args  []any
}

// bind は引数を追加し、対応するプレースホルダを返す。
func (b *listingQueryBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// buildListingSearchQuery はフィルタからSQLと引数を組み立てる。
func buildListingSearchQuery(f model.ListingFilter) (string, []any) {
	b := &listingQueryBuilder{}

	if terms := searchTerms(f.Search); terms != "" {
		b.conds = append(b.conds,
			fmt.Sprintf("search_vector @@ websearch_to_tsquery('english', %s)", b.bind(terms)))
	}
	if f.Category != "" {
		b.conds = append(b.conds, "category = "+b.bind(f.Category))
	}
	if f.Subcategory != "" {
		b.conds = append(b.conds, "subcategory = "+b.bind(f.Subcategory))
	}
	if f.Near != nil {
		lng := b.bind(f.Near.Center.Lng)
		lat := b.bind(f.Near.Center.Lat)
		radius := b.bind(geo.AngularRadius(f.Near.RadiusKm))
		b.conds = append(b.conds,
			"longitude IS NOT NULL AND latitude IS NOT NULL",
			fmt.Sprintf(angularDistanceSQL, lng, lat)+" <= "+radius)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(listingColumns)
	sb.WriteString(" FROM listings")
	if len(b.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderByClause(f.Sort))

	return sb.String(), b.args
}

// searchTerms は検索語をOR結合したwebsearch_to_tsquery用の文字列にする。
// いずれかの語を含む出品が一致する。
func searchTerms(search string) string {
	fields := strings.Fields(search)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " or ")
}

// orderByClause は並び替えキーからORDER BY句を返す。
// 同値の並びを安定させるためidを第2キーにする。
func orderByClause(s model.ListingSort) string {
	column := "created_at"
	if s.Field == model.SortByPrice {
		column = "price"
	}
	direction := "DESC"
	if s.Ascending {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}
