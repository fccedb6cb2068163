package model

// SortField は出品一覧の並び替えキー。
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByPrice     SortField = "price"
)

// ListingSort は並び替えキーと方向。キーは常に1つだけ。
type ListingSort struct {
	Field     SortField
	Ascending bool
}

// DefaultListingSort は作成日時の降順。
var DefaultListingSort = ListingSort{Field: SortByCreatedAt, Ascending: false}

// GeoFilter は中心点と半径（km）による球面範囲の条件。
type GeoFilter struct {
	Center   GeoPoint
	RadiusKm float64
}

// ListingFilter は出品検索の条件。
// 空文字・nilの項目は条件に含めない。指定された条件はすべてANDで結合する。
type ListingFilter struct {
	Search      string
	Category    string
	Subcategory string
	Near        *GeoFilter
	Sort        ListingSort
}
