package model

import (
	"time"

	"github.com/google/uuid"
)

// PlaceholderImage は画像がアップロードされなかった場合のmainImage。
const PlaceholderImage = "default-image.jpg"

// MaxAdditionalImages は追加画像の上限枚数。
const MaxAdditionalImages = 4

// GeoPoint は経度・緯度の組を表す。
type GeoPoint struct {
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
}

// Listing は出品を表す。
// OwnerIDは作成後に変更されない。
type Listing struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"ownerId"`
	Title            string    `json:"title" validate:"required"`
	Description      string    `json:"description"`
	Price            float64   `json:"price" validate:"gte=0"`
	Quantity         int       `json:"quantity" validate:"gte=1"`
	Category         string    `json:"category" validate:"required"`
	Subcategory      string    `json:"subcategory" validate:"required"`
	Location         string    `json:"location" validate:"required"`
	MainImage        string    `json:"mainImage" validate:"required"`
	AdditionalImages []string  `json:"additionalImages" validate:"max=4"`
	Coordinates      *GeoPoint `json:"coordinates,omitempty" validate:"omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ListingDetail は出品者情報を添付した出品詳細。
type ListingDetail struct {
	*Listing
	Owner *OwnerSummary `json:"owner,omitempty"`
}
