package model

import (
	"time"

	"github.com/google/uuid"
)

// Category は出品カテゴリを表す。
// Slugは全体で一意な自然キー。
type Category struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Icon          *string   `json:"icon,omitempty"`
	Subcategories []string  `json:"subcategories"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
