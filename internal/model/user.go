// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/google/uuid"
)

// User はマーケットプレイスの利用者を表す。
// Google連携のみのユーザーはPasswordHashが空になる。
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	ProfileImage string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnerSummary は出品詳細に添付する出品者の公開情報。
type OwnerSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage,omitempty"`
}

// Summary はユーザーの公開情報を返す。
func (u *User) Summary() OwnerSummary {
	return OwnerSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}
