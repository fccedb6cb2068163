// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleアカウントIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成し、ID・作成日時を設定する。
	// メールアドレスが重複する場合はmodel.ErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// LinkGoogleID は既存ユーザーにGoogleアカウントIDを紐付ける。
	// プロフィール画像が未設定の場合はpictureを設定する。
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID, picture string) error
}

// ListingRepository は出品データの永続化インターフェース。
type ListingRepository interface {
	// Create は出品を作成し、ID・作成日時・更新日時を設定する。
	Create(ctx context.Context, listing *model.Listing) error

	// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)

	// Search は条件に一致する出品を指定の並び順で返す。
	Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)

	// ListByOwner は出品者の出品一覧を作成日時の降順で返す。
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error)

	// Update は出品を上書き更新し、更新日時を設定する。owner_idは更新しない。
	Update(ctx context.Context, listing *model.Listing) error

	// Delete は指定IDの出品を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)

	// FindBySlug はslugでカテゴリを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)

	// List は全カテゴリを名前順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// Create はカテゴリを作成し、ID・作成日時を設定する。
	// slugが重複する場合はmodel.ErrDuplicateSlugを返す。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリを上書き更新する。
	// slugが他のカテゴリと重複する場合はmodel.ErrDuplicateSlugを返す。
	Update(ctx context.Context, category *model.Category) error

	// Delete は指定IDのカテゴリを削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
