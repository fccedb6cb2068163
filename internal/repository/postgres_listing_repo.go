package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/model"
	"github.com/lib/pq"
)

// PostgresListingRepo はPostgreSQLを使用した出品リポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanListing はlistingColumnsの順で1行を読み取る。
func scanListing(s rowScanner) (*model.Listing, error) {
	l := &model.Listing{}
	var lng, lat sql.NullFloat64
	var images pq.StringArray

	err := s.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Price, &l.Quantity,
		&l.Category, &l.Subcategory, &l.Location, &l.MainImage, &images,
		&lng, &lat, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.AdditionalImages = []string(images)
	if l.AdditionalImages == nil {
		l.AdditionalImages = []string{}
	}
	if lng.Valid && lat.Valid {
		l.Coordinates = &model.GeoPoint{Lng: lng.Float64, Lat: lat.Float64}
	}
	return l, nil
}

// imagesArg は追加画像をtext[]の引数に変換する。nilは空配列として扱う。
func imagesArg(images []string) any {
	if images == nil {
		images = []string{}
	}
	return pq.Array(images)
}

// coordinateArgs は座標をNULL許容の引数に変換する。
func coordinateArgs(p *model.GeoPoint) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lng, Valid: true}, sql.NullFloat64{Float64: p.Lat, Valid: true}
}

// Create は出品を作成する。IDと日時はDBが採番する。
func (r *PostgresListingRepo) Create(ctx context.Context, l *model.Listing) error {
	lng, lat := coordinateArgs(l.Coordinates)

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO listings (owner_id, title, description, price, quantity, category, subcategory,
		                       location, main_image, additional_images, longitude, latitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		l.OwnerID, l.Title, l.Description, l.Price, l.Quantity, l.Category, l.Subcategory,
		l.Location, l.MainImage, imagesArg(l.AdditionalImages), lng, lat,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listing by ID: %w", err)
	}
	return l, nil
}

// Search は条件に一致する出品を返す。
func (r *PostgresListingRepo) Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	query, args := buildListingSearchQuery(filter)
	return r.queryListings(ctx, query, args...)
}

// ListByOwner は出品者の出品一覧を作成日時の降順で返す。
func (r *PostgresListingRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Listing, error) {
	return r.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID)
}

func (r *PostgresListingRepo) queryListings(ctx context.Context, query string, args ...any) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	listings := []*model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// Update は出品を上書き更新する。owner_idとcreated_atは変更しない。
func (r *PostgresListingRepo) Update(ctx context.Context, l *model.Listing) error {
	lng, lat := coordinateArgs(l.Coordinates)

	err := r.db.QueryRowContext(ctx,
		`UPDATE listings
		 SET title = $2, description = $3, price = $4, quantity = $5, category = $6, subcategory = $7,
		     location = $8, main_image = $9, additional_images = $10, longitude = $11, latitude = $12,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		l.ID, l.Title, l.Description, l.Price, l.Quantity, l.Category, l.Subcategory,
		l.Location, l.MainImage, imagesArg(l.AdditionalImages), lng, lat,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("listing not found: %s", l.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

// Delete は指定IDの出品を削除する。
func (r *PostgresListingRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete listing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
