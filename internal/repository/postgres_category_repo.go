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

const categorySlugConstraint = "categories_slug_key"

const categoryColumns = `id, name, slug, icon, subcategories, created_at, updated_at`

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

func scanCategory(s rowScanner) (*model.Category, error) {
	c := &model.Category{}
	var icon sql.NullString
	var subs pq.StringArray

	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &icon, &subs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if icon.Valid {
		c.Icon = &icon.String
	}
	c.Subcategories = []string(subs)
	if c.Subcategories == nil {
		c.Subcategories = []string{}
	}
	return c, nil
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return c, nil
}

// FindBySlug はslugでカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}
	return c, nil
}

// List は全カテゴリを名前順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY name, slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// Create はカテゴリを作成する。slugの一意制約違反はmodel.ErrDuplicateSlugとして返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	subs := c.Subcategories
	if subs == nil {
		subs = []string{}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, icon, subcategories)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Slug, c.Icon, pq.Array(subs),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err, categorySlugConstraint) {
		return model.ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	c.Subcategories = subs
	return nil
}

// Update はカテゴリを上書き更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, c *model.Category) error {
	subs := c.Subcategories
	if subs == nil {
		subs = []string{}
	}

	err := r.db.QueryRowContext(ctx,
		`UPDATE categories
		 SET name = $2, slug = $3, icon = $4, subcategories = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		c.ID, c.Name, c.Slug, c.Icon, pq.Array(subs),
	).Scan(&c.UpdatedAt)
	if isUniqueViolation(err, categorySlugConstraint) {
		return model.ErrDuplicateSlug
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category not found: %s", c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	c.Subcategories = subs
	return nil
}

// Delete は指定IDのカテゴリを削除する。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
