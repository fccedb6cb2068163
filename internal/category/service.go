// Package category はカテゴリの一括登録と管理のドメインロジックを提供する。
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hitoshi/farmsconnect/internal/model"
	"github.com/hitoshi/farmsconnect/internal/repository"
	"github.com/hitoshi/farmsconnect/internal/security"
)

// DefaultMaxConcurrency は一括登録の最大並列数のデフォルト値。
const DefaultMaxConcurrency = 10

// 一括登録の失敗理由
const (
	reasonMissingFields = "Missing name or slug."
	reasonExistsFormat  = "Category with slug %q already exists."
	reasonInBatchFormat = "Duplicate slug %q in request."
	reasonDBError       = "Database error."
)

// Descriptor は一括登録の1件分の入力。
type Descriptor struct {
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Icon          *string  `json:"icon,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// Failure は登録できなかった1件とその理由。
type Failure struct {
	CategoryData Descriptor `json:"categoryData"`
	Reason       string     `json:"reason"`
}

// IngestResult は一括登録の結果。いずれも入力順を保つ。
type IngestResult struct {
	Created []*model.Category
	Failed  []Failure
}

// Changes はカテゴリ更新の入力。nilの項目は変更しない。
type Changes struct {
	Name          *string
	Slug          *string
	Icon          *string
	Subcategories *[]string
}

// Metrics は一括登録の計測インターフェース。
type Metrics interface {
	AddCategoryIngest(created, failed int)
}

// Service はカテゴリ管理のサービス層。
type Service struct {
	repo           repository.CategoryRepository
	sanitizer      security.TextSanitizer
	maxConcurrency int
	metrics        Metrics
	logger         *slog.Logger
}

// NewService はServiceを生成する。maxConcurrencyが0以下の場合はデフォルト値を使う。
func NewService(repo repository.CategoryRepository, sanitizer security.TextSanitizer, maxConcurrency int, metrics Metrics) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Service{
		repo:           repo,
		sanitizer:      sanitizer,
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         slog.Default(),
	}
}

// outcome は1件分の処理結果。
type outcome struct {
	created *model.Category
	failure *Failure
}

// Ingest は複数のカテゴリを並行に登録する。
//
// 各件は独立して処理され、1件の失敗が他の件を中断することはない。
// 同じリクエスト内でslugが重複する場合は2件目以降を失敗とする。
// 入力が空の場合のみ全体をValidationErrorとして拒否する。
func (s *Service) Ingest(ctx context.Context, descriptors []Descriptor) (*IngestResult, error) {
	if len(descriptors) == 0 {
		return nil, model.NewValidationError("Request body must be a non-empty array of categories.")
	}

	outcomes := make([]outcome, len(descriptors))
	inBatchDuplicates := s.markInBatchDuplicates(descriptors)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for i, d := range descriptors {
		if reason, dup := inBatchDuplicates[i]; dup {
			outcomes[i] = outcome{failure: &Failure{CategoryData: d, Reason: reason}}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(i int, d Descriptor) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = s.ingestOne(ctx, d)
		}(i, d)
	}

	wg.Wait()

	result := &IngestResult{
		Created: []*model.Category{},
		Failed:  []Failure{},
	}
	for _, o := range outcomes {
		if o.created != nil {
			result.Created = append(result.Created, o.created)
		} else if o.failure != nil {
			result.Failed = append(result.Failed, *o.failure)
		}
	}

	if s.metrics != nil {
		s.metrics.AddCategoryIngest(len(result.Created), len(result.Failed))
	}
	s.logger.InfoContext(ctx, "カテゴリの一括登録が完了しました",
		slog.Int("requested", len(descriptors)),
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failed)),
	)

	return result, nil
}

// markInBatchDuplicates は同一slugの2件目以降のインデックスと失敗理由を返す。
// サニタイズ後にname・slugが欠ける件は対象外。
func (s *Service) markInBatchDuplicates(descriptors []Descriptor) map[int]string {
	seen := make(map[string]struct{}, len(descriptors))
	dups := make(map[int]string)

	for i, d := range descriptors {
		slug := strings.TrimSpace(d.Slug)
		if slug == "" || s.sanitizer.SanitizeText(d.Name) == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			dups[i] = fmt.Sprintf(reasonInBatchFormat, slug)
			continue
		}
		seen[slug] = struct{}{}
	}
	return dups
}

// ingestOne は1件を検証・登録する。エラーは失敗理由として結果に含める。
func (s *Service) ingestOne(ctx context.Context, d Descriptor) outcome {
	fail := func(reason string) outcome {
		return outcome{failure: &Failure{CategoryData: d, Reason: reason}}
	}

	name := s.sanitizer.SanitizeText(d.Name)
	slug := strings.TrimSpace(d.Slug)
	if name == "" || slug == "" {
		return fail(reasonMissingFields)
	}

	existing, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		s.logger.ErrorContext(ctx, "カテゴリの重複確認に失敗しました",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return fail(reasonDBError)
	}
	if existing != nil {
		return fail(fmt.Sprintf(reasonExistsFormat, slug))
	}

	c := &model.Category{
		Name:          name,
		Slug:          slug,
		Icon:          d.Icon,
		Subcategories: s.sanitizeList(d.Subcategories),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		// 確認後に他のリクエストが同じslugを登録した場合は一意制約で検出される
		if errors.Is(err, model.ErrDuplicateSlug) {
			return fail(fmt.Sprintf(reasonExistsFormat, slug))
		}
		s.logger.ErrorContext(ctx, "カテゴリの登録に失敗しました",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return fail(reasonDBError)
	}

	s.logger.InfoContext(ctx, "カテゴリを登録しました", slog.String("slug", slug))
	return outcome{created: c}
}

func (s *Service) sanitizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := s.sanitizer.SanitizeText(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// List は全カテゴリを名前順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	if categories == nil {
		categories = []*model.Category{}
	}
	return categories, nil
}

// Update はカテゴリを更新する。
// 他のカテゴリと同じslugへの変更はDuplicateSlugエラーになる。
func (s *Service) Update(ctx context.Context, id uuid.UUID, ch Changes) (*model.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCategoryNotFoundError()
	}

	if ch.Name != nil {
		c.Name = s.sanitizer.SanitizeText(*ch.Name)
	}
	if ch.Slug != nil {
		c.Slug = strings.TrimSpace(*ch.Slug)
	}
	if ch.Icon != nil {
		c.Icon = ch.Icon
	}
	if ch.Subcategories != nil {
		c.Subcategories = s.sanitizeList(*ch.Subcategories)
	}
	if c.Name == "" || c.Slug == "" {
		return nil, model.NewValidationError("name and slug must not be empty")
	}

	if ch.Slug != nil {
		other, err := s.repo.FindBySlug(ctx, c.Slug)
		if err != nil {
			return nil, fmt.Errorf("カテゴリの重複確認に失敗しました: %w", err)
		}
		if other != nil && other.ID != c.ID {
			return nil, model.NewDuplicateSlugError(c.Slug)
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, model.ErrDuplicateSlug) {
			return nil, model.NewDuplicateSlugError(c.Slug)
		}
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}

	return c, nil
}

// Delete はカテゴリを削除する。
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewCategoryNotFoundError()
	}
	return nil
}
