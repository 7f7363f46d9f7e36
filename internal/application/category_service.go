package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/example/industrial-scheduler/internal/category"
	"github.com/example/industrial-scheduler/internal/persistence"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryInput captures caller provided category fields.
type CategoryInput struct {
	Name      string
	BgColor   string
	FgColor   string
	SortOrder int
}

// CategoryService enforces the category invariants: system categories keep
// their identity, referenced categories cannot be deleted, and every write
// flushes the colour cache.
type CategoryService struct {
	categories persistence.CategoryRepository
	colors     *category.Resolver
	logger     *slog.Logger
}

// NewCategoryService wires dependencies for category operations. colors may
// be nil when no cache is in play.
func NewCategoryService(categories persistence.CategoryRepository, colors *category.Resolver, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		colors:     colors,
		logger:     defaultLogger(logger),
	}
}

// CreateCategory appends a user category. Omitting SortOrder places it
// after the current maximum.
func (s *CategoryService) CreateCategory(ctx context.Context, input CategoryInput) (persistence.Category, error) {
	if s == nil {
		return persistence.Category{}, fmt.Errorf("CategoryService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "category", "create")

	if err := validateCategoryInput(input); err != nil {
		logger.Warn("category rejected", "kind", ErrorKind(err))
		return persistence.Category{}, err
	}

	created, err := s.categories.CreateCategory(ctx, persistence.Category{
		Name:      strings.TrimSpace(input.Name),
		BgColor:   normalizeHex(input.BgColor),
		FgColor:   normalizeHex(input.FgColor),
		SortOrder: input.SortOrder,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			vErr := &ValidationError{}
			vErr.add("name", "category name already exists")
			return persistence.Category{}, vErr
		}
		logger.Error("category create failed", "error", err)
		return persistence.Category{}, err
	}

	s.colors.Invalidate()
	logger.Info("category created", "category_id", created.ID)
	return created, nil
}

// UpdateCategory rewrites a category. Renaming a system category is
// refused; its colours may still be changed here, which is the explicit
// editor path the invariant allows.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (persistence.Category, error) {
	if s == nil {
		return persistence.Category{}, fmt.Errorf("CategoryService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "category", "update", "category_id", id)

	existing, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Category{}, ErrNotFound
		}
		return persistence.Category{}, err
	}

	if existing.IsSystem && strings.TrimSpace(input.Name) != existing.Name {
		logger.Warn("system category rename refused")
		return persistence.Category{}, ErrSystemImmutable
	}

	if err := validateCategoryInput(input); err != nil {
		logger.Warn("category rejected", "kind", ErrorKind(err))
		return persistence.Category{}, err
	}

	sortOrder := input.SortOrder
	if sortOrder == 0 {
		sortOrder = existing.SortOrder
	}

	updated, err := s.categories.UpdateCategory(ctx, persistence.Category{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		BgColor:   normalizeHex(input.BgColor),
		FgColor:   normalizeHex(input.FgColor),
		SortOrder: sortOrder,
		IsSystem:  existing.IsSystem,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			vErr := &ValidationError{}
			vErr.add("name", "category name already exists")
			return persistence.Category{}, vErr
		}
		logger.Error("category update failed", "error", err)
		return persistence.Category{}, err
	}

	s.colors.Invalidate()
	return updated, nil
}

// DeleteCategory removes a user category that nothing references. System
// categories and categories still in use are refused.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	if s == nil {
		return fmt.Errorf("CategoryService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "category", "delete", "category_id", id)

	existing, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.IsSystem {
		logger.Warn("system category delete refused")
		return ErrSystemImmutable
	}

	refs, err := s.categories.CategoryReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs.Total() > 0 {
		logger.Warn("category delete refused while referenced",
			"series", refs.Series, "exceptions", refs.Exceptions, "holidays", refs.Holidays)
		return &InUseError{
			Entity:     existing.Name,
			Series:     refs.Series,
			Exceptions: refs.Exceptions,
			Holidays:   refs.Holidays,
		}
	}

	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("category delete failed", "error", err)
		return err
	}

	s.colors.Invalidate()
	logger.Info("category deleted")
	return nil
}

// GetCategory retrieves one category by id.
func (s *CategoryService) GetCategory(ctx context.Context, id int64) (persistence.Category, error) {
	cat, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.Category{}, ErrNotFound
	}
	return cat, err
}

// ListCategories returns all categories in display order.
func (s *CategoryService) ListCategories(ctx context.Context) ([]persistence.Category, error) {
	return s.categories.ListCategories(ctx)
}

func validateCategoryInput(input CategoryInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "category name is required")
	}
	if !hexColorPattern.MatchString(input.BgColor) {
		vErr.add("bg_color", "background colour must be #RRGGBB")
	}
	if !hexColorPattern.MatchString(input.FgColor) {
		vErr.add("fg_color", "foreground colour must be #RRGGBB")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func normalizeHex(value string) string {
	return "#" + strings.ToUpper(strings.TrimPrefix(value, "#"))
}
