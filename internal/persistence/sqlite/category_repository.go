package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// CreateCategory appends a category. A zero SortOrder places it after the
// current maximum.
func (s *Storage) CreateCategory(ctx context.Context, cat persistence.Category) (persistence.Category, error) {
	now := s.now()
	cat.CreatedAt = now
	cat.UpdatedAt = now

	err := s.write(ctx, func(tx *sql.Tx) error {
		if cat.SortOrder == 0 {
			var max sql.NullInt64
			if err := tx.QueryRowContext(ctx, "SELECT MAX(sort_order) FROM categories").Scan(&max); err != nil {
				return fmt.Errorf("sqlite: max sort order: %w", err)
			}
			cat.SortOrder = int(max.Int64) + 1
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, bg_color, fg_color, sort_order, is_system, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cat.Name, cat.BgColor, cat.FgColor, cat.SortOrder, boolToInt(cat.IsSystem),
			s.formatTime(cat.CreatedAt), s.formatTime(cat.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.ErrConflict
			}
			return fmt.Errorf("sqlite: insert category: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		cat.ID = id
		return nil
	})
	if err != nil {
		return persistence.Category{}, err
	}
	return cat, nil
}

// UpdateCategory rewrites a category's mutable fields. System invariants are
// enforced by the service layer before this is called.
func (s *Storage) UpdateCategory(ctx context.Context, cat persistence.Category) (persistence.Category, error) {
	cat.UpdatedAt = s.now()
	err := s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, bg_color = ?, fg_color = ?, sort_order = ?, updated_at = ?
			 WHERE id = ?`,
			cat.Name, cat.BgColor, cat.FgColor, cat.SortOrder, s.formatTime(cat.UpdatedAt), cat.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.ErrConflict
			}
			return fmt.Errorf("sqlite: update category: %w", err)
		}
		return requireRowAffected(res)
	})
	if err != nil {
		return persistence.Category{}, err
	}
	return cat, nil
}

// GetCategory retrieves one category by id.
func (s *Storage) GetCategory(ctx context.Context, id int64) (persistence.Category, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, bg_color, fg_color, sort_order, is_system, created_at, updated_at FROM categories WHERE id = ?", id)
	cat, err := s.scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Category{}, persistence.ErrNotFound
	}
	return cat, err
}

// ListCategories returns all categories ordered by sort order then id.
func (s *Storage) ListCategories(ctx context.Context) ([]persistence.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, bg_color, fg_color, sort_order, is_system, created_at, updated_at FROM categories ORDER BY sort_order, id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	defer rows.Close()

	var out []persistence.Category
	for rows.Next() {
		cat, err := s.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category by id.
func (s *Storage) DeleteCategory(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("sqlite: delete category: %w", err)
		}
		return requireRowAffected(res)
	})
}

// CategoryReferences counts the records still pointing at the category.
func (s *Storage) CategoryReferences(ctx context.Context, id int64) (persistence.CategoryRefs, error) {
	var refs persistence.CategoryRefs
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM schedules WHERE category_id = ?),
		(SELECT COUNT(*) FROM schedule_exceptions WHERE override_category_id = ?),
		(SELECT COUNT(*) FROM holiday_entries WHERE override_category_id = ?)`,
		id, id, id,
	).Scan(&refs.Series, &refs.Exceptions, &refs.Holidays)
	if err != nil {
		return persistence.CategoryRefs{}, fmt.Errorf("sqlite: category references: %w", err)
	}
	return refs, nil
}

func (s *Storage) scanCategory(row rowScanner) (persistence.Category, error) {
	var (
		cat          persistence.Category
		isSystem     int
		createdAtRaw string
		updatedAtRaw string
	)
	err := row.Scan(&cat.ID, &cat.Name, &cat.BgColor, &cat.FgColor, &cat.SortOrder, &isSystem, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return persistence.Category{}, err
	}
	cat.IsSystem = isSystem != 0
	if cat.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
		return persistence.Category{}, err
	}
	if cat.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
		return persistence.Category{}, err
	}
	return cat, nil
}
