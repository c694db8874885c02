package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"finman/internal/core"
	"finman/internal/storage"
)

// CategoryService manages the per-user category forest: creation under the
// nesting rules, tree reads, and guarded subtree deletion.
type CategoryService struct {
	repo *storage.Repository
}

func NewCategoryService(repo *storage.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

// CategoryInput carries the fields of a new category. Type accepts any
// casing and is canonicalized to upper case.
type CategoryInput struct {
	Name                string
	Type                string
	ParentID            *uuid.UUID
	AllowedNestingDepth *int
}

// Create adds a category, optionally as a child. A child must match its
// parent's type and the parent must have nesting quota left; the child's
// quota is the parent's minus one.
func (s *CategoryService) Create(ctx context.Context, userID uuid.UUID, in CategoryInput) (core.Category, error) {
	typ, err := core.ParseCategoryType(in.Type)
	if err != nil {
		return core.Category{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Category{}, fmt.Errorf("%w: category name is required", core.ErrValidation)
	}
	if in.AllowedNestingDepth != nil && *in.AllowedNestingDepth < 0 {
		return core.Category{}, fmt.Errorf("%w: nesting depth cannot be negative", core.ErrValidation)
	}

	c := core.Category{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Type:     typ,
		ParentID: in.ParentID,
	}

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		var parent *core.Category
		if in.ParentID != nil {
			p, err := q.GetCategory(ctx, *in.ParentID)
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("%w: parent category %s does not exist", core.ErrValidation, *in.ParentID)
			}
			if err != nil {
				return err
			}
			if p.UserID != userID {
				return fmt.Errorf("%w: parent category %s does not belong to the user", core.ErrValidation, p.ID)
			}
			if err := core.ValidateSubcategory(p, typ); err != nil {
				return err
			}
			parent = &p
		}
		c.AllowedNestingDepth = core.ChildNestingDepth(parent, in.AllowedNestingDepth)
		return q.CreateCategory(ctx, c)
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Created category",
		"category_id", c.ID, "user_id", userID, "type", typ, "parent_id", in.ParentID)
	return c, nil
}

// List returns the user's category forest assembled into trees, optionally
// restricted to one type.
func (s *CategoryService) List(ctx context.Context, userID uuid.UUID, typ *core.CategoryType) ([]*core.CategoryNode, error) {
	categories, err := s.repo.Queries().ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	if typ != nil {
		filtered := categories[:0]
		for _, c := range categories {
			if c.Type == *typ {
				filtered = append(filtered, c)
			}
		}
		categories = filtered
	}
	return core.BuildTree(categories), nil
}

// Delete removes a category and its whole subtree, refusing when any node
// of the subtree is still referenced by an expense, income, or budget. The
// error names the first category that blocks the deletion; nothing is
// removed in that case.
func (s *CategoryService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		cat, err := q.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if cat.UserID != userID {
			return fmt.Errorf("category %s: %w", id, core.ErrForbidden)
		}

		all, err := q.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		names := make(map[uuid.UUID]string, len(all))
		for _, c := range all {
			names[c.ID] = c.Name
		}

		for _, nodeID := range core.CollectSubtree(all, id) {
			used, err := q.CategoryInUse(ctx, nodeID)
			if err != nil {
				return err
			}
			if used {
				return fmt.Errorf("%w: category %q is referenced by existing records", core.ErrConflict, names[nodeID])
			}
		}

		// The schema cascades the delete down the subtree.
		return q.DeleteCategory(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Deleted category subtree", "category_id", id, "user_id", userID)
	return nil
}
