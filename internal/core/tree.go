package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateSubcategory checks whether a child of the given type may be
// created under parent. The parent's owner is checked by the caller.
func ValidateSubcategory(parent Category, typ CategoryType) error {
	if parent.Type != typ {
		return fmt.Errorf("%w: child category type must match parent category type", ErrValidation)
	}
	if parent.AllowedNestingDepth != nil && *parent.AllowedNestingDepth <= 0 {
		return fmt.Errorf("%w: category %q does not allow further nesting", ErrValidation, parent.Name)
	}
	return nil
}

// ChildNestingDepth derives the depth quota for a new child. When the parent
// carries a quota the child gets one level less; otherwise the requested
// value is taken as-is (root categories set their own quota the same way).
func ChildNestingDepth(parent *Category, requested *int) *int {
	if parent != nil && parent.AllowedNestingDepth != nil {
		d := *parent.AllowedNestingDepth - 1
		return &d
	}
	return requested
}

// CollectSubtree returns rootID plus the ids of all transitive descendants,
// walking the arena breadth-first. Parents precede their children in the
// result. Termination is guaranteed because children are only ever created
// under an already-persisted parent, so the forest is acyclic.
func CollectSubtree(categories []Category, rootID uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	ids := make([]uuid.UUID, 0, 1)
	queue := []uuid.UUID{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ids = append(ids, id)
		queue = append(queue, children[id]...)
	}
	return ids
}

// BuildTree assembles the flat arena rows into root nodes with nested
// children. Deep children appear only under their parents, never as
// top-level duplicates.
func BuildTree(categories []Category) []*CategoryNode {
	nodes := make(map[uuid.UUID]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &CategoryNode{Category: c}
	}

	var roots []*CategoryNode
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*c.ParentID]; ok {
			parent.SubCategories = append(parent.SubCategories, node)
		} else {
			// Orphaned row (parent filtered out); surface it as a root
			// rather than dropping it.
			roots = append(roots, node)
		}
	}
	return roots
}
