package core

import (
	"cagecore/pkg/domain"
	"context"
	"fmt"
	"slices"
	"sort"
)

type cachedInfo struct {
	info  domain.CageInfo
	found bool
}

// traversal memoizes info lookups for the lifetime of a single lineage query.
// It is discarded afterwards, so concurrent writes show up on the next call.
type traversal struct {
	view  domain.CageView
	infos map[string]cachedInfo
}

func newTraversal(v domain.CageView) *traversal {
	return &traversal{view: v, infos: make(map[string]cachedInfo)}
}

func (t *traversal) info(cageID string) (domain.CageInfo, bool, error) {
	if c, ok := t.infos[cageID]; ok {
		return c.info, c.found, nil
	}
	info, found, err := lookupInfo(t.view, cageID)
	if err != nil {
		return domain.CageInfo{}, false, fmt.Errorf("lookup %s: %w", cageID, err)
	}
	t.infos[cageID] = cachedInfo{info: info, found: found}
	return info, found, nil
}

// infoOrPlaceholder returns the stored info of cageID or a placeholder when the
// id is dangling.
func (t *traversal) infoOrPlaceholder(cageID string) (domain.CageInfo, error) {
	info, found, err := t.info(cageID)
	if err != nil {
		return domain.CageInfo{}, err
	}
	if !found {
		return domain.PlaceholderInfo(cageID), nil
	}
	return info, nil
}

// parentOf reads only the parent column; full info is fetched for the parents
// that end up in the chain.
func (t *traversal) parentOf(cageID string) (string, bool, error) {
	parent, ok, err := t.view.ParentOf(cageID)
	if err != nil {
		return "", false, fmt.Errorf("parent of %s: %w", cageID, err)
	}
	return parent, ok, nil
}

// ancestors walks parent pointers from cageID for at most maxHops steps. The
// subject seeds the visited set, so a cycle through it stops the walk without
// listing it. The chain is returned root-first; truncated reports that the hop
// bound stopped the walk while an unvisited parent remained.
func (t *traversal) ancestors(cageID string, maxHops int) ([]domain.CageInfo, bool, error) {
	chain := []domain.CageInfo{}
	if cageID == "" {
		return chain, false, nil
	}
	visited := map[string]struct{}{cageID: {}}
	current := cageID
	for hops := 0; ; hops++ {
		parent, ok, err := t.parentOf(current)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		if _, seen := visited[parent]; seen {
			break
		}
		if hops >= maxHops {
			slices.Reverse(chain)
			return chain, true, nil
		}
		visited[parent] = struct{}{}
		info, err := t.infoOrPlaceholder(parent)
		if err != nil {
			return nil, false, err
		}
		chain = append(chain, info)
		current = parent
	}
	slices.Reverse(chain)
	return chain, false, nil
}

// descendants scans holding records whose parent is cageID. Nodes found at
// depth maxDepth are returned with empty children and Truncated set, without
// querying further, so the flag marks the cap and not proven deeper rows. Ids
// already placed in the tree are skipped.
func (t *traversal) descendants(cageID string, depth, maxDepth int, visited map[string]struct{}) ([]domain.LineageNode, bool, error) {
	nodes := []domain.LineageNode{}
	if depth > maxDepth {
		return nodes, true, nil
	}
	children, err := t.view.ChildrenOf(cageID)
	if err != nil {
		return nil, false, fmt.Errorf("children of %s: %w", cageID, err)
	}
	truncated := false
	for _, child := range children {
		if _, seen := visited[child.CageID]; seen {
			continue
		}
		visited[child.CageID] = struct{}{}
		t.infos[child.CageID] = cachedInfo{info: child, found: true}
		node := domain.LineageNode{CageInfo: child, Depth: depth}
		sub, cut, err := t.descendants(child.CageID, depth+1, maxDepth, visited)
		if err != nil {
			return nil, false, err
		}
		node.Children = sub
		node.Truncated = cut && len(sub) == 0
		truncated = truncated || cut
		nodes = append(nodes, node)
	}
	return nodes, truncated, nil
}

func (t *traversal) tree(cageID string, maxDepth int) ([]domain.LineageNode, bool, error) {
	if cageID == "" {
		return []domain.LineageNode{}, false, nil
	}
	return t.descendants(cageID, 0, maxDepth, map[string]struct{}{cageID: {}})
}

// forestRoots returns the parent ids that never occur as a child id.
func forestRoots(edges []domain.LineageEdge) []string {
	children := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		children[e.ChildID] = struct{}{}
	}
	seen := make(map[string]struct{})
	var roots []string
	for _, e := range edges {
		if e.ParentID == "" {
			continue
		}
		if _, isChild := children[e.ParentID]; isChild {
			continue
		}
		if _, dup := seen[e.ParentID]; dup {
			continue
		}
		seen[e.ParentID] = struct{}{}
		roots = append(roots, e.ParentID)
	}
	sort.Strings(roots)
	return roots
}

// FindAncestors returns the ancestor chain of cageID, root-first, bounded by
// the configured hop limit.
func (s *Service) FindAncestors(ctx context.Context, cageID string) ([]domain.CageInfo, error) {
	return s.FindAncestorsLimit(ctx, cageID, s.maxAncestorHops)
}

// FindAncestorsLimit is FindAncestors with an explicit hop bound. A
// non-positive bound falls back to the configured one.
func (s *Service) FindAncestorsLimit(ctx context.Context, cageID string, maxHops int) ([]domain.CageInfo, error) {
	const op = "find_ancestors"
	if maxHops <= 0 {
		maxHops = s.maxAncestorHops
	}
	var (
		chain     []domain.CageInfo
		truncated bool
	)
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			var err error
			chain, truncated, err = newTraversal(v).ancestors(cageID, maxHops)
			return err
		})
	})
	if err != nil {
		return nil, s.storageFailure(op, cageID, err)
	}
	if truncated {
		s.noteTruncated(ctx, op, cageID)
	}
	return chain, nil
}

// BuildDescendantTree returns the descendant tree of cageID bounded by the
// configured depth cap.
func (s *Service) BuildDescendantTree(ctx context.Context, cageID string) ([]domain.LineageNode, error) {
	return s.BuildDescendantTreeDepth(ctx, cageID, s.maxDescendantDepth)
}

// BuildDescendantTreeDepth is BuildDescendantTree with an explicit depth cap.
// A negative cap falls back to the configured one.
func (s *Service) BuildDescendantTreeDepth(ctx context.Context, cageID string, maxDepth int) ([]domain.LineageNode, error) {
	const op = "build_descendants"
	if maxDepth < 0 {
		maxDepth = s.maxDescendantDepth
	}
	var (
		nodes     []domain.LineageNode
		truncated bool
	)
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			var err error
			nodes, truncated, err = newTraversal(v).tree(cageID, maxDepth)
			return err
		})
	})
	if err != nil {
		return nil, s.storageFailure(op, cageID, err)
	}
	if truncated {
		s.noteTruncated(ctx, op, cageID)
	}
	return nodes, nil
}

// LineageForest lists every lineage root with its descendant tree. Roots are
// parent ids that are never a child; roots that are not stored render as
// placeholders.
func (s *Service) LineageForest(ctx context.Context) ([]domain.LineageTree, error) {
	const op = "lineage_forest"
	forest := []domain.LineageTree{}
	truncated := false
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			edges, err := v.LineageEdges()
			if err != nil {
				return fmt.Errorf("lineage edges: %w", err)
			}
			t := newTraversal(v)
			for _, root := range forestRoots(edges) {
				info, err := t.infoOrPlaceholder(root)
				if err != nil {
					return err
				}
				nodes, cut, err := t.tree(root, s.maxDescendantDepth)
				if err != nil {
					return err
				}
				truncated = truncated || cut
				forest = append(forest, domain.LineageTree{Root: info, Descendants: nodes})
			}
			return nil
		})
	})
	if err != nil {
		return nil, s.storageFailure(op, "", err)
	}
	if truncated {
		s.noteTruncated(ctx, op, "")
	}
	return forest, nil
}

// Lineage returns the subject info with its ancestors, descendants or both.
// An empty direction means both.
func (s *Service) Lineage(ctx context.Context, cageID string, direction domain.LineageDirection) (domain.LineageView, error) {
	const op = "lineage"
	if direction == "" {
		direction = domain.DirectionBoth
	}
	if !direction.Valid() {
		return domain.LineageView{}, domain.NewOperationError(op, cageID, domain.ErrValidation, fmt.Sprintf("unknown direction %q", direction))
	}
	view := domain.LineageView{
		Direction:   direction,
		Ancestors:   []domain.CageInfo{},
		Descendants: []domain.LineageNode{},
	}
	var (
		found         bool
		descTruncated bool
	)
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			t := newTraversal(v)
			var err error
			view.Subject, found, err = t.info(cageID)
			if err != nil || !found {
				return err
			}
			if direction != domain.DirectionDown {
				view.Ancestors, view.AncestorsTruncated, err = t.ancestors(cageID, s.maxAncestorHops)
				if err != nil {
					return err
				}
			}
			if direction != domain.DirectionUp {
				view.Descendants, descTruncated, err = t.tree(cageID, s.maxDescendantDepth)
			}
			return err
		})
	})
	if err != nil {
		return domain.LineageView{}, s.storageFailure(op, cageID, err)
	}
	if !found {
		return domain.LineageView{}, domain.NewOperationError(op, cageID, domain.ErrNotFound, "cage not found")
	}
	if view.AncestorsTruncated || descTruncated {
		s.noteTruncated(ctx, op, cageID)
	}
	return view, nil
}
