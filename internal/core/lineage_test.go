package core

import (
	"cagecore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestFindAncestorsChain(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		seed(t, svc.Store(), []holdingSeed{
			{id: "B-050"},
			{id: "B-100", parent: "B-050"},
			{id: "C-1", parent: "B-100"},
		})
		ctx := context.Background()

		got, err := svc.FindAncestors(ctx, "B-100")
		if err != nil {
			t.Fatalf("ancestors: %v", err)
		}
		if !reflect.DeepEqual(ids(got), []string{"B-050"}) {
			t.Fatalf("expected [B-050], got %v", ids(got))
		}

		got, err = svc.FindAncestors(ctx, "C-1")
		if err != nil {
			t.Fatalf("ancestors: %v", err)
		}
		if !reflect.DeepEqual(ids(got), []string{"B-050", "B-100"}) {
			t.Fatalf("expected root-first chain, got %v", ids(got))
		}

		got, err = svc.FindAncestors(ctx, "B-050")
		if err != nil || len(got) != 0 {
			t.Fatalf("root should have no ancestors, got %v err %v", ids(got), err)
		}
		got, err = svc.FindAncestors(ctx, "missing")
		if err != nil || len(got) != 0 {
			t.Fatalf("unknown id should have no ancestors, got %v err %v", ids(got), err)
		}
	})
}

func TestFindAncestorsCycleTerminates(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		seed(t, svc.Store(), []holdingSeed{{id: "X", parent: "Y"}, {id: "Y", parent: "X"}})
		got, err := svc.FindAncestors(context.Background(), "X")
		if err != nil {
			t.Fatalf("ancestors: %v", err)
		}
		if !reflect.DeepEqual(ids(got), []string{"Y"}) {
			t.Fatalf("expected [Y], got %v", ids(got))
		}
	})
}

func TestFindAncestorsPlaceholderAndHopBound(t *testing.T) {
	svc, store := newMemoryService(t)
	seed(t, store, []holdingSeed{
		{id: "A-3", parent: "A-2"},
		{id: "A-2", parent: "A-1"},
		{id: "A-1", parent: "GONE"},
	})
	ctx := context.Background()

	got, err := svc.FindAncestors(ctx, "A-3")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"GONE", "A-1", "A-2"}) {
		t.Fatalf("unexpected chain %v", ids(got))
	}
	if !got[0].Placeholder || got[0].Type != domain.CageTypeUnknown || got[0].Label != "" {
		t.Fatalf("expected placeholder root, got %+v", got[0])
	}

	got, err = svc.FindAncestorsLimit(ctx, "A-3", 2)
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"A-1", "A-2"}) {
		t.Fatalf("expected hop-bounded chain, got %v", ids(got))
	}

	view, err := NewService(store, WithLineageLimits(1, 5)).Lineage(ctx, "A-3", domain.DirectionUp)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if !view.AncestorsTruncated || !reflect.DeepEqual(ids(view.Ancestors), []string{"A-2"}) {
		t.Fatalf("expected truncated [A-2], got %v truncated=%v", ids(view.Ancestors), view.AncestorsTruncated)
	}
}

func chainSeeds(prefix string, n int) []holdingSeed {
	seeds := []holdingSeed{{id: prefix + "1"}}
	for i := 2; i <= n; i++ {
		seeds = append(seeds, holdingSeed{id: fmt.Sprintf("%s%d", prefix, i), parent: fmt.Sprintf("%s%d", prefix, i-1)})
	}
	return seeds
}

func TestBuildDescendantTreeDepthCap(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		seed(t, svc.Store(), chainSeeds("R-", 14))
		nodes, err := svc.BuildDescendantTree(context.Background(), "R-1")
		if err != nil {
			t.Fatalf("descendants: %v", err)
		}
		var path []string
		var last domain.LineageNode
		for len(nodes) > 0 {
			if len(nodes) != 1 {
				t.Fatalf("expected a single chain, got %d nodes", len(nodes))
			}
			last = nodes[0]
			path = append(path, last.CageID)
			nodes = last.Children
		}
		if last.CageID != "R-12" || last.Depth != 10 {
			t.Fatalf("expected chain to stop at R-12 depth 10, got %s depth %d (%v)", last.CageID, last.Depth, path)
		}
		if !last.Truncated || last.Children == nil || len(last.Children) != 0 {
			t.Fatalf("expected truncated node with empty children, got %+v", last)
		}
	})
}

func TestDescendantTruncationMarksTheCap(t *testing.T) {
	deepest := func(nodes []domain.LineageNode) domain.LineageNode {
		var last domain.LineageNode
		for len(nodes) > 0 {
			last = nodes[0]
			nodes = last.Children
		}
		return last
	}
	cases := []struct {
		length    int
		leaf      string
		depth     int
		truncated bool
	}{
		{length: 11, leaf: "R-11", depth: 9, truncated: false},
		{length: 12, leaf: "R-12", depth: 10, truncated: true},
	}
	for _, tc := range cases {
		metrics := &captureMetrics{}
		svc, store := newMemoryService(t, WithMetricsRecorder(metrics))
		seed(t, store, chainSeeds("R-", tc.length))
		nodes, err := svc.BuildDescendantTree(context.Background(), "R-1")
		if err != nil {
			t.Fatalf("chain of %d: %v", tc.length, err)
		}
		leaf := deepest(nodes)
		if leaf.CageID != tc.leaf || leaf.Depth != tc.depth || leaf.Truncated != tc.truncated {
			t.Fatalf("chain of %d: got %s depth %d truncated %v", tc.length, leaf.CageID, leaf.Depth, leaf.Truncated)
		}
		if got := len(metrics.truncated) == 1; got != tc.truncated {
			t.Fatalf("chain of %d: truncated metric %v", tc.length, metrics.truncated)
		}
	}
}

func TestBuildDescendantTreeBranchesAndCycles(t *testing.T) {
	svc, store := newMemoryService(t)
	seed(t, store, []holdingSeed{
		{id: "P"},
		{id: "P-b", parent: "P"},
		{id: "P-a", parent: "P"},
		{id: "P-a-1", parent: "P-a"},
		{id: "X", parent: "Y"},
		{id: "Y", parent: "X"},
	})
	ctx := context.Background()

	nodes, err := svc.BuildDescendantTree(ctx, "P")
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(nodes) != 2 || nodes[0].CageID != "P-a" || nodes[1].CageID != "P-b" {
		t.Fatalf("expected ordered children, got %+v", nodes)
	}
	if len(nodes[0].Children) != 1 || nodes[0].Children[0].Depth != 1 || nodes[0].Truncated {
		t.Fatalf("unexpected grandchild %+v", nodes[0])
	}

	nodes, err = svc.BuildDescendantTree(ctx, "X")
	if err != nil {
		t.Fatalf("cyclic descendants: %v", err)
	}
	if len(nodes) != 1 || nodes[0].CageID != "Y" || len(nodes[0].Children) != 0 {
		t.Fatalf("expected cycle to stop after Y, got %+v", nodes)
	}

	nodes, err = svc.BuildDescendantTreeDepth(ctx, "P", 0)
	if err != nil {
		t.Fatalf("depth 0: %v", err)
	}
	if len(nodes) != 2 || !nodes[0].Truncated || len(nodes[0].Children) != 0 {
		t.Fatalf("expected truncated direct children, got %+v", nodes)
	}
}

func TestLineageForest(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		seed(t, svc.Store(), []holdingSeed{
			{id: "F-2", parent: "F-1"},
			{id: "F-1"},
			{id: "G-2", parent: "G-ghost"},
			{id: "G-3", parent: "G-ghost"},
			{id: "L-1"},
		})
		forest, err := svc.LineageForest(context.Background())
		if err != nil {
			t.Fatalf("forest: %v", err)
		}
		if len(forest) != 2 {
			t.Fatalf("expected 2 roots, got %+v", forest)
		}
		if forest[0].Root.CageID != "F-1" || forest[0].Root.Placeholder || len(forest[0].Descendants) != 1 {
			t.Fatalf("unexpected first tree %+v", forest[0])
		}
		if forest[1].Root.CageID != "G-ghost" || !forest[1].Root.Placeholder || len(forest[1].Descendants) != 2 {
			t.Fatalf("unexpected second tree %+v", forest[1])
		}
	})
}

func TestForestRootsSkipCyclesAndDuplicates(t *testing.T) {
	edges := []domain.LineageEdge{
		{ChildID: "b", ParentID: "a"},
		{ChildID: "c", ParentID: "a"},
		{ChildID: "x", ParentID: "y"},
		{ChildID: "y", ParentID: "x"},
		{ChildID: "q", ParentID: "0"},
	}
	if got := forestRoots(edges); !reflect.DeepEqual(got, []string{"0", "a"}) {
		t.Fatalf("unexpected roots %v", got)
	}
}

func TestLineageView(t *testing.T) {
	svc, store := newMemoryService(t)
	seed(t, store, chainSeeds("V-", 4))
	ctx := context.Background()

	view, err := svc.Lineage(ctx, "V-2", "")
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if view.Direction != domain.DirectionBoth || view.Subject.CageID != "V-2" {
		t.Fatalf("unexpected subject %+v", view)
	}
	if !reflect.DeepEqual(ids(view.Ancestors), []string{"V-1"}) || len(view.Descendants) != 1 {
		t.Fatalf("unexpected lineage %+v", view)
	}

	view, err = svc.Lineage(ctx, "V-2", domain.DirectionDown)
	if err != nil || len(view.Ancestors) != 0 || len(view.Descendants) != 1 {
		t.Fatalf("down lineage: %+v err %v", view, err)
	}

	if _, err := svc.Lineage(ctx, "V-2", "sideways"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Lineage(ctx, "nope", domain.DirectionBoth); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
