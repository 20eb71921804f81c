package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cagecore/internal/core"
	"cagecore/pkg/domain"
)

func (a *app) print(v any, text func()) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) printInfo(prefix string, info domain.CageInfo) {
	if info.Placeholder {
		a.printf("%s%s\t(missing)\n", prefix, info.CageID)
		return
	}
	parent := "-"
	if info.ParentCageID != nil {
		parent = *info.ParentCageID
	}
	a.printf("%s%s\t%s\t%s\t%s\tparent=%s\n", prefix, info.CageID, info.Type.Short(), info.Label, info.Status, parent)
}

func (a *app) printTree(nodes []domain.LineageNode, indent int) {
	for _, n := range nodes {
		suffix := ""
		if n.Truncated {
			suffix = " ..."
		}
		a.printf("%s%s\t%s\t%s%s\n", strings.Repeat("  ", indent), n.CageID, n.Label, n.Status, suffix)
		a.printTree(n.Children, indent+1)
	}
}

func (a *app) printResult(r core.TransitionResult) {
	if r.Action == core.ActionDelete {
		collections := make([]string, 0, len(r.Deleted))
		for c, n := range r.Deleted {
			if n > 0 {
				collections = append(collections, fmt.Sprintf("%s=%d", c, n))
			}
		}
		sort.Strings(collections)
		a.printf("deleted %s (%s) purged_files=%d\n", r.CageID, strings.Join(collections, " "), r.PurgedFiles)
		return
	}
	a.printf("%s %s: %s -> %s\n", r.Action, r.CageID, r.From, r.To)
}
