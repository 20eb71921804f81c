package main

import (
	"cagecore/internal/core"
	"cagecore/pkg/domain"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cagectl",
		Short:         "Inspect cage lineage and archive, restore or delete cages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", a.envFiles, "dotenv files loaded before the environment (missing files are skipped)")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	cmd.AddCommand(
		newTypeCmd(a),
		newInfoCmd(a),
		newAncestorsCmd(a),
		newDescendantsCmd(a),
		newLineageCmd(a),
		newForestCmd(a),
		newTransitionCmd(a, core.ActionArchive, "Archive a cage"),
		newTransitionCmd(a, core.ActionRestore, "Restore an archived cage"),
		newTransitionCmd(a, core.ActionDelete, "Permanently delete a cage and its dependent records"),
		newServeCmd(a),
	)
	return cmd
}

func newTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "type <cage-id>",
		Short: "Print whether a cage is a holding or breeding cage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := a.svc.ResolveType(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(map[string]any{"cage_id": args[0], "type": typ}, func() {
				a.printf("%s\t%s\t%s\n", args[0], typ, typ.Short())
			})
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <cage-id>",
		Short: "Print the display record of a cage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.svc.GetInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(info, func() { a.printInfo("", info) })
		},
	}
}

func newAncestorsCmd(a *app) *cobra.Command {
	var maxHops int
	cmd := &cobra.Command{
		Use:   "ancestors <cage-id>",
		Short: "List the ancestors of a cage, root first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := a.svc.FindAncestorsLimit(cmd.Context(), args[0], maxHops)
			if err != nil {
				return err
			}
			return a.print(chain, func() {
				for _, info := range chain {
					a.printInfo("", info)
				}
			})
		},
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 0, "hop bound (0 uses the configured limit)")
	return cmd
}

func newDescendantsCmd(a *app) *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "descendants <cage-id>",
		Short: "Print the descendant tree of a cage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := a.svc.BuildDescendantTreeDepth(cmd.Context(), args[0], maxDepth)
			if err != nil {
				return err
			}
			return a.print(nodes, func() { a.printTree(nodes, 0) })
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", -1, "depth cap (negative uses the configured limit)")
	return cmd
}

func newLineageCmd(a *app) *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "lineage <cage-id>",
		Short: "Print a cage with its ancestors and descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.svc.Lineage(cmd.Context(), args[0], domain.LineageDirection(direction))
			if err != nil {
				return err
			}
			return a.print(view, func() {
				for _, info := range view.Ancestors {
					a.printInfo("^ ", info)
				}
				a.printInfo("* ", view.Subject)
				a.printTree(view.Descendants, 1)
			})
		},
	}
	cmd.Flags().StringVar(&direction, "direction", string(domain.DirectionBoth), "both, up or down")
	return cmd
}

func newForestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forest",
		Short: "Print every lineage root with its descendants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forest, err := a.svc.LineageForest(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(forest, func() {
				for _, tree := range forest {
					a.printInfo("", tree.Root)
					a.printTree(tree.Descendants, 1)
				}
			})
		},
	}
}

func newTransitionCmd(a *app, action core.Action, short string) *cobra.Command {
	var (
		actorID string
		role    string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   string(action) + " <cage-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.TransitionRequest{
				CageID:    args[0],
				Actor:     domain.Actor{ID: actorID, Role: domain.Role(role)},
				Confirmed: confirm,
			}
			var (
				result core.TransitionResult
				err    error
			)
			switch action {
			case core.ActionArchive:
				result, err = a.svc.Archive(cmd.Context(), req)
			case core.ActionRestore:
				result, err = a.svc.Restore(cmd.Context(), req)
			default:
				result, err = a.svc.PermanentDelete(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return a.print(result, func() { a.printResult(result) })
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "id of the user performing the change")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "actor role (admin or user)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the change")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
