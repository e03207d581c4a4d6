// Package diag is a tiny cobra-based diagnostic command, eidetica-diag,
// used only by tests/tooling to dump a backend's DAG as plain text —
// not a product CLI, just a thin, ungated way to exercise spf13/cobra the
// way beads' cmd/bd tree wires commands (see RootCmd's shape below, modeled
// on cmd/bd/main.go's rootCmd).
package diag

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/backend/memory"
	sqlbackend "github.com/eidetica/eidetica/backend/sql"
	"github.com/eidetica/eidetica/id"
)

// RootCmd builds the eidetica-diag command tree. out receives all command
// output, so tests can capture it instead of writing to a real stdout.
func RootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "eidetica-diag",
		Short: "Diagnostic tools for inspecting an Eidetica backend",
	}
	root.SetOut(out)
	root.AddCommand(dagCmd(out), rootsCmd(out))
	return root
}

func openBackend(kind, path string) (backend.Backend, func() error, error) {
	switch kind {
	case "memory":
		b, err := memory.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("diag: load memory backend %s: %w", path, err)
		}
		return b, func() error { return nil }, nil
	case "sqlite":
		b, err := sqlbackend.Open("sqlite", path)
		if err != nil {
			return nil, nil, fmt.Errorf("diag: open sqlite backend %s: %w", path, err)
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("diag: unknown backend kind %q (want memory or sqlite)", kind)
	}
}

func dagCmd(out io.Writer) *cobra.Command {
	var kind string
	var store string
	cmd := &cobra.Command{
		Use:   "dag <backend-path> <root-id>",
		Short: "Print a database's tree-level or store-level DAG, topologically sorted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBackend(kind, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			root := id.ID(args[1])
			var tips id.Set
			if store == "" {
				tips, err = b.GetTips(root)
			} else {
				tips, err = b.GetStoreTips(root, store)
			}
			if err != nil {
				return fmt.Errorf("diag: get tips: %w", err)
			}

			var ordered []id.ID
			if store == "" {
				ordered, err = b.GetTreeFromTips(root, tips)
			} else {
				ordered, err = b.GetStoreFromTips(root, store, tips)
			}
			if err != nil {
				return fmt.Errorf("diag: walk dag: %w", err)
			}

			heights, err := b.CalculateHeights(root, store)
			if err != nil {
				return fmt.Errorf("diag: calculate heights: %w", err)
			}

			for _, eid := range ordered {
				fmt.Fprintf(out, "%s\theight=%d\n", eid, heights[eid])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "memory", "backend kind: memory or sqlite")
	cmd.Flags().StringVar(&store, "store", "", "store name; empty selects the tree-level DAG")
	return cmd
}

func rootsCmd(out io.Writer) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "roots <backend-path>",
		Short: "List every database root id known to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := openBackend(kind, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			roots, err := b.AllRoots()
			if err != nil {
				return fmt.Errorf("diag: list roots: %w", err)
			}
			for _, r := range roots {
				fmt.Fprintln(out, r)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "memory", "backend kind: memory or sqlite")
	return cmd
}
