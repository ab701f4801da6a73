package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leengari/tree-tutor/internal/repl"
	"github.com/leengari/tree-tutor/internal/session"
)

func newReplCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [csv] [tree-config]",
		Short: "Step through a tree interactively",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			dir, err := os.MkdirTemp("", "treetutor-repl-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			cursor := session.NewCursor("repl", dir)
			defer cursor.Close()

			r := repl.New(cursor, cmd.OutOrStdout())
			if len(args) > 0 {
				if err := r.Execute(cmd.Context(), append([]string{"load"}, args...)); err != nil {
					return err
				}
			}
			return r.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
}
