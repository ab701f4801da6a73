package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leengari/tree-tutor/internal/repl"
	"github.com/leengari/tree-tutor/internal/session"
	"github.com/leengari/tree-tutor/internal/view"
)

func newBuildCmd(configPath *string) *cobra.Command {
	var asJSON bool
	var path, ops string

	cmd := &cobra.Command{
		Use:   "build <csv> <tree-config>",
		Short: "Build the whole tree once and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			input, err := readFile(args[0])
			if err != nil {
				return err
			}
			configuration, err := readFile(args[1])
			if err != nil {
				return err
			}

			dir, err := os.MkdirTemp("", "treetutor-build-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			cursor := session.NewCursor("build", dir)
			defer cursor.Close()

			nodes, err := cursor.Build(cmd.Context(), input, configuration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := view.Serialize(nodes)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else {
				fmt.Fprint(out, view.Format(nodes))
			}

			if path == "" {
				return nil
			}
			result, err := cursor.Query(cmd.Context(), path, ops)
			if err != nil {
				return err
			}
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			repl.PrintTable(out, result.Table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	cmd.Flags().StringVar(&path, "query", "", "run a query path against the built tree")
	cmd.Flags().StringVar(&ops, "ops", "", "query ops, e.g. \"sort=1:n:d;limit=10\"")
	return cmd
}
