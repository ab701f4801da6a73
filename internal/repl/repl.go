package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-shellwords"

	"github.com/leengari/tree-tutor/internal/query"
	"github.com/leengari/tree-tutor/internal/session"
	"github.com/leengari/tree-tutor/internal/view"
)

const usage = `Commands:
  load <csv> [config]   read the input (and optionally the tree configuration) from files
  config <file>         read the tree configuration from a file
  step                  add the next record to the tree
  back                  undo the last step
  build                 add every record to the tree
  reset                 forget the input and restore the default configuration
  show                  print the current tree and its node count
  paths                 list the path of every node, for use with query and data
  json                  print the current tree as JSON
  query <path> [ops]    run a query against the tree
  data <path>           print the data attached to a node
  help                  show this message
  exit                  quit`

var errUsage = errors.New("wrong number of arguments")

// REPL drives one session from line-oriented commands
type REPL struct {
	cursor        *session.Cursor
	out           io.Writer
	input         string
	configuration string
}

func New(cursor *session.Cursor, out io.Writer) *REPL {
	return &REPL{
		cursor:        cursor,
		out:           out,
		configuration: session.DefaultConfiguration,
	}
}

// Run reads commands from in until it is exhausted, "exit" is entered or
// ctx is done
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(r.out, "Welcome to Tree Tutor")
	fmt.Fprintln(r.out, "Type 'help' for commands, 'exit' or '\\q' to quit.")

	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// quotes group arguments, so paths with spaces survive
		args, err := shellwords.Parse(line)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "\\q" {
			return nil
		}

		if err := r.Execute(ctx, args); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	}
}

// Execute runs one parsed command
func (r *REPL) Execute(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(r.out, usage)

	case "load":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: load <csv> [config]", errUsage)
		}
		input, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			if err := r.loadConfig(args[1]); err != nil {
				return err
			}
		}
		r.input = string(input)
		fmt.Fprintf(r.out, "Loaded %d bytes of input\n", len(input))

	case "config":
		if len(args) != 1 {
			return fmt.Errorf("%w: config <file>", errUsage)
		}
		return r.loadConfig(args[0])

	case "step":
		nodes, err := r.cursor.Step(ctx, r.input, r.configuration)
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, view.Format(nodes))

	case "back":
		nodes, ok, err := r.cursor.Back(ctx, r.input, r.configuration)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(r.out, "(empty)")
			return nil
		}
		fmt.Fprint(r.out, view.Format(nodes))

	case "build":
		nodes, err := r.cursor.Build(ctx, r.input, r.configuration)
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, view.Format(nodes))

	case "reset":
		if err := r.cursor.Reset(); err != nil {
			return err
		}
		r.input = ""
		r.configuration = session.DefaultConfiguration
		fmt.Fprintln(r.out, "Your session has been reset.")

	case "show":
		nodes := r.cursor.View()
		if len(nodes) == 0 {
			fmt.Fprintln(r.out, "(empty)")
			return nil
		}
		fmt.Fprint(r.out, view.Format(nodes))
		fmt.Fprintf(r.out, "%d nodes\n", view.CountNodes(nodes))

	case "paths":
		for _, path := range view.Paths(r.cursor.View()) {
			fmt.Fprintln(r.out, path)
		}

	case "json":
		data, err := view.Serialize(r.cursor.View())
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, string(data))

	case "query":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: query <path> [ops]", errUsage)
		}
		var ops string
		if len(args) == 2 {
			ops = args[1]
		}
		result, err := r.cursor.Query(ctx, args[0], ops)
		if err != nil {
			return err
		}
		if result.Message != "" {
			fmt.Fprintln(r.out, result.Message)
		}
		PrintTable(r.out, result.Table)

	case "data":
		if len(args) != 1 {
			return fmt.Errorf("%w: data <path>", errUsage)
		}
		data, err := r.cursor.Data(args[0])
		if err != nil {
			return err
		}
		if data == nil {
			fmt.Fprintln(r.out, "None")
			return nil
		}
		fmt.Fprintln(r.out, string(data))

	default:
		return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
	}
	return nil
}

func (r *REPL) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r.configuration = string(data)
	return nil
}

// PrintTable writes query rows as aligned columns
func PrintTable(w io.Writer, table *query.Table) {
	if table.Len() == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
