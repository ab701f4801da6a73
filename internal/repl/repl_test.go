package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/tree-tutor/internal/query"
	"github.com/leengari/tree-tutor/internal/session"
)

const (
	testInput = "team, computer, name\n" +
		"Data, Mac, Matt\n" +
		"Data, Lenovo, Michael\n" +
		"Data, Lenovo, Eric\n"

	testConfig = "paths:\n" +
		"  root:\n" +
		"    - {field: team}\n" +
		"    - {field: computer, data: {tcomp: {type: count}}}\n" +
		"    - {field: name}\n"
)

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "my data.csv")
	config := filepath.Join(dir, "tree.yaml")
	assert.NilError(t, os.WriteFile(input, []byte(testInput), 0644))
	assert.NilError(t, os.WriteFile(config, []byte(testConfig), 0644))
	return input, config
}

func run(t *testing.T, script string) string {
	t.Helper()
	cursor := session.NewCursor("repl", t.TempDir())
	t.Cleanup(func() { cursor.Close() })

	var out bytes.Buffer
	err := New(cursor, &out).Run(context.Background(), strings.NewReader(script))
	assert.NilError(t, err)
	return out.String()
}

func TestREPLSession(t *testing.T) {
	input, config := writeFiles(t)

	out := run(t, strings.Join([]string{
		`load "` + input + `" ` + config,
		"step",
		"back",
		"build",
		`query "Data/+:+hits" "sort=1:n:d;title=computer,hits"`,
		"data Data/Lenovo*",
		"data Data",
		"json",
		"exit",
		"show",
	}, "\n"))

	assert.Assert(t, strings.Contains(out, "Loaded "))
	assert.Assert(t, strings.Contains(out, "Data\n\tMac*\n\t\tMatt\n"))
	assert.Assert(t, strings.Contains(out, "(empty)"))
	assert.Assert(t, strings.Contains(out, "Data\n\tLenovo*\n\t\tEric\n\t\tMichael\n\tMac*\n\t\tMatt\n"))
	assert.Assert(t, strings.Contains(out, "computer  hits\nLenovo    2\nMac       1\n"))
	assert.Assert(t, strings.Contains(out, `{"tcomp":{"type":"count","count":2}}`))
	assert.Assert(t, strings.Contains(out, "None\n"))
	assert.Assert(t, strings.Contains(out, `[{"title":"Data"`))
	assert.Assert(t, !strings.Contains(out, "Error"), out)
}

func TestREPLShowAndPaths(t *testing.T) {
	input, config := writeFiles(t)

	out := run(t, strings.Join([]string{
		`load "` + input + `" ` + config,
		"paths",
		"build",
		"show",
		"paths",
	}, "\n"))

	assert.Assert(t, strings.Contains(out, "Data\n\tLenovo*\n\t\tEric\n\t\tMichael\n\tMac*\n\t\tMatt\n6 nodes\n"), out)
	assert.Assert(t, strings.Contains(out,
		"> Data\nData/Lenovo\nData/Lenovo/Eric\nData/Lenovo/Michael\nData/Mac\nData/Mac/Matt\n"), out)
	// paths before the build prints nothing
	assert.Assert(t, strings.Contains(out, "input\n> > "), out)
}

func TestREPLErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"bogus", `unknown command "bogus"`},
		{"load", "wrong number of arguments"},
		{"query", "wrong number of arguments"},
		{"config a b", "wrong number of arguments"},
		{"load /does/not/exist.csv", "no such file"},
		{"query team/+", "no tree has been built"},
		{`load "unterminated`, "Error"},
	}

	for i, tt := range tests {
		out := run(t, tt.line+"\n")
		if !strings.Contains(out, tt.want) {
			t.Errorf("tests[%d] - output %q does not contain %q", i, out, tt.want)
		}
	}
}

func TestREPLReset(t *testing.T) {
	input, config := writeFiles(t)

	out := run(t, strings.Join([]string{
		`load "` + input + `" ` + config,
		"build",
		"reset",
		"show",
		"step",
	}, "\n"))

	assert.Assert(t, strings.Contains(out, "Your session has been reset."))
	assert.Assert(t, strings.Contains(out, "(empty)"))
	// stepping empty input under the default configuration fails on the missing header
	assert.Assert(t, strings.Contains(out, "Error: "))
}

func TestPrintTable(t *testing.T) {
	var out bytes.Buffer
	PrintTable(&out, &query.Table{Rows: [][]string{{"a", "1"}, {"long name", "22"}}})
	assert.Equal(t, "a          1\nlong name  22\n", out.String())

	out.Reset()
	PrintTable(&out, nil)
	assert.Equal(t, "", out.String())
}
