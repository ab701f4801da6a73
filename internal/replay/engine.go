package replay

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/leengari/tree-tutor/internal/bundle"
	"github.com/leengari/tree-tutor/internal/storage"
	"github.com/leengari/tree-tutor/internal/treeconfig"
)

// RecordSource is a forward-only supply of records, e.g. *bundle.Reader
type RecordSource interface {
	Next() bool
	Record() *bundle.Record
	Err() error
}

// Engine owns one generation of the tree store: it replays a record
// source into a fresh directory and keeps a read cursor over the result.
// Adding records means opening a new Engine over the longer source.
type Engine struct {
	dir     string
	reader  *storage.Reader
	records int64
}

// Open clears dir, replays every record from source into a new store built
// from configuration, and opens it for reading. On failure the builder is
// still finished and no engine is returned.
func Open(ctx context.Context, source RecordSource, configuration, dir string) (*Engine, error) {
	cfg, err := treeconfig.Parse(configuration)
	if err != nil {
		return nil, err
	}

	if err := storage.ResetDirectory(dir); err != nil {
		return nil, err
	}

	builder, err := storage.NewBuilder(cfg, dir)
	if err != nil {
		return nil, err
	}

	if err := feed(ctx, builder, source); err != nil {
		return nil, multierr.Append(err, builder.Finish())
	}
	if err := builder.Finish(); err != nil {
		return nil, fmt.Errorf("failed to finish store: %w", err)
	}

	reader, err := storage.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	slog.Debug("replay finished",
		slog.String("dir", dir),
		slog.Int64("records", builder.Records()),
	)

	return &Engine{dir: dir, reader: reader, records: builder.Records()}, nil
}

// OpenText is Open over delimited text
func OpenText(ctx context.Context, input, configuration, dir string) (*Engine, error) {
	source, err := bundle.NewReader(input)
	if err != nil {
		return nil, err
	}
	return Open(ctx, source, configuration, dir)
}

func feed(ctx context.Context, builder *storage.Builder, source RecordSource) error {
	for source.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := builder.Insert(source.Record()); err != nil {
			return err
		}
	}
	return source.Err()
}

// Reader is the read cursor over the current generation, nil once closed
func (e *Engine) Reader() *storage.Reader {
	if e == nil {
		return nil
	}
	return e.reader
}

func (e *Engine) Dir() string {
	return e.dir
}

// Records reports how many records were replayed
func (e *Engine) Records() int64 {
	if e == nil {
		return 0
	}
	return e.records
}

// Close releases the read cursor. Safe on a nil engine and safe to repeat.
func (e *Engine) Close() error {
	if e == nil || e.reader == nil {
		return nil
	}
	err := e.reader.Close()
	e.reader = nil
	return err
}
