package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid/v2"

	"github.com/leengari/tree-tutor/internal/bundle"
	"github.com/leengari/tree-tutor/internal/treeconfig"
)

var (
	ErrClosed   = errors.New("store is closed")
	ErrLocked   = errors.New("store is locked by a writer")
	ErrChecksum = errors.New("store checksum mismatch")
)

// Builder writes one generation of the tree store. Records are folded
// into an in-memory tree and persisted by Finish; after that the
// generation is read-only.
type Builder struct {
	dir     string
	data    string
	path    []treeconfig.Element
	root    *Node
	records int64
	done    bool
	err     error
}

// NewBuilder prepares dir/data for a new generation and takes the write lock
func NewBuilder(cfg *treeconfig.Config, dir string) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cannot build store: nil configuration")
	}

	data := filepath.Join(dir, dataDirName)
	if err := os.MkdirAll(data, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock, err := os.OpenFile(filepath.Join(data, lockFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create write lock: %w", err)
	}
	lock.Close()

	return &Builder{
		dir:  dir,
		data: data,
		path: cfg.Path(),
		root: &Node{Name: "root"},
	}, nil
}

// Insert folds one record into the tree along the configured path
func (b *Builder) Insert(rec *bundle.Record) error {
	if b.done {
		return ErrClosed
	}
	b.records++
	b.root.Hits++
	b.insert(b.root, 0, rec)
	return nil
}

func (b *Builder) insert(parent *Node, depth int, rec *bundle.Record) {
	if depth >= len(b.path) {
		return
	}
	el := b.path[depth]

	for _, name := range elementNames(el, rec) {
		n := parent.child(name)
		n.Hits++
		for _, spec := range el.Data {
			if n.Data == nil {
				n.Data = make(map[string]*Attachment, len(el.Data))
			}
			a, ok := n.Data[spec.Name]
			if !ok {
				a = newAttachment(spec)
				n.Data[spec.Name] = a
			}
			a.update(rec)
		}
		b.insert(n, depth+1, rec)
	}
}

// elementNames lists the nodes a record reaches at one path element.
// An absent or null field ends the path; arrays branch.
func elementNames(el treeconfig.Element, rec *bundle.Record) []string {
	if el.Type == treeconfig.TypeConst {
		return []string{el.Value}
	}

	v, ok := rec.Get(el.Key)
	if !ok || v == nil {
		return nil
	}
	if arr, isArray := v.(bundle.Array); isArray {
		names := make([]string, 0, len(arr))
		for _, e := range arr {
			if e == nil || e.String() == "" {
				continue
			}
			names = append(names, e.String())
		}
		return names
	}
	if v.String() == "" {
		return nil
	}
	return []string{v.String()}
}

// Records reports how many records were inserted
func (b *Builder) Records() int64 {
	return b.records
}

// Finish persists the generation and releases the write lock. Calling it
// again returns the result of the first call.
func (b *Builder) Finish() error {
	if b.done {
		return b.err
	}
	b.done = true
	b.err = b.finish()
	return b.err
}

func (b *Builder) finish() error {
	count := b.root.seal()

	nodes, err := writeJSONAtomic(filepath.Join(b.data, nodesFile), b.root)
	if err != nil {
		return err
	}

	meta := GenerationMeta{
		Generation: ulid.Make().String(),
		Records:    b.records,
		Nodes:      count,
		Checksum:   strconv.FormatUint(xxhash.Sum64(nodes), 16),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := writeJSONAtomic(filepath.Join(b.data, metaFile), meta); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(b.data, lockFile)); err != nil {
		return fmt.Errorf("failed to release write lock: %w", err)
	}

	slog.Debug("store generation written",
		slog.String("dir", b.dir),
		slog.String("generation", meta.Generation),
		slog.Int64("records", meta.Records),
		slog.Int64("nodes", meta.Nodes),
	)
	return nil
}
