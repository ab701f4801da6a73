package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Reader is a read cursor over a finished generation
type Reader struct {
	dir    string
	meta   GenerationMeta
	root   *Node
	closed bool
}

// Open loads the generation stored under dir/data
func Open(dir string) (*Reader, error) {
	data := filepath.Join(dir, dataDirName)

	if _, err := os.Stat(filepath.Join(data, lockFile)); err == nil {
		return nil, ErrLocked
	}

	metaBytes, err := os.ReadFile(filepath.Join(data, metaFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read store meta: %w", err)
	}
	var meta GenerationMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse store meta: %w", err)
	}

	nodeBytes, err := os.ReadFile(filepath.Join(data, nodesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read store nodes: %w", err)
	}
	if strconv.FormatUint(xxhash.Sum64(nodeBytes), 16) != meta.Checksum {
		return nil, fmt.Errorf("%w: generation %s", ErrChecksum, meta.Generation)
	}

	root := &Node{}
	if err := json.Unmarshal(nodeBytes, root); err != nil {
		return nil, fmt.Errorf("failed to parse store nodes: %w", err)
	}

	return &Reader{dir: dir, meta: meta, root: root}, nil
}

// Meta describes the opened generation
func (r *Reader) Meta() GenerationMeta {
	return r.meta
}

func (r *Reader) Dir() string {
	return r.dir
}

// Root returns the synthetic root node, nil once closed
func (r *Reader) Root() *Node {
	if r.closed {
		return nil
	}
	return r.root
}

// RootChildren iterates the top level of the tree
func (r *Reader) RootChildren() *Iterator {
	if r.closed {
		return NewIterator(nil)
	}
	return r.root.Iterator()
}

// Find resolves a "/"-separated path of node names from the root.
// An empty path is the root itself.
func (r *Reader) Find(path string) *Node {
	node := r.Root()
	if node == nil {
		return nil
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return node
	}
	for _, name := range strings.Split(path, "/") {
		node = node.Child(name)
		if node == nil {
			return nil
		}
	}
	return node
}

// Close releases the reader. Safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	r.root = nil
	return nil
}
