package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "data"
	nodesFile   = "nodes.json"
	metaFile    = "meta.json"
	lockFile    = "write.lock"
	tmpSuffix   = ".tmp"
	dirMode     = 0755
	fileMode    = 0644
)

// writeFileAtomic writes data to a temp file next to path and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + tmpSuffix

	if err := os.WriteFile(tmpPath, data, fileMode); err != nil {
		return fmt.Errorf("failed to write temp file %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp → %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}
	return data, nil
}
