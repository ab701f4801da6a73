package storage

// GenerationMeta is written to meta.json once a generation is finished
type GenerationMeta struct {
	Generation string `json:"generation"`
	Records    int64  `json:"records"`
	Nodes      int64  `json:"nodes"`
	Checksum   string `json:"checksum"`
	CreatedAt  string `json:"created_at"`
}

// Attachment is the data an element keeps on a node.
// Which fields are used depends on Type.
type Attachment struct {
	Type  string           `json:"type"`
	Key   string           `json:"key,omitempty"`
	Size  int              `json:"size,omitempty"`
	Count int64            `json:"count,omitempty"`
	Sum   float64          `json:"sum,omitempty"`
	Top   map[string]int64 `json:"top,omitempty"`
}
