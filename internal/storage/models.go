package storage

import "time"

// IndexManifest is the commit marker for a persisted vector index.
// It is written only after every point of the collection has been stored,
// so a missing or mismatching manifest means the index is unusable.
type IndexManifest struct {
	VideoID      string
	Collection   string
	Backend      string // "sqlite" or "qdrant"
	Dimension    int
	PassageCount int
	Checksum     string // SHA256 hex over the ordered passage texts
	CreatedAt    time.Time
}

const timeLayout = time.RFC3339Nano
