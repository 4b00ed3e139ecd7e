package engine

import (
	"hash/fnv"
	"path/filepath"
)

// PageID identifies a page within a table: the table id it belongs to and
// its zero-based offset within that table's file. PageID is comparable
// and is used directly as a map key by the buffer pool and lock manager.
type PageID struct {
	TableID    int
	PageNumber int
}

// tableIDFromPath derives a stable table id from a heap file's absolute
// path, so that two processes (or two runs of the same process) opening
// the same file agree on its id without a central id allocator.
func tableIDFromPath(path string) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(abs))
	// Mask off the sign bit so the id is always a non-negative int.
	return int(h.Sum32() & 0x7fffffff)
}
