package verdoc

import lru "github.com/hashicorp/golang-lru"

// SnapshotCache remembers snapshots a DB has stored or loaded, by link.
// Snapshots never change once named, so one cache can serve any number of
// DBs sharing a Persist. Use a separate cache per Persist.
type SnapshotCache interface {
	// Stored reports whether the snapshot named link is known to be
	// persisted already.
	Stored(link string) bool
	// Remember records the encoded bytes of a stored or loaded snapshot.
	Remember(link string, encoded []byte)
	// Lookup returns the encoded bytes of the snapshot named link.
	Lookup(link string) ([]byte, bool)
}

type arcSnapshotCache struct {
	arc *lru.ARCCache
}

// NewSnapshotCache returns an ARC-backed SnapshotCache holding up to size
// snapshots. A size below 1 holds one.
func NewSnapshotCache(size int) SnapshotCache {
	if size < 1 {
		size = 1
	}
	arc, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return &arcSnapshotCache{arc: arc}
}

func (c *arcSnapshotCache) Stored(link string) bool {
	return c.arc.Contains(link)
}

func (c *arcSnapshotCache) Remember(link string, encoded []byte) {
	c.arc.Add(link, encoded)
}

func (c *arcSnapshotCache) Lookup(link string) ([]byte, bool) {
	v, ok := c.arc.Get(link)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}
