package verdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/minio/blake2b-simd"
)

// Persist is the interface for storing and loading serialized snapshots.
// The name of a snapshot is derived from its content, which is never
// modified.
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

func snapshotLink(encoded []byte) string {
	hashBytes := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

func storeSnapshot(ctx context.Context, persist Persist, cache SnapshotCache, encoded []byte) (string, error) {
	link := snapshotLink(encoded)
	if cache != nil && cache.Stored(link) {
		return link, nil
	}
	err := persist.Store(ctx, link, encoded)
	if err != nil {
		return "", fmt.Errorf("persist store: %w", err)
	}
	if cache != nil {
		cache.Remember(link, encoded)
	}
	return link, nil
}

func loadSnapshot(ctx context.Context, persist Persist, cache SnapshotCache, link string) ([]byte, error) {
	if cache != nil {
		if cached, ok := cache.Lookup(link); ok {
			return cached, nil
		}
	}
	encoded, err := persist.Load(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", link, err)
	}
	if actual := snapshotLink(encoded); actual != link {
		return nil, formatErrf(0, nil, "snapshot %s has content hash %s", link, actual)
	}
	if cache != nil {
		cache.Remember(link, encoded)
	}
	return encoded, nil
}

func decodeSnapshot(encoded []byte, c *compressor, maxFieldLen uint64, bucketCount int) (*VersionNode, error) {
	raw, err := c.decompress(encoded)
	if err != nil {
		return nil, formatErrf(0, err, "decompress snapshot")
	}
	return deserialize(bytes.NewReader(raw), maxFieldLen, bucketCount)
}
