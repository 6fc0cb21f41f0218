package verdoc

import "go.uber.org/zap"

// Config controls how a DB logs, measures, sizes and persists its tree.
// The zero value is usable: nothing is logged or measured and checkpoints
// are unavailable.
type Config struct {
	// Logger receives DB lifecycle events. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Metrics receives DB activity counters.
	Metrics Metrics

	// StoreSnapshotsWith is used by Checkpoint and Root.Open.
	StoreSnapshotsWith Persist

	// SnapshotCache avoids re-storing and re-loading snapshots, and may be
	// shared across DBs using the same Persist.
	SnapshotCache SnapshotCache

	// Compress zstd-compresses checkpoints. Compressed and uncompressed
	// checkpoints can both be opened regardless of this setting.
	Compress bool

	// InitialBucketCount sizes the maps of new Documents. 0 means
	// DefaultBucketCount.
	InitialBucketCount int

	// MaxFieldLen bounds key and value lengths accepted when loading. 0
	// means DefaultMaxFieldLen.
	MaxFieldLen uint64
}
