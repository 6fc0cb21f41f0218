package verdoc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Root identifies a checkpoint: the link of a stored snapshot, and the
// global version allocated when it was taken.
type Root struct {
	Link          string
	GlobalVersion uint64
	Compressed    bool
}

// Open loads the snapshot named by r through cfg.StoreSnapshotsWith and
// returns a DB holding it. New writes get global versions after both
// r.GlobalVersion and anything recorded in the snapshot.
func (r *Root) Open(ctx context.Context, cfg *Config) (*DB, error) {
	if r == nil {
		return nil, errNilRoot
	}
	db, err := newDB(cfg)
	if err != nil {
		return nil, err
	}
	if db.persist == nil {
		db.compressor.close()
		return nil, errNoPersist
	}
	encoded, err := loadSnapshot(ctx, db.persist, db.cache, r.Link)
	if err != nil {
		db.compressor.close()
		return nil, err
	}
	root, err := decodeSnapshot(encoded, db.compressor, db.maxFieldLen, db.bucketCount)
	if err != nil {
		db.compressor.close()
		return nil, fmt.Errorf("snapshot %s: %w", r.Link, err)
	}
	if _, ok := root.Value.(*Document); !ok {
		root.Free()
		db.compressor.close()
		return nil, formatErrf(0, nil, "snapshot %s: root holds no document", r.Link)
	}
	db.root = root
	db.resumeAt(r.GlobalVersion)
	db.resumeAt(maxGlobalVersion(root))
	db.log.Info("opened checkpoint",
		zap.String("link", r.Link),
		zap.Uint64("global_version", db.GlobalVersion()))
	return db, nil
}
