package verdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errNoPersist = errors.New("no StoreSnapshotsWith configured")

// DB owns a root chain and hands out global versions to the writes made
// through it. Reads and writes run concurrently with each other; Load and
// Close wait for them to finish.
type DB struct {
	log         *zap.Logger
	metrics     Metrics
	persist     Persist
	cache       SnapshotCache
	compressor  *compressor
	bucketCount int
	maxFieldLen uint64

	versionLock   sync.Mutex
	globalVersion uint64

	rootLock sync.RWMutex
	root     *VersionNode
}

// Open returns a DB holding a root chain with one empty Document.
func Open(cfg *Config) (*DB, error) {
	db, err := newDB(cfg)
	if err != nil {
		return nil, err
	}
	db.root = NewVersionNode(NewDocumentSized(db.bucketCount), 0, 0, nil, freeDocument)
	db.log.Debug("opened empty db", zap.Int("bucket_count", db.bucketCount))
	return db, nil
}

func newDB(cfg *Config) (*DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c, err := newCompressor(cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("compressor: %w", err)
	}
	db := &DB{
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
		persist:     cfg.StoreSnapshotsWith,
		cache:       cfg.SnapshotCache,
		compressor:  c,
		bucketCount: cfg.InitialBucketCount,
		maxFieldLen: cfg.MaxFieldLen,
	}
	if db.log == nil {
		db.log = zap.NewNop()
	}
	db.log = db.log.Named("verdoc")
	if db.metrics == nil {
		db.metrics = noopMetrics{}
	}
	if db.bucketCount <= 0 {
		db.bucketCount = DefaultBucketCount
	}
	if db.maxFieldLen == 0 {
		db.maxFieldLen = DefaultMaxFieldLen
	}
	return db, nil
}

func (db *DB) nextGlobalVersion() uint64 {
	db.versionLock.Lock()
	defer db.versionLock.Unlock()
	db.globalVersion++
	return db.globalVersion
}

// GlobalVersion returns the most recently allocated global version.
func (db *DB) GlobalVersion() uint64 {
	db.versionLock.Lock()
	defer db.versionLock.Unlock()
	return db.globalVersion
}

func (db *DB) resumeAt(globalVersion uint64) {
	db.versionLock.Lock()
	if globalVersion > db.globalVersion {
		db.globalVersion = globalVersion
	}
	db.versionLock.Unlock()
}

// document returns the live root Document. The caller holds rootLock.
func (db *DB) document() (*Document, error) {
	if db.root == nil {
		return nil, ErrClosed
	}
	doc, ok := db.root.Value.(*Document)
	if !ok {
		return nil, fmt.Errorf("root version %d holds no document", db.root.LocalVersion)
	}
	return doc, nil
}

// Set writes value at path and returns the global version assigned to the
// write.
func (db *DB) Set(path, value string) (uint64, error) {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	doc, err := db.document()
	if err != nil {
		return 0, err
	}
	globalVersion := db.nextGlobalVersion()
	if err := doc.SetFieldPath(path, value, globalVersion); err != nil {
		return 0, fmt.Errorf("set %q: %w", path, err)
	}
	db.metrics.AddWrite("set")
	return globalVersion, nil
}

// Delete appends a Tombstone at path and returns the global version
// assigned to it. Deleting an absent path succeeds without effect.
func (db *DB) Delete(path string) (uint64, error) {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	doc, err := db.document()
	if err != nil {
		return 0, err
	}
	globalVersion := db.nextGlobalVersion()
	if err := doc.DeletePath(path, globalVersion); err != nil {
		return 0, fmt.Errorf("delete %q: %w", path, err)
	}
	db.metrics.AddWrite("delete")
	return globalVersion, nil
}

// Get looks up the field at path as of its local version, or Latest.
func (db *DB) Get(path string, version uint64) (Entry, bool, error) {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	doc, err := db.document()
	if err != nil {
		return Entry{}, false, err
	}
	db.metrics.AddRead("get")
	return doc.GetField(path, version)
}

// ListVersions returns the history of the field at path, newest-first.
func (db *DB) ListVersions(path string) ([]Entry, bool, error) {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	doc, err := db.document()
	if err != nil {
		return nil, false, err
	}
	db.metrics.AddRead("list_versions")
	return doc.ListVersions(path)
}

// Compact drops the history below path. The empty path compacts the root
// chain and the whole tree. An absent path is ErrNotFound.
func (db *DB) Compact(path string) error {
	if path == "" {
		// the root chain's Prev links are read by Save and Checkpoint
		db.rootLock.Lock()
		defer db.rootLock.Unlock()
	} else {
		db.rootLock.RLock()
		defer db.rootLock.RUnlock()
	}
	doc, err := db.document()
	if err != nil {
		return err
	}
	start := time.Now()
	if path == "" {
		err = CompactRoot(db.root)
	} else {
		var ok bool
		ok, err = doc.Compact(path)
		if err == nil && !ok {
			return fmt.Errorf("compact %q: %w", path, ErrNotFound)
		}
	}
	db.metrics.AddCompaction(time.Since(start))
	if err != nil {
		db.log.Warn("compaction incomplete", zap.String("path", path), zap.Error(err))
		return err
	}
	db.log.Debug("compacted", zap.String("path", path), zap.Duration("took", time.Since(start)))
	return nil
}

// Save writes the root chain to filename.
func (db *DB) Save(filename string) error {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	if db.root == nil {
		return ErrClosed
	}
	if err := SerializeDB(db.root, filename); err != nil {
		db.log.Error("save failed", zap.String("file", filename), zap.Error(err))
		return err
	}
	db.log.Info("saved", zap.String("file", filename), zap.Uint64("global_version", db.GlobalVersion()))
	return nil
}

// Load replaces the root chain with the one in filename and frees the
// previous tree. Global versions resume after the highest one loaded.
func (db *DB) Load(filename string) error {
	root, err := deserializeFile(filename, db.maxFieldLen, db.bucketCount)
	if err != nil {
		db.log.Error("load failed", zap.String("file", filename), zap.Error(err))
		return err
	}
	if err := db.replaceRoot(root); err != nil {
		return fmt.Errorf("load %s: %w", filename, err)
	}
	db.log.Info("loaded", zap.String("file", filename), zap.Uint64("global_version", db.GlobalVersion()))
	return nil
}

func (db *DB) replaceRoot(root *VersionNode) error {
	if _, ok := root.Value.(*Document); !ok {
		root.Free()
		return formatErrf(0, nil, "root version %d holds no document", root.LocalVersion)
	}
	highest := maxGlobalVersion(root)
	db.rootLock.Lock()
	if db.root == nil {
		db.rootLock.Unlock()
		root.Free()
		return ErrClosed
	}
	old := db.root
	db.root = root
	db.resumeAt(highest)
	db.rootLock.Unlock()
	old.Free()
	return nil
}

// maxGlobalVersion returns the highest GlobalVersion anywhere below head.
func maxGlobalVersion(head *VersionNode) uint64 {
	var highest uint64
	for node := head; node != nil; node = node.Prev {
		if node.GlobalVersion > highest {
			highest = node.GlobalVersion
		}
		doc, ok := node.Value.(*Document)
		if !ok {
			continue
		}
		for _, pair := range []struct {
			lock *sync.RWMutex
			m    **HashMap
		}{
			{&doc.fieldsLock, &doc.fields},
			{&doc.subdocsLock, &doc.subdocuments},
		} {
			chains, err := snapshotMap(pair.lock, pair.m)
			if err != nil {
				continue
			}
			for _, kc := range chains {
				if len(kc.nodes) == 0 {
					continue
				}
				if v := maxGlobalVersion(kc.nodes[0]); v > highest {
					highest = v
				}
			}
		}
	}
	return highest
}

// Checkpoint stores the current tree through the configured Persist and
// returns a Root that reopens it.
func (db *DB) Checkpoint(ctx context.Context) (*Root, error) {
	if db.persist == nil {
		return nil, errNoPersist
	}
	db.rootLock.RLock()
	if db.root == nil {
		db.rootLock.RUnlock()
		return nil, ErrClosed
	}
	globalVersion := db.GlobalVersion()
	var buf bytes.Buffer
	if err := Serialize(&buf, db.root); err != nil {
		db.rootLock.RUnlock()
		return nil, fmt.Errorf("serialize: %w", err)
	}
	encoded := db.compressor.compress(buf.Bytes())
	db.rootLock.RUnlock()
	link, err := storeSnapshot(ctx, db.persist, db.cache, encoded)
	if err != nil {
		db.log.Error("checkpoint failed", zap.Error(err))
		return nil, err
	}
	db.metrics.SetSnapshotSize(len(encoded))
	db.log.Info("checkpointed",
		zap.String("link", link),
		zap.Uint64("global_version", globalVersion),
		zap.Int("size", len(encoded)))
	return &Root{
		Link:          link,
		GlobalVersion: globalVersion,
		Compressed:    db.compressor.enabled,
	}, nil
}

// Root returns the head of the root chain for use with CompactRoot, Dump
// or Serialize. It is invalid after Load or Close.
func (db *DB) Root() *VersionNode {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	return db.root
}

// Dump writes a listing of every version in the tree.
func (db *DB) Dump(w io.Writer) error {
	db.rootLock.RLock()
	defer db.rootLock.RUnlock()
	if db.root == nil {
		return ErrClosed
	}
	return Dump(w, db.root)
}

// Close frees the tree. Closing twice is a no-op.
func (db *DB) Close() error {
	db.rootLock.Lock()
	root := db.root
	db.root = nil
	db.rootLock.Unlock()
	if root == nil {
		return nil
	}
	root.Free()
	db.compressor.close()
	db.log.Debug("closed", zap.Uint64("global_version", db.GlobalVersion()))
	return nil
}
