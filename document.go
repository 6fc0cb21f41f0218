package verdoc

import (
	"fmt"
	"strings"
	"sync"
)

// Document is a node of the tree. It owns a map of field chains and a map
// of subdocument chains, each guarded by its own lock. A Document belongs to
// exactly one parent slot, or is a root.
type Document struct {
	bucketCount int

	fieldsLock sync.RWMutex
	fields     *HashMap

	subdocsLock  sync.RWMutex
	subdocuments *HashMap
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return NewDocumentSized(DefaultBucketCount)
}

// NewDocumentSized returns an empty Document whose maps, and those of the
// subdocuments it creates, start with bucketCount buckets.
func NewDocumentSized(bucketCount int) *Document {
	if bucketCount <= 0 {
		bucketCount = DefaultBucketCount
	}
	return &Document{
		bucketCount:  bucketCount,
		fields:       NewHashMap(bucketCount),
		subdocuments: NewHashMap(bucketCount),
	}
}

func freeDocument(v interface{}) {
	if d, ok := v.(*Document); ok {
		d.Free()
	}
}

// Free releases all field chains and subdocument chains, recursing into
// every nested Document. Later use of d fails with ErrLock.
func (d *Document) Free() {
	d.fieldsLock.Lock()
	fields := d.fields
	d.fields = nil
	d.fieldsLock.Unlock()

	d.subdocsLock.Lock()
	subdocuments := d.subdocuments
	d.subdocuments = nil
	d.subdocsLock.Unlock()

	if fields != nil {
		fields.Free()
	}
	if subdocuments != nil {
		subdocuments.Free()
	}
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	if strings.Contains(key, pathSeparator) {
		return fmt.Errorf("%w: key %q contains %q", ErrInvalidPath, key, pathSeparator)
	}
	return nil
}

// SetField writes value as the newest version of the immediate field key.
func (d *Document) SetField(key, value string, globalVersion uint64) error {
	if err := validKey(key); err != nil {
		return err
	}
	d.fieldsLock.Lock()
	defer d.fieldsLock.Unlock()
	if d.fields == nil {
		return ErrLock
	}
	d.fields.Put(key, value, globalVersion, nil)
	return nil
}

// Field looks up the immediate field key as of version (or Latest).
func (d *Document) Field(key string, version uint64) (Entry, bool, error) {
	d.fieldsLock.RLock()
	defer d.fieldsLock.RUnlock()
	if d.fields == nil {
		return Entry{}, false, ErrLock
	}
	node := d.fields.Chain(key).find(version)
	if node == nil {
		return Entry{}, false, nil
	}
	return node.entry(), true, nil
}

func (d *Document) fieldVersions(key string) ([]Entry, bool, error) {
	d.fieldsLock.RLock()
	defer d.fieldsLock.RUnlock()
	if d.fields == nil {
		return nil, false, ErrLock
	}
	head := d.fields.Chain(key)
	if head == nil {
		return nil, false, nil
	}
	return head.Versions(), true, nil
}

// Subdocument returns the immediate child key as of version (or Latest). A
// child whose visible version is a Tombstone is reported absent.
func (d *Document) Subdocument(key string, version uint64) (*Document, bool, error) {
	d.subdocsLock.RLock()
	defer d.subdocsLock.RUnlock()
	if d.subdocuments == nil {
		return nil, false, ErrLock
	}
	value, ok := d.subdocuments.Get(key, version)
	if !ok {
		return nil, false, nil
	}
	child, ok := value.(*Document)
	return child, ok, nil
}

// SetSubdocument makes sub the newest version of the immediate child key
// and transfers its ownership to d.
func (d *Document) SetSubdocument(key string, sub *Document, globalVersion uint64) error {
	if sub == nil {
		return errNilDocument
	}
	if err := validKey(key); err != nil {
		return err
	}
	d.subdocsLock.Lock()
	defer d.subdocsLock.Unlock()
	if d.subdocuments == nil {
		return ErrLock
	}
	d.subdocuments.Put(key, sub, globalVersion, freeDocument)
	return nil
}

// child returns the latest live child key. With create, a missing or
// deleted child is replaced by a new empty Document at globalVersion; the
// lookup and the insert happen under one write lock.
func (d *Document) child(key string, create bool, globalVersion uint64) (*Document, bool, error) {
	if !create {
		return d.Subdocument(key, Latest)
	}
	d.subdocsLock.Lock()
	defer d.subdocsLock.Unlock()
	if d.subdocuments == nil {
		return nil, false, ErrLock
	}
	if value, ok := d.subdocuments.Get(key, Latest); ok {
		if child, ok := value.(*Document); ok {
			return child, true, nil
		}
	}
	child := NewDocumentSized(d.bucketCount)
	d.subdocuments.Put(key, child, globalVersion, freeDocument)
	return child, true, nil
}

// tombstone appends a deletion to the field key, or failing that to the
// subdocument key. Keys without a chain are left alone.
func (d *Document) tombstone(key string, globalVersion uint64) error {
	d.fieldsLock.Lock()
	if d.fields == nil {
		d.fieldsLock.Unlock()
		return ErrLock
	}
	if d.fields.Chain(key) != nil {
		d.fields.Put(key, Tombstone, globalVersion, nil)
		d.fieldsLock.Unlock()
		return nil
	}
	d.fieldsLock.Unlock()

	d.subdocsLock.Lock()
	defer d.subdocsLock.Unlock()
	if d.subdocuments == nil {
		return ErrLock
	}
	if d.subdocuments.Chain(key) != nil {
		d.subdocuments.Put(key, Tombstone, globalVersion, nil)
	}
	return nil
}

// SetFieldPath writes value at path, creating missing subdocuments along
// the way at globalVersion.
func (d *Document) SetFieldPath(path, value string, globalVersion uint64) error {
	parent, key, _, err := resolveParentAndKey(d, path, true, globalVersion)
	if err != nil {
		return err
	}
	return parent.SetField(key, value, globalVersion)
}

// GetField looks up the field at path as of version (or Latest). ok is
// false when the path or the field is absent; a deleted field is returned
// with Entry.Tombstone set.
func (d *Document) GetField(path string, version uint64) (Entry, bool, error) {
	parent, key, ok, err := resolveParentAndKey(d, path, false, 0)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	return parent.Field(key, version)
}

// DeletePath appends a Tombstone version to the key at path. Deleting
// something that doesn't exist succeeds without effect.
func (d *Document) DeletePath(path string, globalVersion uint64) error {
	parent, key, ok, err := resolveParentAndKey(d, path, false, 0)
	if err != nil || !ok {
		return err
	}
	return parent.tombstone(key, globalVersion)
}

// ListVersions returns the whole history of the field at path,
// newest-first.
func (d *Document) ListVersions(path string) ([]Entry, bool, error) {
	parent, key, ok, err := resolveParentAndKey(d, path, false, 0)
	if err != nil || !ok {
		return nil, false, err
	}
	return parent.fieldVersions(key)
}
