package verdoc

import (
	"errors"
	"fmt"
)

// CompactRoot collapses the root chain to its head and then every chain
// in the tree below it. The latest value of every key is preserved; older
// history can't be recovered afterwards. Compacting twice is the same as
// compacting once.
func CompactRoot(root *VersionNode) error {
	if root == nil {
		return errNilRoot
	}
	return compactNode(root)
}

func compactNode(node *VersionNode) error {
	node.Compact()
	if doc, ok := node.Value.(*Document); ok {
		return compactDocument(doc)
	}
	return nil
}

// compactDocument compacts doc's chains under its own locks, then recurses
// into the children with those locks released. A failing subtree doesn't
// stop its siblings.
func compactDocument(doc *Document) error {
	doc.fieldsLock.Lock()
	if doc.fields == nil {
		doc.fieldsLock.Unlock()
		return ErrLock
	}
	doc.fields.each(func(_ string, head *VersionNode) {
		head.Compact()
	})
	doc.fieldsLock.Unlock()

	var children []*Document
	doc.subdocsLock.Lock()
	if doc.subdocuments == nil {
		doc.subdocsLock.Unlock()
		return ErrLock
	}
	doc.subdocuments.each(func(_ string, head *VersionNode) {
		head.Compact()
		if child, ok := head.Value.(*Document); ok {
			children = append(children, child)
		}
	})
	doc.subdocsLock.Unlock()

	var errs []error
	for _, child := range children {
		if err := compactDocument(child); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compact compacts part of d. The empty path compacts all of d. Otherwise
// path names a field, whose chain is compacted, or a subdocument, whose
// chain and subtree are compacted. When a field and a subdocument share
// the name both are compacted. ok is false if path names neither.
func (d *Document) Compact(path string) (bool, error) {
	if path == "" {
		return true, compactDocument(d)
	}
	parent, key, ok, err := resolveParentAndKey(d, path, false, 0)
	if err != nil || !ok {
		return false, err
	}

	parent.fieldsLock.Lock()
	if parent.fields == nil {
		parent.fieldsLock.Unlock()
		return false, ErrLock
	}
	field := parent.fields.Chain(key)
	field.Compact()
	parent.fieldsLock.Unlock()

	parent.subdocsLock.Lock()
	if parent.subdocuments == nil {
		parent.subdocsLock.Unlock()
		return false, ErrLock
	}
	sub := parent.subdocuments.Chain(key)
	sub.Compact()
	parent.subdocsLock.Unlock()

	if sub != nil {
		if child, ok := sub.Value.(*Document); ok {
			if err := compactDocument(child); err != nil {
				return true, fmt.Errorf("compact %q: %w", path, err)
			}
		}
	}
	return field != nil || sub != nil, nil
}
