package verdoc

import (
	"fmt"
	"strings"
)

const pathSeparator = "/"

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	tokens := strings.Split(path, pathSeparator)
	for i, token := range tokens {
		if token == "" {
			return nil, fmt.Errorf("%w: empty segment %d in %q", ErrInvalidPath, i, path)
		}
	}
	return tokens, nil
}

// resolveParentAndKey walks every token of path but the last through
// subdocuments, starting at root, and returns the Document holding the
// leaf along with the leaf's name. Missing subdocuments are created at
// globalVersion if createMissing, otherwise ok is false. Only one
// Document is locked at a time.
func resolveParentAndKey(root *Document, path string, createMissing bool, globalVersion uint64) (parent *Document, key string, ok bool, err error) {
	tokens, err := splitPath(path)
	if err != nil {
		return nil, "", false, err
	}
	current := root
	for _, token := range tokens[:len(tokens)-1] {
		var child *Document
		child, ok, err = current.child(token, createMissing, globalVersion)
		if err != nil {
			return nil, "", false, fmt.Errorf("resolve %q at %q: %w", path, token, err)
		}
		if !ok {
			return nil, "", false, nil
		}
		current = child
	}
	return current, tokens[len(tokens)-1], true, nil
}
