package verdoc

import (
	"bufio"
	"fmt"
	"os"
)

// SerializeDB writes root to filename, truncating any existing file. A
// failure can leave a partial file behind; callers wanting atomic
// replacement should write to a temporary name and rename it.
func SerializeDB(root *VersionNode, filename string) (err error) {
	if root == nil {
		return errNilRoot
	}
	f, err := os.Create(filename)
	if err != nil {
		return ioErrf(err, "create")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioErrf(cerr, "close %s", filename)
		}
	}()
	if err := Serialize(f, root); err != nil {
		return fmt.Errorf("serialize %s: %w", filename, err)
	}
	if err := f.Sync(); err != nil {
		return ioErrf(err, "sync %s", filename)
	}
	return nil
}

// DeserializeDB reads a tree written by SerializeDB.
func DeserializeDB(filename string) (*VersionNode, error) {
	return deserializeFile(filename, DefaultMaxFieldLen, DefaultBucketCount)
}

func deserializeFile(filename string, maxFieldLen uint64, bucketCount int) (*VersionNode, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, ioErrf(err, "open")
	}
	defer f.Close()
	root, err := deserialize(bufio.NewReader(f), maxFieldLen, bucketCount)
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", filename, err)
	}
	return root, nil
}
