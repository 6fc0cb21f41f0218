package verdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDBFile(t *testing.T) {
	t.Parallel()
	filename := filepath.Join(t.TempDir(), "db.bin")
	golden, root := goldenStream()
	defer root.Free()

	require.NoError(t, SerializeDB(root, filename))
	onDisk, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, golden, onDisk)

	decoded, err := DeserializeDB(filename)
	require.NoError(t, err)
	defer decoded.Free()
	assert.Equal(t, golden, serialized(t, decoded))
}

func TestSerializeDBErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, root := goldenStream()
	defer root.Free()

	assert.ErrorIs(t, SerializeDB(nil, filepath.Join(dir, "x")), errNilRoot)
	assert.ErrorIs(t, SerializeDB(root, filepath.Join(dir, "missing", "x")), ErrIO)

	_, err := DeserializeDB(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a database"), 0o644))
	decoded, err := DeserializeDB(garbage)
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, ErrFormat)
}
