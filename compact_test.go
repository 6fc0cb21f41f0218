package verdoc

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPaths never use a field name as a subdocument name.
var testPaths = []string{
	"x",
	"y",
	"users/alice/age",
	"users/alice/email",
	"users/bob/age",
	"cfg/mode",
}

type TestOperation struct {
	Path   int
	Value  string
	Delete bool
}

func genOperations() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflect.TypeOf(TestOperation{}), map[string]gopter.Gen{
		"Path":   gen.IntRange(0, len(testPaths)-1),
		"Value":  gen.AlphaString(),
		"Delete": gen.Bool(),
	}))
}

func applyOperations(t *testing.T, d *Document, ops []TestOperation) {
	for i, op := range ops {
		var err error
		if op.Delete {
			err = d.DeletePath(testPaths[op.Path], uint64(i+1))
		} else {
			err = d.SetFieldPath(testPaths[op.Path], op.Value, uint64(i+1))
		}
		require.NoError(t, err)
	}
}

func latestValues(t *testing.T, d *Document) map[string]Entry {
	out := map[string]Entry{}
	for _, path := range testPaths {
		e, ok, err := d.GetField(path, Latest)
		require.NoError(t, err)
		if ok {
			out[path] = e
		}
	}
	return out
}

func TestCompactionPreservesLatest(t *testing.T) {
	t.Parallel()
	properties := gopter.NewProperties(defaultGopterParameters)
	properties.Property("compaction changes no latest value and is idempotent", prop.ForAll(
		func(ops []TestOperation) bool {
			d := NewDocument()
			defer d.Free()
			applyOperations(t, d, ops)
			before := latestValues(t, d)

			root := NewVersionNode(d, 0, 0, nil, nil)
			if err := CompactRoot(root); err != nil {
				return false
			}
			after := latestValues(t, d)
			var once bytes.Buffer
			if err := Serialize(&once, root); err != nil {
				return false
			}
			if err := CompactRoot(root); err != nil {
				return false
			}
			var twice bytes.Buffer
			if err := Serialize(&twice, root); err != nil {
				return false
			}
			for _, path := range testPaths {
				versions, ok, err := d.ListVersions(path)
				if err != nil || ok && len(versions) != 1 {
					return false
				}
			}
			return assert.Equal(t, before, after) && bytes.Equal(once.Bytes(), twice.Bytes())
		},
		genOperations(),
	))
	properties.TestingRun(t)
}

func TestCompactRootChain(t *testing.T) {
	t.Parallel()
	older := NewDocument()
	require.NoError(t, older.SetField("k", "old", 1))
	newer := NewDocument()
	require.NoError(t, newer.SetField("k", "new", 2))
	require.NoError(t, newer.SetField("k", "newer", 3))
	root := NewVersionNode(newer, 3, 1, NewVersionNode(older, 1, 0, nil, freeDocument), freeDocument)

	require.NoError(t, CompactRoot(root))
	assert.Equal(t, 1, root.Len())
	_, _, err := older.Field("k", Latest)
	assert.ErrorIs(t, err, ErrLock, "discarded root version is freed")
	versions, _, err := newer.ListVersions("k")
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	assert.ErrorIs(t, CompactRoot(nil), errNilRoot)
}

func TestCompactPath(t *testing.T) {
	t.Parallel()
	d := NewDocument()
	for i, v := range []string{"1", "2", "3"} {
		require.NoError(t, d.SetFieldPath("a/b/c", v, uint64(i+1)))
		require.NoError(t, d.SetFieldPath("a/f", v, uint64(i+1)))
		require.NoError(t, d.SetFieldPath("z", v, uint64(i+1)))
	}
	require.NoError(t, d.DeletePath("a/b", 4))
	require.NoError(t, d.SetFieldPath("a/b/c", "4", 5))

	ok, err := d.Compact("a/b")
	require.NoError(t, err)
	require.True(t, ok)
	a, _, err := d.Subdocument("a", Latest)
	require.NoError(t, err)
	assert.Equal(t, 1, a.subdocuments.Chain("b").Len())
	versions, _, err := d.ListVersions("a/f")
	require.NoError(t, err)
	assert.Len(t, versions, 3, "siblings are untouched")

	ok, err = d.Compact("z")
	require.NoError(t, err)
	require.True(t, ok)
	versions, _, err = d.ListVersions("z")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{GlobalVersion: 3, LocalVersion: 2, Value: "3"}}, versions)

	ok, err = d.Compact("a/nope")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = d.Compact("nope/x")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = d.Compact("a//b")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestCompactFieldAndSubdocumentNamedAlike(t *testing.T) {
	t.Parallel()
	d := NewDocument()
	for i, v := range []string{"1", "2", "3"} {
		require.NoError(t, d.SetField("x", v, uint64(2*i+1)))
		require.NoError(t, d.SetFieldPath("x/y", v, uint64(2*i+2)))
	}

	ok, err := d.Compact("x")
	require.NoError(t, err)
	require.True(t, ok)
	versions, _, err := d.ListVersions("x")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{GlobalVersion: 5, LocalVersion: 2, Value: "3"}}, versions)
	versions, _, err = d.ListVersions("x/y")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{GlobalVersion: 6, LocalVersion: 2, Value: "3"}}, versions)
	assert.Equal(t, 1, d.subdocuments.Chain("x").Len())
}

func TestCompactJoinsErrors(t *testing.T) {
	t.Parallel()
	d := NewDocument()
	require.NoError(t, d.SetFieldPath("good/k", "v", 1))
	require.NoError(t, d.SetFieldPath("good/k", "w", 2))
	require.NoError(t, d.SetFieldPath("bad/k", "v", 1))
	bad, _, err := d.Subdocument("bad", Latest)
	require.NoError(t, err)
	bad.Free()

	_, err = d.Compact("")
	assert.ErrorIs(t, err, ErrLock)
	versions, _, err := d.ListVersions("good/k")
	require.NoError(t, err)
	assert.Len(t, versions, 1, "a failing sibling doesn't stop the rest")
}
