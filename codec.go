package verdoc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// FormatVersion is the only format_version this package reads and
	// writes.
	FormatVersion uint32 = 1
	// DefaultMaxFieldLen bounds any key or string value the decoder will
	// allocate.
	DefaultMaxFieldLen uint64 = 1 << 30

	magic = "DBV1"

	// strings longer than this are read incrementally
	stringChunk = 64 << 10

	tagTombstone   byte = 0
	tagString      byte = 1
	tagSubdocument byte = 2
)

// encoder writes the big-endian stream. The first error sticks and
// suppresses later writes.
type encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(b); err != nil {
		e.err = ioErrf(err, "write")
	}
}

func (e *encoder) uint64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:], v)
	e.write(e.buf[:8])
}

func (e *encoder) uint32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:], v)
	e.write(e.buf[:4])
}

func (e *encoder) string(s string) {
	e.uint64(uint64(len(s)))
	if e.err == nil && len(s) > 0 {
		if _, err := e.w.WriteString(s); err != nil {
			e.err = ioErrf(err, "write")
		}
	}
}

func (e *encoder) header() {
	e.write([]byte(magic))
	e.uint32(FormatVersion)
	e.uint32(0)
}

// chainSnapshot copies the node list so a chain can be encoded after its
// Document's lock is released.
func chainSnapshot(head *VersionNode) []*VersionNode {
	var nodes []*VersionNode
	for node := head; node != nil; node = node.Prev {
		nodes = append(nodes, node)
	}
	return nodes
}

type keyedChain struct {
	key   string
	nodes []*VersionNode
}

func snapshotMap(lock interface {
	RLock()
	RUnlock()
}, m **HashMap) ([]keyedChain, error) {
	lock.RLock()
	defer lock.RUnlock()
	if *m == nil {
		return nil, ErrLock
	}
	keys := (*m).Keys()
	out := make([]keyedChain, len(keys))
	for i, key := range keys {
		out[i] = keyedChain{key, chainSnapshot((*m).Chain(key))}
	}
	return out, nil
}

func (e *encoder) chain(nodes []*VersionNode, kind chainKind) error {
	e.uint64(uint64(len(nodes)))
	for _, node := range nodes {
		if err := e.node(node, kind); err != nil {
			return err
		}
	}
	return e.err
}

func (e *encoder) node(node *VersionNode, kind chainKind) error {
	e.uint64(node.GlobalVersion)
	e.uint64(node.LocalVersion)
	switch v := node.Value.(type) {
	case tombstone:
		e.write([]byte{tagTombstone})
		return e.err
	case string:
		if kind == fieldChain {
			e.write([]byte{tagString})
			e.string(v)
			return e.err
		}
	case *Document:
		if kind != fieldChain {
			e.write([]byte{tagSubdocument})
			return e.document(v)
		}
	}
	return fmt.Errorf("can't serialize version %d holding %T", node.LocalVersion, node.Value)
}

func (e *encoder) document(doc *Document) error {
	fields, err := snapshotMap(&doc.fieldsLock, &doc.fields)
	if err != nil {
		return err
	}
	subdocuments, err := snapshotMap(&doc.subdocsLock, &doc.subdocuments)
	if err != nil {
		return err
	}
	for _, section := range []struct {
		chains []keyedChain
		kind   chainKind
	}{
		{fields, fieldChain},
		{subdocuments, subdocumentChain},
	} {
		e.uint64(uint64(len(section.chains)))
		for _, kc := range section.chains {
			e.string(kc.key)
			if err := e.chain(kc.nodes, section.kind); err != nil {
				return fmt.Errorf("%q: %w", kc.key, err)
			}
		}
	}
	return e.err
}

// Serialize writes the header and the root chain, newest version first,
// recursing into every Document. Keys are written in sorted order, so
// equal trees produce equal bytes.
func Serialize(w io.Writer, root *VersionNode) error {
	if root == nil {
		return errNilRoot
	}
	e := encoder{w: bufio.NewWriter(w)}
	e.header()
	if err := e.chain(chainSnapshot(root), rootChain); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return ioErrf(err, "flush")
	}
	return nil
}

type chainKind int

const (
	rootChain chainKind = iota
	fieldChain
	subdocumentChain
)

// decoder reads the big-endian stream, tracking the offset for errors.
type decoder struct {
	r           io.Reader
	off         int64
	maxFieldLen uint64
	bucketCount int
	buf         [8]byte
}

func (d *decoder) read(b []byte, what string) error {
	n, err := io.ReadFull(d.r, b)
	d.off += int64(n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return formatErrf(d.off, io.ErrUnexpectedEOF, "truncated %s", what)
	}
	return ioErrf(err, "read %s at offset %d", what, d.off)
}

func (d *decoder) uint64(what string) (uint64, error) {
	if err := d.read(d.buf[:8], what); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.buf[:8]), nil
}

func (d *decoder) uint32(what string) (uint32, error) {
	if err := d.read(d.buf[:4], what); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[:4]), nil
}

func (d *decoder) byte(what string) (byte, error) {
	if err := d.read(d.buf[:1], what); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *decoder) string(what string) (string, error) {
	n, err := d.uint64(what + " length")
	if err != nil {
		return "", err
	}
	if n > d.maxFieldLen {
		return "", formatErrf(d.off, ErrAllocation, "%s length %d exceeds %d", what, n, d.maxFieldLen)
	}
	if n == 0 {
		return "", nil
	}
	if n <= stringChunk {
		b := make([]byte, n)
		if err := d.read(b, what); err != nil {
			return "", err
		}
		return string(b), nil
	}
	if n > math.MaxInt64 {
		return "", formatErrf(d.off, ErrAllocation, "%s length %d exceeds %d", what, n, int64(math.MaxInt64))
	}
	// memory grows with the bytes present, not the declared length
	var b bytes.Buffer
	copied, err := io.CopyN(&b, d.r, int64(n))
	d.off += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", formatErrf(d.off, io.ErrUnexpectedEOF, "truncated %s", what)
		}
		return "", ioErrf(err, "read %s at offset %d", what, d.off)
	}
	return b.String(), nil
}

func (d *decoder) header() error {
	var m [4]byte
	if err := d.read(m[:], "magic"); err != nil {
		return err
	}
	if string(m[:]) != magic {
		return formatErrf(0, nil, "bad magic %q", m[:])
	}
	version, err := d.uint32("format version")
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return formatErrf(4, nil, "unsupported format version %d", version)
	}
	_, err = d.uint32("reserved")
	return err
}

// chain reads a version count and that many records. The first record
// becomes the head and each later one the Prev of the one before. On
// failure everything decoded so far is freed.
func (d *decoder) chain(kind chainKind) (*VersionNode, error) {
	count, err := d.uint64("version count")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, formatErrf(d.off, nil, "empty version chain")
	}
	var head, tail *VersionNode
	for i := uint64(0); i < count; i++ {
		node, err := d.node(kind)
		if err != nil {
			head.Free()
			return nil, err
		}
		if tail != nil && node.LocalVersion >= tail.LocalVersion {
			node.Free()
			head.Free()
			return nil, formatErrf(d.off, nil, "local version %d not older than %d", node.LocalVersion, tail.LocalVersion)
		}
		if head == nil {
			head = node
		} else {
			tail.Prev = node
		}
		tail = node
	}
	return head, nil
}

func (d *decoder) node(kind chainKind) (*VersionNode, error) {
	globalVersion, err := d.uint64("global version")
	if err != nil {
		return nil, err
	}
	localVersion, err := d.uint64("local version")
	if err != nil {
		return nil, err
	}
	tag, err := d.byte("type tag")
	if err != nil {
		return nil, err
	}
	switch {
	case tag == tagTombstone:
		return NewVersionNode(Tombstone, globalVersion, localVersion, nil, nil), nil
	case tag == tagString && kind == fieldChain:
		s, err := d.string("value")
		if err != nil {
			return nil, err
		}
		return NewVersionNode(s, globalVersion, localVersion, nil, nil), nil
	case tag == tagSubdocument && kind != fieldChain:
		doc, err := d.document()
		if err != nil {
			return nil, err
		}
		return NewVersionNode(doc, globalVersion, localVersion, nil, freeDocument), nil
	}
	return nil, formatErrf(d.off-1, nil, "unexpected type tag %d", tag)
}

// document rebuilds a Document record, freeing it on failure.
func (d *decoder) document() (*Document, error) {
	doc := NewDocumentSized(d.bucketCount)
	for _, section := range []struct {
		m    *HashMap
		kind chainKind
		name string
	}{
		{doc.fields, fieldChain, "field"},
		{doc.subdocuments, subdocumentChain, "subdocument"},
	} {
		count, err := d.uint64(section.name + " count")
		if err != nil {
			doc.Free()
			return nil, err
		}
		for i := uint64(0); i < count; i++ {
			key, err := d.string(section.name + " key")
			if err != nil {
				doc.Free()
				return nil, err
			}
			if err := validKey(key); err != nil {
				doc.Free()
				return nil, formatErrf(d.off, err, "bad %s key", section.name)
			}
			head, err := d.chain(section.kind)
			if err != nil {
				doc.Free()
				return nil, fmt.Errorf("%s %q: %w", section.name, key, err)
			}
			if !section.m.setChain(key, head) {
				head.Free()
				doc.Free()
				return nil, formatErrf(d.off, nil, "duplicate %s key %q", section.name, key)
			}
		}
	}
	return doc, nil
}

// Deserialize reads a stream written by Serialize. Any failure frees the
// partially built tree and returns a nil root. Errors match ErrFormat,
// ErrIO or ErrAllocation.
func Deserialize(r io.Reader) (*VersionNode, error) {
	return DeserializeWithLimit(r, DefaultMaxFieldLen)
}

// DeserializeWithLimit is Deserialize with a custom upper bound on key
// and value lengths.
func DeserializeWithLimit(r io.Reader, maxFieldLen uint64) (*VersionNode, error) {
	return deserialize(r, maxFieldLen, DefaultBucketCount)
}

func deserialize(r io.Reader, maxFieldLen uint64, bucketCount int) (*VersionNode, error) {
	if maxFieldLen == 0 {
		maxFieldLen = DefaultMaxFieldLen
	}
	d := decoder{r: r, maxFieldLen: maxFieldLen, bucketCount: bucketCount}
	if err := d.header(); err != nil {
		return nil, err
	}
	root, err := d.chain(rootChain)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	return root, nil
}
