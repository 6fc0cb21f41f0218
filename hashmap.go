package verdoc

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultBucketCount is how many buckets a new HashMap starts with.
	DefaultBucketCount = 16
	maxLoadFactor      = 0.75
)

// HashMap maps string keys to version chains using separate chaining. It
// is not synchronized; the owning Document guards it.
type HashMap struct {
	buckets []*mapEntry
	size    int
	hash    func(string) uint64
}

type mapEntry struct {
	key  string
	head *VersionNode
	next *mapEntry
}

// NewHashMap returns an empty map with the given number of buckets, or
// DefaultBucketCount if bucketCount isn't positive.
func NewHashMap(bucketCount int) *HashMap {
	if bucketCount <= 0 {
		bucketCount = DefaultBucketCount
	}
	return &HashMap{
		buckets: make([]*mapEntry, bucketCount),
		hash:    xxhash.Sum64String,
	}
}

// Len returns the number of keys.
func (m *HashMap) Len() int {
	return m.size
}

// BucketCount returns the current number of buckets.
func (m *HashMap) BucketCount() int {
	return len(m.buckets)
}

func (m *HashMap) index(key string, bucketCount int) int {
	return int(m.hash(key) % uint64(bucketCount))
}

func (m *HashMap) find(key string) *mapEntry {
	for e := m.buckets[m.index(key, len(m.buckets))]; e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

func (m *HashMap) growIfNeeded() {
	if float64(m.size+1)/float64(len(m.buckets)) > maxLoadFactor {
		m.rehash(len(m.buckets) * 2)
	}
}

// rehash relinks the existing entries into bucketCount buckets. Chains are
// left untouched.
func (m *HashMap) rehash(bucketCount int) {
	buckets := make([]*mapEntry, bucketCount)
	for _, e := range m.buckets {
		for e != nil {
			next := e.next
			i := m.index(e.key, bucketCount)
			e.next = buckets[i]
			buckets[i] = e
			e = next
		}
	}
	m.buckets = buckets
}

// Put pushes a new version of key and returns it. An existing chain gets a
// head with the next LocalVersion; a new key starts at LocalVersion 0.
func (m *HashMap) Put(key string, value interface{}, globalVersion uint64, destructor func(interface{})) *VersionNode {
	if e := m.find(key); e != nil {
		e.head = NewVersionNode(value, globalVersion, e.head.LocalVersion+1, e.head, destructor)
		return e.head
	}
	m.growIfNeeded()
	head := NewVersionNode(value, globalVersion, 0, nil, destructor)
	m.link(key, head)
	return head
}

func (m *HashMap) link(key string, head *VersionNode) {
	i := m.index(key, len(m.buckets))
	m.buckets[i] = &mapEntry{key: key, head: head, next: m.buckets[i]}
	m.size++
}

// setChain installs an already-built chain under a key that must not be
// present yet.
func (m *HashMap) setChain(key string, head *VersionNode) bool {
	if head == nil || m.find(key) != nil {
		return false
	}
	m.growIfNeeded()
	m.link(key, head)
	return true
}

// Get looks up key as of localVersion (or Latest).
func (m *HashMap) Get(key string, localVersion uint64) (interface{}, bool) {
	return m.Chain(key).Get(localVersion)
}

// Chain returns the head of key's chain, or nil.
func (m *HashMap) Chain(key string) *VersionNode {
	if e := m.find(key); e != nil {
		return e.head
	}
	return nil
}

// Keys returns every key in sorted order.
func (m *HashMap) Keys() []string {
	keys := make([]string, 0, m.size)
	for _, e := range m.buckets {
		for ; e != nil; e = e.next {
			keys = append(keys, e.key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *HashMap) each(f func(key string, head *VersionNode)) {
	for _, e := range m.buckets {
		for ; e != nil; e = e.next {
			f(e.key, e.head)
		}
	}
}

// Free releases every chain and empties the map.
func (m *HashMap) Free() {
	m.each(func(_ string, head *VersionNode) {
		head.Free()
	})
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.size = 0
}
