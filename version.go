package verdoc

import (
	"fmt"
	"math"
)

// Latest selects the most recently written version of a key.
const Latest uint64 = math.MaxUint64

type tombstone struct{}

func (tombstone) String() string { return "<deleted>" }

// Tombstone is the value of a version that deletes its key. It is distinct
// from every real value and from an absent key.
var Tombstone interface{} = tombstone{}

// VersionNode is one immutable version of one key. Walking Prev from the
// head of a chain yields strictly decreasing LocalVersion; the head is
// always the most recent write.
type VersionNode struct {
	// Value is a string, a *Document, or Tombstone.
	Value         interface{}
	GlobalVersion uint64
	LocalVersion  uint64
	Prev          *VersionNode
	destructor    func(interface{})
}

// Entry is one version of a field as returned by lookups.
type Entry struct {
	GlobalVersion uint64
	LocalVersion  uint64
	Value         string
	Tombstone     bool
}

func (e Entry) String() string {
	if e.Tombstone {
		return fmt.Sprintf("v%d: %v", e.LocalVersion, Tombstone)
	}
	return fmt.Sprintf("v%d: %s", e.LocalVersion, e.Value)
}

// NewVersionNode creates a version that takes ownership of value. The
// destructor, if given, is called once with value when the node is freed.
func NewVersionNode(value interface{}, globalVersion, localVersion uint64, prev *VersionNode, destructor func(interface{})) *VersionNode {
	return &VersionNode{
		Value:         value,
		GlobalVersion: globalVersion,
		LocalVersion:  localVersion,
		Prev:          prev,
		destructor:    destructor,
	}
}

// find returns the node visible as of localVersion: the newest node whose
// LocalVersion doesn't exceed it.
func (n *VersionNode) find(localVersion uint64) *VersionNode {
	if n == nil || localVersion == Latest {
		return n
	}
	for node := n; node != nil; node = node.Prev {
		if node.LocalVersion <= localVersion {
			return node
		}
	}
	return nil
}

// Get returns the value visible as of localVersion, or the head's value for
// Latest. ok is false if no version qualifies. A Tombstone value is
// returned with ok true.
func (n *VersionNode) Get(localVersion uint64) (value interface{}, ok bool) {
	node := n.find(localVersion)
	if node == nil {
		return nil, false
	}
	return node.Value, true
}

// Len returns the number of versions in the chain.
func (n *VersionNode) Len() int {
	count := 0
	for node := n; node != nil; node = node.Prev {
		count++
	}
	return count
}

// Versions lists the chain newest-first.
func (n *VersionNode) Versions() []Entry {
	var out []Entry
	for node := n; node != nil; node = node.Prev {
		out = append(out, node.entry())
	}
	return out
}

func (n *VersionNode) entry() Entry {
	e := Entry{GlobalVersion: n.GlobalVersion, LocalVersion: n.LocalVersion}
	switch v := n.Value.(type) {
	case string:
		e.Value = v
	case tombstone:
		e.Tombstone = true
	}
	return e
}

func (n *VersionNode) release() {
	if n.destructor != nil && n.Value != nil && !isTombstone(n.Value) {
		n.destructor(n.Value)
	}
	n.destructor = nil
}

// Free releases every node reachable from n, calling each destructor once.
func (n *VersionNode) Free() {
	for node := n; node != nil; {
		prev := node.Prev
		node.release()
		node.Prev = nil
		node = prev
	}
}

// Compact releases all history behind n. Get(Latest) is unchanged; lookups
// of versions older than n.LocalVersion report absent afterwards.
func (n *VersionNode) Compact() {
	if n == nil || n.Prev == nil {
		return
	}
	old := n.Prev
	n.Prev = nil
	// an older version may still refer to the live document
	for node := old; node != nil; node = node.Prev {
		if sameDocument(node.Value, n.Value) {
			node.destructor = nil
		}
	}
	old.Free()
}

func isTombstone(v interface{}) bool {
	_, ok := v.(tombstone)
	return ok
}

func sameDocument(a, b interface{}) bool {
	da, ok := a.(*Document)
	if !ok {
		return false
	}
	db, ok := b.(*Document)
	return ok && da == db
}
