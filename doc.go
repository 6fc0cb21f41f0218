/*
Package verdoc provides an embeddable, versioned, path-addressable
document store. Every write is kept as an immutable version in an
append-only chain, so reads can travel back to any earlier version of a
key.

Model

A Document holds two maps: fields, whose values are strings, and
subdocuments, whose values are nested Documents. Both maps store, for
every key, the head of a VersionNode chain. The head is the newest
version; Prev links lead to strictly older versions. Writing a key never
mutates a chain, it pushes a new head whose LocalVersion is one more
than the old head's. Deleting a key pushes a Tombstone, so history up to
the deletion stays readable.

Fields are addressed by slash-delimited paths such as "users/alice/age".
All tokens but the last name subdocuments; writes create missing
subdocuments on the way down.

Every mutating call takes a global version, a caller-supplied counter
identifying the write transaction. DB wraps a root chain and allocates
global versions itself.

Concurrency

Each Document guards its own maps with reader-writer locks. Path
operations lock one Document at a time and release it before descending,
so writers in unrelated subtrees never contend. A multi-hop read is not
a snapshot of the whole tree; only operations on a single Document are
atomic.

Compaction

Compaction collapses every chain in a subtree to its head. The latest
value of each key is preserved and all older history is released.

Persistence

The on-disk format starts with the magic "DBV1", a format version and a
reserved word, followed by the root chain; all integers are big-endian.
SerializeDB and DeserializeDB move a tree to and from a file. Checkpoints
store whole serialized trees, optionally zstd-compressed, in any Persist
under the blake2b hash of their contents, much like content-addressed
nodes in a Merkle structure.
*/
package verdoc
