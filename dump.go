package verdoc

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of every version in the tree below
// root, for debugging.
func Dump(w io.Writer, root *VersionNode) error {
	var b strings.Builder
	b.WriteString("Database:\n")
	for node := root; node != nil; node = node.Prev {
		fmt.Fprintf(&b, "  root v%d (g%d):\n", node.LocalVersion, node.GlobalVersion)
		if doc, ok := node.Value.(*Document); ok {
			if err := dumpDocument(&b, doc, 2); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(&b, "    %v\n", node.Value)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func dumpDocument(b *strings.Builder, doc *Document, depth int) error {
	indent := strings.Repeat("  ", depth)
	fields, err := snapshotMap(&doc.fieldsLock, &doc.fields)
	if err != nil {
		return err
	}
	for _, kc := range fields {
		fmt.Fprintf(b, "%s%s:", indent, kc.key)
		for i, node := range kc.nodes {
			if i > 0 {
				b.WriteString(" ->")
			}
			if isTombstone(node.Value) {
				fmt.Fprintf(b, " v%d %v", node.LocalVersion, node.Value)
			} else {
				fmt.Fprintf(b, " v%d %q", node.LocalVersion, node.Value)
			}
		}
		b.WriteByte('\n')
	}
	subdocuments, err := snapshotMap(&doc.subdocsLock, &doc.subdocuments)
	if err != nil {
		return err
	}
	for _, kc := range subdocuments {
		for _, node := range kc.nodes {
			child, ok := node.Value.(*Document)
			if !ok {
				fmt.Fprintf(b, "%s%s/ v%d %v\n", indent, kc.key, node.LocalVersion, node.Value)
				continue
			}
			fmt.Fprintf(b, "%s%s/ v%d\n", indent, kc.key, node.LocalVersion)
			if err := dumpDocument(b, child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
