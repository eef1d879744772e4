package scad

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/threedframe/pkg/kernel"
)

// ScriptExt returns ".scad".
func (k *ScadKernel) ScriptExt() string { return ".scad" }

// WriteScript writes s as an OpenSCAD program.
func (k *ScadKernel) WriteScript(w io.Writer, s kernel.Solid) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "// threedframe\n$fn = %d;\n\n", k.segments)
	writeNode(bw, unwrap(s).n, 0)
	return bw.Flush()
}

func writeNode(w *bufio.Writer, n *node, depth int) {
	indent := strings.Repeat("    ", depth)
	if len(n.children) == 0 {
		fmt.Fprintf(w, "%s%s\n", indent, n.op)
		return
	}
	fmt.Fprintf(w, "%s%s {\n", indent, n.op)
	for _, c := range n.children {
		writeNode(w, c, depth+1)
	}
	fmt.Fprintf(w, "%s}\n", indent)
}
