package compute

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"loom/internal/value"
)

// DebugDump writes a human-readable rendering of v. Constant data prints as
// a right-aligned grid, one row per innermost slice; anything else prints
// its data kind only.
func (c *Context) DebugDump(w io.Writer, tag string, v value.Value) {
	fmt.Fprintf(w, "%s: %s %s\n", tag, v.Type(), v.Layout())
	if !v.IsDefined() {
		fmt.Fprintln(w, "  <undefined>")
		return
	}
	buf, off := v.Constant()
	if buf == nil {
		fmt.Fprintf(w, "  <%s>\n", v.Data().Kind)
		return
	}
	layout := v.Layout()
	cells := make([]string, 0, layout.NumElements())
	width := 0
	it := layout.Coordinates()
	for coords, ok := it.Next(); ok; coords, ok = it.Next() {
		o, err := layout.LogicalEntryOffset(coords)
		if err != nil {
			fmt.Fprintf(w, "  <layout error: %v>\n", err)
			return
		}
		cell := buf.FormatAt(off + o)
		if cw := runewidth.StringWidth(cell); cw > width {
			width = cw
		}
		cells = append(cells, cell)
	}
	rowLen := 1
	if sizes := layout.ActiveSize(); len(sizes) > 0 {
		rowLen = sizes[len(sizes)-1]
	}
	if rowLen <= 0 {
		rowLen = 1
	}
	for i := 0; i < len(cells); i += rowLen {
		end := i + rowLen
		if end > len(cells) {
			end = len(cells)
		}
		row := make([]string, 0, rowLen)
		for _, cell := range cells[i:end] {
			row = append(row, runewidth.FillLeft(cell, width))
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(row, " "))
	}
}
