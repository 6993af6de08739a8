package main

import (
	"bufio"
	"fmt"
	"io"

	"dev.acmcsuf.com/pixeld"
)

// terminal draws frames on a single line using truecolor escapes. When the
// output is not a terminal every frame goes on its own line as hex colors.
type terminal struct {
	w     *bufio.Writer
	ansi  bool
	drawn bool
}

func newTerminal(w io.Writer, ansi bool) *terminal {
	return &terminal{
		w:    bufio.NewWriter(w),
		ansi: ansi,
	}
}

// Render draws f, replacing the previous frame.
func (t *terminal) Render(f pixeld.Frame) {
	if !t.ansi {
		fmt.Fprintf(t.w, "%d %s", f.Seq, f.Pattern)
		for _, c := range f.Colors() {
			fmt.Fprintf(t.w, " %s", c)
		}
		t.w.WriteByte('\n')
		t.w.Flush()
		return
	}

	t.w.WriteString("\r\x1b[2K")
	for _, c := range f.Colors() {
		fmt.Fprintf(t.w, "\x1b[48;2;%d;%d;%dm  ", c.R, c.G, c.B)
	}
	fmt.Fprintf(t.w, "\x1b[0m #%d step %3d offset %3d %s", f.Seq, f.Step, f.Offset, f.Pattern)
	t.w.Flush()
	t.drawn = true
}

// Done moves past the last drawn frame.
func (t *terminal) Done() {
	if t.drawn {
		t.w.WriteString("\x1b[0m\n")
		t.w.Flush()
	}
}
