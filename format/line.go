package format

import (
	"fmt"
	"io"
	"strings"
)

const DefaultIndentWidth = 2

// Printer writes one indented record per line. The first write error is
// kept and every later Line call becomes a no-op.
type Printer struct {
	w     io.Writer
	width int
	err   error
}

func NewPrinter(w io.Writer, width int) *Printer {
	if width <= 0 {
		width = DefaultIndentWidth
	}
	return &Printer{w: w, width: width}
}

func (p *Printer) Line(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	var sb strings.Builder
	if indent > 0 {
		sb.WriteString(strings.Repeat(" ", indent*p.width))
	}
	fmt.Fprintf(&sb, format, args...)
	sb.WriteByte('\n')
	_, p.err = io.WriteString(p.w, sb.String())
}

func (p *Printer) Err() error {
	return p.err
}
