// Package classfile decodes class files into an indented text dump,
// including a disassembly of every Code attribute.
//
// A Decoder is driven through a fixed sequence of calls:
//
//	d := classfile.NewDecoder(buf, os.Stdout)
//	err := d.ParseHeader()
//	err = d.ParseConstantPool()
//	err = d.ParseAccessFlags()
//	err = d.ParseFields()
//	err = d.ParseMethods()
//	err = d.ParseAttributes()
//
// Decode runs the whole sequence.
package classfile

import (
	"fmt"
	"io"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/format"
	"github.com/dhamidi/bcdump/names"
	"github.com/tliron/commonlog"
)

type Decoder struct {
	cur   *bytecursor.Cursor
	out   *format.Printer
	names names.Table
	log   commonlog.Logger

	indentWidth int
	skipUnknown bool

	pool     []int
	rendered int
	header   Header
}

type Option func(*Decoder)

// WithNames replaces the built-in name tables.
func WithNames(t names.Table) Option {
	return func(d *Decoder) {
		d.names = t
	}
}

func WithIndentWidth(n int) Option {
	return func(d *Decoder) {
		d.indentWidth = n
	}
}

// WithSkipUnknownAttributes makes unrecognized attributes skip their
// payload by declared length instead of failing the decode.
func WithSkipUnknownAttributes(skip bool) Option {
	return func(d *Decoder) {
		d.skipUnknown = skip
	}
}

func WithLogger(l commonlog.Logger) Option {
	return func(d *Decoder) {
		d.log = l
	}
}

func NewDecoder(buf []byte, w io.Writer, opts ...Option) *Decoder {
	d := &Decoder{
		cur:         bytecursor.New(buf),
		names:       names.Default,
		indentWidth: format.DefaultIndentWidth,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = commonlog.GetLogger("bcdump.classfile")
	}
	d.out = format.NewPrinter(w, d.indentWidth)
	return d
}

// Decode runs every parse step in order and stops at the first failure.
func (d *Decoder) Decode() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"header", d.ParseHeader},
		{"constant pool", d.ParseConstantPool},
		{"class info", d.ParseAccessFlags},
		{"fields", d.ParseFields},
		{"methods", d.ParseMethods},
		{"attributes", d.ParseAttributes},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to read %s: %w", step.name, err)
		}
	}
	return nil
}

// Header returns what the parse steps have decoded so far.
func (d *Decoder) Header() Header {
	return d.header
}

// check returns the cursor error, then the output error.
func (d *Decoder) check() error {
	if err := d.cur.Err(); err != nil {
		return err
	}
	return d.out.Err()
}

func (d *Decoder) ParseHeader() error {
	magic := d.cur.U4()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.out.Line(0, "magic = 0x%x", magic)
	if magic != Magic {
		return bytecursor.Errorf(bytecursor.NotAClassFile, 0, "magic 0x%x, expected 0x%x", magic, uint32(Magic))
	}
	minor := d.cur.U2()
	major := d.cur.U2()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.out.Line(0, "version %d.%d", major, minor)
	d.header.Magic = magic
	d.header.MajorVersion = major
	d.header.MinorVersion = minor
	return d.check()
}

func (d *Decoder) ParseAccessFlags() error {
	flags := AccessFlags(d.cur.U2())
	thisClass := d.cur.U2()
	superClass := d.cur.U2()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.header.AccessFlags = flags
	d.header.Flags = d.names.FlagNames(names.ClassAccess, uint32(flags))
	d.out.Line(0, "access_flags: 0x%x, %s", uint16(flags), names.Flags(d.names, names.ClassAccess, uint32(flags)))

	name, err := d.ResolveClassName(thisClass)
	if err != nil {
		return fmt.Errorf("this_class: %w", err)
	}
	d.header.ThisClass = name
	d.out.Line(0, "this_class: %d <%s>", thisClass, name)

	if superClass == 0 {
		d.out.Line(0, "super_class: 0 <none>")
	} else {
		name, err := d.ResolveClassName(superClass)
		if err != nil {
			return fmt.Errorf("super_class: %w", err)
		}
		d.header.SuperClass = name
		d.out.Line(0, "super_class: %d <%s>", superClass, name)
	}

	count := d.cur.U2()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.out.Line(0, "interface_count: %d", count)
	for i := 0; i < int(count); i++ {
		idx := d.cur.U2()
		if err := d.cur.Err(); err != nil {
			return err
		}
		name, err := d.ResolveClassName(idx)
		if err != nil {
			return fmt.Errorf("interface %d: %w", i, err)
		}
		d.header.Interfaces = append(d.header.Interfaces, name)
		d.out.Line(0, "interface #%d: index %d <%s>", i, idx, name)
	}
	return d.check()
}

func (d *Decoder) ParseAttributes() error {
	return d.parseAttributeArray(0, d.cur)
}
