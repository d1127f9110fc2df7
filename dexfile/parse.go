// Package dexfile decodes dex files into an indented text dump: the
// header, the five id tables and every class definition with its
// annotations, class data, static values and disassembled code.
//
// Like the class file decoder, a Decoder is driven through a fixed
// sequence of calls, and Decode runs all of them:
//
//	d := dexfile.NewDecoder(buf, os.Stdout)
//	err := d.ParseHeader()
//	err = d.PrintStringIDs()
//	err = d.PrintTypeIDs()
//	err = d.PrintProtoIDs()
//	err = d.PrintFieldIDs()
//	err = d.PrintMethodIDs()
//	err = d.PrintClassDefs()
package dexfile

import (
	"encoding/hex"
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

	header Header
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
		d.log = commonlog.GetLogger("bcdump.dexfile")
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
		{"string ids", d.PrintStringIDs},
		{"type ids", d.PrintTypeIDs},
		{"proto ids", d.PrintProtoIDs},
		{"field ids", d.PrintFieldIDs},
		{"method ids", d.PrintMethodIDs},
		{"class defs", d.PrintClassDefs},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to read %s: %w", step.name, err)
		}
	}
	return nil
}

func (d *Decoder) Header() Header {
	return d.header
}

// validMagic reports whether b is "dex\n", three version digits and NUL.
func validMagic(b []byte) bool {
	if len(b) != 8 || string(b[:4]) != "dex\n" || b[7] != 0 {
		return false
	}
	for _, c := range b[4:7] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (d *Decoder) ParseHeader() error {
	c := d.cur
	magic := c.Bytes(8)
	if err := c.Err(); err != nil {
		return bytecursor.Errorf(bytecursor.NotADexFile, 0, "file too short for a dex header")
	}
	if !validMagic(magic) {
		return bytecursor.Errorf(bytecursor.NotADexFile, 0, "magic %q", magic)
	}
	h := &d.header
	h.Version = string(magic[4:7])
	d.out.Line(0, "magic: dex %s", h.Version)

	h.Checksum = c.U4LE()
	h.Signature = hex.EncodeToString(c.Bytes(20))
	h.FileSize = c.U4LE()
	h.HeaderSize = c.U4LE()
	h.EndianTag = c.U4LE()
	h.Link = Section{Size: c.U4LE(), Off: c.U4LE()}
	h.MapOff = c.U4LE()
	sections := []*Section{&h.StringIDs, &h.TypeIDs, &h.ProtoIDs, &h.FieldIDs, &h.MethodIDs, &h.ClassDefs, &h.Data}
	for _, s := range sections {
		s.Size = c.U4LE()
		s.Off = c.U4LE()
	}
	if err := c.Err(); err != nil {
		return err
	}

	switch h.EndianTag {
	case endianConstant:
	case reverseEndianConstant:
		return bytecursor.Errorf(bytecursor.NotADexFile, 40, "big-endian dex files are not supported")
	default:
		return bytecursor.Errorf(bytecursor.NotADexFile, 40, "endian_tag 0x%x", h.EndianTag)
	}
	if h.HeaderSize != headerItemSize {
		d.log.Warningf("unexpected header_size 0x%x", h.HeaderSize)
	}
	if int(h.FileSize) != len(c.Buffer()) {
		d.log.Warningf("file_size 0x%x does not match buffer size 0x%x", h.FileSize, len(c.Buffer()))
	}

	d.out.Line(0, "checksum: 0x%x", h.Checksum)
	d.out.Line(0, "signature: %s", h.Signature)
	d.out.Line(0, "file_size: 0x%x", h.FileSize)
	d.out.Line(0, "header_size: 0x%x", h.HeaderSize)
	d.out.Line(0, "endian_tag: 0x%x", h.EndianTag)
	d.out.Line(0, "link_size: 0x%x, link_off: 0x%x", h.Link.Size, h.Link.Off)
	d.out.Line(0, "map_off: 0x%x", h.MapOff)
	d.printSection("string_ids", h.StringIDs, stringIDSize)
	d.printSection("type_ids", h.TypeIDs, typeIDSize)
	d.printSection("proto_ids", h.ProtoIDs, protoIDSize)
	d.printSection("field_ids", h.FieldIDs, fieldIDSize)
	d.printSection("method_ids", h.MethodIDs, methodIDSize)
	d.printSection("class_defs", h.ClassDefs, classDefSize)
	d.out.Line(0, "data: [0x%x-0x%x]", h.Data.Off, h.Data.end(1))
	return d.out.Err()
}

func (d *Decoder) printSection(name string, s Section, rowSize uint32) {
	d.out.Line(0, "%s: [0x%x-0x%x] size %d", name, s.Off, s.end(rowSize), s.Size)
}

// row returns a cursor at row i of table s.
func (d *Decoder) row(what string, s Section, rowSize, i uint32) (*bytecursor.Cursor, error) {
	if i >= s.Size {
		return nil, bytecursor.Errorf(bytecursor.IndexOutOfRange, -1, "%s index %d, table size %d", what, i, s.Size)
	}
	off := uint64(s.Off) + uint64(i)*uint64(rowSize)
	if off+uint64(rowSize) > uint64(len(d.cur.Buffer())) {
		return nil, bytecursor.Errorf(bytecursor.TruncatedInput, -1, "%s #%d at 0x%x lies outside the file", what, i, off)
	}
	return d.cur.At(uint32(off)), nil
}
