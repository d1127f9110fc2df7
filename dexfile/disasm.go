package dexfile

import (
	"fmt"
	"strings"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

// formats maps each opcode to its Dalvik instruction format. The first
// character is the length in 16-bit code units. Unassigned opcodes are "".
var formats = func() (f [256]string) {
	set := func(lo, hi int, format string) {
		for op := lo; op <= hi; op++ {
			f[op] = format
		}
	}
	set(0x00, 0x00, "10x")
	for _, base := range []int{0x01, 0x04, 0x07} {
		set(base, base, "12x")
		set(base+1, base+1, "22x")
		set(base+2, base+2, "32x")
	}
	set(0x0a, 0x0d, "11x")
	set(0x0e, 0x0e, "10x")
	set(0x0f, 0x11, "11x")
	set(0x12, 0x12, "11n")
	set(0x13, 0x13, "21s")
	set(0x14, 0x14, "31i")
	set(0x15, 0x15, "21h")
	set(0x16, 0x16, "21s")
	set(0x17, 0x17, "31i")
	set(0x18, 0x18, "51l")
	set(0x19, 0x19, "21h")
	set(0x1a, 0x1a, "21c")
	set(0x1b, 0x1b, "31c")
	set(0x1c, 0x1c, "21c")
	set(0x1d, 0x1e, "11x")
	set(0x1f, 0x1f, "21c")
	set(0x20, 0x20, "22c")
	set(0x21, 0x21, "12x")
	set(0x22, 0x22, "21c")
	set(0x23, 0x23, "22c")
	set(0x24, 0x24, "35c")
	set(0x25, 0x25, "3rc")
	set(0x26, 0x26, "31t")
	set(0x27, 0x27, "11x")
	set(0x28, 0x28, "10t")
	set(0x29, 0x29, "20t")
	set(0x2a, 0x2a, "30t")
	set(0x2b, 0x2c, "31t")
	set(0x2d, 0x31, "23x")
	set(0x32, 0x37, "22t")
	set(0x38, 0x3d, "21t")
	set(0x44, 0x51, "23x")
	set(0x52, 0x5f, "22c")
	set(0x60, 0x6d, "21c")
	set(0x6e, 0x72, "35c")
	set(0x74, 0x78, "3rc")
	set(0x7b, 0x8f, "12x")
	set(0x90, 0xaf, "23x")
	set(0xb0, 0xcf, "12x")
	set(0xd0, 0xd7, "22s")
	set(0xd8, 0xe2, "22b")
	set(0xfa, 0xfa, "45cc")
	set(0xfb, 0xfb, "4rcc")
	set(0xfc, 0xfc, "35c")
	set(0xfd, 0xfd, "3rc")
	set(0xfe, 0xff, "21c")
	return f
}()

const (
	opConstWideHigh16 = 0x19
	opFillArrayData   = 0x26
	opPackedSwitch    = 0x2b
	opSparseSwitch    = 0x2c
)

// indexKind is the table an instruction's index operand points into.
type indexKind uint8

const (
	indexNone indexKind = iota
	indexString
	indexType
	indexField
	indexMethod
	indexProto
	indexCallSite
	indexMethodHandle
)

func indexKindOf(op uint8) indexKind {
	switch {
	case op == 0x1a, op == 0x1b:
		return indexString
	case op == 0x1c, op == 0x1f, op == 0x20, op == 0x22, op == 0x23, op == 0x24, op == 0x25:
		return indexType
	case op >= 0x52 && op <= 0x6d:
		return indexField
	case op >= 0x6e && op <= 0x72, op >= 0x74 && op <= 0x78, op == 0xfa, op == 0xfb:
		return indexMethod
	case op == 0xfc, op == 0xfd:
		return indexCallSite
	case op == 0xfe:
		return indexMethodHandle
	case op == 0xff:
		return indexProto
	}
	return indexNone
}

var indexPrefix = map[indexKind]string{
	indexString:       "string",
	indexType:         "type",
	indexField:        "field",
	indexMethod:       "meth",
	indexProto:        "proto",
	indexCallSite:     "call_site",
	indexMethodHandle: "method_handle",
}

// PayloadKind identifies the pseudo-instructions that carry switch and
// array data inside the instruction stream.
type PayloadKind uint8

const (
	NoPayload PayloadKind = iota
	PackedSwitchPayload
	SparseSwitchPayload
	FillArrayDataPayload
)

// Instruction is one decoded instruction or payload. Offsets, lengths
// and targets are in bytes from the start of the instruction stream.
type Instruction struct {
	Offset int
	Length int
	Opcode uint8
	Format string

	// Regs lists register operands in order. For range formats it holds
	// every register of the window and Range is set.
	Regs    []uint16
	Range   bool
	Literal int64
	Index   uint32
	Proto   uint32
	// Target is the branch target, or the payload address for switches
	// and fill-array-data.
	Target int

	Payload PayloadKind
	Keys    []int32
	// Targets holds one switch target per key. They are absolute when
	// Resolved is set, and relative to the referencing switch otherwise.
	Targets      []int
	Resolved     bool
	ElementWidth uint16
	Elements     uint32
	Data         []byte
}

// Instructions decodes an instruction stream without resolving indices.
func Instructions(insns []byte) ([]Instruction, error) {
	var out []Instruction
	err := walkInsns(bytecursor.New(insns), func(in Instruction) error {
		out = append(out, in)
		return nil
	})
	return out, err
}

// walkInsns decodes instructions until c is exhausted. Switch payloads
// that follow their switch get absolute targets.
func walkInsns(c *bytecursor.Cursor, fn func(Instruction) error) error {
	origin := c.Pos()
	switches := map[int]int{}
	for !c.AtEnd() {
		in, err := decodeInsn(c, origin, switches)
		if err != nil {
			return err
		}
		if in.Opcode == opPackedSwitch || in.Opcode == opSparseSwitch {
			switches[in.Target] = in.Offset
		}
		if err := fn(in); err != nil {
			return err
		}
	}
	return nil
}

func decodeInsn(c *bytecursor.Cursor, origin int, switches map[int]int) (Instruction, error) {
	start := c.Pos()
	in := Instruction{Offset: start - origin}
	unit := c.U2LE()
	if err := c.Err(); err != nil {
		return in, malformed(start, err, "instruction")
	}
	op, hi := uint8(unit), uint8(unit>>8)
	in.Opcode = op

	if op == 0 && hi >= 1 && hi <= 3 {
		in.Payload = PayloadKind(hi)
		if err := decodePayload(c, &in, switches); err != nil {
			return in, malformed(start, err, "payload")
		}
		in.Length = c.Pos() - start
		return in, nil
	}

	in.Format = formats[op]
	if in.Format == "" {
		return in, bytecursor.Errorf(bytecursor.UnknownDexOpcode, start, "opcode 0x%02x", op)
	}
	units := []uint16{unit}
	for i := 1; i < int(in.Format[0]-'0'); i++ {
		units = append(units, c.U2LE())
	}
	if err := c.Err(); err != nil {
		return in, malformed(start, err, in.Format)
	}
	if err := decodeOperands(&in, units); err != nil {
		return in, bytecursor.Errorf(bytecursor.MalformedBytecode, start, "%v", err)
	}
	in.Length = c.Pos() - start
	return in, nil
}

func malformed(start int, err error, what string) error {
	if bytecursor.KindOf(err) == bytecursor.TruncatedInput {
		return bytecursor.Errorf(bytecursor.MalformedBytecode, start, "%s runs past the end of insns", what)
	}
	return err
}

func decodeOperands(in *Instruction, units []uint16) error {
	hi := uint16(units[0] >> 8)
	a, b := hi&0xf, hi>>4
	wide := func(i int) uint32 {
		return uint32(units[i]) | uint32(units[i+1])<<16
	}
	branch := func(delta int64) int {
		return in.Offset + 2*int(delta)
	}

	switch in.Format {
	case "10x":
	case "12x":
		in.Regs = []uint16{a, b}
	case "11n":
		in.Regs = []uint16{a}
		in.Literal = bytecursor.SignExtend[int64](uint64(b), 4)
	case "11x":
		in.Regs = []uint16{hi}
	case "10t":
		in.Target = branch(int64(int8(hi)))
	case "20t":
		in.Target = branch(int64(int16(units[1])))
	case "22x":
		in.Regs = []uint16{hi, units[1]}
	case "21t":
		in.Regs = []uint16{hi}
		in.Target = branch(int64(int16(units[1])))
	case "21s":
		in.Regs = []uint16{hi}
		in.Literal = int64(int16(units[1]))
	case "21h":
		in.Regs = []uint16{hi}
		shift := 16
		if in.Opcode == opConstWideHigh16 {
			shift = 48
		}
		in.Literal = int64(int16(units[1])) << shift
	case "21c":
		in.Regs = []uint16{hi}
		in.Index = uint32(units[1])
	case "23x":
		in.Regs = []uint16{hi, units[1] & 0xff, units[1] >> 8}
	case "22b":
		in.Regs = []uint16{hi, units[1] & 0xff}
		in.Literal = int64(int8(units[1] >> 8))
	case "22t":
		in.Regs = []uint16{a, b}
		in.Target = branch(int64(int16(units[1])))
	case "22s":
		in.Regs = []uint16{a, b}
		in.Literal = int64(int16(units[1]))
	case "22c":
		in.Regs = []uint16{a, b}
		in.Index = uint32(units[1])
	case "30t":
		in.Target = branch(int64(int32(wide(1))))
	case "32x":
		in.Regs = []uint16{units[1], units[2]}
	case "31i":
		in.Regs = []uint16{hi}
		in.Literal = int64(int32(wide(1)))
	case "31t":
		in.Regs = []uint16{hi}
		in.Target = branch(int64(int32(wide(1))))
	case "31c":
		in.Regs = []uint16{hi}
		in.Index = wide(1)
	case "35c", "45cc":
		count, g := int(b), a
		if count > 5 {
			return fmt.Errorf("%s with %d registers", in.Format, count)
		}
		in.Index = uint32(units[1])
		w := units[2]
		regs := []uint16{w & 0xf, (w >> 4) & 0xf, (w >> 8) & 0xf, w >> 12, g}
		in.Regs = regs[:count]
		if in.Format == "45cc" {
			in.Proto = uint32(units[3])
		}
	case "3rc", "4rcc":
		in.Range = true
		in.Index = uint32(units[1])
		first := uint32(units[2])
		for r := first; r < first+uint32(hi); r++ {
			in.Regs = append(in.Regs, uint16(r))
		}
		if in.Format == "4rcc" {
			in.Proto = uint32(units[3])
		}
	case "51l":
		in.Regs = []uint16{hi}
		in.Literal = int64(uint64(wide(1)) | uint64(wide(3))<<32)
	default:
		return fmt.Errorf("format %s not decoded", in.Format)
	}
	return nil
}

func decodePayload(c *bytecursor.Cursor, in *Instruction, switches map[int]int) error {
	switch in.Payload {
	case PackedSwitchPayload:
		size := c.U2LE()
		first := c.S4LE()
		if err := c.Err(); err != nil {
			return err
		}
		if int(size)*4 > c.Remaining() {
			return bytecursor.Errorf(bytecursor.TruncatedInput, c.Pos(), "packed-switch with %d targets", size)
		}
		for i := 0; i < int(size); i++ {
			in.Keys = append(in.Keys, first+int32(i))
		}
		readSwitchTargets(c, in, int(size), switches)
	case SparseSwitchPayload:
		size := c.U2LE()
		if err := c.Err(); err != nil {
			return err
		}
		if int(size)*8 > c.Remaining() {
			return bytecursor.Errorf(bytecursor.TruncatedInput, c.Pos(), "sparse-switch with %d keys", size)
		}
		for i := 0; i < int(size); i++ {
			in.Keys = append(in.Keys, c.S4LE())
		}
		readSwitchTargets(c, in, int(size), switches)
	case FillArrayDataPayload:
		in.ElementWidth = c.U2LE()
		in.Elements = c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		n := uint64(in.ElementWidth) * uint64(in.Elements)
		if n > uint64(c.Remaining()) {
			return bytecursor.Errorf(bytecursor.TruncatedInput, c.Pos(), "fill-array-data of %d bytes", n)
		}
		in.Data = c.Bytes(int(n))
		// The payload is a whole number of code units.
		if n%2 == 1 {
			c.Skip(1)
		}
	}
	return c.Err()
}

func readSwitchTargets(c *bytecursor.Cursor, in *Instruction, n int, switches map[int]int) {
	base, ok := switches[in.Offset]
	in.Resolved = ok
	for i := 0; i < n; i++ {
		delta := 2 * int(c.S4LE())
		if ok {
			delta += base
		}
		in.Targets = append(in.Targets, delta)
	}
}

func (d *Decoder) printInstructions(indent int, c *bytecursor.Cursor) error {
	return walkInsns(c, func(in Instruction) error {
		return d.printInsn(indent, in)
	})
}

func (d *Decoder) printInsn(indent int, in Instruction) error {
	switch in.Payload {
	case PackedSwitchPayload, SparseSwitchPayload:
		name := "packed-switch-payload"
		if in.Payload == SparseSwitchPayload {
			name = "sparse-switch-payload"
		}
		d.out.Line(indent, "<0x%x> %s size %d", in.Offset, name, len(in.Keys))
		for i, key := range in.Keys {
			if in.Resolved {
				d.out.Line(indent+1, "key %d: 0x%x", key, in.Targets[i])
			} else {
				d.out.Line(indent+1, "key %d: %+d", key, in.Targets[i])
			}
		}
		return d.out.Err()
	case FillArrayDataPayload:
		d.out.Line(indent, "<0x%x> fill-array-data-payload element_width %d, size %d", in.Offset, in.ElementWidth, in.Elements)
		return d.out.Err()
	}

	var ops []string
	regs := make([]string, len(in.Regs))
	for i, r := range in.Regs {
		regs[i] = fmt.Sprintf("v%d", r)
	}
	switch {
	case in.Range && len(regs) == 0:
		ops = append(ops, "{}")
	case in.Range:
		ops = append(ops, fmt.Sprintf("{%s .. %s}", regs[0], regs[len(regs)-1]))
	case in.Format == "35c" || in.Format == "45cc":
		ops = append(ops, "{"+strings.Join(regs, ", ")+"}")
	default:
		ops = append(ops, regs...)
	}

	switch in.Format[1:] {
	case "1n", "1s", "1h", "1i", "2b", "2s", "1l":
		ops = append(ops, fmt.Sprintf("#%d", in.Literal))
	case "0t", "1t", "2t":
		if in.Opcode == opFillArrayData || in.Opcode == opPackedSwitch || in.Opcode == opSparseSwitch {
			ops = append(ops, fmt.Sprintf("payload 0x%x", in.Target))
		} else {
			ops = append(ops, fmt.Sprintf("0x%x", in.Target))
		}
	}

	if kind := indexKindOf(in.Opcode); kind != indexNone {
		s, err := d.renderIndex(kind, in.Index)
		if err != nil {
			return fmt.Errorf("instruction at 0x%x: %w", in.Offset, err)
		}
		ops = append(ops, s)
		if in.Format == "45cc" || in.Format == "4rcc" {
			s, err := d.renderIndex(indexProto, in.Proto)
			if err != nil {
				return fmt.Errorf("instruction at 0x%x: %w", in.Offset, err)
			}
			ops = append(ops, s)
		}
	}

	mnemonic := d.names.Lookup(names.DexOpcode, uint32(in.Opcode))
	if len(ops) == 0 {
		d.out.Line(indent, "<0x%x> %s", in.Offset, mnemonic)
	} else {
		d.out.Line(indent, "<0x%x> %s %s", in.Offset, mnemonic, strings.Join(ops, ", "))
	}
	return d.out.Err()
}

func (d *Decoder) renderIndex(kind indexKind, idx uint32) (string, error) {
	var resolve func(uint32) (string, error)
	switch kind {
	case indexString:
		resolve = d.String
	case indexType:
		resolve = d.Type
	case indexField:
		resolve = d.Field
	case indexMethod:
		resolve = d.Method
	case indexProto:
		resolve = d.Proto
	default:
		return fmt.Sprintf("%s@%d", indexPrefix[kind], idx), nil
	}
	s, err := resolve(idx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%d <%s>", indexPrefix[kind], idx, s), nil
}
