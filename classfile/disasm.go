package classfile

import (
	"fmt"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

type operandKind uint8

const (
	operandNone operandKind = iota
	operandLocal
	operandPool1
	operandPool2
	operandByte
	operandShort
	operandBranch16
	operandBranch32
	operandIinc
	operandTableSwitch
	operandLookupSwitch
	operandInvokeInterface
	operandInvokeDynamic
	operandMultiANewArray
	operandNewArray
	operandWide
)

func operandKindOf(op uint8) operandKind {
	switch {
	case op >= opILoad && op <= opALoad, op >= opIStore && op <= opAStore, op == opRet:
		return operandLocal
	case op == opLdc:
		return operandPool1
	case op == opLdcW, op == opLdc2W, op >= opGetStatic && op <= opInvokeStatic,
		op == opNew, op == opANewArray, op == opCheckCast, op == opInstanceOf:
		return operandPool2
	case op == opBipush:
		return operandByte
	case op == opSipush:
		return operandShort
	case op >= opIfeq && op <= opJsr, op == opIfNull, op == opIfNonNull:
		return operandBranch16
	case op == opGotoW, op == opJsrW:
		return operandBranch32
	case op == opIinc:
		return operandIinc
	case op == opTableSwitch:
		return operandTableSwitch
	case op == opLookupSwitch:
		return operandLookupSwitch
	case op == opInvokeInterface:
		return operandInvokeInterface
	case op == opInvokeDynamic:
		return operandInvokeDynamic
	case op == opMultiANewArray:
		return operandMultiANewArray
	case op == opNewArray:
		return operandNewArray
	case op == opWide:
		return operandWide
	}
	return operandNone
}

// Instruction is one decoded instruction. Offsets and branch targets are
// relative to the start of the code array.
type Instruction struct {
	Offset int
	Opcode uint8
	// Wide is set when the instruction carried a wide prefix. Opcode is
	// then the widened opcode.
	Wide   bool
	Length int
	Index  uint16
	Value  int32
	// Targets holds branch targets. For switches it holds one target per
	// key followed by the default target.
	Targets []int
	Keys    []int32
	// SwitchData is the offset of the first byte after the switch padding.
	SwitchData int

	kind operandKind
}

// Instructions decodes a code array without resolving pool references.
func Instructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	err := walkCode(bytecursor.New(code), func(in Instruction) error {
		out = append(out, in)
		return nil
	})
	return out, err
}

// walkCode decodes instructions until c is exhausted. An instruction
// whose operands run past the end of c is malformed.
func walkCode(c *bytecursor.Cursor, fn func(Instruction) error) error {
	origin := c.Pos()
	for !c.AtEnd() {
		in, err := decodeInstruction(c, origin)
		if err != nil {
			return err
		}
		if err := fn(in); err != nil {
			return err
		}
	}
	return nil
}

func decodeInstruction(c *bytecursor.Cursor, origin int) (Instruction, error) {
	start := c.Pos()
	in := Instruction{Offset: start - origin, Opcode: c.U1()}
	if err := c.Err(); err != nil {
		return in, err
	}
	if in.Opcode > opJsrW {
		return in, bytecursor.Errorf(bytecursor.UnknownClassOpcode, start, "opcode 0x%x", in.Opcode)
	}

	malformed := func(format string, args ...any) (Instruction, error) {
		return in, bytecursor.Errorf(bytecursor.MalformedBytecode, start, format, args...)
	}

	in.kind = operandKindOf(in.Opcode)
	switch in.kind {
	case operandLocal, operandPool1:
		in.Index = uint16(c.U1())
	case operandPool2:
		in.Index = c.U2()
	case operandByte:
		in.Value = int32(c.S1())
	case operandShort:
		in.Value = int32(c.S2())
	case operandBranch16:
		in.Targets = []int{in.Offset + int(c.S2())}
	case operandBranch32:
		in.Targets = []int{in.Offset + int(c.S4())}
	case operandIinc:
		in.Index = uint16(c.U1())
		in.Value = int32(c.S1())
	case operandInvokeInterface:
		in.Index = c.U2()
		in.Value = int32(c.U1())
		if zero := c.U1(); zero != 0 {
			return malformed("invokeinterface padding byte is 0x%x, expected 0", zero)
		}
	case operandInvokeDynamic:
		in.Index = c.U2()
		if zero := c.U2(); zero != 0 {
			return malformed("invokedynamic padding is 0x%x, expected 0", zero)
		}
	case operandMultiANewArray:
		in.Index = c.U2()
		in.Value = int32(c.U1())
	case operandNewArray:
		in.Value = int32(c.U1())
	case operandWide:
		in.Wide = true
		in.Opcode = c.U1()
		if c.Err() != nil {
			break
		}
		in.kind = operandKindOf(in.Opcode)
		switch in.kind {
		case operandLocal:
			in.Index = c.U2()
		case operandIinc:
			in.Index = c.U2()
			in.Value = int32(c.S2())
		default:
			return malformed("wide cannot prefix opcode 0x%x", in.Opcode)
		}
	case operandTableSwitch:
		c.Align(4, origin)
		in.SwitchData = c.Pos() - origin
		def := c.S4()
		low := c.S4()
		high := c.S4()
		if c.Err() != nil {
			break
		}
		if high < low {
			return malformed("tableswitch low %d > high %d", low, high)
		}
		n := int64(high) - int64(low) + 1
		if n*4 > int64(c.Remaining()) {
			return malformed("tableswitch with %d entries runs past code_length", n)
		}
		for i := int64(0); i < n; i++ {
			in.Keys = append(in.Keys, int32(int64(low)+i))
			in.Targets = append(in.Targets, in.Offset+int(c.S4()))
		}
		in.Targets = append(in.Targets, in.Offset+int(def))
	case operandLookupSwitch:
		c.Align(4, origin)
		in.SwitchData = c.Pos() - origin
		def := c.S4()
		npairs := c.S4()
		if c.Err() != nil {
			break
		}
		if npairs < 0 {
			return malformed("lookupswitch npairs %d", npairs)
		}
		if int64(npairs)*8 > int64(c.Remaining()) {
			return malformed("lookupswitch with %d pairs runs past code_length", npairs)
		}
		for i := 0; i < int(npairs); i++ {
			in.Keys = append(in.Keys, c.S4())
			in.Targets = append(in.Targets, in.Offset+int(c.S4()))
		}
		in.Targets = append(in.Targets, in.Offset+int(def))
	}

	if err := c.Err(); err != nil {
		if bytecursor.KindOf(err) == bytecursor.TruncatedInput {
			return malformed("opcode 0x%x runs past code_length", in.Opcode)
		}
		return in, err
	}
	in.Length = c.Pos() - start
	return in, nil
}

func (d *Decoder) printCode(indent int, c *bytecursor.Cursor) error {
	return walkCode(c, func(in Instruction) error {
		return d.printInstruction(indent, in)
	})
}

func (d *Decoder) printInstruction(indent int, in Instruction) error {
	mnemonic := d.names.Lookup(names.ClassOpcode, uint32(in.Opcode))
	head := fmt.Sprintf("#0x%x %s", in.Offset, mnemonic)
	if in.Wide {
		head = fmt.Sprintf("#0x%x wide %s(0x%x)", in.Offset, mnemonic, in.Opcode)
	}

	switch in.kind {
	case operandNone:
		d.out.Line(indent, "%s", head)
	case operandLocal:
		d.out.Line(indent, "%s %d", head, in.Index)
	case operandPool1, operandPool2, operandInvokeDynamic:
		ref, err := d.ref(in.Index)
		if err != nil {
			return fmt.Errorf("%s at 0x%x: %w", mnemonic, in.Offset, err)
		}
		d.out.Line(indent, "%s %s", head, ref)
	case operandByte, operandShort:
		d.out.Line(indent, "%s %d", head, in.Value)
	case operandBranch16, operandBranch32:
		d.out.Line(indent, "%s 0x%x", head, in.Targets[0])
	case operandIinc:
		d.out.Line(indent, "%s index %d, const %d", head, in.Index, in.Value)
	case operandInvokeInterface:
		ref, err := d.ref(in.Index)
		if err != nil {
			return fmt.Errorf("%s at 0x%x: %w", mnemonic, in.Offset, err)
		}
		d.out.Line(indent, "%s index %s, count %d", head, ref, in.Value)
	case operandMultiANewArray:
		ref, err := d.ref(in.Index)
		if err != nil {
			return fmt.Errorf("%s at 0x%x: %w", mnemonic, in.Offset, err)
		}
		d.out.Line(indent, "%s index %s, dimensions %d", head, ref, in.Value)
	case operandNewArray:
		d.out.Line(indent, "%s atype %s(%d)", head, d.names.Lookup(names.ArrayType, uint32(in.Value)), in.Value)
	case operandTableSwitch:
		d.out.Line(indent, "%s low = %d, high = %d", head, in.Keys[0], in.Keys[len(in.Keys)-1])
		d.printCases(indent+1, in)
	case operandLookupSwitch:
		d.out.Line(indent, "%s npairs %d", head, len(in.Keys))
		d.printCases(indent+1, in)
	}
	return d.out.Err()
}

func (d *Decoder) printCases(indent int, in Instruction) {
	for i, key := range in.Keys {
		d.out.Line(indent, "%d: 0x%x", key, in.Targets[i])
	}
	d.out.Line(indent, "default: 0x%x", in.Targets[len(in.Targets)-1])
}
