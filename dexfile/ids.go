package dexfile

import (
	"fmt"
	"strings"

	"github.com/dhamidi/bcdump/bytecursor"
)

// stringData reads string_ids[i]: the data offset, the declared utf16 size
// and the decoded text. The text runs to its NUL terminator; the declared
// size does not bound it, but the terminator must lie inside the file.
func (d *Decoder) stringData(i uint32) (off, utf16Size uint32, s string, err error) {
	c, err := d.row("string", d.header.StringIDs, stringIDSize, i)
	if err != nil {
		return 0, 0, "", err
	}
	off = c.U4LE()
	if err := c.Err(); err != nil {
		return 0, 0, "", err
	}
	data := d.cur.At(off)
	utf16Size = data.ULEB128()
	b := data.CString()
	if err := data.Err(); err != nil {
		return off, 0, "", fmt.Errorf("string #%d: %w", i, err)
	}
	return off, utf16Size, bytecursor.DecodeMUTF8(b), nil
}

func (d *Decoder) String(i uint32) (string, error) {
	_, _, s, err := d.stringData(i)
	return s, err
}

// Type returns the descriptor of type_ids[i].
func (d *Decoder) Type(i uint32) (string, error) {
	c, err := d.row("type", d.header.TypeIDs, typeIDSize, i)
	if err != nil {
		return "", err
	}
	idx := c.U4LE()
	if err := c.Err(); err != nil {
		return "", err
	}
	return d.String(idx)
}

// TypeList renders the type_list at off as comma-separated descriptors.
func (d *Decoder) TypeList(off uint32) (string, error) {
	c := d.cur.At(off)
	size := c.U4LE()
	if err := c.Err(); err != nil {
		return "", err
	}
	if uint64(size)*2 > uint64(c.Remaining()) {
		return "", bytecursor.Errorf(bytecursor.TruncatedInput, int(off), "type_list of %d entries", size)
	}
	parts := make([]string, 0, size)
	for i := uint32(0); i < size; i++ {
		t, err := d.Type(uint32(c.U2LE()))
		if err != nil {
			return "", err
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, ", "), c.Err()
}

type protoID struct {
	shortyIdx     uint32
	returnTypeIdx uint32
	parametersOff uint32
}

func (d *Decoder) protoID(i uint32) (protoID, error) {
	c, err := d.row("proto", d.header.ProtoIDs, protoIDSize, i)
	if err != nil {
		return protoID{}, err
	}
	p := protoID{shortyIdx: c.U4LE(), returnTypeIdx: c.U4LE(), parametersOff: c.U4LE()}
	return p, c.Err()
}

// Proto renders proto_ids[i] as "return (param, ...)".
func (d *Decoder) Proto(i uint32) (string, error) {
	p, err := d.protoID(i)
	if err != nil {
		return "", err
	}
	ret, err := d.Type(p.returnTypeIdx)
	if err != nil {
		return "", err
	}
	params := ""
	if p.parametersOff != 0 {
		if params, err = d.TypeList(p.parametersOff); err != nil {
			return "", err
		}
	}
	return ret + " (" + params + ")", nil
}

// memberID reads a field_ids or method_ids row: two u2 indices then a u4
// name index.
func (d *Decoder) memberID(what string, s Section, i uint32) (classIdx, typeIdx, nameIdx uint32, err error) {
	c, err := d.row(what, s, fieldIDSize, i)
	if err != nil {
		return 0, 0, 0, err
	}
	classIdx = uint32(c.U2LE())
	typeIdx = uint32(c.U2LE())
	nameIdx = c.U4LE()
	return classIdx, typeIdx, nameIdx, c.Err()
}

func (d *Decoder) Field(i uint32) (string, error) {
	classIdx, typeIdx, nameIdx, err := d.memberID("field", d.header.FieldIDs, i)
	if err != nil {
		return "", err
	}
	class, err := d.Type(classIdx)
	if err != nil {
		return "", err
	}
	typ, err := d.Type(typeIdx)
	if err != nil {
		return "", err
	}
	name, err := d.String(nameIdx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(class %s, type %s, name %s)", class, typ, name), nil
}

func (d *Decoder) Method(i uint32) (string, error) {
	classIdx, protoIdx, nameIdx, err := d.memberID("method", d.header.MethodIDs, i)
	if err != nil {
		return "", err
	}
	class, err := d.Type(classIdx)
	if err != nil {
		return "", err
	}
	proto, err := d.Proto(protoIdx)
	if err != nil {
		return "", err
	}
	name, err := d.String(nameIdx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(class %s, proto %s, name %s)", class, proto, name), nil
}

// ref renders an index next to its resolved value.
func ref(idx uint32, resolve func(uint32) (string, error)) (string, error) {
	s, err := resolve(idx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d <%s>", idx, s), nil
}

// optRef is ref for ULEB128P1-encoded indices, where -1 means none.
func optRef(idx int32, resolve func(uint32) (string, error)) (string, error) {
	if idx == -1 {
		return "NO_INDEX", nil
	}
	return ref(uint32(idx), resolve)
}

func (d *Decoder) PrintStringIDs() error {
	d.out.Line(0, "string_ids_size: %d", d.header.StringIDs.Size)
	for i := uint32(0); i < d.header.StringIDs.Size; i++ {
		off, size, s, err := d.stringData(i)
		if err != nil {
			return err
		}
		d.out.Line(1, "string #%d: [0x%x]: utf16_size %d, string %s", i, off, size, s)
	}
	return d.out.Err()
}

func (d *Decoder) PrintTypeIDs() error {
	d.out.Line(0, "type_ids_size: %d", d.header.TypeIDs.Size)
	for i := uint32(0); i < d.header.TypeIDs.Size; i++ {
		t, err := d.Type(i)
		if err != nil {
			return fmt.Errorf("type #%d: %w", i, err)
		}
		d.out.Line(1, "type #%d: %s", i, t)
	}
	return d.out.Err()
}

func (d *Decoder) PrintProtoIDs() error {
	d.out.Line(0, "proto_ids_size: %d", d.header.ProtoIDs.Size)
	for i := uint32(0); i < d.header.ProtoIDs.Size; i++ {
		p, err := d.protoID(i)
		if err != nil {
			return err
		}
		shorty, err := d.String(p.shortyIdx)
		if err != nil {
			return fmt.Errorf("proto #%d shorty: %w", i, err)
		}
		desc, err := d.Proto(i)
		if err != nil {
			return fmt.Errorf("proto #%d: %w", i, err)
		}
		d.out.Line(1, "proto #%d: shorty %s, desc %s", i, shorty, desc)
	}
	return d.out.Err()
}

func (d *Decoder) PrintFieldIDs() error {
	d.out.Line(0, "field_ids_size: %d", d.header.FieldIDs.Size)
	for i := uint32(0); i < d.header.FieldIDs.Size; i++ {
		f, err := d.Field(i)
		if err != nil {
			return fmt.Errorf("field #%d: %w", i, err)
		}
		d.out.Line(1, "field #%d: %s", i, f)
	}
	return d.out.Err()
}

func (d *Decoder) PrintMethodIDs() error {
	d.out.Line(0, "method_ids_size: %d", d.header.MethodIDs.Size)
	for i := uint32(0); i < d.header.MethodIDs.Size; i++ {
		m, err := d.Method(i)
		if err != nil {
			return fmt.Errorf("method #%d: %w", i, err)
		}
		d.out.Line(1, "method #%d: %s", i, m)
	}
	return d.out.Err()
}
