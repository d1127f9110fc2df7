package classfile

import (
	"fmt"
	"math"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

type ConstantPoolEntry interface {
	Tag() ConstantTag
}

type ConstantUtf8Info struct {
	Value string
}

func (c *ConstantUtf8Info) Tag() ConstantTag { return ConstantUtf8 }

type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() ConstantTag { return ConstantInteger }

type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() ConstantTag { return ConstantFloat }

type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() ConstantTag { return ConstantLong }

type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() ConstantTag { return ConstantDouble }

type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() ConstantTag { return ConstantClass }

type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() ConstantTag { return ConstantString }

// ConstantRefInfo covers Fieldref, Methodref and InterfaceMethodref.
type ConstantRefInfo struct {
	RefTag           ConstantTag
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantRefInfo) Tag() ConstantTag { return c.RefTag }

type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() ConstantTag { return ConstantNameAndType }

type ConstantMethodHandleInfo struct {
	ReferenceKind  MethodHandleKind
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() ConstantTag { return ConstantMethodHandle }

type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() ConstantTag { return ConstantMethodType }

// ConstantDynamicInfo covers Dynamic and InvokeDynamic.
type ConstantDynamicInfo struct {
	DynTag                   ConstantTag
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamicInfo) Tag() ConstantTag { return c.DynTag }

// ConstantNamedInfo covers Module and Package.
type ConstantNamedInfo struct {
	NamedTag  ConstantTag
	NameIndex uint16
}

func (c *ConstantNamedInfo) Tag() ConstantTag { return c.NamedTag }

// ParseConstantPool scans the pool once to record where every entry starts,
// then renders each entry. Entries are decoded from the buffer again on
// every lookup.
func (d *Decoder) ParseConstantPool() error {
	count := d.cur.U2()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.header.ConstantPoolCount = count
	d.out.Line(0, "constant_pool_count: %d", count)
	d.out.Line(0, "constant pool:")

	d.pool = make([]int, int(count))
	for i := range d.pool {
		d.pool[i] = -1
	}
	for i := 1; i < int(count); i++ {
		start := d.cur.Pos()
		tag := ConstantTag(d.cur.U1())
		if err := d.cur.Err(); err != nil {
			return err
		}
		d.pool[i] = start
		switch tag {
		case ConstantUtf8:
			n := d.cur.U2()
			d.cur.Skip(int(n))
		default:
			width, ok := entryWidth[tag]
			if !ok {
				return bytecursor.Errorf(bytecursor.UnknownConstantTag, start, "tag %d at pool index %d", tag, i)
			}
			d.cur.Skip(width - 1)
			if tag == ConstantLong || tag == ConstantDouble {
				i++
			}
		}
		if err := d.cur.Err(); err != nil {
			return err
		}
	}

	d.rendered = 0
	for i := 1; i < int(count); i++ {
		if d.pool[i] < 0 {
			continue
		}
		if err := d.printEntry(uint16(i)); err != nil {
			return fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		d.rendered++
	}
	return d.check()
}

// EntryCount is the number of pool entries rendered by ParseConstantPool.
func (d *Decoder) EntryCount() int {
	return d.rendered
}

// Entry decodes the pool entry at index.
func (d *Decoder) Entry(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(d.pool) {
		return nil, bytecursor.Errorf(bytecursor.IndexOutOfRange, -1, "constant pool index %d, pool count %d", index, len(d.pool))
	}
	off := d.pool[index]
	if off < 0 {
		return nil, bytecursor.Errorf(bytecursor.IndexOutOfRange, -1, "constant pool index %d is the second half of a long or double", index)
	}
	c := d.cur.At(uint32(off))
	tag := ConstantTag(c.U1())
	var e ConstantPoolEntry
	switch tag {
	case ConstantUtf8:
		n := c.U2()
		e = &ConstantUtf8Info{Value: bytecursor.DecodeMUTF8(c.Bytes(int(n)))}
	case ConstantInteger:
		e = &ConstantIntegerInfo{Value: c.S4()}
	case ConstantFloat:
		e = &ConstantFloatInfo{Value: math.Float32frombits(c.U4())}
	case ConstantLong:
		e = &ConstantLongInfo{Value: int64(c.U8())}
	case ConstantDouble:
		e = &ConstantDoubleInfo{Value: math.Float64frombits(c.U8())}
	case ConstantClass:
		e = &ConstantClassInfo{NameIndex: c.U2()}
	case ConstantString:
		e = &ConstantStringInfo{StringIndex: c.U2()}
	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref:
		e = &ConstantRefInfo{RefTag: tag, ClassIndex: c.U2(), NameAndTypeIndex: c.U2()}
	case ConstantNameAndType:
		e = &ConstantNameAndTypeInfo{NameIndex: c.U2(), DescriptorIndex: c.U2()}
	case ConstantMethodHandle:
		e = &ConstantMethodHandleInfo{ReferenceKind: MethodHandleKind(c.U1()), ReferenceIndex: c.U2()}
	case ConstantMethodType:
		e = &ConstantMethodTypeInfo{DescriptorIndex: c.U2()}
	case ConstantDynamic, ConstantInvokeDynamic:
		e = &ConstantDynamicInfo{DynTag: tag, BootstrapMethodAttrIndex: c.U2(), NameAndTypeIndex: c.U2()}
	case ConstantModule, ConstantPackage:
		e = &ConstantNamedInfo{NamedTag: tag, NameIndex: c.U2()}
	default:
		return nil, bytecursor.Errorf(bytecursor.UnknownConstantTag, off, "tag %d at pool index %d", tag, index)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

func (d *Decoder) entryOf(index uint16, want ...ConstantTag) (ConstantPoolEntry, error) {
	e, err := d.Entry(index)
	if err != nil {
		return nil, err
	}
	for _, tag := range want {
		if e.Tag() == tag {
			return e, nil
		}
	}
	return nil, bytecursor.Errorf(bytecursor.UnexpectedConstantTag, d.pool[index],
		"pool index %d is %s, expected %s", index, d.tagName(e.Tag()), d.tagName(want[0]))
}

func (d *Decoder) tagName(tag ConstantTag) string {
	if name := d.names.Lookup(names.ConstantTag, uint32(tag)); name != "" {
		return name
	}
	return fmt.Sprintf("tag %d", tag)
}

func (d *Decoder) ResolveUtf8(index uint16) (string, error) {
	e, err := d.entryOf(index, ConstantUtf8)
	if err != nil {
		return "", err
	}
	return e.(*ConstantUtf8Info).Value, nil
}

func (d *Decoder) ResolveClassName(index uint16) (string, error) {
	e, err := d.entryOf(index, ConstantClass)
	if err != nil {
		return "", err
	}
	return d.ResolveUtf8(e.(*ConstantClassInfo).NameIndex)
}

func (d *Decoder) resolveNameAndType(index uint16) (string, error) {
	e, err := d.entryOf(index, ConstantNameAndType)
	if err != nil {
		return "", err
	}
	nat := e.(*ConstantNameAndTypeInfo)
	name, err := d.ResolveUtf8(nat.NameIndex)
	if err != nil {
		return "", err
	}
	desc, err := d.ResolveUtf8(nat.DescriptorIndex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s [Type:%s]", name, desc), nil
}

func (d *Decoder) resolveRef(index uint16) (string, error) {
	e, err := d.entryOf(index, ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref)
	if err != nil {
		return "", err
	}
	ref := e.(*ConstantRefInfo)
	class, err := d.ResolveClassName(ref.ClassIndex)
	if err != nil {
		return "", err
	}
	nat, err := d.resolveNameAndType(ref.NameAndTypeIndex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s [Class:%s]", nat, class), nil
}

// ResolveString renders any pool entry as a single display string.
func (d *Decoder) ResolveString(index uint16) (string, error) {
	e, err := d.Entry(index)
	if err != nil {
		return "", err
	}
	switch e := e.(type) {
	case *ConstantUtf8Info:
		return e.Value, nil
	case *ConstantIntegerInfo:
		return fmt.Sprintf("%d", e.Value), nil
	case *ConstantFloatInfo:
		return fmt.Sprintf("%f", e.Value), nil
	case *ConstantLongInfo:
		return fmt.Sprintf("%d", e.Value), nil
	case *ConstantDoubleInfo:
		return fmt.Sprintf("%f", e.Value), nil
	case *ConstantClassInfo:
		return d.ResolveUtf8(e.NameIndex)
	case *ConstantStringInfo:
		return d.ResolveUtf8(e.StringIndex)
	case *ConstantRefInfo:
		return d.resolveRef(index)
	case *ConstantNameAndTypeInfo:
		return d.resolveNameAndType(index)
	case *ConstantMethodHandleInfo:
		ref, err := d.resolveRef(e.ReferenceIndex)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", d.names.Lookup(names.MethodHandleKind, uint32(e.ReferenceKind)), ref), nil
	case *ConstantMethodTypeInfo:
		return d.ResolveUtf8(e.DescriptorIndex)
	case *ConstantDynamicInfo:
		nat, err := d.resolveNameAndType(e.NameAndTypeIndex)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("#%d:%s", e.BootstrapMethodAttrIndex, nat), nil
	case *ConstantNamedInfo:
		return d.ResolveUtf8(e.NameIndex)
	}
	return "", bytecursor.Errorf(bytecursor.UnknownConstantTag, d.pool[index], "tag %d", e.Tag())
}

// ref renders "index <resolved>".
func (d *Decoder) ref(index uint16) (string, error) {
	s, err := d.ResolveString(index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d <%s>", index, s), nil
}

func (d *Decoder) printEntry(index uint16) error {
	e, err := d.Entry(index)
	if err != nil {
		return err
	}
	d.out.Line(0, "#%d tag %s(%d)", index, d.names.Lookup(names.ConstantTag, uint32(e.Tag())), e.Tag())

	field := func(label string, idx uint16, resolve func(uint16) (string, error)) error {
		s, err := resolve(idx)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		d.out.Line(1, "%s: %d <%s>", label, idx, s)
		return nil
	}

	switch e := e.(type) {
	case *ConstantUtf8Info:
		d.out.Line(1, "bytes: %s", e.Value)
	case *ConstantIntegerInfo:
		d.out.Line(1, "value: %d", e.Value)
	case *ConstantFloatInfo:
		d.out.Line(1, "value: %f", e.Value)
	case *ConstantLongInfo:
		d.out.Line(1, "value: %d", e.Value)
	case *ConstantDoubleInfo:
		d.out.Line(1, "value: %f", e.Value)
	case *ConstantClassInfo:
		return field("name_index", e.NameIndex, d.ResolveUtf8)
	case *ConstantStringInfo:
		return field("string_index", e.StringIndex, d.ResolveUtf8)
	case *ConstantRefInfo:
		if err := field("class_index", e.ClassIndex, d.ResolveClassName); err != nil {
			return err
		}
		return field("name_and_type_index", e.NameAndTypeIndex, d.resolveNameAndType)
	case *ConstantNameAndTypeInfo:
		if err := field("name_index", e.NameIndex, d.ResolveUtf8); err != nil {
			return err
		}
		return field("descriptor_index", e.DescriptorIndex, d.ResolveUtf8)
	case *ConstantMethodHandleInfo:
		d.out.Line(1, "reference_kind: %s(%d)", d.names.Lookup(names.MethodHandleKind, uint32(e.ReferenceKind)), e.ReferenceKind)
		return field("reference_index", e.ReferenceIndex, d.resolveRef)
	case *ConstantMethodTypeInfo:
		return field("descriptor_index", e.DescriptorIndex, d.ResolveUtf8)
	case *ConstantDynamicInfo:
		d.out.Line(1, "bootstrap_method_attr_index: %d", e.BootstrapMethodAttrIndex)
		return field("name_and_type_index", e.NameAndTypeIndex, d.resolveNameAndType)
	case *ConstantNamedInfo:
		return field("name_index", e.NameIndex, d.ResolveUtf8)
	}
	return nil
}
