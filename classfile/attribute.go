package classfile

import (
	"fmt"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

// parseAttributeArray renders a u2-counted attribute array. Every payload
// is read through a child cursor bounded by the declared length, and c
// resumes right after it whether or not the payload was fully consumed.
func (d *Decoder) parseAttributeArray(indent int, c *bytecursor.Cursor) error {
	count := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "attribute_count: %d", count)
	for i := 0; i < int(count); i++ {
		d.out.Line(indent, "attribute #%d", i)
		start := c.Pos()
		nameIndex := c.U2()
		length := c.U4()
		if err := c.Err(); err != nil {
			return err
		}
		name, err := d.ResolveUtf8(nameIndex)
		if err != nil {
			return fmt.Errorf("attribute %d name: %w", i, err)
		}
		d.out.Line(indent+1, "attribute %s", name)
		d.out.Line(indent+1, "attribute_length: %d", length)

		body := c.Sub(int(length))
		if err := c.Err(); err != nil {
			return err
		}
		kind := AttributeKindOf(name)
		if kind == AttrUnknown {
			if !d.skipUnknown {
				return bytecursor.Errorf(bytecursor.UnsupportedAttribute, start, "attribute %q", name)
			}
			d.log.Warningf("skipping unsupported attribute %s at offset 0x%x (%d bytes)", name, start, length)
			d.out.Line(indent+1, "(skipped)")
			continue
		}
		if err := d.parseAttribute(indent+1, kind, body); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	return d.out.Err()
}

func (d *Decoder) parseAttribute(indent int, kind AttributeKind, c *bytecursor.Cursor) error {
	switch kind {
	case AttrCode:
		return d.parseCode(indent, c)
	case AttrLineNumberTable:
		return d.parseLineNumberTable(indent, c)
	case AttrSourceFile:
		return d.printIndexed(indent, c, "sourcefile", d.ResolveUtf8)
	case AttrStackMapTable:
		return d.parseStackMapTable(indent, c)
	case AttrExceptions:
		return d.parseExceptions(indent, c)
	case AttrInnerClasses:
		return d.parseInnerClasses(indent, c)
	case AttrConstantValue:
		return d.printIndexed(indent, c, "constantvalue_index", d.ResolveString)
	case AttrSignature:
		return d.printIndexed(indent, c, "signature", d.ResolveUtf8)
	case AttrLocalVariableTable:
		return d.parseLocalVariableTable(indent, c)
	case AttrDeprecated, AttrSynthetic:
		return nil
	}
	return bytecursor.Errorf(bytecursor.UnsupportedAttribute, c.Pos(), "attribute kind %s", kind)
}

// printIndexed handles attributes whose payload is a single pool index.
func (d *Decoder) printIndexed(indent int, c *bytecursor.Cursor, label string, resolve func(uint16) (string, error)) error {
	idx := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	s, err := resolve(idx)
	if err != nil {
		return err
	}
	d.out.Line(indent, "%s: %d <%s>", label, idx, s)
	return nil
}

func (d *Decoder) parseCode(indent int, c *bytecursor.Cursor) error {
	maxStack := c.U2()
	maxLocals := c.U2()
	codeLength := c.U4()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "max_stack: %d", maxStack)
	d.out.Line(indent, "max_locals: %d", maxLocals)
	d.out.Line(indent, "code_length: %d", codeLength)

	code := c.Sub(int(codeLength))
	if err := c.Err(); err != nil {
		return err
	}
	if err := d.printCode(indent+1, code); err != nil {
		return err
	}

	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "exception_table_length: %d", n)
	for i := 0; i < int(n); i++ {
		startPC := c.U2()
		endPC := c.U2()
		handlerPC := c.U2()
		catchType := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		catchName := "any"
		if catchType != 0 {
			name, err := d.ResolveClassName(catchType)
			if err != nil {
				return fmt.Errorf("exception table entry %d: %w", i, err)
			}
			catchName = name
		}
		d.out.Line(indent+1, "start_pc 0x%x, end_pc 0x%x, handler_pc 0x%x, catch_type %d <%s>",
			startPC, endPC, handlerPC, catchType, catchName)
	}
	return d.parseAttributeArray(indent, c)
}

func (d *Decoder) parseLineNumberTable(indent int, c *bytecursor.Cursor) error {
	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "line_number_table_length: %d", n)
	for i := 0; i < int(n); i++ {
		startPC := c.U2()
		line := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		d.out.Line(indent+1, "start_pc 0x%x, line_number %d", startPC, line)
	}
	return nil
}

func (d *Decoder) parseLocalVariableTable(indent int, c *bytecursor.Cursor) error {
	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "local_variable_table_length: %d", n)
	for i := 0; i < int(n); i++ {
		startPC := c.U2()
		length := c.U2()
		nameIndex := c.U2()
		descIndex := c.U2()
		slot := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		name, err := d.ResolveUtf8(nameIndex)
		if err != nil {
			return err
		}
		desc, err := d.ResolveUtf8(descIndex)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "start_pc 0x%x, length %d, index %d, name %d <%s>, descriptor %d <%s>",
			startPC, length, slot, nameIndex, name, descIndex, desc)
	}
	return nil
}

func (d *Decoder) parseExceptions(indent int, c *bytecursor.Cursor) error {
	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "number_of_exceptions: %d", n)
	for i := 0; i < int(n); i++ {
		idx := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		name, err := d.ResolveClassName(idx)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "exception #%d: %d <%s>", i, idx, name)
	}
	return nil
}

func (d *Decoder) parseInnerClasses(indent int, c *bytecursor.Cursor) error {
	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "number_of_classes: %d", n)
	for i := 0; i < int(n); i++ {
		inner := c.U2()
		outer := c.U2()
		innerName := c.U2()
		flags := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		d.out.Line(indent, "class #%d", i)
		s, err := d.ResolveClassName(inner)
		if err != nil {
			return fmt.Errorf("inner class %d: %w", i, err)
		}
		d.out.Line(indent+1, "inner_class %d <%s>", inner, s)
		if outer != 0 {
			s, err := d.ResolveClassName(outer)
			if err != nil {
				return fmt.Errorf("outer class %d: %w", i, err)
			}
			d.out.Line(indent+1, "outer_class %d <%s>", outer, s)
		}
		if innerName != 0 {
			s, err := d.ResolveUtf8(innerName)
			if err != nil {
				return fmt.Errorf("inner name %d: %w", i, err)
			}
			d.out.Line(indent+1, "inner_name %d <%s>", innerName, s)
		}
		d.out.Line(indent+1, "access_flags: 0x%x %s", flags, names.Flags(d.names, names.InnerClassAccess, uint32(flags)))
	}
	return nil
}
