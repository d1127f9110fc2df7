package classfile

import (
	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

// parseStackMapTable renders each frame at its absolute bytecode offset.
// The offset starts at -1 and every frame adds offset_delta+1, so the
// first frame lands on offset_delta itself.
func (d *Decoder) parseStackMapTable(indent int, c *bytecursor.Cursor) error {
	n := c.U2()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "num_of_entries: %d", n)

	offset := -1
	for i := 0; i < int(n); i++ {
		start := c.Pos()
		frameType := c.U1()
		if err := c.Err(); err != nil {
			return err
		}
		switch {
		case frameType <= 63:
			offset += int(frameType) + 1
			d.out.Line(indent+1, "<0x%x> same_frame", offset)
		case frameType <= 127:
			offset += int(frameType-64) + 1
			d.out.Line(indent+1, "<0x%x> same_locals_1_stack_item_frame", offset)
			if err := d.printVerificationType(indent+2, c); err != nil {
				return err
			}
		case frameType <= 246:
			return bytecursor.Errorf(bytecursor.ReservedFrameType, start, "frame_type %d", frameType)
		case frameType == 247:
			offset += int(c.U2()) + 1
			d.out.Line(indent+1, "<0x%x> same_locals_1_stack_item_frame_extended", offset)
			if err := d.printVerificationType(indent+2, c); err != nil {
				return err
			}
		case frameType <= 250:
			offset += int(c.U2()) + 1
			d.out.Line(indent+1, "<0x%x> chop_frame %d", offset, 251-int(frameType))
		case frameType == 251:
			offset += int(c.U2()) + 1
			d.out.Line(indent+1, "<0x%x> same_frame_extended", offset)
		case frameType <= 254:
			offset += int(c.U2()) + 1
			k := int(frameType) - 251
			d.out.Line(indent+1, "<0x%x> append_frame %d", offset, k)
			for j := 0; j < k; j++ {
				if err := d.printVerificationType(indent+2, c); err != nil {
					return err
				}
			}
		default:
			offset += int(c.U2()) + 1
			d.out.Line(indent+1, "<0x%x> full_frame", offset)
			locals := c.U2()
			d.out.Line(indent+2, "number_of_locals: %d", locals)
			for j := 0; j < int(locals); j++ {
				if err := d.printVerificationType(indent+2, c); err != nil {
					return err
				}
			}
			stack := c.U2()
			d.out.Line(indent+2, "number_of_stack_items: %d", stack)
			for j := 0; j < int(stack); j++ {
				if err := d.printVerificationType(indent+2, c); err != nil {
					return err
				}
			}
		}
		if err := c.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) printVerificationType(indent int, c *bytecursor.Cursor) error {
	start := c.Pos()
	tag := VerificationTag(c.U1())
	if err := c.Err(); err != nil {
		return err
	}
	name := d.names.Lookup(names.VerificationType, uint32(tag))
	switch tag {
	case ItemObject:
		idx := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		class, err := d.ResolveClassName(idx)
		if err != nil {
			return err
		}
		d.out.Line(indent, "verification info: %s %d <%s>", name, idx, class)
	case ItemUninitialized:
		off := c.U2()
		if err := c.Err(); err != nil {
			return err
		}
		d.out.Line(indent, "verification info: %s 0x%x", name, off)
	case ItemTop, ItemInteger, ItemFloat, ItemDouble, ItemLong, ItemNull, ItemUninitializedThis:
		d.out.Line(indent, "verification info: %s", name)
	default:
		return bytecursor.Errorf(bytecursor.UnknownVerificationType, start, "verification type %d", tag)
	}
	return nil
}
