package classfile

import (
	"fmt"

	"github.com/dhamidi/bcdump/names"
)

func (d *Decoder) ParseFields() error {
	return d.parseMembers("field", names.FieldAccess)
}

// parseMembers renders a field or method table. Both share the layout
// access_flags, name_index, descriptor_index, attributes.
func (d *Decoder) parseMembers(kind string, flagDomain names.Domain) error {
	count := d.cur.U2()
	if err := d.cur.Err(); err != nil {
		return err
	}
	d.out.Line(0, "%s_count: %d", kind, count)
	d.out.Line(0, "%ss:", kind)
	for i := 0; i < int(count); i++ {
		flags := d.cur.U2()
		nameIndex := d.cur.U2()
		descIndex := d.cur.U2()
		if err := d.cur.Err(); err != nil {
			return err
		}
		name, err := d.ResolveUtf8(nameIndex)
		if err != nil {
			return fmt.Errorf("%s %d name: %w", kind, i, err)
		}
		desc, err := d.ResolveUtf8(descIndex)
		if err != nil {
			return fmt.Errorf("%s %d descriptor: %w", kind, i, err)
		}
		d.out.Line(0, "#%d: %s [Type:%s]", i, name, desc)
		d.out.Line(1, "access_flags: 0x%x %s", flags, names.Flags(d.names, flagDomain, uint32(flags)))
		if err := d.parseAttributeArray(1, d.cur); err != nil {
			return fmt.Errorf("%s %s: %w", kind, name, err)
		}
	}
	return d.check()
}
