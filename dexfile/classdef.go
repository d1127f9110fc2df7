package dexfile

import (
	"fmt"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

func (d *Decoder) ClassDef(i uint32) (ClassDef, error) {
	c, err := d.row("class_def", d.header.ClassDefs, classDefSize, i)
	if err != nil {
		return ClassDef{}, err
	}
	def := ClassDef{
		ClassIdx:        c.U4LE(),
		AccessFlags:     c.U4LE(),
		SuperclassIdx:   c.U4LE(),
		InterfacesOff:   c.U4LE(),
		SourceFileIdx:   c.U4LE(),
		AnnotationsOff:  c.U4LE(),
		ClassDataOff:    c.U4LE(),
		StaticValuesOff: c.U4LE(),
	}
	return def, c.Err()
}

func (d *Decoder) PrintClassDefs() error {
	d.out.Line(0, "class_defs_size: %d", d.header.ClassDefs.Size)
	for i := uint32(0); i < d.header.ClassDefs.Size; i++ {
		if err := d.printClassDef(1, i); err != nil {
			return fmt.Errorf("class #%d: %w", i, err)
		}
	}
	return d.out.Err()
}

func (d *Decoder) printClassDef(indent int, i uint32) error {
	def, err := d.ClassDef(i)
	if err != nil {
		return err
	}
	d.out.Line(indent, "class #%d:", i)
	indent++

	name, err := d.Type(def.ClassIdx)
	if err != nil {
		return err
	}
	d.out.Line(indent, "name: %s", name)
	d.out.Line(indent, "access_flags: 0x%x %s", def.AccessFlags, names.Flags(d.names, names.DexClassAccess, def.AccessFlags))

	super := "None"
	if def.SuperclassIdx != NoIndex {
		if super, err = d.Type(def.SuperclassIdx); err != nil {
			return fmt.Errorf("superclass: %w", err)
		}
	}
	d.out.Line(indent, "superclass: %s", super)

	interfaces := "None"
	if def.InterfacesOff != 0 {
		if interfaces, err = d.TypeList(def.InterfacesOff); err != nil {
			return fmt.Errorf("interfaces: %w", err)
		}
	}
	d.out.Line(indent, "interfaces: %s", interfaces)

	source := "None"
	if def.SourceFileIdx != NoIndex {
		if source, err = d.String(def.SourceFileIdx); err != nil {
			return fmt.Errorf("source_file: %w", err)
		}
	}
	d.out.Line(indent, "source_file: %s", source)

	d.out.Line(indent, "annotations_off: 0x%x", def.AnnotationsOff)
	if def.AnnotationsOff != 0 {
		if err := d.printAnnotationsDirectory(indent+1, def.AnnotationsOff); err != nil {
			return fmt.Errorf("annotations: %w", err)
		}
	}

	d.out.Line(indent, "class_data_off: 0x%x", def.ClassDataOff)
	if def.ClassDataOff != 0 {
		data, err := d.ClassData(def.ClassDataOff)
		if err != nil {
			return fmt.Errorf("class data: %w", err)
		}
		if err := d.printClassData(indent+1, data); err != nil {
			return fmt.Errorf("class data: %w", err)
		}
	}

	d.out.Line(indent, "static_values_off: 0x%x", def.StaticValuesOff)
	if def.StaticValuesOff != 0 {
		if err := d.printEncodedArray(indent+1, d.cur.At(def.StaticValuesOff)); err != nil {
			return fmt.Errorf("static values: %w", err)
		}
	}
	return d.out.Err()
}

// printAnnotationsDirectory renders an annotations_directory_item. Field
// and method entries point at annotation sets; parameter entries point at
// annotation set ref lists, one set per parameter.
func (d *Decoder) printAnnotationsDirectory(indent int, off uint32) error {
	c := d.cur.At(off)
	classAnnotations := c.U4LE()
	fieldsSize := c.U4LE()
	methodsSize := c.U4LE()
	paramsSize := c.U4LE()
	if err := c.Err(); err != nil {
		return err
	}

	d.out.Line(indent, "class_annotations_off: 0x%x", classAnnotations)
	if classAnnotations != 0 {
		if err := d.printAnnotationSet(indent+1, classAnnotations); err != nil {
			return err
		}
	}

	d.out.Line(indent, "annotated_fields_size: %d", fieldsSize)
	for i := uint32(0); i < fieldsSize; i++ {
		idx, setOff := c.U4LE(), c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		f, err := d.Field(idx)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "field %d %s", idx, f)
		if err := d.printAnnotationSet(indent+2, setOff); err != nil {
			return err
		}
	}

	d.out.Line(indent, "annotated_methods_size: %d", methodsSize)
	for i := uint32(0); i < methodsSize; i++ {
		idx, setOff := c.U4LE(), c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		m, err := d.Method(idx)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "method %d %s", idx, m)
		if err := d.printAnnotationSet(indent+2, setOff); err != nil {
			return err
		}
	}

	d.out.Line(indent, "annotated_parameters_size: %d", paramsSize)
	for i := uint32(0); i < paramsSize; i++ {
		idx, listOff := c.U4LE(), c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		m, err := d.Method(idx)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "method %d %s", idx, m)
		if err := d.printAnnotationSetRefList(indent+2, listOff); err != nil {
			return err
		}
	}
	return d.out.Err()
}

func (d *Decoder) printAnnotationSetRefList(indent int, off uint32) error {
	c := d.cur.At(off)
	size := c.U4LE()
	if err := c.Err(); err != nil {
		return err
	}
	for i := uint32(0); i < size; i++ {
		setOff := c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		d.out.Line(indent, "parameter #%d: annotations_off 0x%x", i, setOff)
		if setOff == 0 {
			continue
		}
		if err := d.printAnnotationSet(indent+1, setOff); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) printAnnotationSet(indent int, off uint32) error {
	c := d.cur.At(off)
	size := c.U4LE()
	if err := c.Err(); err != nil {
		return err
	}
	for i := uint32(0); i < size; i++ {
		itemOff := c.U4LE()
		if err := c.Err(); err != nil {
			return err
		}
		d.out.Line(indent, "annotation #%d: off 0x%x", i, itemOff)
		if err := d.printAnnotationItem(indent+1, itemOff); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) printAnnotationItem(indent int, off uint32) error {
	c := d.cur.At(off)
	visibility := c.U1()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "visibility: %s(%d)", d.names.Lookup(names.AnnotationVisibility, uint32(visibility)), visibility)
	a, err := decodeAnnotation(c)
	if err != nil {
		return err
	}
	return d.printAnnotation(indent, a)
}

type EncodedField struct {
	Index       uint32
	AccessFlags uint32
}

type EncodedMethod struct {
	Index       uint32
	AccessFlags uint32
	CodeOff     uint32
}

// ClassData is a decoded class_data_item. Indices are absolute: the
// running sums of the stored deltas, restarted at zero for each list.
type ClassData struct {
	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod
}

func (d *Decoder) ClassData(off uint32) (*ClassData, error) {
	c := d.cur.At(off)
	staticSize := c.ULEB128()
	instanceSize := c.ULEB128()
	directSize := c.ULEB128()
	virtualSize := c.ULEB128()
	if err := c.Err(); err != nil {
		return nil, err
	}
	// An encoded field takes at least two bytes, a method three.
	need := 2*(uint64(staticSize)+uint64(instanceSize)) + 3*(uint64(directSize)+uint64(virtualSize))
	if need > uint64(c.Remaining()) {
		return nil, bytecursor.Errorf(bytecursor.TruncatedInput, int(off), "class_data_item lists need %d bytes", need)
	}

	data := &ClassData{
		StaticFields:   readFields(c, staticSize),
		InstanceFields: readFields(c, instanceSize),
		DirectMethods:  readMethods(c, directSize),
		VirtualMethods: readMethods(c, virtualSize),
	}
	return data, c.Err()
}

func readFields(c *bytecursor.Cursor, n uint32) []EncodedField {
	fields := make([]EncodedField, 0, n)
	idx := uint32(0)
	for i := uint32(0); i < n && c.Err() == nil; i++ {
		idx += c.ULEB128()
		fields = append(fields, EncodedField{Index: idx, AccessFlags: c.ULEB128()})
	}
	return fields
}

func readMethods(c *bytecursor.Cursor, n uint32) []EncodedMethod {
	methods := make([]EncodedMethod, 0, n)
	idx := uint32(0)
	for i := uint32(0); i < n && c.Err() == nil; i++ {
		idx += c.ULEB128()
		m := EncodedMethod{Index: idx, AccessFlags: c.ULEB128()}
		m.CodeOff = c.ULEB128()
		methods = append(methods, m)
	}
	return methods
}

func (d *Decoder) printClassData(indent int, data *ClassData) error {
	lists := []struct {
		name   string
		fields []EncodedField
	}{
		{"static_fields", data.StaticFields},
		{"instance_fields", data.InstanceFields},
	}
	for _, l := range lists {
		d.out.Line(indent, "%s: size %d", l.name, len(l.fields))
		for _, f := range l.fields {
			s, err := d.Field(f.Index)
			if err != nil {
				return err
			}
			d.out.Line(indent+1, "field %d %s, access_flags 0x%x %s",
				f.Index, s, f.AccessFlags, names.Flags(d.names, names.DexFieldAccess, f.AccessFlags))
		}
	}

	methodLists := []struct {
		name    string
		methods []EncodedMethod
	}{
		{"direct_methods", data.DirectMethods},
		{"virtual_methods", data.VirtualMethods},
	}
	for _, l := range methodLists {
		d.out.Line(indent, "%s: size %d", l.name, len(l.methods))
		for _, m := range l.methods {
			s, err := d.Method(m.Index)
			if err != nil {
				return err
			}
			d.out.Line(indent+1, "method %d %s, access_flags 0x%x %s, code_off 0x%x",
				m.Index, s, m.AccessFlags, names.Flags(d.names, names.DexMethodAccess, m.AccessFlags), m.CodeOff)
			if m.CodeOff == 0 {
				continue
			}
			if err := d.printCodeItem(indent+2, m.CodeOff); err != nil {
				return fmt.Errorf("method %d code: %w", m.Index, err)
			}
		}
	}
	return d.out.Err()
}
