package dexfile

import (
	"math"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/names"
)

// ValueKind is the low five bits of an encoded_value header byte.
type ValueKind uint8

const (
	ValueByte         ValueKind = 0x00
	ValueShort        ValueKind = 0x02
	ValueChar         ValueKind = 0x03
	ValueInt          ValueKind = 0x04
	ValueLong         ValueKind = 0x06
	ValueFloat        ValueKind = 0x10
	ValueDouble       ValueKind = 0x11
	ValueMethodType   ValueKind = 0x15
	ValueMethodHandle ValueKind = 0x16
	ValueString       ValueKind = 0x17
	ValueType         ValueKind = 0x18
	ValueField        ValueKind = 0x19
	ValueMethod       ValueKind = 0x1a
	ValueEnum         ValueKind = 0x1b
	ValueArray        ValueKind = 0x1c
	ValueAnnotation   ValueKind = 0x1d
	ValueNull         ValueKind = 0x1e
	ValueBoolean      ValueKind = 0x1f
)

// maxArg is the largest value_arg each kind accepts. For scalars the
// payload is value_arg+1 bytes.
var maxArg = map[ValueKind]uint8{
	ValueByte:         0,
	ValueShort:        1,
	ValueChar:         1,
	ValueInt:          3,
	ValueLong:         7,
	ValueFloat:        3,
	ValueDouble:       7,
	ValueMethodType:   3,
	ValueMethodHandle: 3,
	ValueString:       3,
	ValueType:         3,
	ValueField:        3,
	ValueMethod:       3,
	ValueEnum:         3,
	ValueArray:        0,
	ValueAnnotation:   0,
	ValueNull:         0,
	ValueBoolean:      1,
}

func (k ValueKind) String() string {
	if s := names.Default.Lookup(names.EncodedValueType, uint32(k)); s != "" {
		return s
	}
	return "unknown"
}

// Value is a decoded encoded_value. Which field is meaningful depends on
// Kind: Int for byte, short, int and long; Uint for char and every index
// kind; Float, Double, Bool, Array and Annotation for their kinds.
type Value struct {
	Kind       ValueKind
	Arg        uint8
	Int        int64
	Uint       uint64
	Float      float32
	Double     float64
	Bool       bool
	Array      []Value
	Annotation *Annotation
}

// Index returns the pool index of an index-valued kind.
func (v Value) Index() uint32 {
	return uint32(v.Uint)
}

type Annotation struct {
	TypeIdx  uint32
	Elements []AnnotationElement
}

type AnnotationElement struct {
	NameIdx uint32
	Value   Value
}

// DecodeValue reads one encoded_value at the cursor position.
func DecodeValue(c *bytecursor.Cursor) (Value, error) {
	start := c.Pos()
	header := c.U1()
	if err := c.Err(); err != nil {
		return Value{}, err
	}
	v := Value{Kind: ValueKind(header & 0x1f), Arg: header >> 5}
	limit, ok := maxArg[v.Kind]
	if !ok {
		return v, bytecursor.Errorf(bytecursor.UnknownEncodedValueType, start, "encoded value type 0x%x", uint8(v.Kind))
	}
	if v.Arg > limit {
		return v, bytecursor.Errorf(bytecursor.InvalidEncodedValueArgument, start,
			"value_arg %d exceeds %d for %s", v.Arg, limit, v.Kind)
	}

	switch v.Kind {
	case ValueNull:
		return v, nil
	case ValueBoolean:
		v.Bool = v.Arg == 1
		return v, nil
	case ValueArray:
		arr, err := decodeArray(c)
		v.Array = arr
		return v, err
	case ValueAnnotation:
		a, err := decodeAnnotation(c)
		v.Annotation = a
		return v, err
	}

	size := uint(v.Arg) + 1
	b := c.Bytes(int(size))
	if err := c.Err(); err != nil {
		return v, err
	}
	var raw uint64
	for i, x := range b {
		raw |= uint64(x) << (8 * i)
	}

	switch v.Kind {
	case ValueByte, ValueShort, ValueInt, ValueLong:
		v.Int = bytecursor.SignExtend[int64](raw, 8*size)
	case ValueFloat:
		// Float and double bytes are the high-order bytes of the value.
		v.Float = math.Float32frombits(uint32(raw << (32 - 8*size)))
	case ValueDouble:
		v.Double = math.Float64frombits(raw << (64 - 8*size))
	default:
		v.Uint = raw
	}
	return v, nil
}

func decodeArray(c *bytecursor.Cursor) ([]Value, error) {
	size := c.ULEB128()
	if err := c.Err(); err != nil {
		return nil, err
	}
	// Every element takes at least one byte.
	if int64(size) > int64(c.Remaining()) {
		return nil, bytecursor.Errorf(bytecursor.TruncatedInput, c.Pos(), "encoded array of %d elements", size)
	}
	values := make([]Value, 0, size)
	for i := uint32(0); i < size; i++ {
		v, err := DecodeValue(c)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

func decodeAnnotation(c *bytecursor.Cursor) (*Annotation, error) {
	a := &Annotation{TypeIdx: c.ULEB128()}
	size := c.ULEB128()
	if err := c.Err(); err != nil {
		return a, err
	}
	if int64(size)*2 > int64(c.Remaining()) {
		return a, bytecursor.Errorf(bytecursor.TruncatedInput, c.Pos(), "encoded annotation of %d elements", size)
	}
	for i := uint32(0); i < size; i++ {
		name := c.ULEB128()
		if err := c.Err(); err != nil {
			return a, err
		}
		v, err := DecodeValue(c)
		if err != nil {
			return a, err
		}
		a.Elements = append(a.Elements, AnnotationElement{NameIdx: name, Value: v})
	}
	return a, nil
}

func (d *Decoder) printValue(indent int, v Value) error {
	kind := d.names.Lookup(names.EncodedValueType, uint32(v.Kind))
	var resolve func(uint32) (string, error)
	switch v.Kind {
	case ValueByte, ValueShort, ValueInt, ValueLong:
		d.out.Line(indent, "(%s) %d", kind, v.Int)
		return nil
	case ValueChar:
		d.out.Line(indent, "(%s) %d", kind, v.Uint)
		return nil
	case ValueFloat:
		d.out.Line(indent, "(%s) %f", kind, v.Float)
		return nil
	case ValueDouble:
		d.out.Line(indent, "(%s) %f", kind, v.Double)
		return nil
	case ValueNull:
		d.out.Line(indent, "(%s)", kind)
		return nil
	case ValueBoolean:
		d.out.Line(indent, "(%s) %t", kind, v.Bool)
		return nil
	case ValueMethodHandle:
		d.out.Line(indent, "(%s) %d", kind, v.Uint)
		return nil
	case ValueArray:
		d.out.Line(indent, "(%s) size %d", kind, len(v.Array))
		for _, e := range v.Array {
			if err := d.printValue(indent+1, e); err != nil {
				return err
			}
		}
		return nil
	case ValueAnnotation:
		d.out.Line(indent, "(%s)", kind)
		return d.printAnnotation(indent+1, v.Annotation)
	case ValueString:
		resolve = d.String
	case ValueType:
		resolve = d.Type
	case ValueMethodType:
		resolve = d.Proto
	case ValueField, ValueEnum:
		resolve = d.Field
	case ValueMethod:
		resolve = d.Method
	}
	s, err := ref(v.Index(), resolve)
	if err != nil {
		return err
	}
	d.out.Line(indent, "(%s) %s", kind, s)
	return nil
}

func (d *Decoder) printAnnotation(indent int, a *Annotation) error {
	t, err := ref(a.TypeIdx, d.Type)
	if err != nil {
		return err
	}
	d.out.Line(indent, "type: %s", t)
	d.out.Line(indent, "size: %d", len(a.Elements))
	for _, e := range a.Elements {
		name, err := ref(e.NameIdx, d.String)
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "name: %s", name)
		if err := d.printValue(indent+1, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// printEncodedArray renders an encoded_array_item, as found at a class's
// static_values_off.
func (d *Decoder) printEncodedArray(indent int, c *bytecursor.Cursor) error {
	values, err := decodeArray(c)
	if err != nil {
		return err
	}
	d.out.Line(indent, "size: %d", len(values))
	for _, v := range values {
		if err := d.printValue(indent+1, v); err != nil {
			return err
		}
	}
	return d.out.Err()
}
