package dexfile

import (
	"bytes"
	"testing"

	"github.com/dhamidi/bcdump/bytecursor"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Value
	}{
		{"byte", []byte{0x00, 0x80}, Value{Kind: ValueByte, Int: -128}},
		{"int", []byte{0x04, 0x7f}, Value{Kind: ValueInt, Int: 127}},
		{"negative int", []byte{0x04, 0xff}, Value{Kind: ValueInt, Int: -1}},
		{"short", []byte{0x22, 0x00, 0x80}, Value{Kind: ValueShort, Arg: 1, Int: -32768}},
		{"char", []byte{0x23, 0xff, 0xff}, Value{Kind: ValueChar, Arg: 1, Uint: 65535}},
		{"long", []byte{0x06, 0x80}, Value{Kind: ValueLong, Int: -128}},
		{"float", []byte{0x30, 0x80, 0x3f}, Value{Kind: ValueFloat, Arg: 1, Float: 1.0}},
		{"double", []byte{0x31, 0xf0, 0x3f}, Value{Kind: ValueDouble, Arg: 1, Double: 1.0}},
		{"true", []byte{0x3f}, Value{Kind: ValueBoolean, Arg: 1, Bool: true}},
		{"false", []byte{0x1f}, Value{Kind: ValueBoolean}},
		{"null", []byte{0x1e}, Value{Kind: ValueNull}},
		{"string", []byte{0x17, 0x05}, Value{Kind: ValueString, Uint: 5}},
		{"wide type", []byte{0x38, 0x34, 0x12}, Value{Kind: ValueType, Arg: 1, Uint: 0x1234}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bytecursor.New(tt.input)
			got, err := DecodeValue(c)
			if err != nil {
				t.Fatalf("DecodeValue() error = %v", err)
			}
			if got.Kind != tt.want.Kind || got.Arg != tt.want.Arg || got.Int != tt.want.Int ||
				got.Uint != tt.want.Uint || got.Float != tt.want.Float || got.Double != tt.want.Double ||
				got.Bool != tt.want.Bool {
				t.Errorf("DecodeValue() = %+v, want %+v", got, tt.want)
			}
			if !c.AtEnd() {
				t.Errorf("DecodeValue() left %d bytes unread", c.Remaining())
			}
		})
	}
}

func TestDecodeNestedValues(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		v, err := DecodeValue(bytecursor.New([]byte{0x1c, 0x02, 0x04, 0x01, 0x1e}))
		if err != nil {
			t.Fatalf("DecodeValue() error = %v", err)
		}
		if v.Kind != ValueArray || len(v.Array) != 2 {
			t.Fatalf("DecodeValue() = %+v, want a two element array", v)
		}
		if v.Array[0].Kind != ValueInt || v.Array[0].Int != 1 {
			t.Errorf("element 0 = %+v, want (int) 1", v.Array[0])
		}
		if v.Array[1].Kind != ValueNull {
			t.Errorf("element 1 = %+v, want null", v.Array[1])
		}
	})

	t.Run("annotation", func(t *testing.T) {
		v, err := DecodeValue(bytecursor.New([]byte{0x1d, 0x00, 0x01, 0x02, 0x3f}))
		if err != nil {
			t.Fatalf("DecodeValue() error = %v", err)
		}
		a := v.Annotation
		if a == nil || a.TypeIdx != 0 || len(a.Elements) != 1 {
			t.Fatalf("annotation = %+v, want type 0 with one element", a)
		}
		if e := a.Elements[0]; e.NameIdx != 2 || !e.Value.Bool {
			t.Errorf("element = %+v, want name 2 = true", e)
		}
	})
}

func TestDecodeValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  bytecursor.ErrorKind
	}{
		{"boolean arg 2", []byte{0x5f}, bytecursor.InvalidEncodedValueArgument},
		{"byte arg 1", []byte{0x20, 0x00, 0x00}, bytecursor.InvalidEncodedValueArgument},
		{"array arg 1", []byte{0x3c, 0x00}, bytecursor.InvalidEncodedValueArgument},
		{"int arg 4", []byte{0x84, 0, 0, 0, 0, 0}, bytecursor.InvalidEncodedValueArgument},
		{"type 0x01", []byte{0x01}, bytecursor.UnknownEncodedValueType},
		{"type 0x05", []byte{0x05}, bytecursor.UnknownEncodedValueType},
		{"short payload", []byte{0x64, 0x01}, bytecursor.TruncatedInput},
		{"oversized array", []byte{0x1c, 0x10, 0x1e}, bytecursor.TruncatedInput},
		{"empty", nil, bytecursor.TruncatedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeValue(bytecursor.New(tt.input))
			if got := bytecursor.KindOf(err); got != tt.want {
				t.Errorf("DecodeValue() kind = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestPrintValue(t *testing.T) {
	var out bytes.Buffer
	d := NewDecoder(baseBuilder().build(), &out)
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte{0x17, 0x0b}, "(string) 11 <hello>\n"},
		{[]byte{0x18, 0x02}, "(type) 2 <Ljava/lang/Object;>\n"},
		{[]byte{0x19, 0x03}, "(field) 3 <(class LFoo;, type I, name w)>\n"},
		{[]byte{0x1e}, "(null)\n"},
		{[]byte{0x1c, 0x01, 0x3f}, "(array) size 1\n  (boolean) true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			v, err := DecodeValue(bytecursor.New(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			out.Reset()
			if err := d.printValue(0, v); err != nil {
				t.Fatalf("printValue() error = %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("printValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
