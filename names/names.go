// Package names maps numeric opcode, tag and flag values to their display
// names. The tables are static and safe for concurrent use.
package names

import "strings"

// Domain selects one of the lookup tables.
type Domain int

const (
	ClassOpcode Domain = iota
	DexOpcode
	ConstantTag
	VerificationType
	ArrayType
	AnnotationVisibility
	EncodedValueType
	MethodHandleKind
	ClassAccess
	FieldAccess
	MethodAccess
	InnerClassAccess
	DexClassAccess
	DexFieldAccess
	DexMethodAccess
)

// Table is consumed by the decoders to render names. Lookup returns "" for
// unknown values. FlagNames returns the names of the bits set in mask in
// the table's declaration order.
type Table interface {
	Lookup(d Domain, v uint32) string
	FlagNames(d Domain, mask uint32) []string
}

// Flag is one named bit of an access-flag table.
type Flag struct {
	Mask uint32
	Name string
}

// Default is the built-in Table.
var Default Table = static{}

type static struct{}

func (static) Lookup(d Domain, v uint32) string {
	switch d {
	case ClassOpcode:
		if v < uint32(len(classOpcodes)) {
			return classOpcodes[v]
		}
		return ""
	case DexOpcode:
		if v < uint32(len(dexOpcodes)) {
			return dexOpcodes[v]
		}
		return ""
	}
	return values[d][v]
}

func (static) FlagNames(d Domain, mask uint32) []string {
	var out []string
	for _, f := range flags[d] {
		if mask&f.Mask != 0 {
			out = append(out, f.Name)
		}
	}
	return out
}

// Flags renders mask as space-joined flag names.
func Flags(t Table, d Domain, mask uint32) string {
	return strings.Join(t.FlagNames(d, mask), " ")
}

var values = map[Domain]map[uint32]string{
	ConstantTag: {
		1:  "CONSTANT_Utf8",
		3:  "CONSTANT_Integer",
		4:  "CONSTANT_Float",
		5:  "CONSTANT_Long",
		6:  "CONSTANT_Double",
		7:  "CONSTANT_Class",
		8:  "CONSTANT_String",
		9:  "CONSTANT_Fieldref",
		10: "CONSTANT_Methodref",
		11: "CONSTANT_InterfaceMethodref",
		12: "CONSTANT_NameAndType",
		15: "CONSTANT_MethodHandle",
		16: "CONSTANT_MethodType",
		17: "CONSTANT_Dynamic",
		18: "CONSTANT_InvokeDynamic",
		19: "CONSTANT_Module",
		20: "CONSTANT_Package",
	},
	VerificationType: {
		0: "Top",
		1: "Integer",
		2: "Float",
		3: "Double",
		4: "Long",
		5: "Null",
		6: "UninitializedThis",
		7: "Object",
		8: "Uninitialized",
	},
	ArrayType: {
		4:  "boolean",
		5:  "char",
		6:  "float",
		7:  "double",
		8:  "byte",
		9:  "short",
		10: "int",
		11: "long",
	},
	AnnotationVisibility: {
		0: "BUILD",
		1: "RUNTIME",
		2: "SYSTEM",
	},
	EncodedValueType: {
		0x00: "byte",
		0x02: "short",
		0x03: "char",
		0x04: "int",
		0x06: "long",
		0x10: "float",
		0x11: "double",
		0x15: "method_type",
		0x16: "method_handle",
		0x17: "string",
		0x18: "type",
		0x19: "field",
		0x1a: "method",
		0x1b: "enum",
		0x1c: "array",
		0x1d: "annotation",
		0x1e: "null",
		0x1f: "boolean",
	},
	MethodHandleKind: {
		1: "getField",
		2: "getStatic",
		3: "putField",
		4: "putStatic",
		5: "invokeVirtual",
		6: "invokeStatic",
		7: "invokeSpecial",
		8: "newInvokeSpecial",
		9: "invokeInterface",
	},
}

var flags = map[Domain][]Flag{
	ClassAccess: {
		{0x0001, "public"},
		{0x0010, "final"},
		{0x0020, "super"},
		{0x0200, "interface"},
		{0x0400, "abstract"},
		{0x1000, "synthetic"},
		{0x2000, "annotation"},
		{0x4000, "enum"},
		{0x8000, "module"},
	},
	FieldAccess: {
		{0x0001, "public"},
		{0x0002, "private"},
		{0x0004, "protected"},
		{0x0008, "static"},
		{0x0010, "final"},
		{0x0040, "volatile"},
		{0x0080, "transient"},
		{0x1000, "synthetic"},
		{0x4000, "enum"},
	},
	MethodAccess: {
		{0x0001, "public"},
		{0x0002, "private"},
		{0x0004, "protected"},
		{0x0008, "static"},
		{0x0010, "final"},
		{0x0020, "synchronized"},
		{0x0040, "bridge"},
		{0x0080, "varargs"},
		{0x0100, "native"},
		{0x0400, "abstract"},
		{0x0800, "strict"},
		{0x1000, "synthetic"},
	},
	InnerClassAccess: {
		{0x0001, "public"},
		{0x0002, "private"},
		{0x0004, "protected"},
		{0x0008, "static"},
		{0x0010, "final"},
		{0x0200, "interface"},
		{0x0400, "abstract"},
		{0x1000, "synthetic"},
		{0x2000, "annotation"},
		{0x4000, "enum"},
	},
	DexClassAccess: {
		{0x0001, "public"},
		{0x0002, "private"},
		{0x0004, "protected"},
		{0x0008, "static"},
		{0x0010, "final"},
		{0x0200, "interface"},
		{0x0400, "abstract"},
		{0x1000, "synthetic"},
		{0x2000, "annotation"},
		{0x4000, "enum"},
	},
	DexFieldAccess: {
		{0x0001, "public"},
		{0x0002, "private"},
		{0x0004, "protected"},
		{0x0008, "static"},
		{0x0010, "final"},
		{0x0040, "volatile"},
		{0x0080, "transient"},
		{0x1000, "synthetic"},
		{0x4000, "enum"},
	},
	DexMethodAccess: {
		{0x00001, "public"},
		{0x00002, "private"},
		{0x00004, "protected"},
		{0x00008, "static"},
		{0x00010, "final"},
		{0x00020, "synchronized"},
		{0x00040, "bridge"},
		{0x00080, "varargs"},
		{0x00100, "native"},
		{0x00400, "abstract"},
		{0x00800, "strict"},
		{0x01000, "synthetic"},
		{0x10000, "constructor"},
		{0x20000, "declared_synchronized"},
	},
}
