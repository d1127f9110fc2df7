package classfile

const (
	Magic = 0xCAFEBABE
)

type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccInterface AccessFlags = 0x0200
	AccAbstract  AccessFlags = 0x0400
	AccModule    AccessFlags = 0x8000
)

func (f AccessFlags) IsPublic() bool    { return f&AccPublic != 0 }
func (f AccessFlags) IsStatic() bool    { return f&AccStatic != 0 }
func (f AccessFlags) IsFinal() bool     { return f&AccFinal != 0 }
func (f AccessFlags) IsInterface() bool { return f&AccInterface != 0 }
func (f AccessFlags) IsAbstract() bool  { return f&AccAbstract != 0 }
func (f AccessFlags) IsModule() bool    { return f&AccModule != 0 }

type ConstantTag uint8

const (
	ConstantUtf8               ConstantTag = 1
	ConstantInteger            ConstantTag = 3
	ConstantFloat              ConstantTag = 4
	ConstantLong               ConstantTag = 5
	ConstantDouble             ConstantTag = 6
	ConstantClass              ConstantTag = 7
	ConstantString             ConstantTag = 8
	ConstantFieldref           ConstantTag = 9
	ConstantMethodref          ConstantTag = 10
	ConstantInterfaceMethodref ConstantTag = 11
	ConstantNameAndType        ConstantTag = 12
	ConstantMethodHandle       ConstantTag = 15
	ConstantMethodType         ConstantTag = 16
	ConstantDynamic            ConstantTag = 17
	ConstantInvokeDynamic      ConstantTag = 18
	ConstantModule             ConstantTag = 19
	ConstantPackage            ConstantTag = 20
)

// entryWidth is the encoded size of a pool entry including its tag byte.
// Utf8 entries are variable and handled separately.
var entryWidth = map[ConstantTag]int{
	ConstantInteger:            5,
	ConstantFloat:              5,
	ConstantLong:               9,
	ConstantDouble:             9,
	ConstantClass:              3,
	ConstantString:             3,
	ConstantFieldref:           5,
	ConstantMethodref:          5,
	ConstantInterfaceMethodref: 5,
	ConstantNameAndType:        5,
	ConstantMethodHandle:       4,
	ConstantMethodType:         3,
	ConstantDynamic:            5,
	ConstantInvokeDynamic:      5,
	ConstantModule:             3,
	ConstantPackage:            3,
}

type MethodHandleKind uint8

type VerificationTag uint8

const (
	ItemTop               VerificationTag = 0
	ItemInteger           VerificationTag = 1
	ItemFloat             VerificationTag = 2
	ItemDouble            VerificationTag = 3
	ItemLong              VerificationTag = 4
	ItemNull              VerificationTag = 5
	ItemUninitializedThis VerificationTag = 6
	ItemObject            VerificationTag = 7
	ItemUninitialized     VerificationTag = 8
)

// AttributeKind is the closed set of attributes the decoder understands.
type AttributeKind int

const (
	AttrUnknown AttributeKind = iota
	AttrCode
	AttrLineNumberTable
	AttrSourceFile
	AttrStackMapTable
	AttrExceptions
	AttrInnerClasses
	AttrConstantValue
	AttrSignature
	AttrLocalVariableTable
	AttrDeprecated
	AttrSynthetic
)

var attributeKinds = map[string]AttributeKind{
	"Code":               AttrCode,
	"LineNumberTable":    AttrLineNumberTable,
	"SourceFile":         AttrSourceFile,
	"StackMapTable":      AttrStackMapTable,
	"Exceptions":         AttrExceptions,
	"InnerClasses":       AttrInnerClasses,
	"ConstantValue":      AttrConstantValue,
	"Signature":          AttrSignature,
	"LocalVariableTable": AttrLocalVariableTable,
	"Deprecated":         AttrDeprecated,
	"Synthetic":          AttrSynthetic,
}

// AttributeKindOf maps an attribute name to its kind, or AttrUnknown.
func AttributeKindOf(name string) AttributeKind {
	return attributeKinds[name]
}

func (k AttributeKind) String() string {
	for name, kind := range attributeKinds {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Opcodes with operands. Everything else up to jsr_w is a single byte.
const (
	opBipush          = 0x10
	opSipush          = 0x11
	opLdc             = 0x12
	opLdcW            = 0x13
	opLdc2W           = 0x14
	opILoad           = 0x15
	opALoad           = 0x19
	opIStore          = 0x36
	opAStore          = 0x3a
	opIinc            = 0x84
	opIfeq            = 0x99
	opJsr             = 0xa8
	opRet             = 0xa9
	opTableSwitch     = 0xaa
	opLookupSwitch    = 0xab
	opGetStatic       = 0xb2
	opInvokeStatic    = 0xb8
	opInvokeInterface = 0xb9
	opInvokeDynamic   = 0xba
	opNew             = 0xbb
	opNewArray        = 0xbc
	opANewArray       = 0xbd
	opCheckCast       = 0xc0
	opInstanceOf      = 0xc1
	opWide            = 0xc4
	opMultiANewArray  = 0xc5
	opIfNull          = 0xc6
	opIfNonNull       = 0xc7
	opGotoW           = 0xc8
	opJsrW            = 0xc9
)
