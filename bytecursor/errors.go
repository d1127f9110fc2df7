package bytecursor

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	TruncatedInput ErrorKind = iota + 1
	NotAClassFile
	NotADexFile
	UnexpectedConstantTag
	UnknownConstantTag
	UnknownClassOpcode
	UnknownDexOpcode
	UnsupportedAttribute
	MalformedBytecode
	InvalidEncodedValueArgument
	UnknownEncodedValueType
	IndexOutOfRange
	ReservedFrameType
	UnknownVerificationType
)

var kindNames = map[ErrorKind]string{
	TruncatedInput:              "truncated input",
	NotAClassFile:               "not a class file",
	NotADexFile:                 "not a dex file",
	UnexpectedConstantTag:       "unexpected constant tag",
	UnknownConstantTag:          "unknown constant tag",
	UnknownClassOpcode:          "unknown class opcode",
	UnknownDexOpcode:            "unknown dex opcode",
	UnsupportedAttribute:        "unsupported attribute",
	MalformedBytecode:           "malformed bytecode",
	InvalidEncodedValueArgument: "invalid encoded value argument",
	UnknownEncodedValueType:     "unknown encoded value type",
	IndexOutOfRange:             "index out of range",
	ReservedFrameType:           "reserved frame type",
	UnknownVerificationType:     "unknown verification type",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error is a decode failure at a byte offset of the input buffer.
// Offset is -1 when no position applies.
type Error struct {
	Kind   ErrorKind
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at offset 0x%x: %s", e.Kind, e.Offset, e.Msg)
}

func Errorf(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
