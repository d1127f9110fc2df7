package classfile

import (
	"fmt"
	"io"
)

// Header is the fixed part of a class file: everything up to the field
// table.
type Header struct {
	Magic             uint32      `json:"magic"`
	MinorVersion      uint16      `json:"minorVersion"`
	MajorVersion      uint16      `json:"majorVersion"`
	ConstantPoolCount uint16      `json:"constantPoolCount"`
	AccessFlags       AccessFlags `json:"accessFlags"`
	Flags             []string    `json:"flags,omitempty"`
	ThisClass         string      `json:"thisClass"`
	SuperClass        string      `json:"superClass,omitempty"`
	Interfaces        []string    `json:"interfaces,omitempty"`
}

func (h *Header) IsInterface() bool {
	return h.AccessFlags.IsInterface()
}

// ReadHeader decodes the header, constant pool and class info of buf
// without producing a dump.
func ReadHeader(buf []byte, opts ...Option) (*Header, error) {
	d := NewDecoder(buf, io.Discard, opts...)
	if err := d.ParseHeader(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := d.ParseConstantPool(); err != nil {
		return nil, fmt.Errorf("failed to read constant pool: %w", err)
	}
	if err := d.ParseAccessFlags(); err != nil {
		return nil, fmt.Errorf("failed to read class info: %w", err)
	}
	h := d.Header()
	return &h, nil
}
