package dexfile

import (
	"fmt"
	"io"
)

// NoIndex marks an absent superclass, source file or debug name.
const NoIndex = 0xffffffff

const (
	endianConstant        = 0x12345678
	reverseEndianConstant = 0x78563412

	headerItemSize = 0x70
)

// Row sizes of the fixed-width id tables.
const (
	stringIDSize = 4
	typeIDSize   = 4
	protoIDSize  = 12
	fieldIDSize  = 8
	methodIDSize = 8
	classDefSize = 32
)

// Section is a (count, offset) pair from the header. Rows are read lazily
// at Off + index*rowSize.
type Section struct {
	Size uint32 `json:"size"`
	Off  uint32 `json:"off"`
}

func (s Section) end(rowSize uint32) uint64 {
	return uint64(s.Off) + uint64(s.Size)*uint64(rowSize)
}

type Header struct {
	Version    string  `json:"version"`
	Checksum   uint32  `json:"checksum"`
	Signature  string  `json:"signature"`
	FileSize   uint32  `json:"fileSize"`
	HeaderSize uint32  `json:"headerSize"`
	EndianTag  uint32  `json:"endianTag"`
	Link       Section `json:"link"`
	MapOff     uint32  `json:"mapOff"`
	StringIDs  Section `json:"stringIds"`
	TypeIDs    Section `json:"typeIds"`
	ProtoIDs   Section `json:"protoIds"`
	FieldIDs   Section `json:"fieldIds"`
	MethodIDs  Section `json:"methodIds"`
	ClassDefs  Section `json:"classDefs"`
	Data       Section `json:"data"`
}

// ClassDef is one row of the class_defs table. SuperclassIdx and
// SourceFileIdx use NoIndex for absent values, the offsets use 0.
type ClassDef struct {
	ClassIdx        uint32 `json:"classIdx"`
	AccessFlags     uint32 `json:"accessFlags"`
	SuperclassIdx   uint32 `json:"superclassIdx"`
	InterfacesOff   uint32 `json:"interfacesOff"`
	SourceFileIdx   uint32 `json:"sourceFileIdx"`
	AnnotationsOff  uint32 `json:"annotationsOff"`
	ClassDataOff    uint32 `json:"classDataOff"`
	StaticValuesOff uint32 `json:"staticValuesOff"`
}

// ReadHeader decodes the header of buf without producing a dump.
func ReadHeader(buf []byte, opts ...Option) (*Header, error) {
	d := NewDecoder(buf, io.Discard, opts...)
	if err := d.ParseHeader(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	h := d.Header()
	return &h, nil
}
