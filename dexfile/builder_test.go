package dexfile

import (
	"encoding/binary"
)

// leBuilder appends little-endian fields.
type leBuilder struct {
	buf []byte
}

func (b *leBuilder) u1(v ...byte) *leBuilder {
	b.buf = append(b.buf, v...)
	return b
}

func (b *leBuilder) u2(v ...uint16) *leBuilder {
	for _, x := range v {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, x)
	}
	return b
}

func (b *leBuilder) u4(v ...uint32) *leBuilder {
	for _, x := range v {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, x)
	}
	return b
}

func (b *leBuilder) uleb(v uint32) *leBuilder {
	b.buf = binary.AppendUvarint(b.buf, uint64(v))
	return b
}

func (b *leBuilder) sleb(v int32) *leBuilder {
	for {
		x := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && x&0x40 == 0) || (v == -1 && x&0x40 != 0) {
			b.buf = append(b.buf, x)
			return b
		}
		b.buf = append(b.buf, x|0x80)
	}
}

// dexBuilder lays out a dex file as header, id tables, data blobs,
// string data and class defs, in that order. All id tables must be
// filled before the first blob is added, since blob offsets depend on
// their sizes.
type dexBuilder struct {
	strings []string
	types   []uint32
	protos  [][3]uint32
	fields  [][3]uint32
	methods [][3]uint32
	classes []ClassDef
	data    []byte
	frozen  bool
}

func (b *dexBuilder) str(s ...string) *dexBuilder {
	b.mutable()
	b.strings = append(b.strings, s...)
	return b
}

func (b *dexBuilder) typ(stringIdx ...uint32) *dexBuilder {
	b.mutable()
	b.types = append(b.types, stringIdx...)
	return b
}

func (b *dexBuilder) proto(shorty, ret, paramsOff uint32) *dexBuilder {
	b.mutable()
	b.protos = append(b.protos, [3]uint32{shorty, ret, paramsOff})
	return b
}

func (b *dexBuilder) field(class, typ, name uint32) *dexBuilder {
	b.mutable()
	b.fields = append(b.fields, [3]uint32{class, typ, name})
	return b
}

func (b *dexBuilder) method(class, proto, name uint32) *dexBuilder {
	b.mutable()
	b.methods = append(b.methods, [3]uint32{class, proto, name})
	return b
}

func (b *dexBuilder) mutable() {
	if b.frozen {
		panic("id tables changed after a blob was added")
	}
}

func (b *dexBuilder) dataStart() uint32 {
	return headerItemSize +
		uint32(len(b.strings))*stringIDSize +
		uint32(len(b.types))*typeIDSize +
		uint32(len(b.protos))*protoIDSize +
		uint32(len(b.fields))*fieldIDSize +
		uint32(len(b.methods))*methodIDSize
}

// blob appends 4-byte aligned data and returns its absolute offset.
func (b *dexBuilder) blob(data []byte) uint32 {
	b.frozen = true
	for len(b.data)%4 != 0 {
		b.data = append(b.data, 0)
	}
	off := b.dataStart() + uint32(len(b.data))
	b.data = append(b.data, data...)
	return off
}

func (b *dexBuilder) class(def ClassDef) *dexBuilder {
	b.frozen = true
	b.classes = append(b.classes, def)
	return b
}

func (b *dexBuilder) build() []byte {
	w := &leBuilder{}
	start := b.dataStart()
	data := append([]byte(nil), b.data...)
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	var stringOffs []uint32
	for _, s := range b.strings {
		stringOffs = append(stringOffs, start+uint32(len(data)))
		data = binary.AppendUvarint(data, uint64(len([]rune(s))))
		data = append(data, s...)
		data = append(data, 0)
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	classDefsOff := start + uint32(len(data))
	fileSize := classDefsOff + uint32(len(b.classes))*classDefSize

	off := uint32(headerItemSize)
	section := func(n int, rowSize uint32) (uint32, uint32) {
		if n == 0 {
			return 0, 0
		}
		o := off
		off += uint32(n) * rowSize
		return uint32(n), o
	}

	w.u1('d', 'e', 'x', '\n', '0', '3', '5', 0)
	w.u4(0x1234abcd)
	w.u1(make([]byte, 20)...)
	w.u4(fileSize, headerItemSize, endianConstant)
	w.u4(0, 0, 0)
	w.u4(section(len(b.strings), stringIDSize))
	w.u4(section(len(b.types), typeIDSize))
	w.u4(section(len(b.protos), protoIDSize))
	w.u4(section(len(b.fields), fieldIDSize))
	w.u4(section(len(b.methods), methodIDSize))
	if len(b.classes) == 0 {
		w.u4(0, 0)
	} else {
		w.u4(uint32(len(b.classes)), classDefsOff)
	}
	w.u4(uint32(len(data)), start)

	w.u4(stringOffs...)
	w.u4(b.types...)
	for _, p := range b.protos {
		w.u4(p[0], p[1], p[2])
	}
	for _, f := range b.fields {
		w.u2(uint16(f[0]), uint16(f[1])).u4(f[2])
	}
	for _, m := range b.methods {
		w.u2(uint16(m[0]), uint16(m[1])).u4(m[2])
	}
	w.u1(data...)
	for _, c := range b.classes {
		w.u4(c.ClassIdx, c.AccessFlags, c.SuperclassIdx, c.InterfacesOff,
			c.SourceFileIdx, c.AnnotationsOff, c.ClassDataOff, c.StaticValuesOff)
	}
	return w.buf
}
