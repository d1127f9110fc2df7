package bytecursor

import "golang.org/x/exp/constraints"

// maxLEB128Len is the longest encoding of a 32-bit value.
const maxLEB128Len = 5

func (c *Cursor) leb128() (result uint32, shift uint) {
	start := c.pos
	for i := 0; i < maxLEB128Len; i++ {
		b := c.U1()
		if c.err != nil {
			return 0, 0
		}
		result |= uint32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return result, shift
		}
	}
	c.Fail(Errorf(TruncatedInput, start, "LEB128 value longer than %d bytes", maxLEB128Len))
	return 0, 0
}

func (c *Cursor) ULEB128() uint32 {
	v, _ := c.leb128()
	return v
}

func (c *Cursor) SLEB128() int32 {
	v, shift := c.leb128()
	if shift == 0 || shift >= 32 {
		return int32(v)
	}
	return SignExtend[int32](uint64(v), shift)
}

// ULEB128P1 decodes a ULEB128 holding value+1, so that 0 on the wire
// decodes to -1 (NO_INDEX).
func (c *Cursor) ULEB128P1() int32 {
	return int32(c.ULEB128() - 1)
}

// SignExtend interprets the low bits bits of v as a two's complement number.
func SignExtend[T constraints.Signed](v uint64, bits uint) T {
	shift := 64 - bits
	return T(int64(v<<shift) >> shift)
}
