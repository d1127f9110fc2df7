// Package bytecursor reads fixed-width and variable-length integers out of
// an immutable byte buffer.
//
// A Cursor remembers the first failed read: every later read returns a zero
// value, and Err reports the original failure. Callers read a group of
// fields and check Err once, the same way a bufio.Scanner is used.
package bytecursor

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

type Cursor struct {
	buf []byte
	pos int
	end int
	err error
}

// New returns a cursor over the whole buffer.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf, end: len(buf)}
}

// At returns a new cursor positioned at an absolute offset of the same
// buffer, bounded by the buffer end.
func (c *Cursor) At(off uint32) *Cursor {
	n := &Cursor{buf: c.buf, pos: int(off), end: len(c.buf)}
	if uint64(off) > uint64(len(c.buf)) {
		n.pos = len(c.buf)
		n.err = Errorf(TruncatedInput, int(off), "offset beyond end of buffer (size 0x%x)", len(c.buf))
	}
	return n
}

// Sub returns a cursor over the next n bytes and advances c past them.
// The child cannot read beyond those n bytes.
func (c *Cursor) Sub(n int) *Cursor {
	sub := &Cursor{buf: c.buf, pos: c.pos, end: c.pos}
	if c.err != nil {
		sub.err = c.err
		return sub
	}
	if n < 0 || n > c.end-c.pos {
		c.fail(n)
		sub.err = c.err
		return sub
	}
	sub.end = c.pos + n
	c.pos += n
	return sub
}

func (c *Cursor) Err() error     { return c.err }
func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) End() int       { return c.end }
func (c *Cursor) AtEnd() bool    { return c.pos >= c.end }
func (c *Cursor) Buffer() []byte { return c.buf }

func (c *Cursor) Remaining() int {
	if c.pos >= c.end {
		return 0
	}
	return c.end - c.pos
}

// Seek moves to an absolute offset inside the cursor's extent. Seeking to
// the end is allowed.
func (c *Cursor) Seek(pos int) {
	if c.err != nil {
		return
	}
	if pos < 0 || pos > c.end {
		c.err = Errorf(TruncatedInput, pos, "seek outside of [0x%x, 0x%x]", 0, c.end)
		return
	}
	c.pos = pos
}

// Fail records err unless an earlier failure is already recorded.
func (c *Cursor) Fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Cursor) fail(n int) {
	if c.err == nil {
		c.err = Errorf(TruncatedInput, c.pos, "need %d bytes, %d remain", n, c.Remaining())
	}
}

func (c *Cursor) window() cryptobyte.String {
	return cryptobyte.String(c.buf[c.pos:c.end])
}

func (c *Cursor) advance(s cryptobyte.String) {
	c.pos = c.end - len(s)
}

func (c *Cursor) U1() uint8 {
	if c.err != nil {
		return 0
	}
	var v uint8
	s := c.window()
	if !s.ReadUint8(&v) {
		c.fail(1)
		return 0
	}
	c.advance(s)
	return v
}

// Peek returns the next byte without consuming it.
func (c *Cursor) Peek() uint8 {
	if c.err != nil {
		return 0
	}
	if c.pos >= c.end {
		c.fail(1)
		return 0
	}
	return c.buf[c.pos]
}

func (c *Cursor) U2() uint16 {
	if c.err != nil {
		return 0
	}
	var v uint16
	s := c.window()
	if !s.ReadUint16(&v) {
		c.fail(2)
		return 0
	}
	c.advance(s)
	return v
}

func (c *Cursor) U4() uint32 {
	if c.err != nil {
		return 0
	}
	var v uint32
	s := c.window()
	if !s.ReadUint32(&v) {
		c.fail(4)
		return 0
	}
	c.advance(s)
	return v
}

func (c *Cursor) U8() uint64 {
	if c.err != nil {
		return 0
	}
	var v uint64
	s := c.window()
	if !s.ReadUint64(&v) {
		c.fail(8)
		return 0
	}
	c.advance(s)
	return v
}

func (c *Cursor) S1() int8  { return int8(c.U1()) }
func (c *Cursor) S2() int16 { return int16(c.U2()) }
func (c *Cursor) S4() int32 { return int32(c.U4()) }

// Bytes returns the next n bytes. The slice aliases the buffer.
func (c *Cursor) Bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	var b []byte
	s := c.window()
	if n < 0 || !s.ReadBytes(&b, n) {
		c.fail(n)
		return nil
	}
	c.advance(s)
	return b
}

func (c *Cursor) Skip(n int) {
	if c.err != nil {
		return
	}
	s := c.window()
	if n < 0 || !s.Skip(n) {
		c.fail(n)
		return
	}
	c.advance(s)
}

// Align skips forward until (pos - origin) is a multiple of n.
func (c *Cursor) Align(n, origin int) {
	if pad := (c.pos - origin) % n; pad != 0 {
		c.Skip(n - pad)
	}
}

func (c *Cursor) U2LE() uint16 {
	b := c.Bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *Cursor) U4LE() uint32 {
	b := c.Bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *Cursor) U8LE() uint64 {
	b := c.Bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *Cursor) S2LE() int16 { return int16(c.U2LE()) }
func (c *Cursor) S4LE() int32 { return int32(c.U4LE()) }
func (c *Cursor) S8LE() int64 { return int64(c.U8LE()) }

// CString returns the bytes up to the next NUL and consumes the NUL.
// A missing terminator inside the cursor's extent is a TruncatedInput error.
func (c *Cursor) CString() []byte {
	if c.err != nil {
		return nil
	}
	for i := c.pos; i < c.end; i++ {
		if c.buf[i] == 0 {
			b := c.buf[c.pos:i]
			c.pos = i + 1
			return b
		}
	}
	c.err = Errorf(TruncatedInput, c.pos, "unterminated string")
	return nil
}
