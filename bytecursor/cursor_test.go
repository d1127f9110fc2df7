package bytecursor

import (
	"testing"
)

func TestFixedReads(t *testing.T) {
	c := New([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x34, 0xFF, 0x01, 0x02, 0x03, 0x04})

	if got := c.U4(); got != 0xCAFEBABE {
		t.Errorf("U4() = 0x%x, want 0xcafebabe", got)
	}
	if got := c.U2(); got != 0x34 {
		t.Errorf("U2() = 0x%x, want 0x34", got)
	}
	if got := c.S1(); got != -1 {
		t.Errorf("S1() = %d, want -1", got)
	}
	if got := c.U4LE(); got != 0x04030201 {
		t.Errorf("U4LE() = 0x%x, want 0x04030201", got)
	}
	if !c.AtEnd() {
		t.Errorf("AtEnd() = false at pos %d", c.Pos())
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
}

func TestTruncatedIsSticky(t *testing.T) {
	c := New([]byte{0x01, 0x02, 0x03})
	c.U2()
	if got := c.U2(); got != 0 {
		t.Errorf("U2() past end = %d, want 0", got)
	}
	if got := KindOf(c.Err()); got != TruncatedInput {
		t.Fatalf("KindOf(Err()) = %v, want %v", got, TruncatedInput)
	}
	first := c.Err()
	c.U1()
	c.U8()
	if c.Err() != first {
		t.Errorf("later reads replaced the first error: %v", c.Err())
	}
	e := first.(*Error)
	if e.Offset != 2 {
		t.Errorf("Offset = %d, want 2", e.Offset)
	}
}

func TestSubBoundsReads(t *testing.T) {
	c := New([]byte{0x00, 0x02, 0xAA, 0xBB, 0xCC})
	n := c.U2()
	sub := c.Sub(int(n))
	if got := c.Pos(); got != 4 {
		t.Errorf("parent Pos() = %d, want 4", got)
	}
	sub.U2()
	sub.U1()
	if got := KindOf(sub.Err()); got != TruncatedInput {
		t.Errorf("reading past sub extent: KindOf = %v, want %v", got, TruncatedInput)
	}
	if c.Err() != nil {
		t.Errorf("parent Err() = %v, want nil", c.Err())
	}
	if got := c.U1(); got != 0xCC {
		t.Errorf("parent U1() = 0x%x, want 0xcc", got)
	}
}

func TestSubLongerThanBuffer(t *testing.T) {
	c := New([]byte{0x01, 0x02})
	sub := c.Sub(10)
	if KindOf(sub.Err()) != TruncatedInput || KindOf(c.Err()) != TruncatedInput {
		t.Errorf("Sub(10) errors = %v / %v, want truncated input", sub.Err(), c.Err())
	}
}

func TestAt(t *testing.T) {
	c := New([]byte{0, 1, 2, 3})
	if got := c.At(3).U1(); got != 3 {
		t.Errorf("At(3).U1() = %d, want 3", got)
	}
	far := c.At(9)
	if KindOf(far.Err()) != TruncatedInput {
		t.Errorf("At(9).Err() = %v, want truncated input", far.Err())
	}
}

func TestAlign(t *testing.T) {
	for pre := 0; pre < 8; pre++ {
		buf := make([]byte, 16)
		c := New(buf)
		c.Skip(pre)
		c.Align(4, 0)
		if c.Pos()%4 != 0 {
			t.Errorf("Align after %d bytes: Pos() = %d", pre, c.Pos())
		}
		if c.Pos()-pre > 3 {
			t.Errorf("Align after %d bytes skipped %d", pre, c.Pos()-pre)
		}
	}
}

func TestCString(t *testing.T) {
	c := New([]byte{'F', 'o', 'o', 0, 'x'})
	if got := string(c.CString()); got != "Foo" {
		t.Errorf("CString() = %q, want %q", got, "Foo")
	}
	if got := c.Pos(); got != 4 {
		t.Errorf("Pos() = %d, want 4", got)
	}
	c.CString()
	if KindOf(c.Err()) != TruncatedInput {
		t.Errorf("unterminated CString: Err() = %v", c.Err())
	}
}

func encodeULEB128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func TestLEB128(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		uleb  uint32
		sleb  int32
		ulebp int32
	}{
		{"zero", []byte{0x00}, 0, 0, -1},
		{"one", []byte{0x01}, 1, 1, 0},
		{"seven bits", []byte{0x7f}, 127, -1, 126},
		{"two bytes", []byte{0x80, 0x7f}, 16256, -128, 16255},
		{"max", []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff, -1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.in).ULEB128(); got != tt.uleb {
				t.Errorf("ULEB128() = %d, want %d", got, tt.uleb)
			}
			if got := New(tt.in).SLEB128(); got != tt.sleb {
				t.Errorf("SLEB128() = %d, want %d", got, tt.sleb)
			}
			if got := New(tt.in).ULEB128P1(); got != tt.ulebp {
				t.Errorf("ULEB128P1() = %d, want %d", got, tt.ulebp)
			}
		})
	}
}

func TestLEB128TooLong(t *testing.T) {
	c := New([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	c.ULEB128()
	if KindOf(c.Err()) != TruncatedInput {
		t.Errorf("six byte LEB128: Err() = %v, want truncated input", c.Err())
	}
}

func TestULEB128P1RoundTrip(t *testing.T) {
	values := []int32{-1, 0, 1, 63, 64, 127, 128, 16383, 16384, 1<<21 - 1, 1 << 21, 1<<28 - 1, 1 << 28, 1<<31 - 1}
	for v := int64(0); v < 1<<31; v += 2147483 {
		values = append(values, int32(v))
	}
	for _, v := range values {
		c := New(encodeULEB128(uint32(v) + 1))
		if got := c.ULEB128P1(); got != v {
			t.Errorf("ULEB128P1(encode(%d)) = %d", v, got)
		}
		if !c.AtEnd() {
			t.Errorf("ULEB128P1(encode(%d)) left %d bytes", v, c.Remaining())
		}
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend[int8](0x8, 4); got != -8 {
		t.Errorf("SignExtend(0x8, 4) = %d, want -8", got)
	}
	if got := SignExtend[int32](0x7, 4); got != 7 {
		t.Errorf("SignExtend(0x7, 4) = %d, want 7", got)
	}
	if got := SignExtend[int64](0xFF, 8); got != -1 {
		t.Errorf("SignExtend(0xff, 8) = %d, want -1", got)
	}
	if got := SignExtend[int64](0x7F, 8); got != 127 {
		t.Errorf("SignExtend(0x7f, 8) = %d, want 127", got)
	}
}

func TestDecodeMUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("Foo"), "Foo"},
		{"nul", []byte{'a', 0xC0, 0x80, 'b'}, "a\x00b"},
		{"two byte", []byte{0xC3, 0xA9}, "é"},
		{"surrogate pair", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "\U0001F600"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeMUTF8(tt.in); got != tt.want {
				t.Errorf("DecodeMUTF8(% x) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
