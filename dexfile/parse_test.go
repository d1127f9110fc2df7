package dexfile

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/dhamidi/bcdump/bytecursor"
)

// baseBuilder returns id tables for a class LFoo; with four int fields
// a, b, c, w and one method run(I)V.
func baseBuilder() *dexBuilder {
	b := new(dexBuilder)
	b.str("LFoo;", "I", "a", "Ljava/lang/Object;", "V", "b", "c", "w", "run", "VI", "Foo.java", "hello")
	b.typ(0, 1, 3, 4)
	b.proto(9, 3, 0)
	b.field(0, 1, 2).field(0, 1, 5).field(0, 1, 6).field(0, 1, 7)
	b.method(0, 0, 8)
	b.protos[0][2] = b.blob(new(leBuilder).u4(1).u2(1).buf)
	return b
}

// sampleDex adds a code item, class data with one static field w
// (index 3) and one direct method, and a static value.
func sampleDex() []byte {
	b := baseBuilder()
	code := new(leBuilder).u2(2, 1, 0, 0).u4(0, 4)
	code.u1(0x12, 0xf0)
	code.u1(0x1a, 0x01).u2(11)
	code.u1(0x0e, 0x00)
	codeOff := b.blob(code.buf)

	data := new(leBuilder).uleb(1).uleb(0).uleb(1).uleb(0)
	data.uleb(3).uleb(0x9)
	data.uleb(0).uleb(0x1).uleb(codeOff)
	dataOff := b.blob(data.buf)

	staticOff := b.blob([]byte{0x01, 0x04, 0x7f})

	b.class(ClassDef{
		ClassIdx:        0,
		AccessFlags:     0x1,
		SuperclassIdx:   2,
		SourceFileIdx:   10,
		ClassDataOff:    dataOff,
		StaticValuesOff: staticOff,
	})
	b.class(ClassDef{
		ClassIdx:      2,
		AccessFlags:   0x1,
		SuperclassIdx: NoIndex,
		SourceFileIdx: NoIndex,
	})
	return b.build()
}

func decode(t *testing.T, buf []byte, opts ...Option) (*Decoder, string, error) {
	t.Helper()
	var out bytes.Buffer
	d := NewDecoder(buf, &out, opts...)
	err := d.Decode()
	return d, out.String(), err
}

func TestDecodeDex(t *testing.T) {
	_, out, err := decode(t, sampleDex())
	if err != nil {
		t.Fatalf("Decode() error = %v\n%s", err, out)
	}
	for _, want := range []string{
		"magic: dex 035",
		"checksum: 0x1234abcd",
		"string_ids: [0x70-0xa0] size 12",
		"  string #11: [0x",
		"  type #2: Ljava/lang/Object;",
		"  proto #0: shorty VI, desc V (I)",
		"  field #3: (class LFoo;, type I, name w)",
		"  method #0: (class LFoo;, proto V (I), name run)",
		"class_defs_size: 2",
		"  class #0:",
		"    name: LFoo;",
		"    access_flags: 0x1 public",
		"    superclass: Ljava/lang/Object;",
		"    interfaces: None",
		"    source_file: Foo.java",
		"      static_fields: size 1",
		"        field 3 (class LFoo;, type I, name w), access_flags 0x9 public static",
		"      instance_fields: size 0",
		"      direct_methods: size 1",
		"          registers_size 2, ins_size 1, outs_size 0, tries_size 0",
		"            <0x0> const/4 v0, #-1",
		"            <0x2> const-string v1, string@11 <hello>",
		"            <0x6> return-void",
		"      virtual_methods: size 0",
		"      size: 1",
		"        (int) 127",
		"  class #1:",
		"    superclass: None",
		"    source_file: None",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestClassDataRunningIndex(t *testing.T) {
	d := NewDecoder(sampleDex(), &bytes.Buffer{})
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	def, err := d.ClassDef(0)
	if err != nil {
		t.Fatalf("ClassDef(0) error = %v", err)
	}
	data, err := d.ClassData(def.ClassDataOff)
	if err != nil {
		t.Fatalf("ClassData() error = %v", err)
	}
	if len(data.StaticFields) != 1 || len(data.InstanceFields) != 0 {
		t.Fatalf("fields = %+v / %+v, want one static field", data.StaticFields, data.InstanceFields)
	}
	if got := data.StaticFields[0]; got.Index != 3 || got.AccessFlags != 0x9 {
		t.Errorf("static field = %+v, want index 3 flags 0x9", got)
	}

	b := baseBuilder()
	list := new(leBuilder).uleb(0).uleb(3).uleb(0).uleb(0)
	list.uleb(1).uleb(0x2).uleb(0).uleb(0x2).uleb(2).uleb(0x2)
	off := b.blob(list.buf)
	d = NewDecoder(b.build(), &bytes.Buffer{})
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	data, err = d.ClassData(off)
	if err != nil {
		t.Fatalf("ClassData() error = %v", err)
	}
	var got []uint32
	for _, f := range data.InstanceFields {
		got = append(got, f.Index)
	}
	if want := []uint32{1, 1, 3}; !equal(got, want) {
		t.Errorf("instance field indices = %v, want %v", got, want)
	}
}

func equal(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTypeResolution(t *testing.T) {
	d := NewDecoder(sampleDex(), &bytes.Buffer{})
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	h := d.Header()
	for i := uint32(0); i < h.TypeIDs.Size; i++ {
		c, err := d.row("type", h.TypeIDs, typeIDSize, i)
		if err != nil {
			t.Fatal(err)
		}
		want, err := d.String(c.U4LE())
		if err != nil {
			t.Fatal(err)
		}
		if got, err := d.Type(i); err != nil || got != want {
			t.Errorf("Type(%d) = %q, %v, want %q", i, got, err, want)
		}
	}
	for i := uint32(0); i < h.ClassDefs.Size; i++ {
		def, err := d.ClassDef(i)
		if err != nil {
			t.Fatal(err)
		}
		if def.SuperclassIdx != NoIndex && def.SuperclassIdx >= h.TypeIDs.Size {
			t.Errorf("class %d superclass %d out of range", i, def.SuperclassIdx)
		}
	}

	tests := []struct {
		name    string
		resolve func() error
	}{
		{"string", func() error { _, err := d.String(12); return err }},
		{"type", func() error { _, err := d.Type(4); return err }},
		{"proto", func() error { _, err := d.Proto(1); return err }},
		{"field", func() error { _, err := d.Field(4); return err }},
		{"method", func() error { _, err := d.Method(1); return err }},
		{"class def", func() error { _, err := d.ClassDef(2); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bytecursor.KindOf(tt.resolve()); got != bytecursor.IndexOutOfRange {
				t.Errorf("kind = %v, want %v", got, bytecursor.IndexOutOfRange)
			}
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	buf := new(dexBuilder).str("abc").build()
	// Drop the terminator and everything after it.
	buf = buf[:bytes.LastIndex(buf, []byte("abc"))+3]
	d := NewDecoder(buf, &bytes.Buffer{})
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	_, err := d.String(0)
	if got := bytecursor.KindOf(err); got != bytecursor.TruncatedInput {
		t.Errorf("String(0) kind = %v, want %v", got, bytecursor.TruncatedInput)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bytecursor.ErrorKind
	}{
		{"class file", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 52}, bytecursor.NotADexFile},
		{"bad version", []byte("dex\n03a\x00"), bytecursor.NotADexFile},
		{"short", []byte("dex\n"), bytecursor.NotADexFile},
		{"truncated header", []byte("dex\n035\x00\x01\x02"), bytecursor.TruncatedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDecoder(tt.buf, &bytes.Buffer{}).ParseHeader()
			if got := bytecursor.KindOf(err); got != tt.want {
				t.Errorf("ParseHeader() kind = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}

	t.Run("big endian", func(t *testing.T) {
		buf := sampleDex()
		copy(buf[40:], []byte{0x12, 0x34, 0x56, 0x78})
		err := NewDecoder(buf, &bytes.Buffer{}).ParseHeader()
		if got := bytecursor.KindOf(err); got != bytecursor.NotADexFile {
			t.Errorf("ParseHeader() kind = %v, want %v", got, bytecursor.NotADexFile)
		}
	})
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(sampleDex())
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.Version != "035" || h.StringIDs.Size != 12 || h.StringIDs.Off != headerItemSize {
		t.Errorf("ReadHeader() = %+v", h)
	}
	if h.ClassDefs.Size != 2 {
		t.Errorf("ClassDefs.Size = %d, want 2", h.ClassDefs.Size)
	}
	if len(h.Signature) != 40 {
		t.Errorf("Signature = %q, want 40 hex digits", h.Signature)
	}
}

func TestCodeItem(t *testing.T) {
	b := baseBuilder()

	dbg := new(leBuilder).uleb(10).uleb(1).uleb(3)
	dbg.u1(dbgSetPrologueEnd)
	dbg.u1(0x1e)
	dbg.u1(dbgAdvanceLine).sleb(-2)
	dbg.u1(dbgStartLocal).uleb(0).uleb(3).uleb(2)
	dbg.u1(dbgEndLocal).uleb(0)
	dbg.u1(dbgEndSequence)
	dbgOff := b.blob(dbg.buf)

	code := new(leBuilder).u2(1, 0, 0, 1).u4(dbgOff, 3)
	code.u2(0x0000, 0x0000, 0x000e)
	code.u2(0)
	code.u4(0).u2(2, 1)
	code.uleb(1).sleb(-1).uleb(0).uleb(2).uleb(2)
	codeOff := b.blob(code.buf)

	var out bytes.Buffer
	d := NewDecoder(b.build(), &out)
	if err := d.ParseHeader(); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := d.printCodeItem(0, codeOff); err != nil {
		t.Fatalf("printCodeItem() error = %v\n%s", err, out.String())
	}
	want := strings.Join([]string{
		"registers_size 1, ins_size 0, outs_size 0, tries_size 1",
		fmt.Sprintf("debug_info_off 0x%x", dbgOff),
		"insns_size 3",
		"  <0x0> nop",
		"  <0x2> nop",
		"  <0x4> return-void",
		"try_items size 1",
		"  try #0 range [0x0-0x4], handler_off 0x1",
		"catch handler size 1",
		"  handler #0 at 0x1: catch_type_size 1, has catch all",
		"    type 0 <LFoo;>, addr 0x4",
		"    catch_all_addr 0x4",
		fmt.Sprintf("debug_info: off 0x%x", dbgOff),
		"  line_start: 10",
		"  parameters_size: 1",
		"    parameter #0: 2 <a>",
		"  debug code:",
		"    set_prologue_end",
		"    special 0x1e: advance pc 2, line 1, position <0x2> line 11",
		"    advance_line -2",
		"    start_local v0, name 2 <a>, type 1 <I>",
		"    end_local v0",
		"    end_sequence",
	}, "\n") + "\n"
	if got := out.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestAnnotationsDirectory(t *testing.T) {
	b := baseBuilder()
	item := b.blob(new(leBuilder).u1(1).uleb(0).uleb(1).uleb(2).u1(0x3f).buf)
	set := b.blob(new(leBuilder).u4(1, item).buf)
	refList := b.blob(new(leBuilder).u4(2, 0, set).buf)
	dir := b.blob(new(leBuilder).u4(set, 1, 0, 1).u4(3, set).u4(0, refList).buf)
	b.class(ClassDef{ClassIdx: 0, SuperclassIdx: 2, SourceFileIdx: NoIndex, AnnotationsOff: dir})

	_, out, err := decode(t, b.build())
	if err != nil {
		t.Fatalf("Decode() error = %v\n%s", err, out)
	}
	for _, want := range []string{
		fmt.Sprintf("      class_annotations_off: 0x%x", set),
		fmt.Sprintf("        annotation #0: off 0x%x", item),
		"          visibility: RUNTIME(1)",
		"          type: 0 <LFoo;>",
		"            name: 2 <a>",
		"            (boolean) true",
		"      annotated_fields_size: 1",
		"        field 3 (class LFoo;, type I, name w)",
		"      annotated_methods_size: 0",
		"      annotated_parameters_size: 1",
		"        method 0 (class LFoo;, proto V (I), name run)",
		"          parameter #0: annotations_off 0x0",
		fmt.Sprintf("          parameter #1: annotations_off 0x%x", set),
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
