package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/classfile"
	"github.com/dhamidi/bcdump/dexfile"
)

// minimalClass is "public class A" with an empty constant pool apart from
// its own name, no super class and no members.
var minimalClass = []byte{
	0xca, 0xfe, 0xba, 0xbe,
	0x00, 0x00, 0x00, 0x34,
	0x00, 0x03,
	0x01, 0x00, 0x01, 'A',
	0x07, 0x00, 0x01,
	0x00, 0x21, 0x00, 0x02, 0x00, 0x00,
	0x00, 0x00, // interfaces
	0x00, 0x00, // fields
	0x00, 0x00, // methods
	0x00, 0x00, // attributes
}

// minimalDex is a bare header with every table empty.
func minimalDex() []byte {
	buf := make([]byte, 0x70)
	copy(buf, "dex\n035\x00")
	binary.LittleEndian.PutUint32(buf[32:], 0x70)
	binary.LittleEndian.PutUint32(buf[36:], 0x70)
	binary.LittleEndian.PutUint32(buf[40:], 0x12345678)
	return buf
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    Kind
		wantErr bool
	}{
		{"class", minimalClass, ClassFile, false},
		{"dex", minimalDex(), DexFile, false},
		{"zip", []byte("PK\x03\x04"), Unknown, true},
		{"empty", nil, Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.input)
			if got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("Detect() error = %v, want ErrUnknownFormat", err)
			}
		})
	}
}

func TestAuto(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []string
	}{
		{"class", minimalClass, []string{"magic = 0xcafebabe", "version 52.0", "this_class: 2 <A>", "super_class: 0 <none>"}},
		{"dex", minimalDex(), []string{"magic: dex 035", "string_ids_size: 0", "class_defs_size: 0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := Auto(tt.input, &out, Options{}); err != nil {
				t.Fatalf("Auto() error = %v\n%s", err, out.String())
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output is missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestIndentWidth(t *testing.T) {
	var out bytes.Buffer
	if err := Class(minimalClass, &out, Options{IndentWidth: 4}); err != nil {
		t.Fatal(err)
	}
	if want := "\n    bytes: A\n"; !strings.Contains(out.String(), want) {
		t.Errorf("output is missing %q:\n%s", want, out.String())
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "A.class")
	bad := filepath.Join(dir, "broken.class")
	dex := filepath.Join(dir, "classes.dex")
	for path, data := range map[string][]byte{
		good: minimalClass,
		bad:  minimalClass[:9],
		dex:  minimalDex(),
	} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	err := Files([]string{good, bad, dex}, &out, Options{})
	if err == nil {
		t.Fatal("Files() succeeded, want the broken file to fail")
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("Files() error = %v, want it to name %s", err, bad)
	}
	if strings.Contains(err.Error(), good) {
		t.Errorf("Files() error = %v, names the good file", err)
	}
	if got := bytecursor.KindOf(err); got != bytecursor.TruncatedInput {
		t.Errorf("KindOf(Files()) = %v, want %v", got, bytecursor.TruncatedInput)
	}
	for _, want := range []string{"== " + good + " ==", "this_class: 2 <A>", "== " + dex + " ==", "class_defs_size: 0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output is missing %q:\n%s", want, out.String())
		}
	}

	t.Run("missing file", func(t *testing.T) {
		err := Files([]string{filepath.Join(dir, "nope.dex")}, &bytes.Buffer{}, Options{})
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Files() error = %v, want os.ErrNotExist", err)
		}
	})
}

func TestHeader(t *testing.T) {
	h, err := Header(minimalClass, Options{})
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	ch, ok := h.(*classfile.Header)
	if !ok || ch.ThisClass != "A" || ch.MajorVersion != 52 {
		t.Errorf("Header() = %s", spew.Sdump(h))
	}

	h, err = Header(minimalDex(), Options{})
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	dh, ok := h.(*dexfile.Header)
	if !ok || dh.Version != "035" || dh.FileSize != 0x70 {
		t.Errorf("Header() = %s", spew.Sdump(h))
	}

	if _, err := Header([]byte{0xca, 0xfe}, Options{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Header() error = %v, want ErrUnknownFormat", err)
	}
}

func TestDiagnose(t *testing.T) {
	if d := Diagnose(minimalClass, Options{}); d != nil {
		t.Errorf("Diagnose() = %+v, want nil", d)
	}

	broken := minimalDex()
	binary.LittleEndian.PutUint32(broken[40:], 0x78563412)
	d := Diagnose(broken, Options{})
	if d == nil {
		t.Fatal("Diagnose() = nil, want a diagnostic")
	}
	if d.Kind != bytecursor.NotADexFile || d.Offset != 40 {
		t.Errorf("Diagnose() = %+v, want not a dex file at 40", d)
	}

	d = Diagnose([]byte("nope"), Options{})
	if d == nil || d.Kind != 0 || d.Offset != -1 {
		t.Errorf("Diagnose() = %+v, want an unstructured diagnostic", d)
	}
}
