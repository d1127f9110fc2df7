// Package dump picks the right decoder for a buffer and runs its full
// parse sequence. It is the entry point used by the command line tool and
// the language server.
package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/bcdump/bytecursor"
	"github.com/dhamidi/bcdump/classfile"
	"github.com/dhamidi/bcdump/dexfile"
	"github.com/dhamidi/bcdump/format"
	"github.com/dhamidi/bcdump/names"
	"github.com/tliron/commonlog"
)

// ErrUnknownFormat is returned by Detect for buffers that are neither a
// class file nor a dex file.
var ErrUnknownFormat = errors.New("unrecognized file format")

type Kind int

const (
	Unknown Kind = iota
	ClassFile
	DexFile
)

func (k Kind) String() string {
	switch k {
	case ClassFile:
		return "class"
	case DexFile:
		return "dex"
	}
	return "unknown"
}

var (
	classMagic = []byte{0xca, 0xfe, 0xba, 0xbe}
	dexMagic   = []byte("dex\n")
)

// Detect inspects the leading magic bytes of buf.
func Detect(buf []byte) (Kind, error) {
	switch {
	case bytes.HasPrefix(buf, classMagic):
		return ClassFile, nil
	case bytes.HasPrefix(buf, dexMagic):
		return DexFile, nil
	}
	n := min(len(buf), 4)
	return Unknown, fmt.Errorf("%w: magic % x", ErrUnknownFormat, buf[:n])
}

// Options configures both decoders. The zero value uses the built-in name
// tables, the default indent width and a logger per package.
type Options struct {
	IndentWidth           int
	Names                 names.Table
	SkipUnknownAttributes bool
	Logger                commonlog.Logger
}

func (o Options) indentWidth() int {
	if o.IndentWidth <= 0 {
		return format.DefaultIndentWidth
	}
	return o.IndentWidth
}

func (o Options) logger() commonlog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return commonlog.GetLogger("bcdump.dump")
}

func (o Options) classOptions() []classfile.Option {
	opts := []classfile.Option{
		classfile.WithIndentWidth(o.indentWidth()),
		classfile.WithSkipUnknownAttributes(o.SkipUnknownAttributes),
	}
	if o.Names != nil {
		opts = append(opts, classfile.WithNames(o.Names))
	}
	if o.Logger != nil {
		opts = append(opts, classfile.WithLogger(o.Logger))
	}
	return opts
}

func (o Options) dexOptions() []dexfile.Option {
	opts := []dexfile.Option{dexfile.WithIndentWidth(o.indentWidth())}
	if o.Names != nil {
		opts = append(opts, dexfile.WithNames(o.Names))
	}
	if o.Logger != nil {
		opts = append(opts, dexfile.WithLogger(o.Logger))
	}
	return opts
}

// Class decodes buf as a class file and writes the dump to w.
func Class(buf []byte, w io.Writer, opts Options) error {
	return classfile.NewDecoder(buf, w, opts.classOptions()...).Decode()
}

// Dex decodes buf as a dex file and writes the dump to w.
func Dex(buf []byte, w io.Writer, opts Options) error {
	return dexfile.NewDecoder(buf, w, opts.dexOptions()...).Decode()
}

// Auto detects the format of buf and dumps it.
func Auto(buf []byte, w io.Writer, opts Options) error {
	kind, err := Detect(buf)
	if err != nil {
		return err
	}
	opts.logger().Debugf("decoding %d bytes as %s", len(buf), kind)
	if kind == ClassFile {
		return Class(buf, w, opts)
	}
	return Dex(buf, w, opts)
}

// File reads the whole file at path and dumps it.
func File(path string, w io.Writer, opts Options) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := Auto(buf, w, opts); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Files dumps each path in turn. A failure is logged and recorded, and
// the remaining files are still decoded. When more than one path is given
// each dump is preceded by a "== path ==" line.
func Files(paths []string, w io.Writer, opts Options) error {
	log := opts.logger()
	var errs []error
	for _, path := range paths {
		if len(paths) > 1 {
			if _, err := fmt.Fprintf(w, "== %s ==\n", path); err != nil {
				return err
			}
		}
		if err := File(path, w, opts); err != nil {
			log.Errorf("%s", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Header decodes only the header of buf. The result is a
// *classfile.Header or a *dexfile.Header.
func Header(buf []byte, opts Options) (any, error) {
	kind, err := Detect(buf)
	if err != nil {
		return nil, err
	}
	if kind == ClassFile {
		h, err := classfile.ReadHeader(buf, opts.classOptions()...)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	h, err := dexfile.ReadHeader(buf, opts.dexOptions()...)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Diagnostic is the structured form of a decode failure.
type Diagnostic struct {
	Kind    bytecursor.ErrorKind
	Offset  int
	Message string
}

// Diagnose decodes buf to nowhere and reports the first failure, or nil
// when the buffer decodes cleanly.
func Diagnose(buf []byte, opts Options) *Diagnostic {
	err := Auto(buf, io.Discard, opts)
	if err == nil {
		return nil
	}
	diag := &Diagnostic{Offset: -1, Message: err.Error()}
	var e *bytecursor.Error
	if errors.As(err, &e) {
		diag.Kind = e.Kind
		diag.Offset = e.Offset
	}
	return diag
}
