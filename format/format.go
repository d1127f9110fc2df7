package format

import (
	"encoding"
	"fmt"
	"io"
)

// Encoder renders a decoded record, such as a file header, in one output
// format.
type Encoder interface {
	encoding.TextMarshaler
	Encode(v any) error
}

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string, w io.Writer) (Encoder, error) {
	switch name {
	case "json":
		return NewJSONEncoder(w), nil
	case "raw":
		return NewRawEncoder(w), nil
	}
	return nil, fmt.Errorf("unknown format: %s (expected json or raw)", name)
}
