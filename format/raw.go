package format

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

// RawEncoder dumps a value with its Go types and field names.
type RawEncoder struct {
	w     io.Writer
	value any
	cfg   *spew.ConfigState
}

func NewRawEncoder(w io.Writer) *RawEncoder {
	return &RawEncoder{
		w: w,
		cfg: &spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

func (e *RawEncoder) Encode(v any) error {
	e.value = v
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *RawEncoder) MarshalText() ([]byte, error) {
	return []byte(e.cfg.Sdump(e.value)), nil
}
