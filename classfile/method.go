package classfile

import "github.com/dhamidi/bcdump/names"

func (d *Decoder) ParseMethods() error {
	return d.parseMembers("method", names.MethodAccess)
}
