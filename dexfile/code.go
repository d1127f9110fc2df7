package dexfile

import (
	"fmt"

	"github.com/dhamidi/bcdump/bytecursor"
)

// Debug info state machine opcodes. Values from dbgFirstSpecial up are
// special opcodes that advance address and line together.
const (
	dbgEndSequence uint8 = iota
	dbgAdvancePC
	dbgAdvanceLine
	dbgStartLocal
	dbgStartLocalExtended
	dbgEndLocal
	dbgRestartLocal
	dbgSetPrologueEnd
	dbgSetEpilogueBegin
	dbgSetFile
	dbgFirstSpecial
)

const (
	dbgLineBase  = -4
	dbgLineRange = 15
)

// printCodeItem renders a code_item. Instruction, try and handler
// addresses are shown in bytes from the start of insns.
func (d *Decoder) printCodeItem(indent int, off uint32) error {
	c := d.cur.At(off)
	registers := c.U2LE()
	ins := c.U2LE()
	outs := c.U2LE()
	tries := c.U2LE()
	debugInfoOff := c.U4LE()
	insnsSize := c.U4LE()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "registers_size %d, ins_size %d, outs_size %d, tries_size %d", registers, ins, outs, tries)
	d.out.Line(indent, "debug_info_off 0x%x", debugInfoOff)
	d.out.Line(indent, "insns_size %d", insnsSize)

	insns := c.Sub(int(insnsSize) * 2)
	if err := c.Err(); err != nil {
		return err
	}
	if err := d.printInstructions(indent+1, insns); err != nil {
		return err
	}

	if tries > 0 {
		if insnsSize%2 == 1 {
			c.Skip(2)
		}
		if err := d.printTries(indent, c, tries); err != nil {
			return err
		}
	}

	if debugInfoOff != 0 {
		d.out.Line(indent, "debug_info: off 0x%x", debugInfoOff)
		if err := d.printDebugInfo(indent+1, debugInfoOff); err != nil {
			return fmt.Errorf("debug info: %w", err)
		}
	}
	return d.out.Err()
}

func (d *Decoder) printTries(indent int, c *bytecursor.Cursor, tries uint16) error {
	d.out.Line(indent, "try_items size %d", tries)
	for i := 0; i < int(tries); i++ {
		start := c.U4LE()
		count := c.U2LE()
		handlerOff := c.U2LE()
		if err := c.Err(); err != nil {
			return err
		}
		end := uint64(start) + uint64(count)
		d.out.Line(indent+1, "try #%d range [0x%x-0x%x], handler_off 0x%x", i, uint64(start)*2, end*2, handlerOff)
	}

	listStart := c.Pos()
	handlers := c.ULEB128()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "catch handler size %d", handlers)
	for i := uint32(0); i < handlers; i++ {
		handlerOff := c.Pos() - listStart
		// The sign of size says whether a catch-all address follows the
		// typed handlers.
		size := c.SLEB128()
		if err := c.Err(); err != nil {
			return err
		}
		catchAll := size <= 0
		n := int64(size)
		if n < 0 {
			n = -n
		}
		if catchAll {
			d.out.Line(indent+1, "handler #%d at 0x%x: catch_type_size %d, has catch all", i, handlerOff, n)
		} else {
			d.out.Line(indent+1, "handler #%d at 0x%x: catch_type_size %d", i, handlerOff, n)
		}
		for j := int64(0); j < n; j++ {
			typeIdx := c.ULEB128()
			addr := c.ULEB128()
			if err := c.Err(); err != nil {
				return err
			}
			t, err := ref(typeIdx, d.Type)
			if err != nil {
				return err
			}
			d.out.Line(indent+2, "type %s, addr 0x%x", t, uint64(addr)*2)
		}
		if catchAll {
			addr := c.ULEB128()
			if err := c.Err(); err != nil {
				return err
			}
			d.out.Line(indent+2, "catch_all_addr 0x%x", uint64(addr)*2)
		}
	}
	return nil
}

// printDebugInfo runs the debug_info_item state machine until
// end_sequence, printing each opcode with the address and line it leaves
// the machine in.
func (d *Decoder) printDebugInfo(indent int, off uint32) error {
	c := d.cur.At(off)
	lineStart := c.ULEB128()
	paramsSize := c.ULEB128()
	if err := c.Err(); err != nil {
		return err
	}
	d.out.Line(indent, "line_start: %d", lineStart)
	d.out.Line(indent, "parameters_size: %d", paramsSize)
	for i := uint32(0); i < paramsSize; i++ {
		name, err := optRef(c.ULEB128P1(), d.String)
		if err := c.Err(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
		d.out.Line(indent+1, "parameter #%d: %s", i, name)
	}

	d.out.Line(indent, "debug code:")
	indent++
	addr := uint64(0)
	line := int64(lineStart)
	for {
		op := c.U1()
		if err := c.Err(); err != nil {
			return err
		}
		switch op {
		case dbgEndSequence:
			d.out.Line(indent, "end_sequence")
			return d.out.Err()
		case dbgAdvancePC:
			diff := c.ULEB128()
			addr += uint64(diff)
			d.out.Line(indent, "advance_pc 0x%x", uint64(diff)*2)
		case dbgAdvanceLine:
			diff := c.SLEB128()
			line += int64(diff)
			d.out.Line(indent, "advance_line %d", diff)
		case dbgStartLocal, dbgStartLocalExtended:
			reg := c.ULEB128()
			name, err := optRef(c.ULEB128P1(), d.String)
			if err != nil {
				return err
			}
			typ, err := optRef(c.ULEB128P1(), d.Type)
			if err != nil {
				return err
			}
			if op == dbgStartLocal {
				d.out.Line(indent, "start_local v%d, name %s, type %s", reg, name, typ)
				break
			}
			sig, err := optRef(c.ULEB128P1(), d.String)
			if err != nil {
				return err
			}
			d.out.Line(indent, "start_local_extended v%d, name %s, type %s, sig %s", reg, name, typ, sig)
		case dbgEndLocal:
			d.out.Line(indent, "end_local v%d", c.ULEB128())
		case dbgRestartLocal:
			d.out.Line(indent, "restart_local v%d", c.ULEB128())
		case dbgSetPrologueEnd:
			d.out.Line(indent, "set_prologue_end")
		case dbgSetEpilogueBegin:
			d.out.Line(indent, "set_epilogue_begin")
		case dbgSetFile:
			name, err := optRef(c.ULEB128P1(), d.String)
			if err != nil {
				return err
			}
			d.out.Line(indent, "set_file %s", name)
		default:
			adjusted := int(op - dbgFirstSpecial)
			lineDiff := dbgLineBase + adjusted%dbgLineRange
			addrDiff := adjusted / dbgLineRange
			addr += uint64(addrDiff)
			line += int64(lineDiff)
			d.out.Line(indent, "special 0x%x: advance pc %d, line %d, position <0x%x> line %d",
				op, addrDiff*2, lineDiff, addr*2, line)
		}
		if err := c.Err(); err != nil {
			return err
		}
	}
}
