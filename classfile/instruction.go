package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var ErrBadBytecode = errors.New("bad bytecode")

type Instruction struct {
	Offset int
	Opcode Opcode
	// Wide is set when the instruction was prefixed by wide.
	Wide   bool
	Length int

	// Index is the constant pool index, the local variable index or the
	// newarray element type.
	Index int
	// Value holds the bipush and sipush constant, the iinc increment, the
	// multianewarray dimensions and the invokeinterface count.
	Value int32
	// Branch is the relative offset of a branch, or of a switch default.
	Branch int32
	// Reserved holds the trailing operand bytes of invokeinterface and
	// invokedynamic, which must be zero.
	Reserved int

	Low, High int32
	Matches   []int32
	// Offsets are the relative case offsets of a switch.
	Offsets []int32
}

// Targets returns the absolute offsets the instruction may jump to.
func (in *Instruction) Targets() []int {
	switch {
	case in.Opcode.IsBranch():
		return []int{in.Offset + int(in.Branch)}
	case in.Opcode.IsSwitch():
		out := make([]int, 0, len(in.Offsets)+1)
		out = append(out, in.Offset+int(in.Branch))
		for _, off := range in.Offsets {
			out = append(out, in.Offset+int(off))
		}
		return out
	}
	return nil
}

// LocalIndex returns the local variable slot the instruction addresses.
func (in *Instruction) LocalIndex() (int, bool) {
	if !in.Opcode.isLocalVariable() {
		return 0, false
	}
	return in.Index, true
}

func (in *Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: %s", in.Offset, in.Opcode)
	switch {
	case in.Opcode.IsBranch():
		fmt.Fprintf(&sb, " -> %d", in.Offset+int(in.Branch))
	case in.Opcode.IsSwitch():
		fmt.Fprintf(&sb, " default -> %d", in.Offset+int(in.Branch))
	case opcodes[in.Opcode].operands != 0 || in.Wide:
		if in.Opcode == OpBipush || in.Opcode == OpSipush {
			fmt.Fprintf(&sb, " %d", in.Value)
		} else {
			fmt.Fprintf(&sb, " %d", in.Index)
		}
	}
	return sb.String()
}

// DecodeInstructions splits code into instructions. It fails on unknown
// opcodes, truncated operands, illegal wide forms and malformed switches.
// Branch targets are not checked here.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); {
		in, err := decodeInstruction(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		pc += in.Length
	}
	return out, nil
}

func decodeInstruction(code []byte, pc int) (Instruction, error) {
	op := Opcode(code[pc])
	in := Instruction{Offset: pc, Opcode: op}
	if !op.Valid() {
		return in, fmt.Errorf("%w: unknown opcode %d at offset %d", ErrBadBytecode, uint8(op), pc)
	}
	p := pc + 1
	need := func(n int) error {
		if p+n > len(code) {
			return fmt.Errorf("%w: %s at offset %d needs %d operand bytes, %d left", ErrBadBytecode, in.Opcode, pc, n, len(code)-p)
		}
		return nil
	}
	u1 := func() int { v := code[p]; p++; return int(v) }
	u2 := func() int { v := binary.BigEndian.Uint16(code[p:]); p += 2; return int(v) }
	s4 := func() int32 { v := binary.BigEndian.Uint32(code[p:]); p += 4; return int32(v) }

	switch {
	case op == OpWide:
		if err := need(1); err != nil {
			return in, err
		}
		inner := Opcode(u1())
		if !inner.isWidenable() {
			return in, fmt.Errorf("%w: wide cannot modify %s at offset %d", ErrBadBytecode, inner, pc)
		}
		in.Opcode = inner
		in.Wide = true
		size := 2
		if inner == OpIinc {
			size = 4
		}
		if err := need(size); err != nil {
			return in, err
		}
		in.Index = u2()
		if inner == OpIinc {
			in.Value = int32(int16(u2()))
		}

	case op.IsSwitch():
		p += (4 - p%4) % 4
		if err := need(4); err != nil {
			return in, err
		}
		in.Branch = s4()
		if op == OpTableswitch {
			if err := need(8); err != nil {
				return in, err
			}
			in.Low, in.High = s4(), s4()
			if in.Low > in.High {
				return in, fmt.Errorf("%w: tableswitch at offset %d has low %d > high %d", ErrBadBytecode, pc, in.Low, in.High)
			}
			n := int64(in.High) - int64(in.Low) + 1
			if int64(p)+n*4 > int64(len(code)) {
				return in, fmt.Errorf("%w: tableswitch at offset %d runs past the code array", ErrBadBytecode, pc)
			}
			in.Offsets = make([]int32, n)
			for i := range in.Offsets {
				in.Offsets[i] = s4()
			}
		} else {
			if err := need(4); err != nil {
				return in, err
			}
			npairs := s4()
			if npairs < 0 || int64(p)+int64(npairs)*8 > int64(len(code)) {
				return in, fmt.Errorf("%w: lookupswitch at offset %d has bad npairs %d", ErrBadBytecode, pc, npairs)
			}
			in.Matches = make([]int32, npairs)
			in.Offsets = make([]int32, npairs)
			for i := range in.Matches {
				in.Matches[i] = s4()
				in.Offsets[i] = s4()
			}
		}

	default:
		if err := need(opcodes[op].operands); err != nil {
			return in, err
		}
		switch {
		case op == OpBipush:
			in.Value = int32(int8(u1()))
		case op == OpSipush:
			in.Value = int32(int16(u2()))
		case op == OpIinc:
			in.Index = u1()
			in.Value = int32(int8(u1()))
		case op == OpGotoW || op == OpJsrW:
			in.Branch = s4()
		case op.IsBranch():
			in.Branch = int32(int16(u2()))
		case op == OpInvokeinterface:
			in.Index = u2()
			in.Value = int32(u1())
			in.Reserved = u1()
		case op == OpInvokedynamic:
			in.Index = u2()
			in.Reserved = u2()
		case op == OpMultianewarray:
			in.Index = u2()
			in.Value = int32(u1())
		case opcodes[op].operands == 1:
			in.Index = u1()
		case opcodes[op].operands == 2:
			in.Index = u2()
		}
		if idx, ok := op.implicitLocal(); ok {
			in.Index = idx
		}
	}
	in.Length = p - pc
	return in, nil
}
