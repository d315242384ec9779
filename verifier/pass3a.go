package verifier

import (
	"fmt"

	"github.com/dhamidi/justice/classfile"
)

const maxCodeLength = 65536

// pass3aVerifier checks the bytecode of one method without data flow
// analysis: instruction boundaries, the offsets the Code attribute's
// tables refer to, forbidden and final instructions, and the operands of
// every instruction.
type pass3aVerifier struct {
	passVerifier
	owner  *Verifier
	method int
}

func (p *pass3aVerifier) verify() Result {
	return p.passVerifier.verify(func() Result {
		log.Debugf("pass 3a of %s, method %d", p.owner.className, p.method)
		result := p.do()
		if result.Status == StatusRejected {
			log.Infof("pass 3a rejected %s, method %d: %s", p.owner.className, p.method, result.Message)
		}
		return result
	})
}

func (p *pass3aVerifier) do() Result {
	if !p.owner.DoPass2().IsOK() {
		return NotYet
	}
	cf := p.owner.mustLoad()
	if p.method < 0 || p.method >= len(cf.Methods) {
		return Rejected(fmt.Sprintf("Method index %d is out of range: class '%s' declares %d methods.", p.method, cf.ClassName(), len(cf.Methods)))
	}
	m := &cf.Methods[p.method]
	if m.IsAbstract() || m.IsNative() {
		return OK
	}
	code := m.Code()
	if code == nil {
		assertionViolated("method %s passed pass 2 without a Code attribute", methodString(cf.ConstantPool, m))
	}

	b, err := newBytecode(code)
	if err != nil {
		log.Debugf("decoding %s: %v", methodString(cf.ConstantPool, m), err)
		return Rejected(fmt.Sprintf("Bad bytecode in the code array of the Code attribute of method '%s'.", methodString(cf.ConstantPool, m)))
	}

	c := &codeChecker{
		pass:   p,
		cf:     cf,
		cp:     cf.ConstantPool,
		method: m,
		code:   code,
		b:      b,
		where:  fmt.Sprintf("Code attribute of method '%s'", methodString(cf.ConstantPool, m)),
	}
	checks := []func() error{
		c.checkLineNumbers,
		c.checkLocalVariables,
		c.checkExceptionTable,
		c.checkInstructions,
		c.checkOperands,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return Rejected(err.Error())
		}
	}
	return OK
}

// bytecode is a decoded code array with its instruction starts indexed.
type bytecode struct {
	instructions []classfile.Instruction
	starts       map[int]int
	length       int
}

func newBytecode(code *classfile.CodeAttribute) (*bytecode, error) {
	instructions, err := classfile.DecodeInstructions(code.Code)
	if err != nil {
		return nil, err
	}
	b := &bytecode{
		instructions: instructions,
		starts:       make(map[int]int, len(instructions)),
		length:       len(code.Code),
	}
	for i := range instructions {
		b.starts[instructions[i].Offset] = i
	}
	for i := range instructions {
		for _, target := range instructions[i].Targets() {
			if !b.isStart(target) {
				return nil, fmt.Errorf("%w: %s jumps to offset %d which is not an instruction start", classfile.ErrBadBytecode, &instructions[i], target)
			}
		}
	}
	return b, nil
}

func (b *bytecode) isStart(offset int) bool {
	_, ok := b.starts[offset]
	return ok
}

// at returns the instruction starting at offset; offset must be a start.
func (b *bytecode) at(offset int) *classfile.Instruction {
	return &b.instructions[b.starts[offset]]
}

type codeChecker struct {
	pass   *pass3aVerifier
	cf     *classfile.ClassFile
	cp     classfile.ConstantPool
	method *classfile.MethodInfo
	code   *classfile.CodeAttribute
	b      *bytecode
	where  string
}

func (c *codeChecker) checkLineNumbers() error {
	for _, a := range c.code.Attributes {
		lnt, ok := a.(*classfile.LineNumberTableAttribute)
		if !ok {
			continue
		}
		seen := make(map[uint16]bool, len(lnt.LineNumberTable))
		for _, ln := range lnt.LineNumberTable {
			if !c.b.isStart(int(ln.StartPC)) {
				return classConstraint("%s has a LineNumberTable attribute referring to a code offset ('%d') that does not exist.", c.where, ln.StartPC)
			}
			if seen[ln.StartPC] {
				c.pass.addMessage("LineNumberTable attribute of %s refers to the same code offset ('%d') more than once which is violating the semantics [but is sometimes produced by IBM's 'jikes' compiler].", c.where, ln.StartPC)
			}
			seen[ln.StartPC] = true
		}
	}
	return nil
}

// validRangeEnd accepts instruction starts and the end of the code array.
func (c *codeChecker) validRangeEnd(offset int) bool {
	return offset == c.b.length || c.b.isStart(offset)
}

func (c *codeChecker) checkLocalVariables() error {
	for _, a := range c.code.Attributes {
		switch a := a.(type) {
		case *classfile.LocalVariableTableAttribute:
			for _, lv := range a.LocalVariableTable {
				name := c.cp.GetUtf8(lv.NameIndex)
				if err := c.checkLocalVariableRange("LocalVariableTable", name, lv.StartPC, lv.Length); err != nil {
					return err
				}
			}
		case *classfile.LocalVariableTypeTableAttribute:
			for _, lv := range a.LocalVariableTypeTable {
				name := c.cp.GetUtf8(lv.NameIndex)
				if err := c.checkLocalVariableRange("LocalVariableTypeTable", name, lv.StartPC, lv.Length); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *codeChecker) checkLocalVariableRange(table, name string, start, length uint16) error {
	if !c.b.isStart(int(start)) {
		return classConstraint("%s has a %s attribute with a LocalVariable '%s' referring to a code offset ('%d') that does not exist.", c.where, table, name, start)
	}
	if end := int(start) + int(length); !c.validRangeEnd(end) {
		return classConstraint("%s has a %s attribute with a LocalVariable '%s' referring to a code offset start_pc+length ('%d') that does not exist.", c.where, table, name, end)
	}
	return nil
}

func (c *codeChecker) checkExceptionTable() error {
	for i, e := range c.code.ExceptionTable {
		switch {
		case e.StartPC >= e.EndPC:
			return classConstraint("%s has an exception_table entry %d that has its start_pc ('%d') not smaller than its end_pc ('%d').", c.where, i, e.StartPC, e.EndPC)
		case !c.b.isStart(int(e.StartPC)):
			return classConstraint("%s has an exception_table entry %d that has a non-existant bytecode offset as its start_pc ('%d').", c.where, i, e.StartPC)
		case !c.validRangeEnd(int(e.EndPC)):
			return classConstraint("%s has an exception_table entry %d that has a non-existant bytecode offset as its end_pc ('%d').", c.where, i, e.EndPC)
		case !c.b.isStart(int(e.HandlerPC)):
			return classConstraint("%s has an exception_table entry %d that has a non-existant bytecode offset as its handler_pc ('%d').", c.where, i, e.HandlerPC)
		}
	}
	return nil
}

// checkInstructions enforces the constraints on the instruction stream as
// a whole: its size, the reserved opcodes and the last instruction.
func (c *codeChecker) checkInstructions() error {
	if c.b.length >= maxCodeLength {
		return instructionConstraint("Code array in code attribute '%s' too big: must be smaller than %d bytes.", c.where, maxCodeLength)
	}
	for i := range c.b.instructions {
		switch c.b.instructions[i].Opcode {
		case classfile.OpImpdep1:
			return instructionConstraint("IMPDEP1 must not be in the code, it is an illegal instruction for _internal_ JVM use!")
		case classfile.OpImpdep2:
			return instructionConstraint("IMPDEP2 must not be in the code, it is an illegal instruction for _internal_ JVM use!")
		case classfile.OpBreakpoint:
			return instructionConstraint("BREAKPOINT must not be in the code, it is an illegal instruction for _internal_ JVM use!")
		}
	}
	last := c.b.instructions[len(c.b.instructions)-1]
	if !last.Opcode.IsUnconditionalTransfer() {
		return instructionConstraint("Execution must not fall off the bottom of the code array. This constraint is enforced statically as some existing verifiers do - so it may be a false alarm if the last instruction is not reachable.")
	}
	return nil
}
