package verifier

import "fmt"

type localVariable struct {
	name  string
	typ   string
	start int
	// end is inclusive: a variable is live at start+length too.
	end int
}

// localVariables collects what the LocalVariableTable attributes of one
// Code attribute say about each slot, and rejects contradicting entries.
type localVariables struct {
	slots [][]localVariable
}

func newLocalVariables(maxLocals int) *localVariables {
	return &localVariables{slots: make([][]localVariable, maxLocals)}
}

// add records a variable in slot; long and double also claim slot+1.
func (l *localVariables) add(slot int, name string, start, length int, typ string) error {
	if slot < 0 || slot >= len(l.slots) {
		assertionViolated("slot number %d for local variable information out of range", slot)
	}
	if err := l.addSlot(slot, localVariable{name: name, typ: typ, start: start, end: start + length}); err != nil {
		return err
	}
	if typ == "long" || typ == "double" {
		if slot+1 >= len(l.slots) {
			assertionViolated("slot number %d for the upper half of %s out of range", slot+1, name)
		}
		return l.addSlot(slot+1, localVariable{name: name, typ: typ + "_Upper", start: start, end: start + length})
	}
	return nil
}

func (l *localVariables) addSlot(slot int, lv localVariable) error {
	for _, other := range l.slots[slot] {
		if other.end < lv.start || lv.end < other.start {
			continue
		}
		offset := max(other.start, lv.start)
		if other.name != lv.name {
			return &ConstraintError{
				Kind: KindLocalVariableInfoInconsistent,
				Msg:  fmt.Sprintf("At bytecode offset '%d' a local variable has two different names: '%s' and '%s'.", offset, other.name, lv.name),
			}
		}
		if other.typ != lv.typ {
			return &ConstraintError{
				Kind: KindLocalVariableInfoInconsistent,
				Msg:  fmt.Sprintf("At bytecode offset '%d' a local variable has two different types: '%s' and '%s'.", offset, other.typ, lv.typ),
			}
		}
	}
	l.slots[slot] = append(l.slots[slot], lv)
	return nil
}
