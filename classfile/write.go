package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// writer is the output counterpart of reader: the first failure sticks and
// later writes are dropped.
type writer struct {
	w   io.Writer
	n   int64
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) writeBytes(b []byte) {
	if w.err != nil || len(b) == 0 {
		return
	}
	n, err := w.w.Write(b)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
}

func (w *writer) writeU1(v uint8) {
	w.writeBytes([]byte{v})
}

func (w *writer) writeU2(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.writeBytes(buf[:])
}

func (w *writer) writeU4(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.writeBytes(buf[:])
}

// writeCount writes n as a u2 table length.
func (w *writer) writeCount(n int) {
	if n > math.MaxUint16 {
		w.fail(fmt.Errorf("table of %d entries exceeds u2", n))
		return
	}
	w.writeU2(uint16(n))
}

func (w *writer) writeU2s(vs []uint16) {
	w.writeCount(len(vs))
	for _, v := range vs {
		w.writeU2(v)
	}
}

// WriteTo serializes the class file. Attribute lengths are recomputed
// from their content, so a freshly parsed class is written back byte for
// byte.
func (cf *ClassFile) WriteTo(out io.Writer) (int64, error) {
	w := &writer{w: out}
	w.writeU4(Magic)
	w.writeU2(cf.MinorVersion)
	w.writeU2(cf.MajorVersion)

	if cf.ConstantPool.Count() > math.MaxUint16 {
		return w.n, fmt.Errorf("constant pool of %d slots exceeds u2", cf.ConstantPool.Count())
	}
	w.writeU2(uint16(cf.ConstantPool.Count()))
	for i, entry := range cf.ConstantPool {
		if entry == nil {
			if i == 0 || cf.ConstantPool[i-1] == nil || cf.ConstantPool[i-1].Tag().Width() != 2 {
				return w.n, fmt.Errorf("constant pool slot %d is empty", i+1)
			}
			continue
		}
		entry.write(w)
	}

	w.writeU2(uint16(cf.AccessFlags))
	w.writeU2(cf.ThisClass)
	w.writeU2(cf.SuperClass)
	w.writeU2s(cf.Interfaces)

	w.writeCount(len(cf.Fields))
	for i := range cf.Fields {
		f := &cf.Fields[i]
		w.writeU2(uint16(f.AccessFlags))
		w.writeU2(f.NameIndex)
		w.writeU2(f.DescriptorIndex)
		writeAttributes(w, f.Attributes)
	}

	w.writeCount(len(cf.Methods))
	for i := range cf.Methods {
		m := &cf.Methods[i]
		w.writeU2(uint16(m.AccessFlags))
		w.writeU2(m.NameIndex)
		w.writeU2(m.DescriptorIndex)
		writeAttributes(w, m.Attributes)
	}

	writeAttributes(w, cf.Attributes)
	if w.err != nil {
		return w.n, fmt.Errorf("failed to write class file: %w", w.err)
	}
	return w.n, nil
}

// Bytes returns the serialized class file.
func (cf *ClassFile) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := cf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
