package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrClassFormat matches every *FormatError with errors.Is.
var ErrClassFormat = errors.New("class format error")

// FormatError reports a class file that cannot be decoded. Offset is the
// number of bytes consumed when the problem was detected.
type FormatError struct {
	Offset int64
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("class format error at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("class format error at offset %d: %s", e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrClassFormat }

type reader struct {
	r   io.Reader
	off int64
	err error
}

func (r *reader) read(buf []byte) {
	if r.err != nil {
		return
	}
	n, err := io.ReadFull(r.r, buf)
	r.off += int64(n)
	r.err = err
}

func (r *reader) readU1() uint8 {
	var buf [1]byte
	r.read(buf[:])
	return buf[0]
}

func (r *reader) readU2() uint16 {
	var buf [2]byte
	r.read(buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (r *reader) readU4() uint32 {
	var buf [4]byte
	r.read(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

// readBytes grows its buffer as data arrives, so a bogus length on a short
// stream fails with io.ErrUnexpectedEOF instead of a huge allocation.
func (r *reader) readBytes(n int64) []byte {
	if r.err != nil {
		return nil
	}
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, n)
	r.off += copied
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	r.err = err
	return buf.Bytes()
}

func (r *reader) fail(msg string) error {
	err := r.err
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Offset: r.off, Msg: msg, Err: err}
}

func (r *reader) failf(format string, args ...interface{}) error {
	return &FormatError{Offset: r.off, Msg: fmt.Sprintf(format, args...)}
}

func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseBytes parses a class file held in memory.
func ParseBytes(b []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(b))
}

func Parse(rd io.Reader) (*ClassFile, error) {
	r := &reader{r: rd}

	magic := r.readU4()
	if r.err != nil {
		return nil, r.fail("failed to read magic")
	}
	if magic != Magic {
		return nil, r.failf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	cf := &ClassFile{
		MinorVersion: r.readU2(),
		MajorVersion: r.readU2(),
	}
	if r.err != nil {
		return nil, r.fail("failed to read version")
	}

	constantPoolCount := r.readU2()
	if r.err != nil {
		return nil, r.fail("failed to read constant pool count")
	}
	if constantPoolCount == 0 {
		return nil, r.failf("constant_pool_count must be at least 1")
	}

	cf.ConstantPool = make(ConstantPool, constantPoolCount-1)
	for i := uint16(1); i < constantPoolCount; i++ {
		entry, err := readConstantPoolEntry(r)
		if err != nil {
			return nil, wrapFormat(r, fmt.Sprintf("failed to read constant pool entry %d", i), err)
		}
		cf.ConstantPool[i-1] = entry
		if entry.Tag().Width() == 2 {
			i++
			if i >= constantPoolCount {
				return nil, r.failf("%s at index %d has no room for its second slot", entry.Tag(), i-1)
			}
		}
	}
	if err := cf.ConstantPool.checkRefs(); err != nil {
		return nil, &FormatError{Offset: r.off, Msg: "invalid constant pool", Err: err}
	}

	cf.AccessFlags = AccessFlags(r.readU2())
	if cf.AccessFlags.IsInterface() {
		cf.AccessFlags |= AccAbstract
	}
	if cf.AccessFlags.IsAbstract() && cf.AccessFlags.IsFinal() {
		return nil, r.failf("class can't be both final and abstract")
	}

	cf.ThisClass = r.readU2()
	cf.SuperClass = r.readU2()
	if r.err != nil {
		return nil, r.fail("failed to read class info")
	}
	if _, err := cf.ConstantPool.Lookup(cf.ThisClass, ConstantClass); err != nil {
		return nil, &FormatError{Offset: r.off, Msg: "invalid this_class", Err: err}
	}
	if cf.SuperClass != 0 {
		if _, err := cf.ConstantPool.Lookup(cf.SuperClass, ConstantClass); err != nil {
			return nil, &FormatError{Offset: r.off, Msg: "invalid super_class", Err: err}
		}
	}

	interfacesCount := r.readU2()
	cf.Interfaces = make([]uint16, 0, interfacesCount)
	for i := uint16(0); i < interfacesCount && r.err == nil; i++ {
		idx := r.readU2()
		if r.err != nil {
			break
		}
		if _, err := cf.ConstantPool.Lookup(idx, ConstantClass); err != nil {
			return nil, &FormatError{Offset: r.off, Msg: fmt.Sprintf("invalid interface %d", i), Err: err}
		}
		cf.Interfaces = append(cf.Interfaces, idx)
	}
	if r.err != nil {
		return nil, r.fail("failed to read interfaces")
	}

	fieldsCount := r.readU2()
	if r.err != nil {
		return nil, r.fail("failed to read fields count")
	}
	cf.Fields = make([]FieldInfo, 0, fieldsCount)
	for i := uint16(0); i < fieldsCount; i++ {
		flags, name, desc, attrs, err := readMember(r, cf.ConstantPool)
		if err != nil {
			return nil, wrapFormat(r, fmt.Sprintf("failed to read field %d", i), err)
		}
		cf.Fields = append(cf.Fields, FieldInfo{AccessFlags: flags, NameIndex: name, DescriptorIndex: desc, Attributes: attrs})
	}

	methodsCount := r.readU2()
	if r.err != nil {
		return nil, r.fail("failed to read methods count")
	}
	cf.Methods = make([]MethodInfo, 0, methodsCount)
	for i := uint16(0); i < methodsCount; i++ {
		flags, name, desc, attrs, err := readMember(r, cf.ConstantPool)
		if err != nil {
			return nil, wrapFormat(r, fmt.Sprintf("failed to read method %d", i), err)
		}
		cf.Methods = append(cf.Methods, MethodInfo{AccessFlags: flags, NameIndex: name, DescriptorIndex: desc, Attributes: attrs})
	}

	attrs, err := readAttributes(r, cf.ConstantPool)
	if err != nil {
		return nil, wrapFormat(r, "failed to read class attributes", err)
	}
	cf.Attributes = attrs

	return cf, nil
}

func wrapFormat(r *reader, msg string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return &FormatError{Offset: fe.Offset, Msg: msg + ": " + fe.Msg, Err: fe.Err}
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Offset: r.off, Msg: msg, Err: err}
}

func readConstantPoolEntry(r *reader) (ConstantPoolEntry, error) {
	tag := ConstantTag(r.readU1())
	if r.err != nil {
		return nil, r.err
	}

	var entry ConstantPoolEntry
	switch tag {
	case ConstantUtf8:
		length := r.readU2()
		raw := r.readBytes(int64(length))
		if r.err != nil {
			return nil, r.err
		}
		u := &ConstantUtf8Info{Value: decodeModifiedUtf8(raw)}
		if !bytes.Equal(encodeModifiedUtf8(u.Value), raw) {
			u.raw = raw
			u.rawValue = u.Value
		}
		entry = u
	case ConstantInteger:
		entry = &ConstantIntegerInfo{Value: int32(r.readU4())}
	case ConstantFloat:
		entry = &ConstantFloatInfo{Value: math.Float32frombits(r.readU4())}
	case ConstantLong:
		high := r.readU4()
		low := r.readU4()
		entry = &ConstantLongInfo{Value: int64(uint64(high)<<32 | uint64(low))}
	case ConstantDouble:
		high := r.readU4()
		low := r.readU4()
		entry = &ConstantDoubleInfo{Value: math.Float64frombits(uint64(high)<<32 | uint64(low))}
	case ConstantClass:
		entry = &ConstantClassInfo{NameIndex: r.readU2()}
	case ConstantString:
		entry = &ConstantStringInfo{StringIndex: r.readU2()}
	case ConstantFieldref:
		entry = &ConstantFieldrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantMethodref:
		entry = &ConstantMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantInterfaceMethodref:
		entry = &ConstantInterfaceMethodrefInfo{ClassIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantNameAndType:
		entry = &ConstantNameAndTypeInfo{NameIndex: r.readU2(), DescriptorIndex: r.readU2()}
	case ConstantMethodHandle:
		entry = &ConstantMethodHandleInfo{ReferenceKind: MethodHandleKind(r.readU1()), ReferenceIndex: r.readU2()}
	case ConstantMethodType:
		entry = &ConstantMethodTypeInfo{DescriptorIndex: r.readU2()}
	case ConstantDynamic:
		entry = &ConstantDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantInvokeDynamic:
		entry = &ConstantInvokeDynamicInfo{BootstrapMethodAttrIndex: r.readU2(), NameAndTypeIndex: r.readU2()}
	case ConstantModule:
		entry = &ConstantModuleInfo{NameIndex: r.readU2()}
	case ConstantPackage:
		entry = &ConstantPackageInfo{NameIndex: r.readU2()}
	default:
		return nil, r.failf("unknown constant pool tag: %d", tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return entry, nil
}

func readMember(r *reader, cp ConstantPool) (AccessFlags, uint16, uint16, []Attribute, error) {
	flags := AccessFlags(r.readU2())
	name := r.readU2()
	desc := r.readU2()
	if r.err != nil {
		return 0, 0, 0, nil, r.err
	}
	attrs, err := readAttributes(r, cp)
	return flags, name, desc, attrs, err
}

func readAttributes(r *reader, cp ConstantPool) ([]Attribute, error) {
	count := r.readU2()
	if r.err != nil {
		return nil, r.err
	}
	attrs := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIndex := r.readU2()
		length := r.readU4()
		info := r.readBytes(int64(length))
		if r.err != nil {
			return nil, r.err
		}
		a, err := newAttribute(nameIndex, info, cp)
		if err != nil {
			return nil, &FormatError{Offset: r.off, Msg: fmt.Sprintf("attribute %d", i), Err: err}
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}
