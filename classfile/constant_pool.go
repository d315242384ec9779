package classfile

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrBadIndex = errors.New("invalid constant pool index")
	ErrWrongTag = errors.New("unexpected constant pool tag")
)

// ConstantPoolEntry is implemented only by the Constant*Info types in this
// package.
type ConstantPoolEntry interface {
	Node
	Tag() ConstantTag
	String() string
	clone() ConstantPoolEntry
	write(w *writer)
	refs() []uint16
}

type ConstantUtf8Info struct {
	Value string

	// raw keeps the original encoding when it does not survive a
	// decode/encode cycle; it is only used while Value == rawValue.
	raw      []byte
	rawValue string
}

func (c *ConstantUtf8Info) Tag() ConstantTag { return ConstantUtf8 }
func (c *ConstantUtf8Info) String() string {
	return fmt.Sprintf("CONSTANT_Utf8[1](%q)", c.Value)
}

type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() ConstantTag { return ConstantInteger }
func (c *ConstantIntegerInfo) String() string {
	return fmt.Sprintf("CONSTANT_Integer[3](bytes = %d)", c.Value)
}

type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() ConstantTag { return ConstantFloat }
func (c *ConstantFloatInfo) String() string {
	return fmt.Sprintf("CONSTANT_Float[4](bytes = %v)", c.Value)
}

type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() ConstantTag { return ConstantLong }
func (c *ConstantLongInfo) String() string {
	return fmt.Sprintf("CONSTANT_Long[5](bytes = %d)", c.Value)
}

type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() ConstantTag { return ConstantDouble }
func (c *ConstantDoubleInfo) String() string {
	return fmt.Sprintf("CONSTANT_Double[6](bytes = %v)", c.Value)
}

type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() ConstantTag { return ConstantClass }
func (c *ConstantClassInfo) String() string {
	return fmt.Sprintf("CONSTANT_Class[7](name_index = %d)", c.NameIndex)
}

type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() ConstantTag { return ConstantString }
func (c *ConstantStringInfo) String() string {
	return fmt.Sprintf("CONSTANT_String[8](string_index = %d)", c.StringIndex)
}

type ConstantFieldrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldrefInfo) Tag() ConstantTag { return ConstantFieldref }
func (c *ConstantFieldrefInfo) String() string {
	return fmt.Sprintf("CONSTANT_Fieldref[9](class_index = %d, name_and_type_index = %d)", c.ClassIndex, c.NameAndTypeIndex)
}

type ConstantMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodrefInfo) Tag() ConstantTag { return ConstantMethodref }
func (c *ConstantMethodrefInfo) String() string {
	return fmt.Sprintf("CONSTANT_Methodref[10](class_index = %d, name_and_type_index = %d)", c.ClassIndex, c.NameAndTypeIndex)
}

type ConstantInterfaceMethodrefInfo struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodrefInfo) Tag() ConstantTag { return ConstantInterfaceMethodref }
func (c *ConstantInterfaceMethodrefInfo) String() string {
	return fmt.Sprintf("CONSTANT_InterfaceMethodref[11](class_index = %d, name_and_type_index = %d)", c.ClassIndex, c.NameAndTypeIndex)
}

type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() ConstantTag { return ConstantNameAndType }
func (c *ConstantNameAndTypeInfo) String() string {
	return fmt.Sprintf("CONSTANT_NameAndType[12](name_index = %d, signature_index = %d)", c.NameIndex, c.DescriptorIndex)
}

type ConstantMethodHandleInfo struct {
	ReferenceKind  MethodHandleKind
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() ConstantTag { return ConstantMethodHandle }
func (c *ConstantMethodHandleInfo) String() string {
	return fmt.Sprintf("CONSTANT_MethodHandle[15](reference_kind = %d, reference_index = %d)", c.ReferenceKind, c.ReferenceIndex)
}

type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() ConstantTag { return ConstantMethodType }
func (c *ConstantMethodTypeInfo) String() string {
	return fmt.Sprintf("CONSTANT_MethodType[16](descriptor_index = %d)", c.DescriptorIndex)
}

type ConstantDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamicInfo) Tag() ConstantTag { return ConstantDynamic }
func (c *ConstantDynamicInfo) String() string {
	return fmt.Sprintf("CONSTANT_Dynamic[17](bootstrap_method_attr_index = %d, name_and_type_index = %d)", c.BootstrapMethodAttrIndex, c.NameAndTypeIndex)
}

type ConstantInvokeDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamicInfo) Tag() ConstantTag { return ConstantInvokeDynamic }
func (c *ConstantInvokeDynamicInfo) String() string {
	return fmt.Sprintf("CONSTANT_InvokeDynamic[18](bootstrap_method_attr_index = %d, name_and_type_index = %d)", c.BootstrapMethodAttrIndex, c.NameAndTypeIndex)
}

type ConstantModuleInfo struct {
	NameIndex uint16
}

func (c *ConstantModuleInfo) Tag() ConstantTag { return ConstantModule }
func (c *ConstantModuleInfo) String() string {
	return fmt.Sprintf("CONSTANT_Module[19](name_index = %d)", c.NameIndex)
}

type ConstantPackageInfo struct {
	NameIndex uint16
}

func (c *ConstantPackageInfo) Tag() ConstantTag { return ConstantPackage }
func (c *ConstantPackageInfo) String() string {
	return fmt.Sprintf("CONSTANT_Package[20](name_index = %d)", c.NameIndex)
}

func (c *ConstantUtf8Info) refs() []uint16               { return nil }
func (c *ConstantIntegerInfo) refs() []uint16            { return nil }
func (c *ConstantFloatInfo) refs() []uint16              { return nil }
func (c *ConstantLongInfo) refs() []uint16               { return nil }
func (c *ConstantDoubleInfo) refs() []uint16             { return nil }
func (c *ConstantClassInfo) refs() []uint16              { return []uint16{c.NameIndex} }
func (c *ConstantStringInfo) refs() []uint16             { return []uint16{c.StringIndex} }
func (c *ConstantFieldrefInfo) refs() []uint16           { return []uint16{c.ClassIndex, c.NameAndTypeIndex} }
func (c *ConstantMethodrefInfo) refs() []uint16          { return []uint16{c.ClassIndex, c.NameAndTypeIndex} }
func (c *ConstantInterfaceMethodrefInfo) refs() []uint16 { return []uint16{c.ClassIndex, c.NameAndTypeIndex} }
func (c *ConstantNameAndTypeInfo) refs() []uint16        { return []uint16{c.NameIndex, c.DescriptorIndex} }
func (c *ConstantMethodHandleInfo) refs() []uint16       { return []uint16{c.ReferenceIndex} }
func (c *ConstantMethodTypeInfo) refs() []uint16         { return []uint16{c.DescriptorIndex} }
func (c *ConstantDynamicInfo) refs() []uint16            { return []uint16{c.NameAndTypeIndex} }
func (c *ConstantInvokeDynamicInfo) refs() []uint16      { return []uint16{c.NameAndTypeIndex} }
func (c *ConstantModuleInfo) refs() []uint16             { return []uint16{c.NameIndex} }
func (c *ConstantPackageInfo) refs() []uint16            { return []uint16{c.NameIndex} }

func (c *ConstantUtf8Info) clone() ConstantPoolEntry {
	cp := *c
	if c.raw != nil {
		cp.raw = append([]byte(nil), c.raw...)
	}
	return &cp
}
func (c *ConstantIntegerInfo) clone() ConstantPoolEntry            { cp := *c; return &cp }
func (c *ConstantFloatInfo) clone() ConstantPoolEntry              { cp := *c; return &cp }
func (c *ConstantLongInfo) clone() ConstantPoolEntry               { cp := *c; return &cp }
func (c *ConstantDoubleInfo) clone() ConstantPoolEntry             { cp := *c; return &cp }
func (c *ConstantClassInfo) clone() ConstantPoolEntry              { cp := *c; return &cp }
func (c *ConstantStringInfo) clone() ConstantPoolEntry             { cp := *c; return &cp }
func (c *ConstantFieldrefInfo) clone() ConstantPoolEntry           { cp := *c; return &cp }
func (c *ConstantMethodrefInfo) clone() ConstantPoolEntry          { cp := *c; return &cp }
func (c *ConstantInterfaceMethodrefInfo) clone() ConstantPoolEntry { cp := *c; return &cp }
func (c *ConstantNameAndTypeInfo) clone() ConstantPoolEntry        { cp := *c; return &cp }
func (c *ConstantMethodHandleInfo) clone() ConstantPoolEntry       { cp := *c; return &cp }
func (c *ConstantMethodTypeInfo) clone() ConstantPoolEntry         { cp := *c; return &cp }
func (c *ConstantDynamicInfo) clone() ConstantPoolEntry            { cp := *c; return &cp }
func (c *ConstantInvokeDynamicInfo) clone() ConstantPoolEntry      { cp := *c; return &cp }
func (c *ConstantModuleInfo) clone() ConstantPoolEntry             { cp := *c; return &cp }
func (c *ConstantPackageInfo) clone() ConstantPoolEntry            { cp := *c; return &cp }

func (c *ConstantUtf8Info) write(w *writer) {
	w.writeU1(uint8(ConstantUtf8))
	b := encodeModifiedUtf8(c.Value)
	if c.raw != nil && c.Value == c.rawValue {
		b = c.raw
	}
	if len(b) > math.MaxUint16 {
		w.fail(fmt.Errorf("utf8 constant of %d bytes exceeds 65535", len(b)))
		return
	}
	w.writeU2(uint16(len(b)))
	w.writeBytes(b)
}

func (c *ConstantIntegerInfo) write(w *writer) {
	w.writeU1(uint8(ConstantInteger))
	w.writeU4(uint32(c.Value))
}

func (c *ConstantFloatInfo) write(w *writer) {
	w.writeU1(uint8(ConstantFloat))
	w.writeU4(math.Float32bits(c.Value))
}

func (c *ConstantLongInfo) write(w *writer) {
	w.writeU1(uint8(ConstantLong))
	w.writeU4(uint32(uint64(c.Value) >> 32))
	w.writeU4(uint32(c.Value))
}

func (c *ConstantDoubleInfo) write(w *writer) {
	w.writeU1(uint8(ConstantDouble))
	bits := math.Float64bits(c.Value)
	w.writeU4(uint32(bits >> 32))
	w.writeU4(uint32(bits))
}

func (c *ConstantClassInfo) write(w *writer) {
	w.writeU1(uint8(ConstantClass))
	w.writeU2(c.NameIndex)
}

func (c *ConstantStringInfo) write(w *writer) {
	w.writeU1(uint8(ConstantString))
	w.writeU2(c.StringIndex)
}

func (c *ConstantFieldrefInfo) write(w *writer) {
	w.writeU1(uint8(ConstantFieldref))
	w.writeU2(c.ClassIndex)
	w.writeU2(c.NameAndTypeIndex)
}

func (c *ConstantMethodrefInfo) write(w *writer) {
	w.writeU1(uint8(ConstantMethodref))
	w.writeU2(c.ClassIndex)
	w.writeU2(c.NameAndTypeIndex)
}

func (c *ConstantInterfaceMethodrefInfo) write(w *writer) {
	w.writeU1(uint8(ConstantInterfaceMethodref))
	w.writeU2(c.ClassIndex)
	w.writeU2(c.NameAndTypeIndex)
}

func (c *ConstantNameAndTypeInfo) write(w *writer) {
	w.writeU1(uint8(ConstantNameAndType))
	w.writeU2(c.NameIndex)
	w.writeU2(c.DescriptorIndex)
}

func (c *ConstantMethodHandleInfo) write(w *writer) {
	w.writeU1(uint8(ConstantMethodHandle))
	w.writeU1(uint8(c.ReferenceKind))
	w.writeU2(c.ReferenceIndex)
}

func (c *ConstantMethodTypeInfo) write(w *writer) {
	w.writeU1(uint8(ConstantMethodType))
	w.writeU2(c.DescriptorIndex)
}

func (c *ConstantDynamicInfo) write(w *writer) {
	w.writeU1(uint8(ConstantDynamic))
	w.writeU2(c.BootstrapMethodAttrIndex)
	w.writeU2(c.NameAndTypeIndex)
}

func (c *ConstantInvokeDynamicInfo) write(w *writer) {
	w.writeU1(uint8(ConstantInvokeDynamic))
	w.writeU2(c.BootstrapMethodAttrIndex)
	w.writeU2(c.NameAndTypeIndex)
}

func (c *ConstantModuleInfo) write(w *writer) {
	w.writeU1(uint8(ConstantModule))
	w.writeU2(c.NameIndex)
}

func (c *ConstantPackageInfo) write(w *writer) {
	w.writeU1(uint8(ConstantPackage))
	w.writeU2(c.NameIndex)
}

// ConstantPool holds the entry for pool index i at slot i-1. The slot after
// a Long or Double entry is nil.
type ConstantPool []ConstantPoolEntry

// Count returns the constant_pool_count written to the class file.
func (cp ConstantPool) Count() int {
	return len(cp) + 1
}

// Valid reports whether index addresses a real entry.
func (cp ConstantPool) Valid(index uint16) bool {
	return index != 0 && int(index) <= len(cp) && cp[index-1] != nil
}

// Entry returns the entry at index, or nil for index 0, out of range
// indices and Long/Double placeholder slots.
func (cp ConstantPool) Entry(index uint16) ConstantPoolEntry {
	if index == 0 || int(index) > len(cp) {
		return nil
	}
	return cp[index-1]
}

// Lookup resolves index and checks that the entry carries one of the given
// tags. With no tags any real entry is accepted.
func (cp ConstantPool) Lookup(index uint16, tags ...ConstantTag) (ConstantPoolEntry, error) {
	if index == 0 || int(index) > len(cp) {
		return nil, fmt.Errorf("%w: %d (pool has %d slots)", ErrBadIndex, index, cp.Count())
	}
	entry := cp[index-1]
	if entry == nil {
		return nil, fmt.Errorf("%w: %d is the second slot of a long or double", ErrBadIndex, index)
	}
	if len(tags) == 0 {
		return entry, nil
	}
	for _, tag := range tags {
		if entry.Tag() == tag {
			return entry, nil
		}
	}
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.String()
	}
	return nil, fmt.Errorf("%w: index %d holds %s, expected %s", ErrWrongTag, index, entry.Tag(), strings.Join(names, " or "))
}

// Resolve looks up index and asserts the entry's concrete type.
func Resolve[T ConstantPoolEntry](cp ConstantPool, index uint16) (T, error) {
	var zero T
	entry, err := cp.Lookup(index)
	if err != nil {
		return zero, err
	}
	typed, ok := entry.(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d holds %s, expected %T", ErrWrongTag, index, entry.Tag(), zero)
	}
	return typed, nil
}

// Copy returns a deep copy of the pool.
func (cp ConstantPool) Copy() ConstantPool {
	if cp == nil {
		return nil
	}
	out := make(ConstantPool, len(cp))
	for i, entry := range cp {
		if entry != nil {
			out[i] = entry.clone()
		}
	}
	return out
}

// Set replaces the entry at index with one of the same width, so a Long
// or Double can only replace a Long or Double and the slot layout of the
// pool never changes.
func (cp ConstantPool) Set(index uint16, entry ConstantPoolEntry) error {
	if index == 0 || int(index) > len(cp) || entry == nil {
		return fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	old := cp[index-1]
	if old == nil {
		return fmt.Errorf("%w: %d is the second slot of a long or double", ErrBadIndex, index)
	}
	if old.Tag().Width() != entry.Tag().Width() {
		return fmt.Errorf("%w: %s at %d cannot replace %s", ErrBadIndex, entry.Tag(), index, old.Tag())
	}
	cp[index-1] = entry
	return nil
}

// Add appends entry and returns its index.
func (cp *ConstantPool) Add(entry ConstantPoolEntry) uint16 {
	*cp = append(*cp, entry)
	index := uint16(len(*cp))
	if entry.Tag().Width() == 2 {
		*cp = append(*cp, nil)
	}
	return index
}

// AddUtf8 returns the index of an existing Utf8 entry with value s, adding
// one if needed.
func (cp *ConstantPool) AddUtf8(s string) uint16 {
	for i, entry := range *cp {
		if u, ok := entry.(*ConstantUtf8Info); ok && u.Value == s {
			return uint16(i + 1)
		}
	}
	return cp.Add(&ConstantUtf8Info{Value: s})
}

func (cp *ConstantPool) AddClass(name string) uint16 {
	nameIndex := cp.AddUtf8(name)
	for i, entry := range *cp {
		if c, ok := entry.(*ConstantClassInfo); ok && c.NameIndex == nameIndex {
			return uint16(i + 1)
		}
	}
	return cp.Add(&ConstantClassInfo{NameIndex: nameIndex})
}

func (cp *ConstantPool) AddString(s string) uint16 {
	return cp.Add(&ConstantStringInfo{StringIndex: cp.AddUtf8(s)})
}

func (cp *ConstantPool) AddInteger(v int32) uint16 {
	return cp.Add(&ConstantIntegerInfo{Value: v})
}

func (cp *ConstantPool) AddFloat(v float32) uint16 {
	return cp.Add(&ConstantFloatInfo{Value: v})
}

func (cp *ConstantPool) AddLong(v int64) uint16 {
	return cp.Add(&ConstantLongInfo{Value: v})
}

func (cp *ConstantPool) AddDouble(v float64) uint16 {
	return cp.Add(&ConstantDoubleInfo{Value: v})
}

func (cp *ConstantPool) AddNameAndType(name, descriptor string) uint16 {
	n := cp.AddUtf8(name)
	d := cp.AddUtf8(descriptor)
	for i, entry := range *cp {
		if nt, ok := entry.(*ConstantNameAndTypeInfo); ok && nt.NameIndex == n && nt.DescriptorIndex == d {
			return uint16(i + 1)
		}
	}
	return cp.Add(&ConstantNameAndTypeInfo{NameIndex: n, DescriptorIndex: d})
}

func (cp *ConstantPool) AddFieldref(class, name, descriptor string) uint16 {
	c := cp.AddClass(class)
	nt := cp.AddNameAndType(name, descriptor)
	return cp.Add(&ConstantFieldrefInfo{ClassIndex: c, NameAndTypeIndex: nt})
}

func (cp *ConstantPool) AddMethodref(class, name, descriptor string) uint16 {
	c := cp.AddClass(class)
	nt := cp.AddNameAndType(name, descriptor)
	return cp.Add(&ConstantMethodrefInfo{ClassIndex: c, NameAndTypeIndex: nt})
}

func (cp *ConstantPool) AddInterfaceMethodref(class, name, descriptor string) uint16 {
	c := cp.AddClass(class)
	nt := cp.AddNameAndType(name, descriptor)
	return cp.Add(&ConstantInterfaceMethodrefInfo{ClassIndex: c, NameAndTypeIndex: nt})
}

func (cp ConstantPool) GetUtf8(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantUtf8Info); ok {
		return entry.Value
	}
	return ""
}

func (cp ConstantPool) GetClassName(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantClassInfo); ok {
		return cp.GetUtf8(entry.NameIndex)
	}
	return ""
}

func (cp ConstantPool) GetNameAndType(index uint16) (name, descriptor string) {
	if entry, ok := cp.Entry(index).(*ConstantNameAndTypeInfo); ok {
		return cp.GetUtf8(entry.NameIndex), cp.GetUtf8(entry.DescriptorIndex)
	}
	return "", ""
}

func (cp ConstantPool) GetString(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantStringInfo); ok {
		return cp.GetUtf8(entry.StringIndex)
	}
	return ""
}

func (cp ConstantPool) GetModuleName(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantModuleInfo); ok {
		return cp.GetUtf8(entry.NameIndex)
	}
	return ""
}

func (cp ConstantPool) GetPackageName(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantPackageInfo); ok {
		return cp.GetUtf8(entry.NameIndex)
	}
	return ""
}

func (cp ConstantPool) GetInteger(index uint16) (int32, bool) {
	if entry, ok := cp.Entry(index).(*ConstantIntegerInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

func (cp ConstantPool) GetLong(index uint16) (int64, bool) {
	if entry, ok := cp.Entry(index).(*ConstantLongInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

func (cp ConstantPool) GetFloat(index uint16) (float32, bool) {
	if entry, ok := cp.Entry(index).(*ConstantFloatInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

func (cp ConstantPool) GetDouble(index uint16) (float64, bool) {
	if entry, ok := cp.Entry(index).(*ConstantDoubleInfo); ok {
		return entry.Value, true
	}
	return 0, false
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref.
func (cp ConstantPool) MemberRef(index uint16) (className, name, descriptor string, ok bool) {
	var classIndex, ntIndex uint16
	switch entry := cp.Entry(index).(type) {
	case *ConstantFieldrefInfo:
		classIndex, ntIndex = entry.ClassIndex, entry.NameAndTypeIndex
	case *ConstantMethodrefInfo:
		classIndex, ntIndex = entry.ClassIndex, entry.NameAndTypeIndex
	case *ConstantInterfaceMethodrefInfo:
		classIndex, ntIndex = entry.ClassIndex, entry.NameAndTypeIndex
	default:
		return "", "", "", false
	}
	className = cp.GetClassName(classIndex)
	name, descriptor = cp.GetNameAndType(ntIndex)
	return className, name, descriptor, true
}

func (cp ConstantPool) GetFieldref(index uint16) (className, name, descriptor string) {
	if _, ok := cp.Entry(index).(*ConstantFieldrefInfo); !ok {
		return "", "", ""
	}
	className, name, descriptor, _ = cp.MemberRef(index)
	return
}

func (cp ConstantPool) GetMethodref(index uint16) (className, name, descriptor string) {
	if _, ok := cp.Entry(index).(*ConstantMethodrefInfo); !ok {
		return "", "", ""
	}
	className, name, descriptor, _ = cp.MemberRef(index)
	return
}

func (cp ConstantPool) GetInterfaceMethodref(index uint16) (className, name, descriptor string) {
	if _, ok := cp.Entry(index).(*ConstantInterfaceMethodrefInfo); !ok {
		return "", "", ""
	}
	className, name, descriptor, _ = cp.MemberRef(index)
	return
}

func (cp ConstantPool) GetMethodHandle(index uint16) *ConstantMethodHandleInfo {
	entry, _ := cp.Entry(index).(*ConstantMethodHandleInfo)
	return entry
}

func (cp ConstantPool) GetMethodType(index uint16) string {
	if entry, ok := cp.Entry(index).(*ConstantMethodTypeInfo); ok {
		return cp.GetUtf8(entry.DescriptorIndex)
	}
	return ""
}

func (cp ConstantPool) GetDynamic(index uint16) *ConstantDynamicInfo {
	entry, _ := cp.Entry(index).(*ConstantDynamicInfo)
	return entry
}

func (cp ConstantPool) GetInvokeDynamic(index uint16) *ConstantInvokeDynamicInfo {
	entry, _ := cp.Entry(index).(*ConstantInvokeDynamicInfo)
	return entry
}

// checkRefs verifies that every index held by a pool entry is in range.
func (cp ConstantPool) checkRefs() error {
	for i, entry := range cp {
		if entry == nil {
			continue
		}
		for _, ref := range entry.refs() {
			if ref == 0 || int(ref) > len(cp) {
				return fmt.Errorf("constant pool entry %d (%s) references index %d outside the pool", i+1, entry.Tag(), ref)
			}
		}
	}
	return nil
}
