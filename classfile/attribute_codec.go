package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// decoder reads big-endian values from an attribute body. Like reader it
// keeps the first error and turns later reads into no-ops.
type decoder struct {
	b   []byte
	off int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.off+n > len(d.b) {
		d.err = fmt.Errorf("truncated: need %d bytes at offset %d, have %d", n, d.off, len(d.b)-d.off)
		return false
	}
	return true
}

func (d *decoder) remaining() int {
	return len(d.b) - d.off
}

func (d *decoder) u1() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.b[d.off]
	d.off++
	return v
}

func (d *decoder) u2() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.b[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u4() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.b[d.off:])
	d.off += 4
	return v
}

func (d *decoder) bytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, d.b[d.off:d.off+n])
	d.off += n
	return out
}

// count reads a u2 element count and checks that count elements of at
// least minSize bytes fit in the remaining input.
func (d *decoder) count(minSize int) int {
	n := int(d.u2())
	if d.err == nil && n*minSize > d.remaining() {
		d.err = fmt.Errorf("count %d at offset %d exceeds remaining %d bytes", n, d.off-2, d.remaining())
		return 0
	}
	return n
}

func (d *decoder) u2s() []uint16 {
	n := d.count(2)
	out := make([]uint16, n)
	for i := range out {
		out[i] = d.u2()
	}
	return out
}

var attributeDecoders map[string]func(d *decoder, cp ConstantPool) Attribute

func init() {
	attributeDecoders = map[string]func(d *decoder, cp ConstantPool) Attribute{
		AttrCode:                                 decodeCode,
		AttrConstantValue:                        decodeConstantValue,
		AttrExceptions:                           decodeExceptions,
		AttrLineNumberTable:                      decodeLineNumberTable,
		AttrLocalVariableTable:                   decodeLocalVariableTable,
		AttrLocalVariableTypeTable:               decodeLocalVariableTypeTable,
		AttrInnerClasses:                         decodeInnerClasses,
		AttrSynthetic:                            decodeSynthetic,
		AttrDeprecated:                           decodeDeprecated,
		AttrSignature:                            decodeSignature,
		AttrSourceFile:                           decodeSourceFile,
		AttrSourceDebugExtension:                 decodeSourceDebugExtension,
		AttrEnclosingMethod:                      decodeEnclosingMethod,
		AttrBootstrapMethods:                     decodeBootstrapMethods,
		AttrMethodParameters:                     decodeMethodParameters,
		AttrModule:                               decodeModule,
		AttrModulePackages:                       decodeModulePackages,
		AttrModuleMainClass:                      decodeModuleMainClass,
		AttrNestHost:                             decodeNestHost,
		AttrNestMembers:                          decodeNestMembers,
		AttrRecord:                               decodeRecord,
		AttrPermittedSubclasses:                  decodePermittedSubclasses,
		AttrStackMapTable:                        decodeStackMapTable,
		AttrRuntimeVisibleAnnotations:            decodeRuntimeVisibleAnnotations,
		AttrRuntimeInvisibleAnnotations:          decodeRuntimeInvisibleAnnotations,
		AttrRuntimeVisibleParameterAnnotations:   decodeRuntimeVisibleParameterAnnotations,
		AttrRuntimeInvisibleParameterAnnotations: decodeRuntimeInvisibleParameterAnnotations,
		AttrRuntimeVisibleTypeAnnotations:        decodeRuntimeVisibleTypeAnnotations,
		AttrRuntimeInvisibleTypeAnnotations:      decodeRuntimeInvisibleTypeAnnotations,
		AttrAnnotationDefault:                    decodeAnnotationDefault,
	}
}

// newAttribute decodes info according to the attribute name at nameIndex.
// Unrecognised names yield an *UnknownAttribute holding a copy of info.
func newAttribute(nameIndex uint16, info []byte, cp ConstantPool) (Attribute, error) {
	entry, err := cp.Lookup(nameIndex, ConstantUtf8)
	if err != nil {
		return nil, fmt.Errorf("attribute name: %w", err)
	}
	name := entry.(*ConstantUtf8Info).Value

	dec, ok := attributeDecoders[name]
	if !ok {
		return &UnknownAttribute{
			AttributeHeader: AttributeHeader{NameIndex: nameIndex},
			Info:            append([]byte{}, info...),
		}, nil
	}

	d := &decoder{b: info}
	a := dec(d, cp)
	if d.err != nil {
		return nil, fmt.Errorf("%s attribute: %w", name, d.err)
	}
	if d.off != len(info) {
		return nil, fmt.Errorf("%s attribute declares %d bytes but its content occupies %d", name, len(info), d.off)
	}
	a.Header().NameIndex = nameIndex
	return a, nil
}

func decodeAttributes(d *decoder, cp ConstantPool) []Attribute {
	n := d.count(6)
	attrs := make([]Attribute, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		nameIndex := d.u2()
		length := d.u4()
		if d.err != nil {
			break
		}
		if int64(length) > int64(d.remaining()) {
			d.err = fmt.Errorf("attribute %d declares %d bytes, only %d remain", i, length, d.remaining())
			break
		}
		info := d.b[d.off : d.off+int(length)]
		d.off += int(length)
		a, err := newAttribute(nameIndex, info, cp)
		if err != nil {
			d.err = err
			break
		}
		attrs = append(attrs, a)
	}
	return attrs
}

func decodeCode(d *decoder, cp ConstantPool) Attribute {
	a := &CodeAttribute{
		MaxStack:  d.u2(),
		MaxLocals: d.u2(),
	}
	codeLength := d.u4()
	if d.err == nil && int64(codeLength) > int64(d.remaining()) {
		d.err = fmt.Errorf("code_length %d exceeds remaining %d bytes", codeLength, d.remaining())
		return a
	}
	a.Code = d.bytes(int(codeLength))
	n := d.count(8)
	a.ExceptionTable = make([]ExceptionTableEntry, n)
	for i := range a.ExceptionTable {
		a.ExceptionTable[i] = ExceptionTableEntry{
			StartPC:   d.u2(),
			EndPC:     d.u2(),
			HandlerPC: d.u2(),
			CatchType: d.u2(),
		}
	}
	a.Attributes = decodeAttributes(d, cp)
	return a
}

func decodeConstantValue(d *decoder, _ ConstantPool) Attribute {
	return &ConstantValueAttribute{ConstantValueIndex: d.u2()}
}

func decodeExceptions(d *decoder, _ ConstantPool) Attribute {
	return &ExceptionsAttribute{ExceptionIndexTable: d.u2s()}
}

func decodeLineNumberTable(d *decoder, _ ConstantPool) Attribute {
	n := d.count(4)
	a := &LineNumberTableAttribute{LineNumberTable: make([]LineNumberEntry, n)}
	for i := range a.LineNumberTable {
		a.LineNumberTable[i] = LineNumberEntry{StartPC: d.u2(), LineNumber: d.u2()}
	}
	return a
}

func decodeLocalVariableTable(d *decoder, _ ConstantPool) Attribute {
	n := d.count(10)
	a := &LocalVariableTableAttribute{LocalVariableTable: make([]LocalVariableEntry, n)}
	for i := range a.LocalVariableTable {
		a.LocalVariableTable[i] = LocalVariableEntry{
			StartPC:         d.u2(),
			Length:          d.u2(),
			NameIndex:       d.u2(),
			DescriptorIndex: d.u2(),
			Index:           d.u2(),
		}
	}
	return a
}

func decodeLocalVariableTypeTable(d *decoder, _ ConstantPool) Attribute {
	n := d.count(10)
	a := &LocalVariableTypeTableAttribute{LocalVariableTypeTable: make([]LocalVariableTypeEntry, n)}
	for i := range a.LocalVariableTypeTable {
		a.LocalVariableTypeTable[i] = LocalVariableTypeEntry{
			StartPC:        d.u2(),
			Length:         d.u2(),
			NameIndex:      d.u2(),
			SignatureIndex: d.u2(),
			Index:          d.u2(),
		}
	}
	return a
}

func decodeInnerClasses(d *decoder, _ ConstantPool) Attribute {
	n := d.count(8)
	a := &InnerClassesAttribute{Classes: make([]InnerClassEntry, n)}
	for i := range a.Classes {
		a.Classes[i] = InnerClassEntry{
			InnerClassInfoIndex:   d.u2(),
			OuterClassInfoIndex:   d.u2(),
			InnerNameIndex:        d.u2(),
			InnerClassAccessFlags: AccessFlags(d.u2()),
		}
	}
	return a
}

func decodeSynthetic(d *decoder, _ ConstantPool) Attribute {
	a := &SyntheticAttribute{}
	if d.remaining() > 0 {
		a.Info = d.bytes(d.remaining())
	}
	return a
}

func decodeDeprecated(d *decoder, _ ConstantPool) Attribute {
	a := &DeprecatedAttribute{}
	if d.remaining() > 0 {
		a.Info = d.bytes(d.remaining())
	}
	return a
}

func decodeSignature(d *decoder, _ ConstantPool) Attribute {
	return &SignatureAttribute{SignatureIndex: d.u2()}
}

func decodeSourceFile(d *decoder, _ ConstantPool) Attribute {
	return &SourceFileAttribute{SourceFileIndex: d.u2()}
}

func decodeSourceDebugExtension(d *decoder, _ ConstantPool) Attribute {
	return &SourceDebugExtensionAttribute{DebugExtension: d.bytes(d.remaining())}
}

func decodeEnclosingMethod(d *decoder, _ ConstantPool) Attribute {
	return &EnclosingMethodAttribute{ClassIndex: d.u2(), MethodIndex: d.u2()}
}

func decodeBootstrapMethods(d *decoder, _ ConstantPool) Attribute {
	n := d.count(4)
	a := &BootstrapMethodsAttribute{BootstrapMethods: make([]BootstrapMethod, n)}
	for i := range a.BootstrapMethods {
		a.BootstrapMethods[i] = BootstrapMethod{
			BootstrapMethodRef: d.u2(),
			BootstrapArguments: d.u2s(),
		}
	}
	return a
}

func decodeMethodParameters(d *decoder, _ ConstantPool) Attribute {
	n := int(d.u1())
	if d.err == nil && n*4 > d.remaining() {
		d.err = fmt.Errorf("parameters_count %d exceeds remaining %d bytes", n, d.remaining())
		return &MethodParametersAttribute{}
	}
	a := &MethodParametersAttribute{Parameters: make([]MethodParameter, n)}
	for i := range a.Parameters {
		a.Parameters[i] = MethodParameter{NameIndex: d.u2(), AccessFlags: AccessFlags(d.u2())}
	}
	return a
}

func decodeModule(d *decoder, _ ConstantPool) Attribute {
	a := &ModuleAttribute{
		ModuleNameIndex:    d.u2(),
		ModuleFlags:        d.u2(),
		ModuleVersionIndex: d.u2(),
	}
	a.Requires = make([]ModuleRequires, d.count(6))
	for i := range a.Requires {
		a.Requires[i] = ModuleRequires{
			RequiresIndex:        d.u2(),
			RequiresFlags:        d.u2(),
			RequiresVersionIndex: d.u2(),
		}
	}
	a.Exports = make([]ModuleExports, d.count(6))
	for i := range a.Exports {
		a.Exports[i] = ModuleExports{
			ExportsIndex:   d.u2(),
			ExportsFlags:   d.u2(),
			ExportsToIndex: d.u2s(),
		}
	}
	a.Opens = make([]ModuleOpens, d.count(6))
	for i := range a.Opens {
		a.Opens[i] = ModuleOpens{
			OpensIndex:   d.u2(),
			OpensFlags:   d.u2(),
			OpensToIndex: d.u2s(),
		}
	}
	a.Uses = d.u2s()
	a.Provides = make([]ModuleProvides, d.count(4))
	for i := range a.Provides {
		a.Provides[i] = ModuleProvides{
			ProvidesIndex:     d.u2(),
			ProvidesWithIndex: d.u2s(),
		}
	}
	return a
}

func decodeModulePackages(d *decoder, _ ConstantPool) Attribute {
	return &ModulePackagesAttribute{PackageIndex: d.u2s()}
}

func decodeModuleMainClass(d *decoder, _ ConstantPool) Attribute {
	return &ModuleMainClassAttribute{MainClassIndex: d.u2()}
}

func decodeNestHost(d *decoder, _ ConstantPool) Attribute {
	return &NestHostAttribute{HostClassIndex: d.u2()}
}

func decodeNestMembers(d *decoder, _ ConstantPool) Attribute {
	return &NestMembersAttribute{Classes: d.u2s()}
}

func decodePermittedSubclasses(d *decoder, _ ConstantPool) Attribute {
	return &PermittedSubclassesAttribute{Classes: d.u2s()}
}

func decodeRecord(d *decoder, cp ConstantPool) Attribute {
	n := d.count(6)
	a := &RecordAttribute{Components: make([]RecordComponentInfo, 0, n)}
	for i := 0; i < n && d.err == nil; i++ {
		c := RecordComponentInfo{NameIndex: d.u2(), DescriptorIndex: d.u2()}
		c.Attributes = decodeAttributes(d, cp)
		a.Components = append(a.Components, c)
	}
	return a
}

func decodeStackMapTable(d *decoder, _ ConstantPool) Attribute {
	n := d.count(1)
	a := &StackMapTableAttribute{Entries: make([]StackMapFrame, 0, n)}
	for i := 0; i < n && d.err == nil; i++ {
		start := d.off
		frameType := d.u1()
		switch {
		case frameType <= 63:
		case frameType <= 127:
			skipVerificationType(d)
		case frameType == 247:
			d.u2()
			skipVerificationType(d)
		case frameType >= 248 && frameType <= 251:
			d.u2()
		case frameType >= 252 && frameType <= 254:
			d.u2()
			for k := 0; k < int(frameType)-251; k++ {
				skipVerificationType(d)
			}
		case frameType == 255:
			d.u2()
			locals := int(d.u2())
			for k := 0; k < locals && d.err == nil; k++ {
				skipVerificationType(d)
			}
			stack := int(d.u2())
			for k := 0; k < stack && d.err == nil; k++ {
				skipVerificationType(d)
			}
		default:
			d.err = fmt.Errorf("reserved stack map frame type %d", frameType)
		}
		if d.err != nil {
			break
		}
		a.Entries = append(a.Entries, StackMapFrame{
			FrameType: frameType,
			Data:      append([]byte{}, d.b[start:d.off]...),
		})
	}
	return a
}

func skipVerificationType(d *decoder) {
	switch tag := d.u1(); tag {
	case 0, 1, 2, 3, 4, 5, 6:
	case 7, 8:
		d.u2()
	default:
		if d.err == nil {
			d.err = fmt.Errorf("unknown verification type tag %d", tag)
		}
	}
}

func decodeElementValue(d *decoder, depth int) ElementValue {
	ev := ElementValue{Tag: d.u1()}
	if depth > maxElementDepth {
		d.err = fmt.Errorf("element values nested deeper than %d", maxElementDepth)
		return ev
	}
	switch ev.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		ev.Value = d.u2()
	case 'e':
		ev.Value = EnumConstValue{TypeNameIndex: d.u2(), ConstNameIndex: d.u2()}
	case '@':
		ev.Value = decodeAnnotation(d, depth+1)
	case '[':
		n := d.count(1)
		values := make([]ElementValue, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			values = append(values, decodeElementValue(d, depth+1))
		}
		ev.Value = ArrayValue{Values: values}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("unknown element value tag %q", ev.Tag)
		}
	}
	return ev
}

const maxElementDepth = 256

func decodeAnnotation(d *decoder, depth int) Annotation {
	ann := Annotation{TypeIndex: d.u2()}
	n := d.count(3)
	ann.ElementValuePairs = make([]ElementValuePair, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		pair := ElementValuePair{ElementNameIndex: d.u2()}
		pair.Value = decodeElementValue(d, depth)
		ann.ElementValuePairs = append(ann.ElementValuePairs, pair)
	}
	return ann
}

func decodeAnnotations(d *decoder) []Annotation {
	n := d.count(4)
	out := make([]Annotation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, decodeAnnotation(d, 0))
	}
	return out
}

func decodeParameterAnnotations(d *decoder) [][]Annotation {
	n := int(d.u1())
	out := make([][]Annotation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, decodeAnnotations(d))
	}
	return out
}

func decodeTypeAnnotation(d *decoder) TypeAnnotation {
	ta := TypeAnnotation{TargetType: d.u1()}
	start := d.off
	switch ta.TargetType {
	case 0x00, 0x01, 0x16:
		d.u1()
	case 0x10, 0x11, 0x12, 0x17, 0x42, 0x43, 0x44, 0x45, 0x46:
		d.u2()
	case 0x13, 0x14, 0x15:
	case 0x40, 0x41:
		n := d.count(6)
		for i := 0; i < n; i++ {
			d.u2()
			d.u2()
			d.u2()
		}
	case 0x47, 0x48, 0x49, 0x4A, 0x4B:
		d.u2()
		d.u1()
	default:
		if d.err == nil {
			d.err = fmt.Errorf("unknown type annotation target 0x%02X", ta.TargetType)
		}
	}
	if d.err != nil {
		return ta
	}
	ta.TargetInfo = append([]byte{}, d.b[start:d.off]...)

	pathLength := int(d.u1())
	ta.TargetPath = make([]TypePathEntry, 0, pathLength)
	for i := 0; i < pathLength && d.err == nil; i++ {
		ta.TargetPath = append(ta.TargetPath, TypePathEntry{TypePathKind: d.u1(), TypeArgumentIndex: d.u1()})
	}
	ann := decodeAnnotation(d, 0)
	ta.TypeIndex = ann.TypeIndex
	ta.ElementValuePairs = ann.ElementValuePairs
	return ta
}

func decodeTypeAnnotations(d *decoder) []TypeAnnotation {
	n := d.count(1)
	out := make([]TypeAnnotation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, decodeTypeAnnotation(d))
	}
	return out
}

func decodeRuntimeVisibleAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeVisibleAnnotationsAttribute{Annotations: decodeAnnotations(d)}
}

func decodeRuntimeInvisibleAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeInvisibleAnnotationsAttribute{Annotations: decodeAnnotations(d)}
}

func decodeRuntimeVisibleParameterAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeVisibleParameterAnnotationsAttribute{ParameterAnnotations: decodeParameterAnnotations(d)}
}

func decodeRuntimeInvisibleParameterAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeInvisibleParameterAnnotationsAttribute{ParameterAnnotations: decodeParameterAnnotations(d)}
}

func decodeRuntimeVisibleTypeAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeVisibleTypeAnnotationsAttribute{Annotations: decodeTypeAnnotations(d)}
}

func decodeRuntimeInvisibleTypeAnnotations(d *decoder, _ ConstantPool) Attribute {
	return &RuntimeInvisibleTypeAnnotationsAttribute{Annotations: decodeTypeAnnotations(d)}
}

func decodeAnnotationDefault(d *decoder, _ ConstantPool) Attribute {
	return &AnnotationDefaultAttribute{DefaultValue: decodeElementValue(d, 0)}
}

// AttributeLength returns the attribute_length a would be written with.
func AttributeLength(a Attribute) int {
	return len(encodeBody(a))
}

func encodeBody(a Attribute) []byte {
	var buf bytes.Buffer
	w := &writer{w: &buf}
	a.encode(w)
	return buf.Bytes()
}

func writeAttribute(w *writer, a Attribute) {
	var buf bytes.Buffer
	body := &writer{w: &buf}
	a.encode(body)
	if body.err != nil {
		w.fail(fmt.Errorf("%T: %w", a, body.err))
		return
	}
	if int64(buf.Len()) > math.MaxUint32 {
		w.fail(fmt.Errorf("%T body of %d bytes exceeds u4", a, buf.Len()))
		return
	}
	w.writeU2(a.Header().NameIndex)
	w.writeU4(uint32(buf.Len()))
	w.writeBytes(buf.Bytes())
}

func writeAttributes(w *writer, attrs []Attribute) {
	w.writeCount(len(attrs))
	for _, a := range attrs {
		writeAttribute(w, a)
	}
}

func (a *UnknownAttribute) encode(w *writer) {
	w.writeBytes(a.Info)
}

func (a *CodeAttribute) encode(w *writer) {
	w.writeU2(a.MaxStack)
	w.writeU2(a.MaxLocals)
	w.writeU4(uint32(len(a.Code)))
	w.writeBytes(a.Code)
	w.writeCount(len(a.ExceptionTable))
	for _, e := range a.ExceptionTable {
		w.writeU2(e.StartPC)
		w.writeU2(e.EndPC)
		w.writeU2(e.HandlerPC)
		w.writeU2(e.CatchType)
	}
	writeAttributes(w, a.Attributes)
}

func (a *ConstantValueAttribute) encode(w *writer) {
	w.writeU2(a.ConstantValueIndex)
}

func (a *ExceptionsAttribute) encode(w *writer) {
	w.writeU2s(a.ExceptionIndexTable)
}

func (a *LineNumberTableAttribute) encode(w *writer) {
	w.writeCount(len(a.LineNumberTable))
	for _, e := range a.LineNumberTable {
		w.writeU2(e.StartPC)
		w.writeU2(e.LineNumber)
	}
}

func (a *LocalVariableTableAttribute) encode(w *writer) {
	w.writeCount(len(a.LocalVariableTable))
	for _, e := range a.LocalVariableTable {
		w.writeU2(e.StartPC)
		w.writeU2(e.Length)
		w.writeU2(e.NameIndex)
		w.writeU2(e.DescriptorIndex)
		w.writeU2(e.Index)
	}
}

func (a *LocalVariableTypeTableAttribute) encode(w *writer) {
	w.writeCount(len(a.LocalVariableTypeTable))
	for _, e := range a.LocalVariableTypeTable {
		w.writeU2(e.StartPC)
		w.writeU2(e.Length)
		w.writeU2(e.NameIndex)
		w.writeU2(e.SignatureIndex)
		w.writeU2(e.Index)
	}
}

func (a *InnerClassesAttribute) encode(w *writer) {
	w.writeCount(len(a.Classes))
	for _, c := range a.Classes {
		w.writeU2(c.InnerClassInfoIndex)
		w.writeU2(c.OuterClassInfoIndex)
		w.writeU2(c.InnerNameIndex)
		w.writeU2(uint16(c.InnerClassAccessFlags))
	}
}

func (a *SyntheticAttribute) encode(w *writer)  { w.writeBytes(a.Info) }
func (a *DeprecatedAttribute) encode(w *writer) { w.writeBytes(a.Info) }

func (a *SignatureAttribute) encode(w *writer) {
	w.writeU2(a.SignatureIndex)
}

func (a *SourceFileAttribute) encode(w *writer) {
	w.writeU2(a.SourceFileIndex)
}

func (a *SourceDebugExtensionAttribute) encode(w *writer) {
	w.writeBytes(a.DebugExtension)
}

func (a *EnclosingMethodAttribute) encode(w *writer) {
	w.writeU2(a.ClassIndex)
	w.writeU2(a.MethodIndex)
}

func (a *BootstrapMethodsAttribute) encode(w *writer) {
	w.writeCount(len(a.BootstrapMethods))
	for _, m := range a.BootstrapMethods {
		w.writeU2(m.BootstrapMethodRef)
		w.writeU2s(m.BootstrapArguments)
	}
}

func (a *MethodParametersAttribute) encode(w *writer) {
	if len(a.Parameters) > math.MaxUint8 {
		w.fail(fmt.Errorf("%d method parameters exceed 255", len(a.Parameters)))
		return
	}
	w.writeU1(uint8(len(a.Parameters)))
	for _, p := range a.Parameters {
		w.writeU2(p.NameIndex)
		w.writeU2(uint16(p.AccessFlags))
	}
}

func (a *ModuleAttribute) encode(w *writer) {
	w.writeU2(a.ModuleNameIndex)
	w.writeU2(a.ModuleFlags)
	w.writeU2(a.ModuleVersionIndex)
	w.writeCount(len(a.Requires))
	for _, r := range a.Requires {
		w.writeU2(r.RequiresIndex)
		w.writeU2(r.RequiresFlags)
		w.writeU2(r.RequiresVersionIndex)
	}
	w.writeCount(len(a.Exports))
	for _, e := range a.Exports {
		w.writeU2(e.ExportsIndex)
		w.writeU2(e.ExportsFlags)
		w.writeU2s(e.ExportsToIndex)
	}
	w.writeCount(len(a.Opens))
	for _, o := range a.Opens {
		w.writeU2(o.OpensIndex)
		w.writeU2(o.OpensFlags)
		w.writeU2s(o.OpensToIndex)
	}
	w.writeU2s(a.Uses)
	w.writeCount(len(a.Provides))
	for _, p := range a.Provides {
		w.writeU2(p.ProvidesIndex)
		w.writeU2s(p.ProvidesWithIndex)
	}
}

func (a *ModulePackagesAttribute) encode(w *writer) {
	w.writeU2s(a.PackageIndex)
}

func (a *ModuleMainClassAttribute) encode(w *writer) {
	w.writeU2(a.MainClassIndex)
}

func (a *NestHostAttribute) encode(w *writer) {
	w.writeU2(a.HostClassIndex)
}

func (a *NestMembersAttribute) encode(w *writer) {
	w.writeU2s(a.Classes)
}

func (a *PermittedSubclassesAttribute) encode(w *writer) {
	w.writeU2s(a.Classes)
}

func (a *RecordAttribute) encode(w *writer) {
	w.writeCount(len(a.Components))
	for _, c := range a.Components {
		w.writeU2(c.NameIndex)
		w.writeU2(c.DescriptorIndex)
		writeAttributes(w, c.Attributes)
	}
}

func (a *StackMapTableAttribute) encode(w *writer) {
	w.writeCount(len(a.Entries))
	for _, f := range a.Entries {
		w.writeBytes(f.Data)
	}
}

func writeElementValue(w *writer, ev ElementValue) {
	w.writeU1(ev.Tag)
	switch v := ev.Value.(type) {
	case uint16:
		w.writeU2(v)
	case EnumConstValue:
		w.writeU2(v.TypeNameIndex)
		w.writeU2(v.ConstNameIndex)
	case Annotation:
		writeAnnotation(w, v)
	case ArrayValue:
		w.writeCount(len(v.Values))
		for _, item := range v.Values {
			writeElementValue(w, item)
		}
	default:
		w.fail(fmt.Errorf("element value %q holds unsupported %T", ev.Tag, ev.Value))
	}
}

func writeAnnotation(w *writer, ann Annotation) {
	w.writeU2(ann.TypeIndex)
	writeElementValuePairs(w, ann.ElementValuePairs)
}

func writeElementValuePairs(w *writer, pairs []ElementValuePair) {
	w.writeCount(len(pairs))
	for _, p := range pairs {
		w.writeU2(p.ElementNameIndex)
		writeElementValue(w, p.Value)
	}
}

func writeAnnotations(w *writer, anns []Annotation) {
	w.writeCount(len(anns))
	for _, ann := range anns {
		writeAnnotation(w, ann)
	}
}

func writeParameterAnnotations(w *writer, params [][]Annotation) {
	if len(params) > math.MaxUint8 {
		w.fail(fmt.Errorf("%d parameter annotation tables exceed 255", len(params)))
		return
	}
	w.writeU1(uint8(len(params)))
	for _, anns := range params {
		writeAnnotations(w, anns)
	}
}

func writeTypeAnnotations(w *writer, anns []TypeAnnotation) {
	w.writeCount(len(anns))
	for _, ta := range anns {
		w.writeU1(ta.TargetType)
		w.writeBytes(ta.TargetInfo)
		w.writeU1(uint8(len(ta.TargetPath)))
		for _, p := range ta.TargetPath {
			w.writeU1(p.TypePathKind)
			w.writeU1(p.TypeArgumentIndex)
		}
		w.writeU2(ta.TypeIndex)
		writeElementValuePairs(w, ta.ElementValuePairs)
	}
}

func (a *RuntimeVisibleAnnotationsAttribute) encode(w *writer) {
	writeAnnotations(w, a.Annotations)
}

func (a *RuntimeInvisibleAnnotationsAttribute) encode(w *writer) {
	writeAnnotations(w, a.Annotations)
}

func (a *RuntimeVisibleParameterAnnotationsAttribute) encode(w *writer) {
	writeParameterAnnotations(w, a.ParameterAnnotations)
}

func (a *RuntimeInvisibleParameterAnnotationsAttribute) encode(w *writer) {
	writeParameterAnnotations(w, a.ParameterAnnotations)
}

func (a *RuntimeVisibleTypeAnnotationsAttribute) encode(w *writer) {
	writeTypeAnnotations(w, a.Annotations)
}

func (a *RuntimeInvisibleTypeAnnotationsAttribute) encode(w *writer) {
	writeTypeAnnotations(w, a.Annotations)
}

func (a *AnnotationDefaultAttribute) encode(w *writer) {
	writeElementValue(w, a.DefaultValue)
}
