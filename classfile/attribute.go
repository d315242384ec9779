package classfile

// Attribute names recognised by the decoder.
const (
	AttrConstantValue                        = "ConstantValue"
	AttrCode                                 = "Code"
	AttrStackMapTable                        = "StackMapTable"
	AttrExceptions                           = "Exceptions"
	AttrInnerClasses                         = "InnerClasses"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrSynthetic                            = "Synthetic"
	AttrSignature                            = "Signature"
	AttrSourceFile                           = "SourceFile"
	AttrSourceDebugExtension                 = "SourceDebugExtension"
	AttrLineNumberTable                      = "LineNumberTable"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrDeprecated                           = "Deprecated"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
	AttrAnnotationDefault                    = "AnnotationDefault"
	AttrBootstrapMethods                     = "BootstrapMethods"
	AttrMethodParameters                     = "MethodParameters"
	AttrModule                               = "Module"
	AttrModulePackages                       = "ModulePackages"
	AttrModuleMainClass                      = "ModuleMainClass"
	AttrNestHost                             = "NestHost"
	AttrNestMembers                          = "NestMembers"
	AttrRecord                               = "Record"
	AttrPermittedSubclasses                  = "PermittedSubclasses"
)

// Attribute is implemented by the *XxxAttribute types of this package and
// by *UnknownAttribute, which keeps the raw bytes of any attribute whose
// name is not recognised.
type Attribute interface {
	Node
	Header() *AttributeHeader
	// Kind is the attribute name this variant decodes, or "" for
	// UnknownAttribute.
	Kind() string
	encode(w *writer)
	copyAttribute() Attribute
}

// AttributeHeader carries the constant pool index of the attribute name.
// The attribute length is never stored; see AttributeLength.
type AttributeHeader struct {
	NameIndex uint16
}

func (h *AttributeHeader) Header() *AttributeHeader { return h }

// AttributeName resolves the name of a through cp.
func AttributeName(a Attribute, cp ConstantPool) string {
	return cp.GetUtf8(a.Header().NameIndex)
}

// FindAttribute returns the first attribute in attrs whose name resolves to
// name.
func FindAttribute(attrs []Attribute, cp ConstantPool, name string) Attribute {
	for _, a := range attrs {
		if AttributeName(a, cp) == name {
			return a
		}
	}
	return nil
}

type UnknownAttribute struct {
	AttributeHeader
	Info []byte
}

type CodeAttribute struct {
	AttributeHeader
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

type LineNumberTableAttribute struct {
	AttributeHeader
	LineNumberTable []LineNumberEntry
}

type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LocalVariableTableAttribute struct {
	AttributeHeader
	LocalVariableTable []LocalVariableEntry
}

type LocalVariableEntry struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type LocalVariableTypeTableAttribute struct {
	AttributeHeader
	LocalVariableTypeTable []LocalVariableTypeEntry
}

type LocalVariableTypeEntry struct {
	StartPC        uint16
	Length         uint16
	NameIndex      uint16
	SignatureIndex uint16
	Index          uint16
}

type SourceFileAttribute struct {
	AttributeHeader
	SourceFileIndex uint16
}

type ConstantValueAttribute struct {
	AttributeHeader
	ConstantValueIndex uint16
}

type ExceptionsAttribute struct {
	AttributeHeader
	ExceptionIndexTable []uint16
}

type InnerClassesAttribute struct {
	AttributeHeader
	Classes []InnerClassEntry
}

type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags AccessFlags
}

type SignatureAttribute struct {
	AttributeHeader
	SignatureIndex uint16
}

type BootstrapMethodsAttribute struct {
	AttributeHeader
	BootstrapMethods []BootstrapMethod
}

type BootstrapMethod struct {
	BootstrapMethodRef uint16
	BootstrapArguments []uint16
}

type EnclosingMethodAttribute struct {
	AttributeHeader
	ClassIndex  uint16
	MethodIndex uint16
}

// SyntheticAttribute and DeprecatedAttribute normally have no content; Info
// preserves any bytes a compiler put there anyway.
type SyntheticAttribute struct {
	AttributeHeader
	Info []byte
}

type DeprecatedAttribute struct {
	AttributeHeader
	Info []byte
}

type SourceDebugExtensionAttribute struct {
	AttributeHeader
	DebugExtension []byte
}

type MethodParametersAttribute struct {
	AttributeHeader
	Parameters []MethodParameter
}

type MethodParameter struct {
	NameIndex   uint16
	AccessFlags AccessFlags
}

type NestHostAttribute struct {
	AttributeHeader
	HostClassIndex uint16
}

type NestMembersAttribute struct {
	AttributeHeader
	Classes []uint16
}

type RecordAttribute struct {
	AttributeHeader
	Components []RecordComponentInfo
}

type RecordComponentInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

type PermittedSubclassesAttribute struct {
	AttributeHeader
	Classes []uint16
}

type StackMapTableAttribute struct {
	AttributeHeader
	Entries []StackMapFrame
}

// StackMapFrame keeps the encoded frame, including its type byte, in Data.
type StackMapFrame struct {
	FrameType uint8
	Data      []byte
}

type Annotation struct {
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

type ElementValuePair struct {
	ElementNameIndex uint16
	Value            ElementValue
}

// ElementValue holds a uint16 constant index for the primitive, string and
// class tags, an EnumConstValue for 'e', an Annotation for '@' and an
// ArrayValue for '['.
type ElementValue struct {
	Tag   byte
	Value interface{}
}

type EnumConstValue struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

type ArrayValue struct {
	Values []ElementValue
}

type RuntimeVisibleAnnotationsAttribute struct {
	AttributeHeader
	Annotations []Annotation
}

type RuntimeInvisibleAnnotationsAttribute struct {
	AttributeHeader
	Annotations []Annotation
}

type RuntimeVisibleParameterAnnotationsAttribute struct {
	AttributeHeader
	ParameterAnnotations [][]Annotation
}

type RuntimeInvisibleParameterAnnotationsAttribute struct {
	AttributeHeader
	ParameterAnnotations [][]Annotation
}

type TypeAnnotation struct {
	TargetType        uint8
	TargetInfo        []byte
	TargetPath        []TypePathEntry
	TypeIndex         uint16
	ElementValuePairs []ElementValuePair
}

type TypePathEntry struct {
	TypePathKind      uint8
	TypeArgumentIndex uint8
}

type RuntimeVisibleTypeAnnotationsAttribute struct {
	AttributeHeader
	Annotations []TypeAnnotation
}

type RuntimeInvisibleTypeAnnotationsAttribute struct {
	AttributeHeader
	Annotations []TypeAnnotation
}

type AnnotationDefaultAttribute struct {
	AttributeHeader
	DefaultValue ElementValue
}

type ModuleAttribute struct {
	AttributeHeader
	ModuleNameIndex    uint16
	ModuleFlags        uint16
	ModuleVersionIndex uint16
	Requires           []ModuleRequires
	Exports            []ModuleExports
	Opens              []ModuleOpens
	Uses               []uint16
	Provides           []ModuleProvides
}

type ModuleRequires struct {
	RequiresIndex        uint16
	RequiresFlags        uint16
	RequiresVersionIndex uint16
}

type ModuleExports struct {
	ExportsIndex   uint16
	ExportsFlags   uint16
	ExportsToIndex []uint16
}

type ModuleOpens struct {
	OpensIndex   uint16
	OpensFlags   uint16
	OpensToIndex []uint16
}

type ModuleProvides struct {
	ProvidesIndex     uint16
	ProvidesWithIndex []uint16
}

type ModulePackagesAttribute struct {
	AttributeHeader
	PackageIndex []uint16
}

type ModuleMainClassAttribute struct {
	AttributeHeader
	MainClassIndex uint16
}

func (a *UnknownAttribute) Kind() string                              { return "" }
func (a *CodeAttribute) Kind() string                                 { return AttrCode }
func (a *LineNumberTableAttribute) Kind() string                      { return AttrLineNumberTable }
func (a *LocalVariableTableAttribute) Kind() string                   { return AttrLocalVariableTable }
func (a *LocalVariableTypeTableAttribute) Kind() string               { return AttrLocalVariableTypeTable }
func (a *SourceFileAttribute) Kind() string                           { return AttrSourceFile }
func (a *ConstantValueAttribute) Kind() string                        { return AttrConstantValue }
func (a *ExceptionsAttribute) Kind() string                           { return AttrExceptions }
func (a *InnerClassesAttribute) Kind() string                         { return AttrInnerClasses }
func (a *SignatureAttribute) Kind() string                            { return AttrSignature }
func (a *BootstrapMethodsAttribute) Kind() string                     { return AttrBootstrapMethods }
func (a *EnclosingMethodAttribute) Kind() string                      { return AttrEnclosingMethod }
func (a *SyntheticAttribute) Kind() string                            { return AttrSynthetic }
func (a *DeprecatedAttribute) Kind() string                           { return AttrDeprecated }
func (a *SourceDebugExtensionAttribute) Kind() string                 { return AttrSourceDebugExtension }
func (a *MethodParametersAttribute) Kind() string                     { return AttrMethodParameters }
func (a *NestHostAttribute) Kind() string                             { return AttrNestHost }
func (a *NestMembersAttribute) Kind() string                          { return AttrNestMembers }
func (a *RecordAttribute) Kind() string                               { return AttrRecord }
func (a *PermittedSubclassesAttribute) Kind() string                  { return AttrPermittedSubclasses }
func (a *StackMapTableAttribute) Kind() string                        { return AttrStackMapTable }
func (a *RuntimeVisibleAnnotationsAttribute) Kind() string            { return AttrRuntimeVisibleAnnotations }
func (a *RuntimeInvisibleAnnotationsAttribute) Kind() string          { return AttrRuntimeInvisibleAnnotations }
func (a *RuntimeVisibleParameterAnnotationsAttribute) Kind() string   { return AttrRuntimeVisibleParameterAnnotations }
func (a *RuntimeInvisibleParameterAnnotationsAttribute) Kind() string { return AttrRuntimeInvisibleParameterAnnotations }
func (a *RuntimeVisibleTypeAnnotationsAttribute) Kind() string        { return AttrRuntimeVisibleTypeAnnotations }
func (a *RuntimeInvisibleTypeAnnotationsAttribute) Kind() string      { return AttrRuntimeInvisibleTypeAnnotations }
func (a *AnnotationDefaultAttribute) Kind() string                    { return AttrAnnotationDefault }
func (a *ModuleAttribute) Kind() string                               { return AttrModule }
func (a *ModulePackagesAttribute) Kind() string                       { return AttrModulePackages }
func (a *ModuleMainClassAttribute) Kind() string                      { return AttrModuleMainClass }

// LineNumberTable returns the first LineNumberTable attribute of the code.
func (c *CodeAttribute) LineNumberTable() *LineNumberTableAttribute {
	for _, a := range c.Attributes {
		if lnt, ok := a.(*LineNumberTableAttribute); ok {
			return lnt
		}
	}
	return nil
}

// LocalVariableTables returns every LocalVariableTable attribute; a Code
// attribute may carry more than one.
func (c *CodeAttribute) LocalVariableTables() []*LocalVariableTableAttribute {
	var out []*LocalVariableTableAttribute
	for _, a := range c.Attributes {
		if lvt, ok := a.(*LocalVariableTableAttribute); ok {
			out = append(out, lvt)
		}
	}
	return out
}
