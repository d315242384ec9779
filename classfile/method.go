package classfile

type MethodInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

func (m *MethodInfo) Name(cp ConstantPool) string {
	return cp.GetUtf8(m.NameIndex)
}

func (m *MethodInfo) Descriptor(cp ConstantPool) string {
	return cp.GetUtf8(m.DescriptorIndex)
}

func (m *MethodInfo) GetAttribute(cp ConstantPool, name string) Attribute {
	return FindAttribute(m.Attributes, cp, name)
}

// Code returns the first Code attribute of the method, or nil for abstract
// and native methods.
func (m *MethodInfo) Code() *CodeAttribute {
	for _, a := range m.Attributes {
		if code, ok := a.(*CodeAttribute); ok {
			return code
		}
	}
	return nil
}

// Exceptions returns the internal names listed in the Exceptions attribute.
func (m *MethodInfo) Exceptions(cp ConstantPool) []string {
	var names []string
	for _, a := range m.Attributes {
		if ex, ok := a.(*ExceptionsAttribute); ok {
			for _, idx := range ex.ExceptionIndexTable {
				names = append(names, cp.GetClassName(idx))
			}
		}
	}
	return names
}

func (m *MethodInfo) Annotations(cp ConstantPool) []AnnotationEntry {
	return annotationEntries(m.Attributes, cp)
}

func (m *MethodInfo) IsPublic() bool       { return m.AccessFlags.IsPublic() }
func (m *MethodInfo) IsPrivate() bool      { return m.AccessFlags.IsPrivate() }
func (m *MethodInfo) IsProtected() bool    { return m.AccessFlags.IsProtected() }
func (m *MethodInfo) IsStatic() bool       { return m.AccessFlags.IsStatic() }
func (m *MethodInfo) IsFinal() bool        { return m.AccessFlags.IsFinal() }
func (m *MethodInfo) IsSynchronized() bool { return m.AccessFlags.IsSynchronized() }
func (m *MethodInfo) IsBridge() bool       { return m.AccessFlags.IsBridge() }
func (m *MethodInfo) IsVarargs() bool      { return m.AccessFlags.IsVarargs() }
func (m *MethodInfo) IsNative() bool       { return m.AccessFlags.IsNative() }
func (m *MethodInfo) IsAbstract() bool     { return m.AccessFlags.IsAbstract() }
func (m *MethodInfo) IsStrict() bool       { return m.AccessFlags.IsStrict() }
func (m *MethodInfo) IsSynthetic() bool    { return m.AccessFlags.IsSynthetic() }

func (m *MethodInfo) IsConstructor(cp ConstantPool) bool {
	return m.Name(cp) == ConstructorName
}

func (m *MethodInfo) IsStaticInitializer(cp ConstantPool) bool {
	return m.Name(cp) == StaticInitializerName
}

func (m *MethodInfo) ParsedDescriptor(cp ConstantPool) (*MethodDescriptor, error) {
	return ParseMethodDescriptor(m.Descriptor(cp))
}
