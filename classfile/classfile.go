package classfile

type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []Attribute

	// nested type status derived from InnerClasses; see InvalidateCache.
	nestedComputed bool
	nested         bool
	anonymous      bool
}

func (cf *ClassFile) ClassName() string {
	return cf.ConstantPool.GetClassName(cf.ThisClass)
}

// SuperClassName returns java/lang/Object when the class declares no
// superclass, which is only legal for java/lang/Object itself.
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ObjectClassName
	}
	return cf.ConstantPool.GetClassName(cf.SuperClass)
}

func (cf *ClassFile) InterfaceNames() []string {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		names[i] = cf.ConstantPool.GetClassName(idx)
	}
	return names
}

// SourceFileName returns the name recorded in the SourceFile attribute, or
// "" if there is none.
func (cf *ClassFile) SourceFileName() string {
	for _, a := range cf.Attributes {
		if sf, ok := a.(*SourceFileAttribute); ok {
			return cf.ConstantPool.GetUtf8(sf.SourceFileIndex)
		}
	}
	return ""
}

func (cf *ClassFile) IsClass() bool {
	return !cf.AccessFlags.IsInterface() && !cf.AccessFlags.IsModule()
}

func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags.IsInterface()
}

func (cf *ClassFile) IsAnnotation() bool {
	return cf.AccessFlags.IsAnnotation()
}

func (cf *ClassFile) IsEnum() bool {
	return cf.AccessFlags.IsEnum()
}

func (cf *ClassFile) IsModule() bool {
	return cf.AccessFlags.IsModule()
}

// IsNested reports whether an InnerClasses entry of this class names the
// class itself. The result is cached until InvalidateCache is called.
func (cf *ClassFile) IsNested() bool {
	cf.computeNestedTypeStatus()
	return cf.nested
}

// IsAnonymous reports whether the class is nested and has no inner name.
func (cf *ClassFile) IsAnonymous() bool {
	cf.computeNestedTypeStatus()
	return cf.anonymous
}

// InvalidateCache drops derived state. Call it after changing the
// InnerClasses attribute or ThisClass.
func (cf *ClassFile) InvalidateCache() {
	cf.nestedComputed = false
	cf.nested = false
	cf.anonymous = false
}

func (cf *ClassFile) computeNestedTypeStatus() {
	if cf.nestedComputed {
		return
	}
	cf.nestedComputed = true
	name := cf.ClassName()
	for _, a := range cf.Attributes {
		ic, ok := a.(*InnerClassesAttribute)
		if !ok {
			continue
		}
		for _, entry := range ic.Classes {
			if cf.ConstantPool.GetClassName(entry.InnerClassInfoIndex) != name {
				continue
			}
			cf.nested = true
			cf.anonymous = entry.InnerNameIndex == 0
			return
		}
	}
}

func (cf *ClassFile) GetField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name(cf.ConstantPool) == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// GetMethod finds a method by name and, if descriptor is non-empty, by
// descriptor.
func (cf *ClassFile) GetMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name(cf.ConstantPool) == name {
			if descriptor == "" || cf.Methods[i].Descriptor(cf.ConstantPool) == descriptor {
				return &cf.Methods[i]
			}
		}
	}
	return nil
}

func (cf *ClassFile) GetMethods(name string) []*MethodInfo {
	var methods []*MethodInfo
	for i := range cf.Methods {
		if cf.Methods[i].Name(cf.ConstantPool) == name {
			methods = append(methods, &cf.Methods[i])
		}
	}
	return methods
}

func (cf *ClassFile) GetAttribute(name string) Attribute {
	return FindAttribute(cf.Attributes, cf.ConstantPool, name)
}

func (cf *ClassFile) Annotations() []AnnotationEntry {
	return annotationEntries(cf.Attributes, cf.ConstantPool)
}

// AnnotationEntry is an annotation with its type descriptor resolved.
type AnnotationEntry struct {
	TypeName       string
	RuntimeVisible bool
	Annotation     Annotation
}

func annotationEntries(attrs []Attribute, cp ConstantPool) []AnnotationEntry {
	var out []AnnotationEntry
	add := func(anns []Annotation, visible bool) {
		for _, ann := range anns {
			out = append(out, AnnotationEntry{
				TypeName:       cp.GetUtf8(ann.TypeIndex),
				RuntimeVisible: visible,
				Annotation:     ann,
			})
		}
	}
	for _, a := range attrs {
		switch a := a.(type) {
		case *RuntimeVisibleAnnotationsAttribute:
			add(a.Annotations, true)
		case *RuntimeInvisibleAnnotationsAttribute:
			add(a.Annotations, false)
		}
	}
	return out
}
