package classfile

// Copy returns a deep copy of the class file. Nothing reachable from the
// copy is shared with cf.
func (cf *ClassFile) Copy() *ClassFile {
	out := &ClassFile{
		MinorVersion: cf.MinorVersion,
		MajorVersion: cf.MajorVersion,
		ConstantPool: cf.ConstantPool.Copy(),
		AccessFlags:  cf.AccessFlags,
		ThisClass:    cf.ThisClass,
		SuperClass:   cf.SuperClass,
		Interfaces:   cloneU2s(cf.Interfaces),
		Attributes:   CopyAttributes(cf.Attributes),
	}
	if cf.Fields != nil {
		out.Fields = make([]FieldInfo, len(cf.Fields))
		for i, f := range cf.Fields {
			f.Attributes = CopyAttributes(f.Attributes)
			out.Fields[i] = f
		}
	}
	if cf.Methods != nil {
		out.Methods = make([]MethodInfo, len(cf.Methods))
		for i, m := range cf.Methods {
			m.Attributes = CopyAttributes(m.Attributes)
			out.Methods[i] = m
		}
	}
	return out
}

// CopyAttributes deep-copies a list of attributes.
func CopyAttributes(attrs []Attribute) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.copyAttribute()
	}
	return out
}

func cloneU2s(s []uint16) []uint16 {
	if s == nil {
		return nil
	}
	return append([]uint16(nil), s...)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}

func (a *UnknownAttribute) copyAttribute() Attribute {
	c := *a
	c.Info = cloneBytes(a.Info)
	return &c
}

func (a *CodeAttribute) copyAttribute() Attribute {
	c := *a
	c.Code = cloneBytes(a.Code)
	c.ExceptionTable = cloneSlice(a.ExceptionTable)
	c.Attributes = CopyAttributes(a.Attributes)
	return &c
}

func (a *LineNumberTableAttribute) copyAttribute() Attribute {
	c := *a
	c.LineNumberTable = cloneSlice(a.LineNumberTable)
	return &c
}

func (a *LocalVariableTableAttribute) copyAttribute() Attribute {
	c := *a
	c.LocalVariableTable = cloneSlice(a.LocalVariableTable)
	return &c
}

func (a *LocalVariableTypeTableAttribute) copyAttribute() Attribute {
	c := *a
	c.LocalVariableTypeTable = cloneSlice(a.LocalVariableTypeTable)
	return &c
}

func (a *SourceFileAttribute) copyAttribute() Attribute    { c := *a; return &c }
func (a *ConstantValueAttribute) copyAttribute() Attribute { c := *a; return &c }
func (a *SignatureAttribute) copyAttribute() Attribute     { c := *a; return &c }
func (a *EnclosingMethodAttribute) copyAttribute() Attribute {
	c := *a
	return &c
}
func (a *NestHostAttribute) copyAttribute() Attribute        { c := *a; return &c }
func (a *ModuleMainClassAttribute) copyAttribute() Attribute { c := *a; return &c }

func (a *ExceptionsAttribute) copyAttribute() Attribute {
	c := *a
	c.ExceptionIndexTable = cloneU2s(a.ExceptionIndexTable)
	return &c
}

func (a *InnerClassesAttribute) copyAttribute() Attribute {
	c := *a
	c.Classes = cloneSlice(a.Classes)
	return &c
}

func (a *BootstrapMethodsAttribute) copyAttribute() Attribute {
	c := *a
	if a.BootstrapMethods != nil {
		c.BootstrapMethods = make([]BootstrapMethod, len(a.BootstrapMethods))
		for i, m := range a.BootstrapMethods {
			m.BootstrapArguments = cloneU2s(m.BootstrapArguments)
			c.BootstrapMethods[i] = m
		}
	}
	return &c
}

func (a *SyntheticAttribute) copyAttribute() Attribute {
	c := *a
	c.Info = cloneBytes(a.Info)
	return &c
}

func (a *DeprecatedAttribute) copyAttribute() Attribute {
	c := *a
	c.Info = cloneBytes(a.Info)
	return &c
}

func (a *SourceDebugExtensionAttribute) copyAttribute() Attribute {
	c := *a
	c.DebugExtension = cloneBytes(a.DebugExtension)
	return &c
}

func (a *MethodParametersAttribute) copyAttribute() Attribute {
	c := *a
	c.Parameters = cloneSlice(a.Parameters)
	return &c
}

func (a *NestMembersAttribute) copyAttribute() Attribute {
	c := *a
	c.Classes = cloneU2s(a.Classes)
	return &c
}

func (a *PermittedSubclassesAttribute) copyAttribute() Attribute {
	c := *a
	c.Classes = cloneU2s(a.Classes)
	return &c
}

func (a *ModulePackagesAttribute) copyAttribute() Attribute {
	c := *a
	c.PackageIndex = cloneU2s(a.PackageIndex)
	return &c
}

func (a *RecordAttribute) copyAttribute() Attribute {
	c := *a
	if a.Components != nil {
		c.Components = make([]RecordComponentInfo, len(a.Components))
		for i, comp := range a.Components {
			comp.Attributes = CopyAttributes(comp.Attributes)
			c.Components[i] = comp
		}
	}
	return &c
}

func (a *StackMapTableAttribute) copyAttribute() Attribute {
	c := *a
	if a.Entries != nil {
		c.Entries = make([]StackMapFrame, len(a.Entries))
		for i, f := range a.Entries {
			f.Data = cloneBytes(f.Data)
			c.Entries[i] = f
		}
	}
	return &c
}

func (a *ModuleAttribute) copyAttribute() Attribute {
	c := *a
	c.Requires = cloneSlice(a.Requires)
	if a.Exports != nil {
		c.Exports = make([]ModuleExports, len(a.Exports))
		for i, e := range a.Exports {
			e.ExportsToIndex = cloneU2s(e.ExportsToIndex)
			c.Exports[i] = e
		}
	}
	if a.Opens != nil {
		c.Opens = make([]ModuleOpens, len(a.Opens))
		for i, o := range a.Opens {
			o.OpensToIndex = cloneU2s(o.OpensToIndex)
			c.Opens[i] = o
		}
	}
	c.Uses = cloneU2s(a.Uses)
	if a.Provides != nil {
		c.Provides = make([]ModuleProvides, len(a.Provides))
		for i, p := range a.Provides {
			p.ProvidesWithIndex = cloneU2s(p.ProvidesWithIndex)
			c.Provides[i] = p
		}
	}
	return &c
}

func copyElementValue(ev ElementValue) ElementValue {
	switch v := ev.Value.(type) {
	case Annotation:
		ev.Value = copyAnnotation(v)
	case ArrayValue:
		var values []ElementValue
		if v.Values != nil {
			values = make([]ElementValue, len(v.Values))
			for i, item := range v.Values {
				values[i] = copyElementValue(item)
			}
		}
		ev.Value = ArrayValue{Values: values}
	}
	return ev
}

func copyElementValuePairs(pairs []ElementValuePair) []ElementValuePair {
	if pairs == nil {
		return nil
	}
	out := make([]ElementValuePair, len(pairs))
	for i, p := range pairs {
		p.Value = copyElementValue(p.Value)
		out[i] = p
	}
	return out
}

func copyAnnotation(ann Annotation) Annotation {
	ann.ElementValuePairs = copyElementValuePairs(ann.ElementValuePairs)
	return ann
}

func copyAnnotations(anns []Annotation) []Annotation {
	if anns == nil {
		return nil
	}
	out := make([]Annotation, len(anns))
	for i, ann := range anns {
		out[i] = copyAnnotation(ann)
	}
	return out
}

func copyParameterAnnotations(params [][]Annotation) [][]Annotation {
	if params == nil {
		return nil
	}
	out := make([][]Annotation, len(params))
	for i, anns := range params {
		out[i] = copyAnnotations(anns)
	}
	return out
}

func copyTypeAnnotations(anns []TypeAnnotation) []TypeAnnotation {
	if anns == nil {
		return nil
	}
	out := make([]TypeAnnotation, len(anns))
	for i, ta := range anns {
		ta.TargetInfo = cloneBytes(ta.TargetInfo)
		ta.TargetPath = cloneSlice(ta.TargetPath)
		ta.ElementValuePairs = copyElementValuePairs(ta.ElementValuePairs)
		out[i] = ta
	}
	return out
}

func (a *RuntimeVisibleAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.Annotations = copyAnnotations(a.Annotations)
	return &c
}

func (a *RuntimeInvisibleAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.Annotations = copyAnnotations(a.Annotations)
	return &c
}

func (a *RuntimeVisibleParameterAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.ParameterAnnotations = copyParameterAnnotations(a.ParameterAnnotations)
	return &c
}

func (a *RuntimeInvisibleParameterAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.ParameterAnnotations = copyParameterAnnotations(a.ParameterAnnotations)
	return &c
}

func (a *RuntimeVisibleTypeAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.Annotations = copyTypeAnnotations(a.Annotations)
	return &c
}

func (a *RuntimeInvisibleTypeAnnotationsAttribute) copyAttribute() Attribute {
	c := *a
	c.Annotations = copyTypeAnnotations(a.Annotations)
	return &c
}

func (a *AnnotationDefaultAttribute) copyAttribute() Attribute {
	c := *a
	c.DefaultValue = copyElementValue(a.DefaultValue)
	return &c
}
