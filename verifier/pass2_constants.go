package verifier

import (
	"fmt"
	"strings"

	"github.com/dhamidi/justice/classfile"
)

var (
	classAttributes = attributeSet(
		classfile.AttrSourceFile, classfile.AttrDeprecated, classfile.AttrInnerClasses, classfile.AttrSynthetic,
		classfile.AttrSignature, classfile.AttrEnclosingMethod, classfile.AttrSourceDebugExtension,
		classfile.AttrBootstrapMethods, classfile.AttrModule, classfile.AttrModulePackages, classfile.AttrModuleMainClass,
		classfile.AttrNestHost, classfile.AttrNestMembers, classfile.AttrRecord, classfile.AttrPermittedSubclasses,
		classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations,
		classfile.AttrRuntimeVisibleTypeAnnotations, classfile.AttrRuntimeInvisibleTypeAnnotations,
	)
	fieldAttributes = attributeSet(
		classfile.AttrConstantValue, classfile.AttrSynthetic, classfile.AttrDeprecated, classfile.AttrSignature,
		classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations,
		classfile.AttrRuntimeVisibleTypeAnnotations, classfile.AttrRuntimeInvisibleTypeAnnotations,
	)
	methodAttributes = attributeSet(
		classfile.AttrCode, classfile.AttrExceptions, classfile.AttrSynthetic, classfile.AttrDeprecated,
		classfile.AttrSignature, classfile.AttrAnnotationDefault, classfile.AttrMethodParameters,
		classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations,
		classfile.AttrRuntimeVisibleParameterAnnotations, classfile.AttrRuntimeInvisibleParameterAnnotations,
		classfile.AttrRuntimeVisibleTypeAnnotations, classfile.AttrRuntimeInvisibleTypeAnnotations,
	)
	codeAttributes = attributeSet(
		classfile.AttrLineNumberTable, classfile.AttrLocalVariableTable, classfile.AttrLocalVariableTypeTable,
		classfile.AttrStackMapTable,
		classfile.AttrRuntimeVisibleTypeAnnotations, classfile.AttrRuntimeInvisibleTypeAnnotations,
	)
)

func attributeSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

const (
	fieldFlags = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected | classfile.AccStatic |
		classfile.AccFinal | classfile.AccVolatile | classfile.AccTransient | classfile.AccSynthetic | classfile.AccEnum
	methodFlags = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected | classfile.AccStatic |
		classfile.AccFinal | classfile.AccSynchronized | classfile.AccNative | classfile.AccAbstract | classfile.AccStrict |
		classfile.AccBridge | classfile.AccVarargs | classfile.AccSynthetic
	innerClassFlags = classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected | classfile.AccStatic |
		classfile.AccFinal | classfile.AccInterface | classfile.AccAbstract | classfile.AccSynthetic |
		classfile.AccAnnotation | classfile.AccEnum
)

// constantChecker walks the class and checks that every constant pool
// reference is well typed and that fields, methods and attributes obey
// their static rules.
type constantChecker struct {
	pass *pass2Verifier
	cf   *classfile.ClassFile
	cp   classfile.ConstantPool

	fieldKeys  map[string]bool
	fieldNames map[string]bool
	methodKeys map[string]bool

	// method is the index of the method whose attributes are being walked.
	method int
}

func (p *pass2Verifier) checkConstantPool(cf *classfile.ClassFile) error {
	c := &constantChecker{
		pass:       p,
		cf:         cf,
		cp:         cf.ConstantPool,
		fieldKeys:  make(map[string]bool),
		fieldNames: make(map[string]bool),
		methodKeys: make(map[string]bool),
	}
	return classfile.Walk(cf, c.visit)
}

func (c *constantChecker) visit(s *classfile.Stack, n classfile.Node) error {
	switch n := n.(type) {
	case *classfile.ClassFile:
		return c.checkClass()
	case *classfile.FieldInfo:
		return c.checkField(n)
	case *classfile.MethodInfo:
		c.method = s.Index()
		return c.checkMethod(n)
	case *classfile.ConstantValueAttribute:
		return c.checkConstantValue(s, n)
	case *classfile.CodeAttribute:
		return c.checkCode(s, n)
	case *classfile.ExceptionsAttribute:
		return c.checkExceptions(s, n)
	case *classfile.SourceFileAttribute:
		return c.checkSourceFile(n)
	case *classfile.InnerClassesAttribute:
		return c.checkInnerClasses(n)
	case *classfile.SignatureAttribute:
		return c.checkIndex("Signature attribute", n.SignatureIndex, classfile.ConstantUtf8)
	case *classfile.EnclosingMethodAttribute:
		return c.checkEnclosingMethod(n)
	case *classfile.NestHostAttribute:
		return c.checkIndex("NestHost attribute", n.HostClassIndex, classfile.ConstantClass)
	case *classfile.NestMembersAttribute:
		return c.checkIndices("NestMembers attribute", n.Classes, classfile.ConstantClass)
	case *classfile.PermittedSubclassesAttribute:
		return c.checkIndices("PermittedSubclasses attribute", n.Classes, classfile.ConstantClass)
	case *classfile.ModuleMainClassAttribute:
		return c.checkIndex("ModuleMainClass attribute", n.MainClassIndex, classfile.ConstantClass)
	case *classfile.ModulePackagesAttribute:
		return c.checkIndices("ModulePackages attribute", n.PackageIndex, classfile.ConstantPackage)
	case *classfile.ModuleAttribute:
		return c.checkModule(n)
	case *classfile.BootstrapMethodsAttribute:
		return c.checkBootstrapMethods(n)
	case *classfile.MethodParametersAttribute:
		return c.checkMethodParameters(n)
	case *classfile.RecordAttribute:
		return c.checkRecord(n)
	case classfile.ConstantPoolEntry:
		return c.checkConstant(uint16(s.Index()), n)
	}
	return nil
}

// checkIndex requires index to address an entry carrying one of tags.
func (c *constantChecker) checkIndex(referrer string, index uint16, tags ...classfile.ConstantTag) error {
	entry := c.cp.Entry(index)
	if entry == nil {
		return classConstraint("Invalid index '%d' used by '%s'.", index, referrer)
	}
	for _, tag := range tags {
		if entry.Tag() == tag {
			return nil
		}
	}
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.String()
	}
	return classConstraint("Illegal constant '%s' at index '%d'. '%s' expects a '%s'.", entry, index, referrer, strings.Join(names, "' or '"))
}

func (c *constantChecker) checkIndices(referrer string, indices []uint16, tags ...classfile.ConstantTag) error {
	for _, index := range indices {
		if err := c.checkIndex(referrer, index, tags...); err != nil {
			return err
		}
	}
	return nil
}

// checkPlacement warns about attributes that are unknown or do not belong
// where they appear.
func (c *constantChecker) checkPlacement(attrs []classfile.Attribute, allowed map[string]bool, where string) error {
	for _, a := range attrs {
		if err := c.checkIndex("attribute of "+where, a.Header().NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		switch kind := a.Kind(); {
		case kind == "":
			c.pass.addMessage("Attribute '%s' as an attribute of %s is unknown and will therefore be ignored.", attributeString(c.cp, a), where)
		case !allowed[kind]:
			c.pass.addMessage("Attribute '%s' is not allowed as an attribute of %s and will therefore be ignored.", kind, where)
		}
	}
	return nil
}

func (c *constantChecker) checkClass() error {
	cf := c.cf
	where := fmt.Sprintf("the ClassFile structure '%s'", cf.ClassName())
	if err := c.checkPlacement(cf.Attributes, classAttributes, where); err != nil {
		return err
	}

	hasInnerClass := c.innerClassReferenced()
	foundSourceFile, foundInnerClasses := false, false
	for _, a := range cf.Attributes {
		switch a.(type) {
		case *classfile.SourceFileAttribute:
			if foundSourceFile {
				return classConstraint("A ClassFile structure (like '%s') may have no more than one SourceFile attribute.", cf.ClassName())
			}
			foundSourceFile = true
		case *classfile.InnerClassesAttribute:
			if foundInnerClasses && hasInnerClass {
				return classConstraint("A Classfile structure (like '%s') must have exactly one InnerClasses attribute if at least one Inner Class is referenced (which is the case). More than one InnerClasses attribute was found.", cf.ClassName())
			}
			foundInnerClasses = true
			if !hasInnerClass {
				c.pass.addMessage("No referenced Inner Class found, but InnerClasses attribute found. Strongly suggest removal of that attribute.")
			}
		}
	}
	if hasInnerClass && !foundInnerClasses {
		c.pass.addMessage("A Classfile structure (like '%s') must have exactly one InnerClasses attribute if at least one Inner Class is referenced (which is the case). No InnerClasses attribute was found.", cf.ClassName())
	}
	return nil
}

// innerClassReferenced reports whether the pool names a class nested in
// this one.
func (c *constantChecker) innerClassReferenced() bool {
	prefix := c.cf.ClassName() + "$"
	for _, entry := range c.cp {
		if class, ok := entry.(*classfile.ConstantClassInfo); ok {
			if strings.HasPrefix(c.cp.GetUtf8(class.NameIndex), prefix) {
				return true
			}
		}
	}
	return false
}

func (c *constantChecker) checkField(f *classfile.FieldInfo) error {
	where := "Field '" + fieldString(c.cp, f) + "'"
	if c.cf.IsClass() {
		if accessCount(f.AccessFlags) > 1 {
			return classConstraint("%s must only have at most one of its ACC_PRIVATE, ACC_PROTECTED, ACC_PUBLIC modifiers set.", where)
		}
		if f.IsFinal() && f.IsVolatile() {
			return classConstraint("%s must only have at most one of its ACC_FINAL, ACC_VOLATILE modifiers set.", where)
		}
	} else {
		iwhere := "Interface field '" + fieldString(c.cp, f) + "'"
		if !f.IsPublic() {
			return classConstraint("%s must have the ACC_PUBLIC modifier set but hasn't!", iwhere)
		}
		if !f.IsStatic() {
			return classConstraint("%s must have the ACC_STATIC modifier set but hasn't!", iwhere)
		}
		if !f.IsFinal() {
			return classConstraint("%s must have the ACC_FINAL modifier set but hasn't!", iwhere)
		}
	}
	if f.AccessFlags&^fieldFlags != 0 {
		c.pass.addMessage("%s has access flag(s) other than ACC_PUBLIC, ACC_PRIVATE, ACC_PROTECTED, ACC_STATIC, ACC_FINAL, ACC_VOLATILE, ACC_TRANSIENT, ACC_SYNTHETIC, ACC_ENUM set (ignored).", where)
	}

	if err := c.checkIndex(where, f.NameIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	name := f.Name(c.cp)
	if !validFieldName(name) {
		return classConstraint("%s has illegal name '%s'.", where, name)
	}
	if err := c.checkIndex(where, f.DescriptorIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	desc := f.Descriptor(c.cp)
	if _, err := classfile.ParseFieldDescriptor(desc); err != nil {
		return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, fieldString(c.cp, f)), Cause: err}
	}

	key := name + desc
	if c.fieldKeys[key] {
		return classConstraint("No two fields (like '%s') are allowed have same names and descriptors!", fieldString(c.cp, f))
	}
	if c.fieldNames[name] {
		c.pass.addMessage("More than one field of name '%s' detected (but with different type descriptors). This is very unusual.", name)
	}
	c.fieldKeys[key] = true
	c.fieldNames[name] = true

	return c.checkPlacement(f.Attributes, fieldAttributes, where)
}

func accessCount(flags classfile.AccessFlags) int {
	n := 0
	for _, f := range []classfile.AccessFlags{classfile.AccPublic, classfile.AccPrivate, classfile.AccProtected} {
		if flags&f != 0 {
			n++
		}
	}
	return n
}

func (c *constantChecker) checkConstantValue(s *classfile.Stack, a *classfile.ConstantValueAttribute) error {
	f, ok := s.Predecessor(0).(*classfile.FieldInfo)
	if !ok {
		return nil
	}
	ft, err := f.ParsedDescriptor(c.cp)
	if err != nil {
		assertionViolated("descriptor of field %s was accepted before but does not parse: %v", fieldString(c.cp, f), err)
	}
	entry := c.cp.Entry(a.ConstantValueIndex)
	if entry == nil {
		return classConstraint("Invalid index '%d' used by 'ConstantValue' of field '%s'.", a.ConstantValueIndex, fieldString(c.cp, f))
	}

	base := ""
	if ft.IsPrimitive() {
		base = ft.BaseType
	}
	switch entry.(type) {
	case *classfile.ConstantLongInfo:
		if base == "long" {
			return nil
		}
	case *classfile.ConstantFloatInfo:
		if base == "float" {
			return nil
		}
	case *classfile.ConstantDoubleInfo:
		if base == "double" {
			return nil
		}
	case *classfile.ConstantIntegerInfo:
		switch base {
		case "int", "short", "char", "byte", "boolean":
			return nil
		}
	case *classfile.ConstantStringInfo:
		if ft.ArrayDepth == 0 && ft.ClassName == classfile.StringClassName {
			return nil
		}
	}
	return classConstraint("Illegal type of ConstantValue embedding Constant '%s'. It is referenced by field '%s' expecting a different type: '%s'.", entry, fieldString(c.cp, f), ft)
}

func (c *constantChecker) checkMethod(m *classfile.MethodInfo) error {
	where := "Method '" + methodString(c.cp, m) + "'"
	if err := c.checkIndex(where, m.NameIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	name := m.Name(c.cp)
	if !validMethodName(name, true) {
		return classConstraint("%s has illegal name '%s'.", where, name)
	}
	if err := c.checkIndex(where, m.DescriptorIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	desc := m.Descriptor(c.cp)
	md, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by %s.", desc, where), Cause: err}
	}

	registry := c.pass.owner.registry
	if md.ReturnType != nil && md.ReturnType.ClassName != "" {
		if res := registry.Verifier(md.ReturnType.ClassName).DoPass1(); !res.IsOK() {
			return classConstraint("%s has a return type that does not pass verification pass 1: '%s'.", where, res)
		}
	}
	for _, param := range md.Parameters {
		if param.ClassName == "" {
			continue
		}
		if res := registry.Verifier(param.ClassName).DoPass1(); !res.IsOK() {
			return classConstraint("%s has an argument type that does not pass verification pass 1: '%s'.", where, res)
		}
	}

	if name == classfile.StaticInitializerName && len(md.Parameters) != 0 {
		return classConstraint("%s has illegal name '%s'. Its name resembles the class or interface initialization method which it isn't because of its arguments (==descriptor).", where, name)
	}

	if err := c.checkMethodFlags(m, name, where); err != nil {
		return err
	}

	key := name + desc
	if c.methodKeys[key] {
		return classConstraint("No two methods (like '%s') are allowed have same names and desciptors!", methodString(c.cp, m))
	}
	c.methodKeys[key] = true

	if err := c.checkPlacement(m.Attributes, methodAttributes, where); err != nil {
		return err
	}
	codes := 0
	for _, a := range m.Attributes {
		if _, ok := a.(*classfile.CodeAttribute); !ok {
			continue
		}
		if m.IsNative() || m.IsAbstract() {
			return classConstraint("Native or abstract methods like '%s' must not have a Code attribute.", methodString(c.cp, m))
		}
		codes++
	}
	if !m.IsNative() && !m.IsAbstract() && codes != 1 {
		return classConstraint("Non-native, non-abstract methods like '%s' must have exactly one Code attribute (found: %d).", methodString(c.cp, m), codes)
	}
	return nil
}

func (c *constantChecker) checkMethodFlags(m *classfile.MethodInfo, name, where string) error {
	if c.cf.IsClass() {
		if accessCount(m.AccessFlags) > 1 {
			return classConstraint("%s must only have at most one of its ACC_PRIVATE, ACC_PROTECTED, ACC_PUBLIC modifiers set.", where)
		}
		if m.IsAbstract() {
			abstract := "Abstract method '" + methodString(c.cp, m) + "'"
			for _, rule := range []struct {
				set  bool
				flag string
			}{
				{m.IsFinal(), "ACC_FINAL"},
				{m.IsNative(), "ACC_NATIVE"},
				{m.IsPrivate(), "ACC_PRIVATE"},
				{m.IsStatic(), "ACC_STATIC"},
				{m.IsStrict(), "ACC_STRICT"},
				{m.IsSynchronized(), "ACC_SYNCHRONIZED"},
			} {
				if rule.set {
					return classConstraint("%s must not have the %s modifier set.", abstract, rule.flag)
				}
			}
		}
		if name == classfile.ConstructorName && (m.IsStatic() || m.IsFinal() || m.IsSynchronized() || m.IsNative() || m.IsAbstract()) {
			return classConstraint("Instance initialization method '%s' must not have any of the ACC_STATIC, ACC_FINAL, ACC_SYNCHRONIZED, ACC_NATIVE, ACC_ABSTRACT modifiers set.", methodString(c.cp, m))
		}
	} else if name != classfile.StaticInitializerName {
		iwhere := "Interface method '" + methodString(c.cp, m) + "'"
		if c.cf.MajorVersion >= 52 {
			if m.IsPublic() == m.IsPrivate() {
				return classConstraint("%s must have exactly one of its ACC_PUBLIC and ACC_PRIVATE modifiers set.", iwhere)
			}
			if m.IsProtected() || m.IsFinal() || m.IsSynchronized() || m.IsNative() {
				return classConstraint("%s must not have any of the ACC_PROTECTED, ACC_FINAL, ACC_SYNCHRONIZED, or ACC_NATIVE modifiers set.", iwhere)
			}
		} else {
			if !m.IsPublic() {
				return classConstraint("%s must have the ACC_PUBLIC modifier set but hasn't!", iwhere)
			}
			if !m.IsAbstract() {
				return classConstraint("%s must have the ACC_ABSTRACT modifier set but hasn't!", iwhere)
			}
			if m.IsPrivate() || m.IsProtected() || m.IsStatic() || m.IsFinal() || m.IsSynchronized() || m.IsNative() || m.IsStrict() {
				return classConstraint("%s must not have any of the ACC_PRIVATE, ACC_PROTECTED, ACC_STATIC, ACC_FINAL, ACC_SYNCHRONIZED, ACC_NATIVE, ACC_ABSTRACT, ACC_STRICT modifiers set.", iwhere)
			}
		}
	}
	if m.AccessFlags&^methodFlags != 0 {
		c.pass.addMessage("%s has access flag(s) other than ACC_PUBLIC, ACC_PRIVATE, ACC_PROTECTED, ACC_STATIC, ACC_FINAL, ACC_SYNCHRONIZED, ACC_NATIVE, ACC_ABSTRACT, ACC_STRICT, ACC_BRIDGE, ACC_VARARGS, ACC_SYNTHETIC set (ignored).", where)
	}
	return nil
}

func (c *constantChecker) checkCode(s *classfile.Stack, code *classfile.CodeAttribute) error {
	m, ok := s.Predecessor(0).(*classfile.MethodInfo)
	if !ok {
		c.pass.addMessage("Code attribute is not declared in a method_info structure but in '%T'. Ignored.", s.Predecessor(0))
		return classfile.SkipChildren
	}
	method := methodString(c.cp, m)
	if len(code.Code) == 0 {
		return classConstraint("Code array of Code attribute (method '%s') must not be empty.", method)
	}

	for i := range code.ExceptionTable {
		entry := &code.ExceptionTable[i]
		if entry.CatchType == 0 {
			continue
		}
		where := fmt.Sprintf("Code attribute (method '%s') exception_table entry %d", method, i)
		if err := c.checkIndex(where, entry.CatchType, classfile.ConstantClass); err != nil {
			return err
		}
		class := c.cp.Entry(entry.CatchType).(*classfile.ConstantClassInfo)
		if err := c.checkIndex(class.String(), class.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		name := c.cp.GetUtf8(class.NameIndex)
		if problem := c.throwableProblem(name); problem != "" {
			return classConstraint("Code attribute (method '%s') has an exception_table entry %d that references '%s' as an Exception but %s", method, i, name, problem)
		}
	}

	if err := c.checkPlacement(code.Attributes, codeAttributes, fmt.Sprintf("Code attribute (method '%s')", method)); err != nil {
		return err
	}

	lvi := newLocalVariables(int(code.MaxLocals))
	c.pass.localVariables[c.method] = lvi
	tables := 0
	for _, a := range code.Attributes {
		switch a := a.(type) {
		case *classfile.LocalVariableTableAttribute:
			if err := c.checkLocalVariableTable(code, a, lvi, method); err != nil {
				return err
			}
			tables++
			if !m.IsStatic() && tables > int(code.MaxLocals) {
				return classConstraint("Number of LocalVariableTable attributes of Code attribute (method '%s') exceeds number of local variable slots '%d' ('There may be no more than one LocalVariableTable attribute per local variable in the Code attribute.').", method, code.MaxLocals)
			}
		case *classfile.LocalVariableTypeTableAttribute:
			if err := c.checkLocalVariableTypeTable(code, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *constantChecker) checkLocalVariableTable(code *classfile.CodeAttribute, lvt *classfile.LocalVariableTableAttribute, lvi *localVariables, method string) error {
	for i := range lvt.LocalVariableTable {
		lv := &lvt.LocalVariableTable[i]
		where := fmt.Sprintf("LocalVariableTable entry %d", i)
		if err := c.checkIndex(where, lv.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		name := c.cp.GetUtf8(lv.NameIndex)
		if !validJavaIdentifier(name) {
			return classConstraint("LocalVariableTable references a local variable by the name '%s' which is not a legal Java simple name.", name)
		}
		if err := c.checkIndex(where, lv.DescriptorIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		desc := c.cp.GetUtf8(lv.DescriptorIndex)
		ft, err := classfile.ParseFieldDescriptor(desc)
		if err != nil {
			return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by LocalVariable '%s' referenced by LocalVariableTable.", desc, name), Cause: err}
		}
		last := int(lv.Index) + ft.Size() - 1
		if last >= int(code.MaxLocals) {
			return classConstraint("LocalVariableTable attribute references a LocalVariable '%s' with an index that exceeds the surrounding Code attribute's max_locals value of '%d'.", name, code.MaxLocals)
		}
		if err := lvi.add(int(lv.Index), name, int(lv.StartPC), int(lv.Length), ft.String()); err != nil {
			return &ConstraintError{
				Kind:  KindClassConstraint,
				Msg:   fmt.Sprintf("Conflicting information in LocalVariableTable found in Code attribute (method '%s'). %s", method, err),
				Cause: err,
			}
		}
	}
	return nil
}

func (c *constantChecker) checkLocalVariableTypeTable(code *classfile.CodeAttribute, lvtt *classfile.LocalVariableTypeTableAttribute) error {
	for i := range lvtt.LocalVariableTypeTable {
		lv := &lvtt.LocalVariableTypeTable[i]
		where := fmt.Sprintf("LocalVariableTypeTable entry %d", i)
		if err := c.checkIndex(where, lv.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		if name := c.cp.GetUtf8(lv.NameIndex); !validJavaIdentifier(name) {
			return classConstraint("LocalVariableTypeTable references a local variable by the name '%s' which is not a legal Java simple name.", name)
		}
		if err := c.checkIndex(where, lv.SignatureIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		if lv.Index >= code.MaxLocals {
			return classConstraint("LocalVariableTypeTable attribute references a local variable with index '%d' that exceeds the surrounding Code attribute's max_locals value of '%d'.", lv.Index, code.MaxLocals)
		}
	}
	return nil
}

// throwableProblem explains why name cannot be used as an exception class,
// or returns "" if it descends from java/lang/Throwable. Every ancestor
// must pass Pass 1.
func (c *constantChecker) throwableProblem(name string) string {
	registry := c.pass.owner.registry
	if res := registry.Verifier(name).DoPass1(); !res.IsOK() {
		return fmt.Sprintf("it does not pass verification pass 1: %s", res)
	}
	seen := make(map[string]bool)
	for current := name; current != classfile.ObjectClassName && !seen[current]; {
		if current == classfile.ThrowableClassName {
			return ""
		}
		seen[current] = true
		super := registry.mustLoad(current).SuperClassName()
		if res := registry.Verifier(super).DoPass1(); !res.IsOK() {
			return fmt.Sprintf("'%s' in the ancestor hierarchy does not pass verification pass 1: %s", super, res)
		}
		current = super
	}
	return fmt.Sprintf("it is not a subclass of '%s'.", classfile.ThrowableClassName)
}

func (c *constantChecker) checkExceptions(s *classfile.Stack, a *classfile.ExceptionsAttribute) error {
	where := "Exceptions attribute"
	if m, ok := s.Predecessor(0).(*classfile.MethodInfo); ok {
		where = fmt.Sprintf("Exceptions attribute of method '%s'", methodString(c.cp, m))
	}
	for _, index := range a.ExceptionIndexTable {
		if err := c.checkIndex(where, index, classfile.ConstantClass); err != nil {
			return err
		}
		class := c.cp.Entry(index).(*classfile.ConstantClassInfo)
		if err := c.checkIndex(class.String(), class.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		name := c.cp.GetUtf8(class.NameIndex)
		if problem := c.throwableProblem(name); problem != "" {
			return classConstraint("%s references '%s' as an Exception but %s", where, name, problem)
		}
	}
	return nil
}

func (c *constantChecker) checkSourceFile(a *classfile.SourceFileAttribute) error {
	if err := c.checkIndex("SourceFile attribute", a.SourceFileIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	name := c.cp.GetUtf8(a.SourceFileIndex)
	if strings.ContainsAny(name, `/\:`) || !strings.Contains(strings.ToLower(name), ".java") {
		c.pass.addMessage("SourceFile attribute has a funny name: remember not to confuse certain parsers working on javap's output. Also, this name ('%s') is considered an unqualified (simple) file name only.", name)
	}
	return nil
}

func (c *constantChecker) checkInnerClasses(a *classfile.InnerClassesAttribute) error {
	for i := range a.Classes {
		ic := &a.Classes[i]
		where := fmt.Sprintf("InnerClasses entry %d", i)
		if err := c.checkIndex(where, ic.InnerClassInfoIndex, classfile.ConstantClass); err != nil {
			return err
		}
		if ic.OuterClassInfoIndex != 0 {
			if err := c.checkIndex(where, ic.OuterClassInfoIndex, classfile.ConstantClass); err != nil {
				return err
			}
		}
		if ic.InnerNameIndex != 0 {
			if err := c.checkIndex(where, ic.InnerNameIndex, classfile.ConstantUtf8); err != nil {
				return err
			}
		}
		if ic.InnerClassAccessFlags&^innerClassFlags != 0 {
			c.pass.addMessage("Unknown access flag for inner class '%s' set (InnerClasses attribute).", c.cp.GetClassName(ic.InnerClassInfoIndex))
		}
	}
	return nil
}

func (c *constantChecker) checkEnclosingMethod(a *classfile.EnclosingMethodAttribute) error {
	if err := c.checkIndex("EnclosingMethod attribute", a.ClassIndex, classfile.ConstantClass); err != nil {
		return err
	}
	if a.MethodIndex == 0 {
		return nil
	}
	return c.checkIndex("EnclosingMethod attribute", a.MethodIndex, classfile.ConstantNameAndType)
}

func (c *constantChecker) checkModule(a *classfile.ModuleAttribute) error {
	const where = "Module attribute"
	if err := c.checkIndex(where, a.ModuleNameIndex, classfile.ConstantModule); err != nil {
		return err
	}
	for _, r := range a.Requires {
		if err := c.checkIndex(where, r.RequiresIndex, classfile.ConstantModule); err != nil {
			return err
		}
	}
	for _, e := range a.Exports {
		if err := c.checkIndex(where, e.ExportsIndex, classfile.ConstantPackage); err != nil {
			return err
		}
		if err := c.checkIndices(where, e.ExportsToIndex, classfile.ConstantModule); err != nil {
			return err
		}
	}
	for _, o := range a.Opens {
		if err := c.checkIndex(where, o.OpensIndex, classfile.ConstantPackage); err != nil {
			return err
		}
		if err := c.checkIndices(where, o.OpensToIndex, classfile.ConstantModule); err != nil {
			return err
		}
	}
	if err := c.checkIndices(where, a.Uses, classfile.ConstantClass); err != nil {
		return err
	}
	for _, p := range a.Provides {
		if err := c.checkIndex(where, p.ProvidesIndex, classfile.ConstantClass); err != nil {
			return err
		}
		if err := c.checkIndices(where, p.ProvidesWithIndex, classfile.ConstantClass); err != nil {
			return err
		}
	}
	return nil
}

func (c *constantChecker) checkBootstrapMethods(a *classfile.BootstrapMethodsAttribute) error {
	for i := range a.BootstrapMethods {
		bm := &a.BootstrapMethods[i]
		where := fmt.Sprintf("BootstrapMethods entry %d", i)
		if err := c.checkIndex(where, bm.BootstrapMethodRef, classfile.ConstantMethodHandle); err != nil {
			return err
		}
		err := c.checkIndices(where, bm.BootstrapArguments,
			classfile.ConstantInteger, classfile.ConstantFloat, classfile.ConstantLong, classfile.ConstantDouble,
			classfile.ConstantClass, classfile.ConstantString, classfile.ConstantMethodHandle,
			classfile.ConstantMethodType, classfile.ConstantDynamic)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *constantChecker) checkMethodParameters(a *classfile.MethodParametersAttribute) error {
	for _, p := range a.Parameters {
		if p.NameIndex == 0 {
			continue
		}
		if err := c.checkIndex("MethodParameters attribute", p.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
	}
	return nil
}

func (c *constantChecker) checkRecord(a *classfile.RecordAttribute) error {
	for i := range a.Components {
		rc := &a.Components[i]
		where := fmt.Sprintf("Record component %d", i)
		if err := c.checkIndex(where, rc.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		if name := c.cp.GetUtf8(rc.NameIndex); !validFieldName(name) {
			return classConstraint("%s has illegal name '%s'.", where, name)
		}
		if err := c.checkIndex(where, rc.DescriptorIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		desc := c.cp.GetUtf8(rc.DescriptorIndex)
		if _, err := classfile.ParseFieldDescriptor(desc); err != nil {
			return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by %s.", desc, where), Cause: err}
		}
	}
	return nil
}

func (c *constantChecker) checkConstant(index uint16, entry classfile.ConstantPoolEntry) error {
	where := entry.String()
	switch e := entry.(type) {
	case *classfile.ConstantClassInfo:
		if err := c.checkIndex(where, e.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		if name := c.cp.GetUtf8(e.NameIndex); !validClassName(name) {
			return classConstraint("Illegal class name '%s' used by '%s'.", name, where)
		}
	case *classfile.ConstantStringInfo:
		return c.checkIndex(where, e.StringIndex, classfile.ConstantUtf8)
	case *classfile.ConstantFieldrefInfo:
		return c.checkMemberRef(where, e.ClassIndex, e.NameAndTypeIndex)
	case *classfile.ConstantMethodrefInfo:
		return c.checkMemberRef(where, e.ClassIndex, e.NameAndTypeIndex)
	case *classfile.ConstantInterfaceMethodrefInfo:
		return c.checkMemberRef(where, e.ClassIndex, e.NameAndTypeIndex)
	case *classfile.ConstantNameAndTypeInfo:
		if err := c.checkIndex(where, e.NameIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		return c.checkIndex(where, e.DescriptorIndex, classfile.ConstantUtf8)
	case *classfile.ConstantMethodHandleInfo:
		return c.checkMethodHandle(where, e)
	case *classfile.ConstantMethodTypeInfo:
		if err := c.checkIndex(where, e.DescriptorIndex, classfile.ConstantUtf8); err != nil {
			return err
		}
		desc := c.cp.GetUtf8(e.DescriptorIndex)
		if _, err := classfile.ParseMethodDescriptor(desc); err != nil {
			return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, where), Cause: err}
		}
	case *classfile.ConstantDynamicInfo:
		return c.checkDynamic(where, e.BootstrapMethodAttrIndex, e.NameAndTypeIndex, false)
	case *classfile.ConstantInvokeDynamicInfo:
		return c.checkDynamic(where, e.BootstrapMethodAttrIndex, e.NameAndTypeIndex, true)
	case *classfile.ConstantModuleInfo:
		return c.checkModuleConstant(where, index, e.NameIndex)
	case *classfile.ConstantPackageInfo:
		return c.checkModuleConstant(where, index, e.NameIndex)
	}
	return nil
}

func (c *constantChecker) checkMemberRef(where string, classIndex, ntIndex uint16) error {
	if err := c.checkIndex(where, classIndex, classfile.ConstantClass); err != nil {
		return err
	}
	return c.checkIndex(where, ntIndex, classfile.ConstantNameAndType)
}

func (c *constantChecker) checkMethodHandle(where string, mh *classfile.ConstantMethodHandleInfo) error {
	var tags []classfile.ConstantTag
	switch mh.ReferenceKind {
	case classfile.RefGetField, classfile.RefGetStatic, classfile.RefPutField, classfile.RefPutStatic:
		tags = []classfile.ConstantTag{classfile.ConstantFieldref}
	case classfile.RefInvokeVirtual, classfile.RefNewInvokeSpecial:
		tags = []classfile.ConstantTag{classfile.ConstantMethodref}
	case classfile.RefInvokeStatic, classfile.RefInvokeSpecial:
		tags = []classfile.ConstantTag{classfile.ConstantMethodref}
		if c.cf.MajorVersion >= 52 {
			tags = append(tags, classfile.ConstantInterfaceMethodref)
		}
	case classfile.RefInvokeInterface:
		tags = []classfile.ConstantTag{classfile.ConstantInterfaceMethodref}
	default:
		return classConstraint("Illegal reference kind '%d' used by '%s'.", mh.ReferenceKind, where)
	}
	if err := c.checkIndex(where, mh.ReferenceIndex, tags...); err != nil {
		return err
	}

	_, name, _, ok := c.cp.MemberRef(mh.ReferenceIndex)
	if !ok || name == "" {
		// The reference itself is rejected when its entry is checked.
		return nil
	}
	switch mh.ReferenceKind {
	case classfile.RefNewInvokeSpecial:
		if name != classfile.ConstructorName {
			return classConstraint("'%s' of kind REF_newInvokeSpecial must reference '%s' but references '%s'.", where, classfile.ConstructorName, name)
		}
	case classfile.RefInvokeVirtual, classfile.RefInvokeStatic, classfile.RefInvokeSpecial, classfile.RefInvokeInterface:
		if name == classfile.ConstructorName || name == classfile.StaticInitializerName {
			return classConstraint("'%s' must not reference '%s'.", where, name)
		}
	}
	return nil
}

func (c *constantChecker) checkDynamic(where string, bootstrap, ntIndex uint16, invoke bool) error {
	if err := c.checkIndex(where, ntIndex, classfile.ConstantNameAndType); err != nil {
		return err
	}
	nt := c.cp.Entry(ntIndex).(*classfile.ConstantNameAndTypeInfo)
	if err := c.checkIndex(where, nt.DescriptorIndex, classfile.ConstantUtf8); err != nil {
		return err
	}
	desc := c.cp.GetUtf8(nt.DescriptorIndex)
	var err error
	if invoke {
		_, err = classfile.ParseMethodDescriptor(desc)
	} else {
		_, err = classfile.ParseFieldDescriptor(desc)
	}
	if err != nil {
		return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, where), Cause: err}
	}

	var methods *classfile.BootstrapMethodsAttribute
	for _, a := range c.cf.Attributes {
		if bm, ok := a.(*classfile.BootstrapMethodsAttribute); ok {
			methods = bm
			break
		}
	}
	if methods == nil {
		return classConstraint("'%s' references bootstrap method '%d' but the class has no BootstrapMethods attribute.", where, bootstrap)
	}
	if int(bootstrap) >= len(methods.BootstrapMethods) {
		return classConstraint("'%s' references bootstrap method '%d' but only %d are declared.", where, bootstrap, len(methods.BootstrapMethods))
	}
	return nil
}

func (c *constantChecker) checkModuleConstant(where string, index, nameIndex uint16) error {
	if !c.cf.IsModule() {
		return classConstraint("Illegal constant '%s' at index '%d': module and package constants may only appear in a module-info class file.", where, index)
	}
	return c.checkIndex(where, nameIndex, classfile.ConstantUtf8)
}

// checkMemberRefs checks the names and descriptors of every field and
// method reference. Their indices were checked by checkConstantPool.
func (p *pass2Verifier) checkMemberRefs(cf *classfile.ClassFile) error {
	cp := cf.ConstantPool
	for i, entry := range cp {
		index := uint16(i + 1)
		switch entry.(type) {
		case *classfile.ConstantFieldrefInfo:
			className, name, desc, _ := cp.MemberRef(index)
			if !validFieldName(name) {
				return classConstraint("Invalid field name '%s' referenced by '%s'.", name, entry)
			}
			if !validClassName(className) {
				return classConstraint("Illegal class name '%s' used by '%s'.", className, entry)
			}
			if _, err := classfile.ParseFieldDescriptor(desc); err != nil {
				return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, entry), Cause: err}
			}

		case *classfile.ConstantMethodrefInfo:
			className, name, desc, _ := cp.MemberRef(index)
			if !validClassMethodName(name) {
				return classConstraint("Invalid (non-interface) method name '%s' referenced by '%s'.", name, entry)
			}
			if !validClassName(className) {
				return classConstraint("Illegal class name '%s' used by '%s'.", className, entry)
			}
			md, err := classfile.ParseMethodDescriptor(desc)
			if err != nil {
				return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, entry), Cause: err}
			}
			if name == classfile.ConstructorName && md.ReturnType != nil {
				return classConstraint("Instance initialization method must have VOID return type.")
			}

		case *classfile.ConstantInterfaceMethodrefInfo:
			className, name, desc, _ := cp.MemberRef(index)
			md, err := classfile.ParseMethodDescriptor(desc)
			if err != nil {
				return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf("Illegal descriptor (==signature) '%s' used by '%s'.", desc, entry), Cause: err}
			}
			if name == classfile.StaticInitializerName && md.ReturnType != nil {
				p.addMessage("Class or interface initialization method '%s' usually has VOID return type instead of '%s'. Note this is really not a requirement of The Java Virtual Machine Specification, Second Edition.", classfile.StaticInitializerName, md.ReturnType)
			}
			if !validInterfaceMethodName(name) {
				return classConstraint("Invalid (interface) method name '%s' referenced by '%s'.", name, entry)
			}
			if !validClassName(className) {
				return classConstraint("Illegal class name '%s' used by '%s'.", className, entry)
			}
		}
	}
	return nil
}
