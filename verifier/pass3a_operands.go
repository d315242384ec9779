package verifier

import (
	"fmt"
	"strings"

	"github.com/dhamidi/justice/classfile"
)

const (
	atypeBoolean = 4
	atypeLong    = 11
)

// checkOperands checks the operands of every instruction against the
// constant pool, the referenced classes and the method's max_locals.
func (c *codeChecker) checkOperands() error {
	for i := range c.b.instructions {
		if err := c.checkOperand(&c.b.instructions[i]); err != nil {
			return err
		}
	}
	return nil
}

func operandConstraint(in *classfile.Instruction, format string, args ...interface{}) error {
	return &ConstraintError{
		Kind: KindStaticCodeInstructionOperand,
		Msg:  fmt.Sprintf("Instruction %s constraint violated: %s", in, fmt.Sprintf(format, args...)),
	}
}

func (c *codeChecker) checkOperand(in *classfile.Instruction) error {
	op := in.Opcode
	switch {
	case op == classfile.OpLdc || op == classfile.OpLdcW:
		return c.checkLdc(in)
	case op == classfile.OpLdc2W:
		return c.checkLdc2W(in)
	case op.IsFieldAccess():
		return c.checkFieldInstruction(in)
	case op.IsInvoke():
		return c.checkInvoke(in)
	case op == classfile.OpNew:
		return c.checkNew(in)
	case op == classfile.OpAnewarray:
		return c.checkAnewarray(in)
	case op == classfile.OpCheckcast || op == classfile.OpInstanceof:
		_, err := c.classOperand(in)
		return err
	case op == classfile.OpMultianewarray:
		return c.checkMultianewarray(in)
	case op == classfile.OpNewarray:
		if in.Index < atypeBoolean || in.Index > atypeLong {
			return operandConstraint(in, "Illegal type code '%d' for 'atype' operand.", in.Index)
		}
	case op == classfile.OpLookupswitch:
		return c.checkLookupswitch(in)
	case op == classfile.OpJsr || op == classfile.OpJsrW:
		return c.checkJsr(in)
	}
	if slot, ok := in.LocalIndex(); ok {
		return c.checkLocalIndex(in, slot)
	}
	return nil
}

func (c *codeChecker) constant(in *classfile.Instruction) (classfile.ConstantPoolEntry, error) {
	entry := c.cp.Entry(uint16(in.Index))
	if entry == nil {
		return nil, operandConstraint(in, "Illegal constant pool index '%d'.", in.Index)
	}
	return entry, nil
}

func (c *codeChecker) checkLdc(in *classfile.Instruction) error {
	entry, err := c.constant(in)
	if err != nil {
		return err
	}
	switch e := entry.(type) {
	case *classfile.ConstantIntegerInfo, *classfile.ConstantFloatInfo, *classfile.ConstantStringInfo,
		*classfile.ConstantMethodTypeInfo, *classfile.ConstantMethodHandleInfo:
		return nil
	case *classfile.ConstantClassInfo:
		c.pass.addMessage("Operand of LDC or LDC_W is CONSTANT_Class '%s' - this is only supported in JDK 1.5 and higher.", entry)
		return nil
	case *classfile.ConstantDynamicInfo:
		if !wideDynamic(c.cp, e) {
			return nil
		}
	}
	return operandConstraint(in, "Operand of LDC or LDC_W must be one of CONSTANT_Integer, CONSTANT_Float, CONSTANT_String, CONSTANT_Class, CONSTANT_MethodType, CONSTANT_MethodHandle or a single-slot CONSTANT_Dynamic, but is '%s'.", entry)
}

func (c *codeChecker) checkLdc2W(in *classfile.Instruction) error {
	entry, err := c.constant(in)
	if err != nil {
		return err
	}
	switch e := entry.(type) {
	case *classfile.ConstantLongInfo, *classfile.ConstantDoubleInfo:
		return nil
	case *classfile.ConstantDynamicInfo:
		if wideDynamic(c.cp, e) {
			return nil
		}
	}
	return operandConstraint(in, "Operand of LDC2_W must be CONSTANT_Long, CONSTANT_Double or a two-slot CONSTANT_Dynamic, but is '%s'.", entry)
}

// wideDynamic reports whether a dynamic constant produces a long or double.
func wideDynamic(cp classfile.ConstantPool, d *classfile.ConstantDynamicInfo) bool {
	_, desc := cp.GetNameAndType(d.NameAndTypeIndex)
	return desc == "J" || desc == "D"
}

// elementClass returns the class a class operand makes the JVM load: the
// class itself, or the element class of an array of references. It
// returns "" for arrays of primitives.
func elementClass(name string) string {
	if !strings.HasPrefix(name, "[") {
		return name
	}
	ft, err := classfile.ParseFieldDescriptor(name)
	if err != nil {
		return ""
	}
	return ft.ClassName
}

// loadClass requires the class named by an operand to pass Pass 1.
func (c *codeChecker) loadClass(in *classfile.Instruction, name string) error {
	class := elementClass(name)
	if class == "" {
		return nil
	}
	if res := c.pass.owner.registry.Verifier(class).DoPass1(); !res.IsOK() {
		return operandConstraint(in, "Class '%s' is referenced, but cannot be loaded: '%s'.", class, res)
	}
	return nil
}

// classOperand checks that the operand is a Class constant whose class can
// be loaded and returns the class name.
func (c *codeChecker) classOperand(in *classfile.Instruction) (string, error) {
	entry, err := c.constant(in)
	if err != nil {
		return "", err
	}
	if _, ok := entry.(*classfile.ConstantClassInfo); !ok {
		return "", operandConstraint(in, "Expecting a CONSTANT_Class operand, but found a '%s'.", entry)
	}
	name := c.cp.GetClassName(uint16(in.Index))
	return name, c.loadClass(in, name)
}

func (c *codeChecker) checkNew(in *classfile.Instruction) error {
	name, err := c.classOperand(in)
	if err != nil {
		return err
	}
	if strings.HasPrefix(name, "[") {
		return operandConstraint(in, "NEW must not be used to create an array.")
	}
	return nil
}

func (c *codeChecker) checkAnewarray(in *classfile.Instruction) error {
	name, err := c.classOperand(in)
	if err != nil {
		return err
	}
	if dims := classfile.ArrayDimensions(name) + 1; dims > classfile.MaxArrayDimensions {
		return operandConstraint(in, "Not allowed to create an array with more than %d dimensions; actually: %d", classfile.MaxArrayDimensions, dims)
	}
	return nil
}

func (c *codeChecker) checkMultianewarray(in *classfile.Instruction) error {
	name, err := c.classOperand(in)
	if err != nil {
		return err
	}
	create := int(in.Value)
	if create < 1 {
		return operandConstraint(in, "Number of dimensions to create must be greater than zero.")
	}
	dims := classfile.ArrayDimensions(name)
	if dims == 0 {
		return operandConstraint(in, "Expecting a CONSTANT_Class referencing an array type. [Constraint not found in The Java Virtual Machine Specification, Second Edition, 4.8.1]")
	}
	if dims < create {
		return operandConstraint(in, "Not allowed to create array with more dimensions ('%d') than the one referenced by the CONSTANT_Class '%s'.", create, name)
	}
	return nil
}

func (c *codeChecker) checkLocalIndex(in *classfile.Instruction, slot int) error {
	maxLocals := int(c.code.MaxLocals)
	if in.Opcode.IsTwoSlotLocal() {
		if slot > maxLocals-2 {
			return operandConstraint(in, "Index '%d' must not be greater than max_locals-2 '%d'.", slot, maxLocals-2)
		}
		return nil
	}
	if slot > maxLocals-1 {
		return operandConstraint(in, "Index '%d' must not be greater than max_locals-1 '%d'.", slot, maxLocals-1)
	}
	return nil
}

func (c *codeChecker) checkLookupswitch(in *classfile.Instruction) error {
	for i := 1; i < len(in.Matches); i++ {
		switch prev, match := in.Matches[i-1], in.Matches[i]; {
		case match == prev:
			return operandConstraint(in, "Match '%d' occurs more than once.", match)
		case match < prev:
			return operandConstraint(in, "Lookup table must be sorted but isn't.")
		}
	}
	return nil
}

func (c *codeChecker) checkJsr(in *classfile.Instruction) error {
	offset := in.Targets()[0]
	if offset == 0 {
		return operandConstraint(in, "Subroutines must start with a local store: no JSR or JSR_W may have a top-level instruction (such as the very first instruction, which is targeted by instruction '%s' as its target.", in)
	}
	if target := c.b.at(offset); !target.Opcode.IsAstore() {
		return operandConstraint(in, "Subroutines must start with a local store: no JSR or JSR_W may target anything else than an ASTORE instruction. Instruction '%s' targets '%s'.", in, target)
	}
	return nil
}

func (c *codeChecker) checkFieldInstruction(in *classfile.Instruction) error {
	entry, err := c.constant(in)
	if err != nil {
		return err
	}
	if _, ok := entry.(*classfile.ConstantFieldrefInfo); !ok {
		return operandConstraint(in, "Indexing a constant that's not a CONSTANT_Fieldref but a '%s'.", entry)
	}
	className, name, desc, _ := c.cp.MemberRef(uint16(in.Index))
	if err := c.loadClass(in, className); err != nil {
		return err
	}
	if strings.HasPrefix(className, "[") {
		return operandConstraint(in, "Referenced field '%s' does not exist in class '%s'.", name, className)
	}

	class := c.pass.owner.registry.mustLoad(className)
	declaring, f, err := c.lookupField(in, class, name, desc, make(map[string]bool))
	if err != nil {
		return err
	}
	if f == nil {
		return operandConstraint(in, "Referenced field '%s' does not exist in class '%s'.", name, className)
	}
	field := fieldString(declaring.ConstantPool, f)

	switch in.Opcode {
	case classfile.OpGetstatic:
		if !f.IsStatic() {
			return operandConstraint(in, "Referenced field '%s' is not static which it should be.", field)
		}
	case classfile.OpPutstatic:
		if f.IsFinal() && declaring.ClassName() != c.cf.ClassName() {
			return operandConstraint(in, "Referenced field '%s' is final and must therefore be declared in the current class '%s' which is not the case: it is declared in '%s'.", field, c.cf.ClassName(), declaring.ClassName())
		}
		if !f.IsStatic() {
			return operandConstraint(in, "Referenced field '%s' is not static which it should be.", field)
		}
		if !declaring.IsClass() && !c.method.IsStaticInitializer(c.cp) {
			return operandConstraint(in, "Interface field '%s' must be set in a '%s' method.", field, classfile.StaticInitializerName)
		}
	case classfile.OpGetfield, classfile.OpPutfield:
		if f.IsStatic() {
			return operandConstraint(in, "Referenced field '%s' is static which it shouldn't be.", field)
		}
	}
	return nil
}

// lookupField resolves a field the way the JVM does: the class itself,
// then its superinterfaces, then its superclass. Private fields of
// ancestors are not inherited.
func (c *codeChecker) lookupField(in *classfile.Instruction, cf *classfile.ClassFile, name, desc string, seen map[string]bool) (*classfile.ClassFile, *classfile.FieldInfo, error) {
	own := len(seen) == 0
	if seen[cf.ClassName()] {
		return nil, nil, nil
	}
	seen[cf.ClassName()] = true

	for i := range cf.Fields {
		f := &cf.Fields[i]
		if f.Name(cf.ConstantPool) != name || f.Descriptor(cf.ConstantPool) != desc {
			continue
		}
		if own || !f.IsPrivate() {
			return cf, f, nil
		}
	}

	ancestors := cf.InterfaceNames()
	if cf.SuperClass != 0 {
		ancestors = append(ancestors, cf.SuperClassName())
	}
	for _, ancestor := range ancestors {
		super, err := c.loadAncestor(in, ancestor)
		if err != nil {
			return nil, nil, err
		}
		declaring, f, err := c.lookupField(in, super, name, desc, seen)
		if err != nil || f != nil {
			return declaring, f, err
		}
	}
	return nil, nil, nil
}

func (c *codeChecker) loadAncestor(in *classfile.Instruction, name string) (*classfile.ClassFile, error) {
	registry := c.pass.owner.registry
	if res := registry.Verifier(name).DoPass1(); !res.IsOK() {
		return nil, operandConstraint(in, "Class '%s' is referenced, but cannot be loaded: '%s'.", name, res)
	}
	return registry.mustLoad(name), nil
}

func (c *codeChecker) checkInvoke(in *classfile.Instruction) error {
	entry, err := c.constant(in)
	if err != nil {
		return err
	}
	if in.Reserved != 0 {
		return operandConstraint(in, "The trailing operand bytes of %s must be zero, but read '%d'.", in.Opcode, in.Reserved)
	}
	if in.Opcode == classfile.OpInvokedynamic {
		if _, ok := entry.(*classfile.ConstantInvokeDynamicInfo); !ok {
			return operandConstraint(in, "Indexing a constant that's not a CONSTANT_InvokeDynamic but a '%s'.", entry)
		}
		_, desc := c.cp.GetNameAndType(entry.(*classfile.ConstantInvokeDynamicInfo).NameAndTypeIndex)
		return c.checkSignatureTypes(in, desc)
	}

	if err := c.checkInvokeConstant(in, entry); err != nil {
		return err
	}
	className, name, desc, _ := c.cp.MemberRef(uint16(in.Index))
	if name == classfile.ConstructorName && in.Opcode != classfile.OpInvokespecial {
		return operandConstraint(in, "Only INVOKESPECIAL is allowed to invoke instance initialization methods.")
	}
	if name != classfile.ConstructorName && strings.HasPrefix(name, "<") {
		return operandConstraint(in, "No method with a name beginning with '<' other than the instance initialization methods may be called by the method invocation instructions.")
	}
	if err := c.checkSignatureTypes(in, desc); err != nil {
		return err
	}
	if err := c.loadClass(in, className); err != nil {
		return err
	}

	lookup := className
	if strings.HasPrefix(className, "[") {
		lookup = classfile.ObjectClassName
	}
	jc := c.pass.owner.registry.mustLoad(lookup)
	m, err := c.lookupMethod(in, jc, name, desc)
	if err != nil {
		return err
	}
	if m == nil {
		return operandConstraint(in, "Referenced method '%s' with expected signature '%s' not found in class '%s'.", name, desc, jc.ClassName())
	}

	switch in.Opcode {
	case classfile.OpInvokeinterface:
		if in.Value == 0 {
			return operandConstraint(in, "The 'count' argument must not be 0.")
		}
		md, _ := classfile.ParseMethodDescriptor(desc)
		if want := md.ArgumentSlots() + 1; int(in.Value) != want {
			return operandConstraint(in, "The 'count' argument should read '%d' but is '%d'.", want, in.Value)
		}
		if jc.IsClass() {
			return operandConstraint(in, "Referenced class '%s' is a class, but not an interface as expected.", jc.ClassName())
		}
	case classfile.OpInvokestatic:
		if !m.IsStatic() {
			return operandConstraint(in, "Referenced method '%s' has ACC_STATIC unset.", name)
		}
	case classfile.OpInvokevirtual:
		if !jc.IsClass() {
			return operandConstraint(in, "Referenced class '%s' is an interface, but not a class as expected.", jc.ClassName())
		}
	case classfile.OpInvokespecial:
		return c.checkSuperLookup(in, jc, name, desc)
	}
	return nil
}

func (c *codeChecker) checkInvokeConstant(in *classfile.Instruction, entry classfile.ConstantPoolEntry) error {
	switch entry.(type) {
	case *classfile.ConstantMethodrefInfo:
		if in.Opcode != classfile.OpInvokeinterface {
			return nil
		}
	case *classfile.ConstantInterfaceMethodrefInfo:
		switch in.Opcode {
		case classfile.OpInvokeinterface:
			return nil
		case classfile.OpInvokespecial, classfile.OpInvokestatic:
			if c.cf.MajorVersion >= 52 {
				return nil
			}
		}
	}
	if in.Opcode == classfile.OpInvokeinterface {
		return operandConstraint(in, "Indexing a constant that's not a CONSTANT_InterfaceMethodref but a '%s'.", entry)
	}
	return operandConstraint(in, "Indexing a constant that's not a CONSTANT_Methodref but a '%s'.", entry)
}

// checkSignatureTypes requires the object types in a method descriptor to
// pass Pass 2.
func (c *codeChecker) checkSignatureTypes(in *classfile.Instruction, desc string) error {
	md, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return operandConstraint(in, "Illegal descriptor (==signature) '%s'.", desc)
	}
	registry := c.pass.owner.registry
	if md.ReturnType != nil && md.ReturnType.ClassName != "" {
		if res := registry.Verifier(md.ReturnType.ClassName).DoPass2(); !res.IsOK() {
			return operandConstraint(in, "Return type class/interface could not be verified successfully: '%s'.", res.Message)
		}
	}
	for _, param := range md.Parameters {
		if param.ClassName == "" {
			continue
		}
		if res := registry.Verifier(param.ClassName).DoPass2(); !res.IsOK() {
			return operandConstraint(in, "Argument type class/interface could not be verified successfully: '%s'.", res.Message)
		}
	}
	return nil
}

// lookupMethod searches the class, then its superclasses, then every
// interface they implement.
func (c *codeChecker) lookupMethod(in *classfile.Instruction, jc *classfile.ClassFile, name, desc string) (*classfile.MethodInfo, error) {
	if m := jc.GetMethod(name, desc); m != nil {
		return m, nil
	}
	supers, err := c.superclasses(in, jc)
	if err != nil {
		return nil, err
	}
	for _, super := range supers {
		if m := super.GetMethod(name, desc); m != nil {
			return m, nil
		}
	}
	interfaces, err := c.allInterfaces(in, jc)
	if err != nil {
		return nil, err
	}
	for _, iface := range interfaces {
		if m := iface.GetMethod(name, desc); m != nil {
			return m, nil
		}
	}
	return nil, nil
}

// superclasses returns the ancestors of cf, nearest first.
func (c *codeChecker) superclasses(in *classfile.Instruction, cf *classfile.ClassFile) ([]*classfile.ClassFile, error) {
	var out []*classfile.ClassFile
	seen := map[string]bool{cf.ClassName(): true}
	for cf.SuperClass != 0 && !seen[cf.SuperClassName()] {
		super, err := c.loadAncestor(in, cf.SuperClassName())
		if err != nil {
			return nil, err
		}
		seen[super.ClassName()] = true
		out = append(out, super)
		cf = super
	}
	return out, nil
}

// allInterfaces returns every interface cf or one of its ancestors
// implements, breadth first.
func (c *codeChecker) allInterfaces(in *classfile.Instruction, cf *classfile.ClassFile) ([]*classfile.ClassFile, error) {
	var out []*classfile.ClassFile
	seen := map[string]bool{cf.ClassName(): true}
	queue := []*classfile.ClassFile{cf}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next.IsInterface() && next != cf {
			out = append(out, next)
		}
		names := next.InterfaceNames()
		if !next.IsInterface() && next.SuperClass != 0 {
			names = append([]string{next.SuperClassName()}, names...)
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			loaded, err := c.loadAncestor(in, name)
			if err != nil {
				return nil, err
			}
			queue = append(queue, loaded)
		}
	}
	return out, nil
}

// checkSuperLookup applies the ACC_SUPER lookup of INVOKESPECIAL: a call
// to a method of a superclass, other than a constructor, must find a
// declaration in the superclass chain of the current class.
func (c *codeChecker) checkSuperLookup(in *classfile.Instruction, jc *classfile.ClassFile, name, desc string) error {
	current := c.cf
	if !current.AccessFlags.IsSuper() || name == classfile.ConstructorName || !jc.IsClass() || jc.ClassName() == current.ClassName() {
		return nil
	}
	supers, err := c.superclasses(in, current)
	if err != nil {
		return err
	}
	inherits := false
	for _, super := range supers {
		if super.ClassName() == jc.ClassName() {
			inherits = true
			break
		}
	}
	if !inherits {
		return nil
	}
	for _, super := range supers {
		if super.GetMethod(name, desc) != nil {
			return nil
		}
	}
	return operandConstraint(in, "ACC_SUPER special lookup procedure not successful: method '%s' with proper signature not declared in superclass hierarchy.", name)
}
