package verifier

import (
	"testing"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/internal/classtest"
)

func returnCode(b *classtest.Builder) *classfile.CodeAttribute {
	return b.Code(0, 1, classtest.Asm(classfile.OpReturn))
}

func pass2(t *testing.T, cf *classfile.ClassFile, others ...*classfile.ClassFile) (Result, *Verifier) {
	t.Helper()
	r, _ := newTestRegistry(append(others, cf)...)
	v := r.Verifier(cf.ClassName())
	if res := v.DoPass1(); !res.IsOK() {
		t.Fatalf("DoPass1() = %v", res)
	}
	return v.DoPass2(), v
}

func TestFinalMethodOverride(t *testing.T) {
	parent := func(flags classfile.AccessFlags) *classfile.ClassFile {
		a := classtest.New("A").Constructor()
		a.Method(flags, "m", "()V", returnCode(a))
		return a.Build()
	}
	child := func() *classfile.ClassFile {
		b := classtest.New("B").Super("A").Constructor()
		b.Method(classfile.AccPublic, "m", "()V", returnCode(b))
		return b.Build()
	}

	t.Run("public final", func(t *testing.T) {
		res, _ := pass2(t, child(), parent(classfile.AccPublic|classfile.AccFinal))
		wantRejected(t, res, "Method 'm()V' in class 'B' overrides the final (not-overridable) definition in class 'A'.")
	})

	t.Run("private final", func(t *testing.T) {
		res, v := pass2(t, child(), parent(classfile.AccPrivate|classfile.AccFinal))
		wantOK(t, res)
		if !hasMessage(v.Messages(), "Pass 2: ", "This is okay, as the original definition was private") {
			t.Errorf("Messages() = %q", v.Messages())
		}
	})

	t.Run("not final", func(t *testing.T) {
		res, _ := pass2(t, child(), parent(classfile.AccPublic))
		wantOK(t, res)
	})
}

func TestSuperclassChain(t *testing.T) {
	t.Run("circular", func(t *testing.T) {
		a := classtest.New("A").Super("B").Build()
		b := classtest.New("B").Super("A").Build()
		res, _ := pass2(t, a, b)
		wantRejected(t, res, "Circular superclass hierarchy detected.")
	})

	t.Run("final ancestor", func(t *testing.T) {
		res, _ := pass2(t, classtest.New("S").Super(classfile.StringClassName).Build())
		wantRejected(t, res, "Ancestor class 'java/lang/String' has the FINAL access modifier and must therefore not be subclassed.")
	})

	t.Run("missing ancestor", func(t *testing.T) {
		res, _ := pass2(t, classtest.New("S").Super("com/example/Gone").Build())
		wantRejected(t, res, "Could not load in ancestor class 'com/example/Gone'.")
	})

	t.Run("no superclass", func(t *testing.T) {
		res, _ := pass2(t, classtest.New("X").Super("").Build())
		wantRejected(t, res, "Superclass of 'X' missing but not java/lang/Object itself!")
	})
}

func TestFieldConstraints(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *classtest.Builder)
		want  string
	}{
		{
			name:  "illegal name",
			build: func(b *classtest.Builder) { b.Field(classfile.AccPublic, "1x", "I") },
			want:  "has illegal name '1x'",
		},
		{
			name:  "illegal descriptor",
			build: func(b *classtest.Builder) { b.Field(classfile.AccPublic, "x", "Q") },
			want:  "Illegal descriptor (==signature) 'Q'",
		},
		{
			name: "duplicate",
			build: func(b *classtest.Builder) {
				b.Field(classfile.AccPublic, "x", "I")
				b.Field(classfile.AccPrivate, "x", "I")
			},
			want: "No two fields (like 'x:I') are allowed have same names and descriptors!",
		},
		{
			name:  "public and private",
			build: func(b *classtest.Builder) { b.Field(classfile.AccPublic|classfile.AccPrivate, "x", "I") },
			want:  "must only have at most one of its ACC_PRIVATE, ACC_PROTECTED, ACC_PUBLIC modifiers set",
		},
		{
			name:  "final volatile",
			build: func(b *classtest.Builder) { b.Field(classfile.AccFinal|classfile.AccVolatile, "x", "I") },
			want:  "at most one of its ACC_FINAL, ACC_VOLATILE modifiers set",
		},
		{
			name: "constant value type",
			build: func(b *classtest.Builder) {
				b.Field(classfile.AccStatic|classfile.AccFinal, "x", "I",
					&classfile.ConstantValueAttribute{ConstantValueIndex: b.Pool().AddString("no")})
			},
			want: "Illegal type of ConstantValue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classtest.New("T")
			tt.build(b)
			res, _ := pass2(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestFieldConstantValues(t *testing.T) {
	b := classtest.New("T")
	cp := b.Pool()
	b.Field(classfile.AccStatic|classfile.AccFinal, "i", "I",
		&classfile.ConstantValueAttribute{ConstantValueIndex: cp.AddInteger(1)})
	b.Field(classfile.AccStatic|classfile.AccFinal, "c", "C",
		&classfile.ConstantValueAttribute{ConstantValueIndex: cp.AddInteger('c')})
	b.Field(classfile.AccStatic|classfile.AccFinal, "j", "J",
		&classfile.ConstantValueAttribute{ConstantValueIndex: cp.AddLong(1)})
	b.Field(classfile.AccStatic|classfile.AccFinal, "s", "Ljava/lang/String;",
		&classfile.ConstantValueAttribute{ConstantValueIndex: cp.AddString("s")})
	b.Field(classfile.AccPublic, "x", "D")
	res, v := pass2(t, b.Build())
	wantOK(t, res)
	if msgs := v.Messages(); len(msgs) != 0 {
		t.Errorf("Messages() = %q, want none", msgs)
	}
}

func TestMethodConstraints(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *classtest.Builder)
		want  string
	}{
		{
			name:  "missing code",
			build: func(b *classtest.Builder) { b.Method(classfile.AccPublic, "m", "()V") },
			want:  "Non-native, non-abstract methods like 'm()V' must have exactly one Code attribute (found: 0).",
		},
		{
			name: "abstract with code",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic|classfile.AccAbstract, "m", "()V", returnCode(b))
			},
			want: "Native or abstract methods like 'm()V' must not have a Code attribute.",
		},
		{
			name: "abstract and final",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic|classfile.AccAbstract|classfile.AccFinal, "m", "()V")
			},
			want: "must not have the ACC_FINAL modifier set",
		},
		{
			name: "static constructor",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccStatic, classfile.ConstructorName, "()V", returnCode(b))
			},
			want: "Instance initialization method '<init>()V' must not have any of",
		},
		{
			name: "class initializer with arguments",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccStatic, classfile.StaticInitializerName, "(I)V", returnCode(b))
			},
			want: "Its name resembles the class or interface initialization method",
		},
		{
			name: "duplicate",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic, "m", "()V", returnCode(b))
				b.Method(classfile.AccPrivate, "m", "()V", returnCode(b))
			},
			want: "No two methods (like 'm()V') are allowed have same names and desciptors!",
		},
		{
			name: "unloadable return type",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic|classfile.AccAbstract, "m", "()Lcom/example/Gone;")
			},
			want: "has a return type that does not pass verification pass 1",
		},
		{
			name: "unloadable argument type",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic|classfile.AccAbstract, "m", "([Lcom/example/Gone;)V")
			},
			want: "has an argument type that does not pass verification pass 1",
		},
		{
			name: "exception not throwable",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic, "m", "()V", returnCode(b),
					&classfile.ExceptionsAttribute{ExceptionIndexTable: []uint16{b.Pool().AddClass(classfile.StringClassName)}})
			},
			want: "Exceptions attribute of method 'm()V' references 'java/lang/String' as an Exception but it is not a subclass of 'java/lang/Throwable'.",
		},
		{
			name: "catch type not throwable",
			build: func(b *classtest.Builder) {
				code := b.Code(1, 1, classtest.Asm(classfile.OpNop, classfile.OpReturn))
				code.ExceptionTable = []classfile.ExceptionTableEntry{{
					StartPC: 0, EndPC: 1, HandlerPC: 1, CatchType: b.Pool().AddClass(classfile.StringClassName),
				}}
				b.Method(classfile.AccPublic, "m", "()V", code)
			},
			want: "exception_table entry 0 that references 'java/lang/String' as an Exception",
		},
		{
			name: "empty code",
			build: func(b *classtest.Builder) {
				b.Method(classfile.AccPublic, "m", "()V", b.Code(0, 1, nil))
			},
			want: "Code array of Code attribute (method 'm()V') must not be empty.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classtest.New("T")
			tt.build(b)
			res, _ := pass2(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestDeclaredExceptions(t *testing.T) {
	b := classtest.New("T")
	b.Method(classfile.AccPublic, "m", "()V", returnCode(b),
		&classfile.ExceptionsAttribute{ExceptionIndexTable: []uint16{b.Pool().AddClass("java/lang/RuntimeException")}})
	res, _ := pass2(t, b.Build())
	wantOK(t, res)
}

func TestInterfaceMethods(t *testing.T) {
	iface := func(major uint16, flags classfile.AccessFlags) *classfile.ClassFile {
		b := classtest.New("I").Flags(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
		if flags&classfile.AccAbstract != 0 {
			b.Method(flags, "m", "()V")
		} else {
			b.Method(flags, "m", "()V", returnCode(b))
		}
		cf := b.Build()
		cf.MajorVersion = major
		return cf
	}

	res, _ := pass2(t, iface(52, classfile.AccPublic|classfile.AccAbstract))
	wantOK(t, res)

	res, _ = pass2(t, iface(52, classfile.AccPrivate))
	wantOK(t, res)

	res, _ = pass2(t, iface(52, classfile.AccProtected|classfile.AccAbstract))
	wantRejected(t, res, "must have exactly one of its ACC_PUBLIC and ACC_PRIVATE modifiers set")

	res, _ = pass2(t, iface(51, classfile.AccPublic))
	wantRejected(t, res, "must have the ACC_ABSTRACT modifier set but hasn't!")
}

func TestLocalVariableTable(t *testing.T) {
	lvt := func(b *classtest.Builder, entries ...classfile.LocalVariableEntry) *classfile.LocalVariableTableAttribute {
		return &classfile.LocalVariableTableAttribute{LocalVariableTable: entries}
	}
	entry := func(b *classtest.Builder, name, desc string, index uint16) classfile.LocalVariableEntry {
		return classfile.LocalVariableEntry{
			StartPC:         0,
			Length:          1,
			NameIndex:       b.Pool().AddUtf8(name),
			DescriptorIndex: b.Pool().AddUtf8(desc),
			Index:           index,
		}
	}

	tests := []struct {
		name    string
		entries func(b *classtest.Builder) []classfile.LocalVariableEntry
		want    string
	}{
		{
			name: "two names",
			entries: func(b *classtest.Builder) []classfile.LocalVariableEntry {
				return []classfile.LocalVariableEntry{entry(b, "a", "I", 0), entry(b, "b", "I", 0)}
			},
			want: "At bytecode offset '0' a local variable has two different names: 'a' and 'b'.",
		},
		{
			name: "two types",
			entries: func(b *classtest.Builder) []classfile.LocalVariableEntry {
				return []classfile.LocalVariableEntry{entry(b, "a", "I", 0), entry(b, "a", "F", 0)}
			},
			want: "a local variable has two different types: 'int' and 'float'.",
		},
		{
			name: "upper half of long",
			entries: func(b *classtest.Builder) []classfile.LocalVariableEntry {
				return []classfile.LocalVariableEntry{entry(b, "a", "J", 0), entry(b, "b", "I", 1)}
			},
			want: "two different names: 'a' and 'b'",
		},
		{
			name: "beyond max_locals",
			entries: func(b *classtest.Builder) []classfile.LocalVariableEntry {
				return []classfile.LocalVariableEntry{entry(b, "a", "J", 1)}
			},
			want: "exceeds the surrounding Code attribute's max_locals value of '2'",
		},
		{
			name: "illegal name",
			entries: func(b *classtest.Builder) []classfile.LocalVariableEntry {
				return []classfile.LocalVariableEntry{entry(b, "a-b", "I", 0)}
			},
			want: "by the name 'a-b' which is not a legal Java simple name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classtest.New("T")
			code := b.Code(0, 2, classtest.Asm(classfile.OpReturn), lvt(b, tt.entries(b)...))
			b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", code)
			res, _ := pass2(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestLocalVariablesRecorded(t *testing.T) {
	b := classtest.New("T")
	table := &classfile.LocalVariableTableAttribute{LocalVariableTable: []classfile.LocalVariableEntry{{
		StartPC: 0, Length: 1, NameIndex: b.Pool().AddUtf8("count"), DescriptorIndex: b.Pool().AddUtf8("I"), Index: 0,
	}}}
	b.Method(classfile.AccPublic|classfile.AccStatic, "m", "(I)V",
		b.Code(0, 1, classtest.Asm(classfile.OpReturn), table))
	res, v := pass2(t, b.Build())
	wantOK(t, res)

	slot := v.pass2.localVariables[0].slots[0]
	if len(slot) != 1 {
		t.Fatalf("slot 0 holds %d variables, want 1", len(slot))
	}
	if lv := slot[0]; lv.name != "count" || lv.typ != "int" || lv.start != 0 || lv.end != 1 {
		t.Errorf("slot 0 = %+v", lv)
	}
}

func TestConstantPoolConstraints(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *classtest.Builder)
		want  string
	}{
		{
			name:  "illegal class name",
			build: func(b *classtest.Builder) { b.Pool().AddClass("a;b") },
			want:  "Illegal class name 'a;b'",
		},
		{
			name:  "constructor returning a value",
			build: func(b *classtest.Builder) { b.Pool().AddMethodref("T", classfile.ConstructorName, "()I") },
			want:  "Instance initialization method must have VOID return type.",
		},
		{
			name:  "illegal field name",
			build: func(b *classtest.Builder) { b.Pool().AddFieldref("T", "<x>", "I") },
			want:  "Invalid field name '<x>'",
		},
		{
			name:  "interface method named like an initializer",
			build: func(b *classtest.Builder) { b.Pool().AddInterfaceMethodref("java/lang/Runnable", classfile.ConstructorName, "()V") },
			want:  "Invalid (interface) method name '<init>'",
		},
		{
			name:  "illegal method descriptor",
			build: func(b *classtest.Builder) { b.Pool().AddMethodref("T", "m", "(I") },
			want:  "Illegal descriptor (==signature) '(I'",
		},
		{
			name: "string pointing at a class",
			build: func(b *classtest.Builder) {
				cp := b.Pool()
				cp.Add(&classfile.ConstantStringInfo{StringIndex: cp.AddClass("T")})
			},
			want: "expects a 'CONSTANT_Utf8'",
		},
		{
			name: "module constant outside a module",
			build: func(b *classtest.Builder) {
				cp := b.Pool()
				cp.Add(&classfile.ConstantModuleInfo{NameIndex: cp.AddUtf8("m")})
			},
			want: "may only appear in a module-info class file",
		},
		{
			name: "method handle kind",
			build: func(b *classtest.Builder) {
				cp := b.Pool()
				cp.Add(&classfile.ConstantMethodHandleInfo{ReferenceKind: 10, ReferenceIndex: cp.AddMethodref("T", "m", "()V")})
			},
			want: "Illegal reference kind '10'",
		},
		{
			name: "method handle target",
			build: func(b *classtest.Builder) {
				cp := b.Pool()
				cp.Add(&classfile.ConstantMethodHandleInfo{ReferenceKind: classfile.RefGetField, ReferenceIndex: cp.AddMethodref("T", "m", "()V")})
			},
			want: "expects a 'CONSTANT_Fieldref'",
		},
		{
			name: "invokedynamic without bootstrap methods",
			build: func(b *classtest.Builder) {
				cp := b.Pool()
				cp.Add(&classfile.ConstantInvokeDynamicInfo{NameAndTypeIndex: cp.AddNameAndType("run", "()Ljava/lang/Runnable;")})
			},
			want: "the class has no BootstrapMethods attribute",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classtest.New("T")
			tt.build(b)
			res, _ := pass2(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestClassInitializerReturnTypeWarning(t *testing.T) {
	b := classtest.New("T")
	b.Pool().AddInterfaceMethodref("java/lang/Runnable", classfile.StaticInitializerName, "()I")
	res, v := pass2(t, b.Build())
	wantRejected(t, res, "Invalid (interface) method name '<clinit>'")
	if !hasMessage(v.Messages(), "Pass 2: ", "usually has VOID return type") {
		t.Errorf("Messages() = %q", v.Messages())
	}
}

func TestAttributeWarnings(t *testing.T) {
	b := classtest.New("T").Constructor()
	b.ClassAttr(b.Unknown("com.example.Custom", []byte{1}))
	b.ClassAttr(&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("dir/T.java")})
	b.ClassAttr(&classfile.InnerClassesAttribute{})
	res, v := pass2(t, b.Build())
	wantOK(t, res)

	msgs := v.Messages()
	for _, want := range []string{
		"Attribute 'com.example.Custom' as an attribute of the ClassFile structure 'T' is unknown and will therefore be ignored.",
		"SourceFile attribute has a funny name",
		"No referenced Inner Class found, but InnerClasses attribute found.",
	} {
		if !hasMessage(msgs, "Pass 2: ", want) {
			t.Errorf("Messages() = %q, missing %q", msgs, want)
		}
	}
}

func TestSourceFileOnlyOnce(t *testing.T) {
	b := classtest.New("T")
	b.ClassAttr(
		&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("T.java")},
		&classfile.SourceFileAttribute{SourceFileIndex: b.Pool().AddUtf8("T.java")},
	)
	res, _ := pass2(t, b.Build())
	wantRejected(t, res, "may have no more than one SourceFile attribute")
}

func TestMisplacedAttribute(t *testing.T) {
	b := classtest.New("T")
	b.Field(classfile.AccPublic, "x", "I", &classfile.ExceptionsAttribute{})
	res, v := pass2(t, b.Build())
	wantOK(t, res)
	if !hasMessage(v.Messages(), "Pass 2: ", "Attribute 'Exceptions' is not allowed as an attribute of Field 'x:I'") {
		t.Errorf("Messages() = %q", v.Messages())
	}
}
