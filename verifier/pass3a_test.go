package verifier

import (
	"testing"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/internal/classtest"
)

// pass3a verifies method "m" of cf after checking that Pass 2 accepts cf.
func pass3a(t *testing.T, cf *classfile.ClassFile, others ...*classfile.ClassFile) (Result, *Verifier) {
	t.Helper()
	r, _ := newTestRegistry(append(others, cf)...)
	v := r.Verifier(cf.ClassName())
	if res := v.DoPass2(); !res.IsOK() {
		t.Fatalf("DoPass2() = %v", res)
	}
	for i := range cf.Methods {
		if cf.Methods[i].Name(cf.ConstantPool) == "m" {
			return v.DoPass3a(i), v
		}
	}
	t.Fatal("class has no method m")
	return Result{}, nil
}

// withCode builds class T whose static method m()V runs the code produced
// by asm.
func withCode(maxLocals uint16, asm func(b *classtest.Builder) []byte) *classtest.Builder {
	b := classtest.New("T")
	b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", b.Code(4, maxLocals, asm(b)))
	return b
}

func TestAbstractAndNativeMethodsPass(t *testing.T) {
	b := classtest.New("T").Flags(classfile.AccPublic | classfile.AccSuper | classfile.AccAbstract)
	b.Method(classfile.AccPublic|classfile.AccAbstract, "m", "()V")
	res, _ := pass3a(t, b.Build())
	wantOK(t, res)

	b = classtest.New("T")
	b.Method(classfile.AccPublic|classfile.AccNative, "m", "()V")
	res, _ = pass3a(t, b.Build())
	wantOK(t, res)
}

func TestInstructionStream(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want string
	}{
		{
			name: "fall off the end",
			code: classtest.Asm(classfile.OpNop),
			want: "Execution must not fall off the bottom of the code array.",
		},
		{
			name: "unknown opcode",
			code: classtest.Asm(byte(0xcb), classfile.OpReturn),
			want: "Bad bytecode in the code array of the Code attribute of method 'm()V'.",
		},
		{
			name: "branch into an instruction",
			code: classtest.Asm(classfile.OpGoto, int16(1), classfile.OpReturn),
			want: "Bad bytecode",
		},
		{
			name: "branch past the end",
			code: classtest.Asm(classfile.OpGoto, int16(40)),
			want: "Bad bytecode",
		},
		{
			name: "impdep1",
			code: classtest.Asm(classfile.OpImpdep1, classfile.OpReturn),
			want: "IMPDEP1 must not be in the code",
		},
		{
			name: "breakpoint",
			code: classtest.Asm(classfile.OpBreakpoint, classfile.OpReturn),
			want: "BREAKPOINT must not be in the code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(1, func(*classtest.Builder) []byte { return tt.code })
			res, _ := pass3a(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestUnconditionalEndings(t *testing.T) {
	endings := map[string][]byte{
		"return": classtest.Asm(classfile.OpReturn),
		"athrow": classtest.Asm(classfile.OpAconstNull, classfile.OpAthrow),
		"goto":   classtest.Asm(classfile.OpNop, classfile.OpGoto, int16(-1)),
	}
	for name, code := range endings {
		t.Run(name, func(t *testing.T) {
			b := withCode(1, func(*classtest.Builder) []byte { return code })
			res, _ := pass3a(t, b.Build())
			wantOK(t, res)
		})
	}
}

func TestLocalVariableSlots(t *testing.T) {
	tests := []struct {
		name      string
		maxLocals uint16
		code      []byte
		want      string
	}{
		{
			name:      "iload_1",
			maxLocals: 1,
			code:      classtest.Asm(classfile.OpIload1, classfile.OpPop, classfile.OpReturn),
			want:      "Index '1' must not be greater than max_locals-1 '0'.",
		},
		{
			name:      "lload_0",
			maxLocals: 1,
			code:      classtest.Asm(classfile.OpLload0, classfile.OpPop2, classfile.OpReturn),
			want:      "Index '0' must not be greater than max_locals-2 '-1'.",
		},
		{
			name:      "wide iinc",
			maxLocals: 10,
			code:      classtest.Asm(classfile.OpWide, classfile.OpIinc, uint16(300), int16(1), classfile.OpReturn),
			want:      "Index '300' must not be greater than max_locals-1 '9'.",
		},
		{
			name:      "ret",
			maxLocals: 1,
			code:      classtest.Asm(classfile.OpRet, byte(2)),
			want:      "Index '2' must not be greater than max_locals-1 '0'.",
		},
		{
			name:      "dstore",
			maxLocals: 4,
			code:      classtest.Asm(classfile.OpDconst0, classfile.OpDstore, byte(3), classfile.OpReturn),
			want:      "Index '3' must not be greater than max_locals-2 '2'.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(tt.maxLocals, func(*classtest.Builder) []byte { return tt.code })
			res, _ := pass3a(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}

	b := withCode(2, func(*classtest.Builder) []byte {
		return classtest.Asm(classfile.OpLload0, classfile.OpPop2, classfile.OpIload1, classfile.OpPop, classfile.OpReturn)
	})
	res, _ := pass3a(t, b.Build())
	wantOK(t, res)
}

func lookupswitch(pairs ...int32) []byte {
	end := int32(1 + 3 + 8 + 8*len(pairs)/2)
	code := classtest.Asm(classfile.OpIconst0, classfile.OpLookupswitch, byte(0), byte(0), int32(end-1), int32(len(pairs)/2))
	for i := 0; i < len(pairs); i += 2 {
		code = append(code, classtest.Asm(pairs[i], int32(end-1))...)
	}
	return append(code, byte(classfile.OpReturn))
}

func TestLookupswitch(t *testing.T) {
	tests := []struct {
		name string
		keys []int32
		want string
	}{
		{name: "sorted", keys: []int32{-3, 0, 0, 0, 7, 0}},
		{name: "duplicate", keys: []int32{5, 0, 5, 0}, want: "Match '5' occurs more than once."},
		{name: "unsorted", keys: []int32{5, 0, 3, 0}, want: "Lookup table must be sorted but isn't."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(1, func(*classtest.Builder) []byte { return lookupswitch(tt.keys...) })
			res, _ := pass3a(t, b.Build())
			if tt.want == "" {
				wantOK(t, res)
				return
			}
			wantRejected(t, res, tt.want)
		})
	}
}

func TestJsr(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want string
	}{
		{
			name: "subroutine",
			code: classtest.Asm(classfile.OpJsr, int16(4), classfile.OpReturn, classfile.OpAstore1, classfile.OpRet, byte(1)),
		},
		{
			name: "first instruction",
			code: classtest.Asm(classfile.OpJsr, int16(0), classfile.OpReturn),
			want: "no JSR or JSR_W may have a top-level instruction",
		},
		{
			name: "not an astore",
			code: classtest.Asm(classfile.OpJsr, int16(4), classfile.OpReturn, classfile.OpNop, classfile.OpReturn),
			want: "no JSR or JSR_W may target anything else than an ASTORE instruction",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(2, func(*classtest.Builder) []byte { return tt.code })
			res, _ := pass3a(t, b.Build())
			if tt.want == "" {
				wantOK(t, res)
				return
			}
			wantRejected(t, res, tt.want)
		})
	}
}

func TestCodeTables(t *testing.T) {
	t.Run("exception range", func(t *testing.T) {
		b := classtest.New("T")
		code := b.Code(1, 1, classtest.Asm(classfile.OpNop, classfile.OpReturn))
		code.ExceptionTable = []classfile.ExceptionTableEntry{{StartPC: 1, EndPC: 1, HandlerPC: 0}}
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", code)
		res, _ := pass3a(t, b.Build())
		wantRejected(t, res, "that has its start_pc ('1') not smaller than its end_pc ('1').")
	})

	t.Run("handler inside an instruction", func(t *testing.T) {
		b := classtest.New("T")
		code := b.Code(1, 1, classtest.Asm(classfile.OpBipush, byte(1), classfile.OpPop, classfile.OpReturn))
		code.ExceptionTable = []classfile.ExceptionTableEntry{{StartPC: 0, EndPC: 4, HandlerPC: 1}}
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", code)
		res, _ := pass3a(t, b.Build())
		wantRejected(t, res, "as its handler_pc ('1')")
	})

	t.Run("line number offset", func(t *testing.T) {
		b := classtest.New("T")
		lnt := &classfile.LineNumberTableAttribute{LineNumberTable: []classfile.LineNumberEntry{{StartPC: 9, LineNumber: 1}}}
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", b.Code(0, 0, classtest.Asm(classfile.OpReturn), lnt))
		res, _ := pass3a(t, b.Build())
		wantRejected(t, res, "referring to a code offset ('9') that does not exist")
	})

	t.Run("duplicate line numbers", func(t *testing.T) {
		b := classtest.New("T")
		lnt := &classfile.LineNumberTableAttribute{LineNumberTable: []classfile.LineNumberEntry{
			{StartPC: 0, LineNumber: 1},
			{StartPC: 0, LineNumber: 2},
		}}
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", b.Code(0, 0, classtest.Asm(classfile.OpReturn), lnt))
		res, v := pass3a(t, b.Build())
		wantOK(t, res)
		if !hasMessage(v.Messages(), "Pass 3a, method 0 ('m()V'): ", "more than once") {
			t.Errorf("Messages() = %q", v.Messages())
		}
	})

	t.Run("local variable end", func(t *testing.T) {
		b := classtest.New("T")
		lvt := &classfile.LocalVariableTableAttribute{LocalVariableTable: []classfile.LocalVariableEntry{{
			StartPC: 0, Length: 1, NameIndex: b.Pool().AddUtf8("x"), DescriptorIndex: b.Pool().AddUtf8("I"), Index: 0,
		}}}
		code := b.Code(1, 1, classtest.Asm(classfile.OpBipush, byte(1), classfile.OpPop, classfile.OpReturn), lvt)
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", code)
		res, _ := pass3a(t, b.Build())
		wantRejected(t, res, "referring to a code offset start_pc+length ('1') that does not exist")
	})
}

func TestConstantOperands(t *testing.T) {
	tests := []struct {
		name string
		asm  func(b *classtest.Builder) []byte
		want string
	}{
		{
			name: "ldc long",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpLdc, byte(b.Pool().AddLong(1)), classfile.OpPop2, classfile.OpReturn)
			},
			want: "Operand of LDC or LDC_W must be one of",
		},
		{
			name: "ldc2_w int",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpLdc2W, b.Pool().AddInteger(1), classfile.OpPop, classfile.OpReturn)
			},
			want: "Operand of LDC2_W must be CONSTANT_Long, CONSTANT_Double",
		},
		{
			name: "ldc out of range",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpLdc, byte(200), classfile.OpPop, classfile.OpReturn)
			},
			want: "Illegal constant pool index '200'.",
		},
		{
			name: "new array",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpNew, b.Pool().AddClass("[I"), classfile.OpPop, classfile.OpReturn)
			},
			want: "NEW must not be used to create an array.",
		},
		{
			name: "new with a string operand",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpNew, b.Pool().AddString("x"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Expecting a CONSTANT_Class operand, but found a",
		},
		{
			name: "newarray atype",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpIconst1, classfile.OpNewarray, byte(3), classfile.OpPop, classfile.OpReturn)
			},
			want: "Illegal type code '3' for 'atype' operand.",
		},
		{
			name: "multianewarray too deep",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpIconst1, classfile.OpIconst1,
					classfile.OpMultianewarray, b.Pool().AddClass("[I"), byte(2), classfile.OpPop, classfile.OpReturn)
			},
			want: "Not allowed to create array with more dimensions ('2')",
		},
		{
			name: "multianewarray zero dimensions",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpMultianewarray, b.Pool().AddClass("[[I"), byte(0), classfile.OpPop, classfile.OpReturn)
			},
			want: "Number of dimensions to create must be greater than zero.",
		},
		{
			name: "checkcast missing class",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpCheckcast, b.Pool().AddClass("com/example/Missing"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Class 'com/example/Missing' is referenced, but cannot be loaded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := pass3a(t, withCode(1, tt.asm).Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestAcceptedConstantOperands(t *testing.T) {
	b := withCode(1, func(b *classtest.Builder) []byte {
		cp := b.Pool()
		return classtest.Asm(
			classfile.OpLdc, byte(cp.AddInteger(1)), classfile.OpPop,
			classfile.OpLdc, byte(cp.AddString("s")), classfile.OpPop,
			classfile.OpLdc2W, cp.AddDouble(2), classfile.OpPop2,
			classfile.OpIconst1, classfile.OpAnewarray, cp.AddClass(classfile.StringClassName), classfile.OpPop,
			classfile.OpIconst1, classfile.OpIconst1, classfile.OpMultianewarray, cp.AddClass("[[J"), byte(2), classfile.OpPop,
			classfile.OpIconst1, classfile.OpNewarray, byte(10), classfile.OpPop,
			classfile.OpNew, cp.AddClass(classfile.ObjectClassName), classfile.OpPop,
			classfile.OpReturn,
		)
	})
	res, _ := pass3a(t, b.Build())
	wantOK(t, res)

	t.Run("class constant warns", func(t *testing.T) {
		b := withCode(1, func(b *classtest.Builder) []byte {
			return classtest.Asm(classfile.OpLdcW, b.Pool().AddClass(classfile.StringClassName), classfile.OpPop, classfile.OpReturn)
		})
		res, v := pass3a(t, b.Build())
		wantOK(t, res)
		if !hasMessage(v.Messages(), "Pass 3a, method 0 ('m()V'): ", "is CONSTANT_Class") {
			t.Errorf("Messages() = %q, want a CONSTANT_Class warning", v.Messages())
		}
	})
}

func TestFieldInstructions(t *testing.T) {
	parent := func() *classfile.ClassFile {
		p := classtest.New("P")
		p.Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "z", "I")
		p.Field(classfile.AccPublic|classfile.AccStatic, "s", "I")
		p.Field(classfile.AccPrivate|classfile.AccStatic, "hidden", "I")
		return p.Build()
	}

	tests := []struct {
		name string
		asm  func(b *classtest.Builder) []byte
		want string
	}{
		{
			name: "missing field",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpGetstatic, b.Pool().AddFieldref("T", "missing", "I"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Referenced field 'missing' does not exist in class 'T'.",
		},
		{
			name: "wrong type",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpGetstatic, b.Pool().AddFieldref("T", "s", "J"), classfile.OpPop2, classfile.OpReturn)
			},
			want: "Referenced field 's' does not exist in class 'T'.",
		},
		{
			name: "private in superclass",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpGetstatic, b.Pool().AddFieldref("T", "hidden", "I"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Referenced field 'hidden' does not exist in class 'T'.",
		},
		{
			name: "getstatic instance field",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpGetstatic, b.Pool().AddFieldref("T", "x", "I"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Referenced field 'x:I' is not static which it should be.",
		},
		{
			name: "getfield static field",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpGetfield, b.Pool().AddFieldref("T", "s", "I"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Referenced field 's:I' is static which it shouldn't be.",
		},
		{
			name: "putstatic inherited final",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpIconst0, classfile.OpPutstatic, b.Pool().AddFieldref("T", "z", "I"), classfile.OpReturn)
			},
			want: "Referenced field 'z:I' is final and must therefore be declared in the current class 'T' which is not the case: it is declared in 'P'.",
		},
		{
			name: "fieldref expected",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpGetstatic, b.Pool().AddMethodref("T", "m", "()V"), classfile.OpPop, classfile.OpReturn)
			},
			want: "Indexing a constant that's not a CONSTANT_Fieldref",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(1, tt.asm).Super("P")
			b.Field(classfile.AccPublic, "x", "I")
			res, _ := pass3a(t, b.Build(), parent())
			wantRejected(t, res, tt.want)
		})
	}

	t.Run("inherited static", func(t *testing.T) {
		b := withCode(1, func(b *classtest.Builder) []byte {
			return classtest.Asm(
				classfile.OpGetstatic, b.Pool().AddFieldref("T", "z", "I"), classfile.OpPop,
				classfile.OpIconst0, classfile.OpPutstatic, b.Pool().AddFieldref("T", "s", "I"),
				classfile.OpReturn,
			)
		}).Super("P")
		res, _ := pass3a(t, b.Build(), parent())
		wantOK(t, res)
	})
}

func TestInterfaceFieldOutsideInitializer(t *testing.T) {
	i := classtest.New("I").Flags(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	i.Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "c", "I")

	b := withCode(1, func(b *classtest.Builder) []byte {
		return classtest.Asm(classfile.OpIconst0, classfile.OpPutstatic, b.Pool().AddFieldref("I", "c", "I"), classfile.OpReturn)
	})
	res, _ := pass3a(t, b.Build(), i.Build())
	wantRejected(t, res, "is final and must therefore be declared in the current class 'T'")
}

func TestInvokeInstructions(t *testing.T) {
	tests := []struct {
		name string
		asm  func(b *classtest.Builder) []byte
		want string
	}{
		{
			name: "invokestatic instance method",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpInvokestatic, b.Pool().AddMethodref("T", "inst", "()V"), classfile.OpReturn)
			},
			want: "Referenced method 'inst' has ACC_STATIC unset.",
		},
		{
			name: "invokevirtual constructor",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokevirtual, b.Pool().AddMethodref(classfile.ObjectClassName, classfile.ConstructorName, "()V"), classfile.OpReturn)
			},
			want: "Only INVOKESPECIAL is allowed to invoke instance initialization methods.",
		},
		{
			name: "missing method",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpInvokestatic, b.Pool().AddMethodref("T", "nope", "()V"), classfile.OpReturn)
			},
			want: "Referenced method 'nope' with expected signature '()V' not found in class 'T'.",
		},
		{
			name: "invokevirtual on interface",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokevirtual, b.Pool().AddMethodref("java/lang/Runnable", "run", "()V"), classfile.OpReturn)
			},
			want: "Referenced class 'java/lang/Runnable' is an interface, but not a class as expected.",
		},
		{
			name: "invokeinterface on class",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokeinterface, b.Pool().AddInterfaceMethodref("T", "inst", "()V"), byte(1), byte(0), classfile.OpReturn)
			},
			want: "Referenced class 'T' is a class, but not an interface as expected.",
		},
		{
			name: "invokeinterface count",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokeinterface, b.Pool().AddInterfaceMethodref("java/lang/Runnable", "run", "()V"), byte(2), byte(0), classfile.OpReturn)
			},
			want: "The 'count' argument should read '1' but is '2'.",
		},
		{
			name: "invokeinterface nonzero fourth byte",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokeinterface, b.Pool().AddInterfaceMethodref("java/lang/Runnable", "run", "()V"), byte(1), byte(7), classfile.OpReturn)
			},
			want: "must be zero, but read '7'.",
		},
		{
			name: "invokedynamic nonzero trailing bytes",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpInvokedynamic, b.Pool().AddMethodref("T", "inst", "()V"), int16(3), classfile.OpReturn)
			},
			want: "must be zero, but read '3'.",
		},
		{
			name: "invokeinterface with a methodref",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokeinterface, b.Pool().AddMethodref("java/lang/Runnable", "run", "()V"), byte(1), byte(0), classfile.OpReturn)
			},
			want: "Indexing a constant that's not a CONSTANT_InterfaceMethodref",
		},
		{
			name: "invokedynamic with a methodref",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpInvokedynamic, b.Pool().AddMethodref("T", "inst", "()V"), byte(0), byte(0), classfile.OpReturn)
			},
			want: "Indexing a constant that's not a CONSTANT_InvokeDynamic",
		},
		{
			name: "unverifiable argument type",
			asm: func(b *classtest.Builder) []byte {
				return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokestatic, b.Pool().AddMethodref("T", "take", "(Lcom/example/Gone;)V"), classfile.OpReturn)
			},
			want: "Argument type class/interface could not be verified successfully",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withCode(1, tt.asm)
			b.Method(classfile.AccPublic, "inst", "()V", returnCode(b))
			res, _ := pass3a(t, b.Build())
			wantRejected(t, res, tt.want)
		})
	}
}

func TestAcceptedInvocations(t *testing.T) {
	b := withCode(1, func(b *classtest.Builder) []byte {
		cp := b.Pool()
		return classtest.Asm(
			classfile.OpNew, cp.AddClass("T"), classfile.OpDup,
			classfile.OpInvokespecial, cp.AddMethodref("T", classfile.ConstructorName, "()V"),
			classfile.OpDup, classfile.OpInvokevirtual, cp.AddMethodref("T", "toString", "()Ljava/lang/String;"), classfile.OpPop,
			classfile.OpInvokeinterface, cp.AddInterfaceMethodref("java/lang/Runnable", "run", "()V"), byte(1), byte(0),
			classfile.OpAconstNull, classfile.OpInvokevirtual, cp.AddMethodref("[I", "hashCode", "()I"), classfile.OpPop,
			classfile.OpInvokestatic, cp.AddMethodref("T", "helper", "()V"),
			classfile.OpReturn,
		)
	}).Implements("java/lang/Runnable").Constructor()
	b.Method(classfile.AccPublic, "run", "()V", returnCode(b))
	b.Method(classfile.AccPrivate|classfile.AccStatic, "helper", "()V", returnCode(b))
	res, _ := pass3a(t, b.Build())
	wantOK(t, res)
}

func TestSuperLookup(t *testing.T) {
	parent := classtest.New("P").Constructor().Build()

	b := withCode(1, func(b *classtest.Builder) []byte {
		return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokespecial, b.Pool().AddMethodref("P", "toString", "()Ljava/lang/String;"), classfile.OpPop, classfile.OpReturn)
	}).Super("P")
	res, _ := pass3a(t, b.Build(), parent)
	wantOK(t, res)

	b = withCode(1, func(b *classtest.Builder) []byte {
		return classtest.Asm(classfile.OpAconstNull, classfile.OpInvokespecial, b.Pool().AddMethodref("P", "gone", "()V"), classfile.OpReturn)
	}).Super("P")
	res, _ = pass3a(t, b.Build(), parent)
	wantRejected(t, res, "Referenced method 'gone' with expected signature '()V' not found in class 'P'.")
}
