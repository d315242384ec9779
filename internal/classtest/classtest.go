// Package classtest assembles class files in code for tests.
package classtest

import (
	"encoding/binary"
	"fmt"

	"github.com/dhamidi/justice/classfile"
)

type Builder struct {
	cf *classfile.ClassFile
}

// New starts a public class with the given internal name extending
// java/lang/Object, version 52.0.
func New(name string) *Builder {
	b := &Builder{cf: &classfile.ClassFile{
		MajorVersion: 52,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
	}}
	b.cf.ThisClass = b.cf.ConstantPool.AddClass(name)
	b.cf.SuperClass = b.cf.ConstantPool.AddClass(classfile.ObjectClassName)
	return b
}

// Super sets the superclass; "" leaves super_class at 0.
func (b *Builder) Super(name string) *Builder {
	if name == "" {
		b.cf.SuperClass = 0
		return b
	}
	b.cf.SuperClass = b.cf.ConstantPool.AddClass(name)
	return b
}

func (b *Builder) Flags(flags classfile.AccessFlags) *Builder {
	b.cf.AccessFlags = flags
	return b
}

func (b *Builder) Implements(names ...string) *Builder {
	for _, name := range names {
		b.cf.Interfaces = append(b.cf.Interfaces, b.cf.ConstantPool.AddClass(name))
	}
	return b
}

// Pool exposes the constant pool so tests can add entries referenced from
// bytecode.
func (b *Builder) Pool() *classfile.ConstantPool {
	return &b.cf.ConstantPool
}

// Attr sets the name index of a from its Kind and returns it. Unknown
// attributes must already carry a name index.
func (b *Builder) Attr(a classfile.Attribute) classfile.Attribute {
	if kind := a.Kind(); kind != "" {
		a.Header().NameIndex = b.cf.ConstantPool.AddUtf8(kind)
	}
	return a
}

// Unknown returns an attribute with an unrecognised name.
func (b *Builder) Unknown(name string, info []byte) *classfile.UnknownAttribute {
	a := &classfile.UnknownAttribute{Info: info}
	a.NameIndex = b.cf.ConstantPool.AddUtf8(name)
	return a
}

// Code returns a named Code attribute; attrs are named as well.
func (b *Builder) Code(maxStack, maxLocals uint16, code []byte, attrs ...classfile.Attribute) *classfile.CodeAttribute {
	for _, a := range attrs {
		b.Attr(a)
	}
	c := &classfile.CodeAttribute{
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       code,
		Attributes: attrs,
	}
	b.Attr(c)
	return c
}

func (b *Builder) ClassAttr(attrs ...classfile.Attribute) *Builder {
	for _, a := range attrs {
		b.cf.Attributes = append(b.cf.Attributes, b.Attr(a))
	}
	return b
}

func (b *Builder) Field(flags classfile.AccessFlags, name, desc string, attrs ...classfile.Attribute) *Builder {
	for _, a := range attrs {
		b.Attr(a)
	}
	b.cf.Fields = append(b.cf.Fields, classfile.FieldInfo{
		AccessFlags:     flags,
		NameIndex:       b.cf.ConstantPool.AddUtf8(name),
		DescriptorIndex: b.cf.ConstantPool.AddUtf8(desc),
		Attributes:      attrs,
	})
	return b
}

func (b *Builder) Method(flags classfile.AccessFlags, name, desc string, attrs ...classfile.Attribute) *Builder {
	for _, a := range attrs {
		b.Attr(a)
	}
	b.cf.Methods = append(b.cf.Methods, classfile.MethodInfo{
		AccessFlags:     flags,
		NameIndex:       b.cf.ConstantPool.AddUtf8(name),
		DescriptorIndex: b.cf.ConstantPool.AddUtf8(desc),
		Attributes:      attrs,
	})
	return b
}

// Constructor adds a public <init>()V calling the superclass constructor.
func (b *Builder) Constructor() *Builder {
	super := b.cf.SuperClassName()
	ref := b.cf.ConstantPool.AddMethodref(super, classfile.ConstructorName, "()V")
	code := Asm(classfile.OpAload0, classfile.OpInvokespecial, ref, classfile.OpReturn)
	return b.Method(classfile.AccPublic, classfile.ConstructorName, "()V", b.Code(1, 1, code))
}

func (b *Builder) Build() *classfile.ClassFile {
	return b.cf
}

// Bytes serializes the class and panics on failure.
func (b *Builder) Bytes() []byte {
	data, err := b.cf.Bytes()
	if err != nil {
		panic(fmt.Sprintf("classtest: %v", err))
	}
	return data
}

// Asm concatenates bytecode. Opcodes and bytes take one byte, uint16 and
// int16 two, int32 four; []byte is copied as is.
func Asm(items ...interface{}) []byte {
	var out []byte
	for _, item := range items {
		switch v := item.(type) {
		case classfile.Opcode:
			out = append(out, byte(v))
		case byte:
			out = append(out, v)
		case int8:
			out = append(out, byte(v))
		case uint16:
			out = binary.BigEndian.AppendUint16(out, v)
		case int16:
			out = binary.BigEndian.AppendUint16(out, uint16(v))
		case int32:
			out = binary.BigEndian.AppendUint32(out, uint32(v))
		case []byte:
			out = append(out, v...)
		default:
			panic(fmt.Sprintf("classtest: cannot assemble %T", item))
		}
	}
	return out
}

// Object returns a minimal java/lang/Object.
func Object() *classfile.ClassFile {
	b := New(classfile.ObjectClassName).Super("")
	b.Method(classfile.AccPublic, classfile.ConstructorName, "()V",
		b.Code(0, 1, Asm(classfile.OpReturn)))
	b.Method(classfile.AccPublic|classfile.AccNative, "hashCode", "()I")
	b.Method(classfile.AccPublic|classfile.AccFinal|classfile.AccNative, "getClass", "()Ljava/lang/Class;")
	b.Method(classfile.AccPublic, "toString", "()Ljava/lang/String;",
		b.Code(1, 1, Asm(classfile.OpAconstNull, classfile.OpAreturn)))
	return b.Build()
}

// Runtime returns the handful of platform classes the verifier needs to
// resolve ordinary test classes.
func Runtime() []*classfile.ClassFile {
	str := New(classfile.StringClassName).
		Flags(classfile.AccPublic | classfile.AccFinal | classfile.AccSuper).
		Constructor().
		Build()
	class := New("java/lang/Class").
		Flags(classfile.AccPublic | classfile.AccFinal | classfile.AccSuper).
		Build()
	throwable := New(classfile.ThrowableClassName).Constructor().Build()
	exception := New("java/lang/Exception").Super(classfile.ThrowableClassName).Constructor().Build()
	runtimeException := New("java/lang/RuntimeException").Super("java/lang/Exception").Constructor().Build()
	runnable := New("java/lang/Runnable").
		Flags(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	runnable.Method(classfile.AccPublic|classfile.AccAbstract, "run", "()V")
	return []*classfile.ClassFile{
		Object(), str, class, throwable, exception, runtimeException, runnable.Build(),
	}
}
