package classfile

import "errors"

// Node is implemented by every element of the class file tree that Walk
// visits.
type Node interface {
	node()
}

func (*ClassFile) node()              {}
func (*FieldInfo) node()              {}
func (*MethodInfo) node()             {}
func (*AttributeHeader) node()        {}
func (*ExceptionTableEntry) node()    {}
func (*LineNumberEntry) node()        {}
func (*LocalVariableEntry) node()     {}
func (*LocalVariableTypeEntry) node() {}
func (*InnerClassEntry) node()        {}
func (*BootstrapMethod) node()        {}
func (*MethodParameter) node()        {}
func (*RecordComponentInfo) node()    {}
func (*ModuleRequires) node()         {}
func (*ModuleExports) node()          {}
func (*ModuleOpens) node()            {}
func (*ModuleProvides) node()         {}
func (*Annotation) node()             {}

func (*ConstantUtf8Info) node()               {}
func (*ConstantIntegerInfo) node()            {}
func (*ConstantFloatInfo) node()              {}
func (*ConstantLongInfo) node()               {}
func (*ConstantDoubleInfo) node()             {}
func (*ConstantClassInfo) node()              {}
func (*ConstantStringInfo) node()             {}
func (*ConstantFieldrefInfo) node()           {}
func (*ConstantMethodrefInfo) node()          {}
func (*ConstantInterfaceMethodrefInfo) node() {}
func (*ConstantNameAndTypeInfo) node()        {}
func (*ConstantMethodHandleInfo) node()       {}
func (*ConstantMethodTypeInfo) node()         {}
func (*ConstantDynamicInfo) node()            {}
func (*ConstantInvokeDynamicInfo) node()      {}
func (*ConstantModuleInfo) node()             {}
func (*ConstantPackageInfo) node()            {}

// SkipChildren can be returned by a WalkFunc to skip the children of the
// current node. It is never returned by Walk.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each node with the stack of its ancestors; the
// node itself is s.Current().
type WalkFunc func(s *Stack, n Node) error

type frame struct {
	node  Node
	index int
}

// Stack is the chain of nodes from the class file down to the node being
// visited.
type Stack struct {
	frames []frame
}

// Current returns the node being visited.
func (s *Stack) Current() Node {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1].node
}

// Predecessor returns the ancestor level+1 steps above the current node:
// level 0 is the parent. It returns nil past the root.
func (s *Stack) Predecessor(level int) Node {
	i := len(s.frames) - 2 - level
	if level < 0 || i < 0 {
		return nil
	}
	return s.frames[i].node
}

// Index is the position of the current node in its parent's list. For
// constant pool entries it is the pool index.
func (s *Stack) Index() int {
	if len(s.frames) == 0 {
		return -1
	}
	return s.frames[len(s.frames)-1].index
}

// Depth is the number of nodes on the stack, the current one included.
func (s *Stack) Depth() int {
	return len(s.frames)
}

type walker struct {
	stack Stack
	fn    WalkFunc
}

// Walk visits cf depth-first: the class, its fields and methods with their
// attributes, the class attributes, and finally the constant pool in index
// order. The first error other than SkipChildren stops the walk.
func Walk(cf *ClassFile, fn WalkFunc) error {
	w := &walker{fn: fn}
	return w.visit(cf, 0)
}

func (w *walker) visit(n Node, index int) error {
	w.stack.frames = append(w.stack.frames, frame{node: n, index: index})
	defer func() { w.stack.frames = w.stack.frames[:len(w.stack.frames)-1] }()

	if err := w.fn(&w.stack, n); err != nil {
		if err == SkipChildren {
			return nil
		}
		return err
	}
	return w.children(n)
}

func (w *walker) attributes(attrs []Attribute) error {
	for i, a := range attrs {
		if err := w.visit(a, i); err != nil {
			return err
		}
	}
	return nil
}

func visitEach[T any](w *walker, items []T) error {
	for i := range items {
		n, ok := any(&items[i]).(Node)
		if !ok {
			continue
		}
		if err := w.visit(n, i); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) children(n Node) error {
	switch n := n.(type) {
	case *ClassFile:
		if err := visitEach(w, n.Fields); err != nil {
			return err
		}
		if err := visitEach(w, n.Methods); err != nil {
			return err
		}
		if err := w.attributes(n.Attributes); err != nil {
			return err
		}
		for i, entry := range n.ConstantPool {
			if entry == nil {
				continue
			}
			if err := w.visit(entry, i+1); err != nil {
				return err
			}
		}
	case *FieldInfo:
		return w.attributes(n.Attributes)
	case *MethodInfo:
		return w.attributes(n.Attributes)
	case *CodeAttribute:
		if err := visitEach(w, n.ExceptionTable); err != nil {
			return err
		}
		return w.attributes(n.Attributes)
	case *LineNumberTableAttribute:
		return visitEach(w, n.LineNumberTable)
	case *LocalVariableTableAttribute:
		return visitEach(w, n.LocalVariableTable)
	case *LocalVariableTypeTableAttribute:
		return visitEach(w, n.LocalVariableTypeTable)
	case *InnerClassesAttribute:
		return visitEach(w, n.Classes)
	case *BootstrapMethodsAttribute:
		return visitEach(w, n.BootstrapMethods)
	case *MethodParametersAttribute:
		return visitEach(w, n.Parameters)
	case *RecordAttribute:
		return visitEach(w, n.Components)
	case *RecordComponentInfo:
		return w.attributes(n.Attributes)
	case *ModuleAttribute:
		if err := visitEach(w, n.Requires); err != nil {
			return err
		}
		if err := visitEach(w, n.Exports); err != nil {
			return err
		}
		if err := visitEach(w, n.Opens); err != nil {
			return err
		}
		return visitEach(w, n.Provides)
	case *RuntimeVisibleAnnotationsAttribute:
		return visitEach(w, n.Annotations)
	case *RuntimeInvisibleAnnotationsAttribute:
		return visitEach(w, n.Annotations)
	case *RuntimeVisibleParameterAnnotationsAttribute:
		for _, anns := range n.ParameterAnnotations {
			if err := visitEach(w, anns); err != nil {
				return err
			}
		}
	case *RuntimeInvisibleParameterAnnotationsAttribute:
		for _, anns := range n.ParameterAnnotations {
			if err := visitEach(w, anns); err != nil {
				return err
			}
		}
	}
	return nil
}
