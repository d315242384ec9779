package classfile

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadDescriptor = errors.New("malformed descriptor")

// MaxArrayDimensions is the largest array rank a descriptor may carry.
const MaxArrayDimensions = 255

type FieldType struct {
	BaseType   string
	ClassName  string
	ArrayDepth int
}

func (ft *FieldType) String() string {
	var sb strings.Builder
	if ft.BaseType != "" {
		sb.WriteString(ft.BaseType)
	} else if ft.ClassName != "" {
		sb.WriteString(InternalToSourceName(ft.ClassName))
	}
	for i := 0; i < ft.ArrayDepth; i++ {
		sb.WriteString("[]")
	}
	return sb.String()
}

// Descriptor renders ft back into descriptor form.
func (ft *FieldType) Descriptor() string {
	var sb strings.Builder
	for i := 0; i < ft.ArrayDepth; i++ {
		sb.WriteByte('[')
	}
	if ft.ClassName != "" {
		sb.WriteString("L" + ft.ClassName + ";")
	} else {
		sb.WriteByte(baseTypeChars[ft.BaseType])
	}
	return sb.String()
}

func (ft *FieldType) IsArray() bool {
	return ft.ArrayDepth > 0
}

func (ft *FieldType) IsPrimitive() bool {
	return ft.BaseType != "" && ft.ArrayDepth == 0
}

func (ft *FieldType) IsReference() bool {
	return ft.ClassName != "" || ft.ArrayDepth > 0
}

// Size is the number of local variable or operand stack slots a value of
// this type occupies.
func (ft *FieldType) Size() int {
	if ft.ArrayDepth == 0 && (ft.BaseType == "long" || ft.BaseType == "double") {
		return 2
	}
	return 1
}

type MethodDescriptor struct {
	Parameters []FieldType
	// ReturnType is nil for void.
	ReturnType *FieldType
}

func (md *MethodDescriptor) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range md.Parameters {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	if md.ReturnType != nil {
		sb.WriteString(" ")
		sb.WriteString(md.ReturnType.String())
	} else {
		sb.WriteString(" void")
	}
	return sb.String()
}

// ArgumentSlots returns the number of local variable slots the parameters
// occupy, not counting the receiver.
func (md *MethodDescriptor) ArgumentSlots() int {
	n := 0
	for i := range md.Parameters {
		n += md.Parameters[i].Size()
	}
	return n
}

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

var baseTypeChars = map[string]byte{
	"byte":    'B',
	"char":    'C',
	"double":  'D',
	"float":   'F',
	"int":     'I',
	"long":    'J',
	"short":   'S',
	"boolean": 'Z',
}

// ParseFieldDescriptor parses a complete field descriptor. Trailing input
// and the void type are rejected.
func ParseFieldDescriptor(desc string) (*FieldType, error) {
	ft, n, err := parseFieldType(desc, 0)
	if err != nil {
		return nil, err
	}
	if n != len(desc) {
		return nil, fmt.Errorf("%w: trailing characters in %q", ErrBadDescriptor, desc)
	}
	return ft, nil
}

func ParseMethodDescriptor(desc string) (*MethodDescriptor, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, fmt.Errorf("%w: %q does not start with '('", ErrBadDescriptor, desc)
	}

	md := &MethodDescriptor{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		ft, consumed, err := parseFieldType(desc, i)
		if err != nil {
			return nil, err
		}
		md.Parameters = append(md.Parameters, *ft)
		i += consumed
	}
	if i >= len(desc) {
		return nil, fmt.Errorf("%w: %q has no ')'", ErrBadDescriptor, desc)
	}
	i++

	if i == len(desc)-1 && desc[i] == 'V' {
		return md, nil
	}
	ft, consumed, err := parseFieldType(desc, i)
	if err != nil {
		return nil, err
	}
	if i+consumed != len(desc) {
		return nil, fmt.Errorf("%w: trailing characters in %q", ErrBadDescriptor, desc)
	}
	md.ReturnType = ft
	return md, nil
}

func parseFieldType(desc string, start int) (*FieldType, int, error) {
	ft := &FieldType{}
	i := start
	for i < len(desc) && desc[i] == '[' {
		ft.ArrayDepth++
		i++
	}
	if ft.ArrayDepth > MaxArrayDimensions {
		return nil, 0, fmt.Errorf("%w: %q has more than %d array dimensions", ErrBadDescriptor, desc, MaxArrayDimensions)
	}
	if i >= len(desc) {
		return nil, 0, fmt.Errorf("%w: %q ends early", ErrBadDescriptor, desc)
	}

	if base, ok := baseTypes[desc[i]]; ok {
		ft.BaseType = base
		return ft, i - start + 1, nil
	}
	if desc[i] != 'L' {
		return nil, 0, fmt.Errorf("%w: unexpected %q at offset %d of %q", ErrBadDescriptor, desc[i], i, desc)
	}
	semicolon := strings.IndexByte(desc[i:], ';')
	if semicolon <= 1 {
		return nil, 0, fmt.Errorf("%w: unterminated or empty class name in %q", ErrBadDescriptor, desc)
	}
	name := desc[i+1 : i+semicolon]
	if strings.ContainsAny(name, ".[") {
		return nil, 0, fmt.Errorf("%w: illegal class name %q in %q", ErrBadDescriptor, name, desc)
	}
	ft.ClassName = name
	return ft, i - start + semicolon + 1, nil
}

func InternalToSourceName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

func SourceToInternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ArrayDimensions counts the leading '[' of a class name or descriptor.
func ArrayDimensions(name string) int {
	n := 0
	for n < len(name) && name[n] == '[' {
		n++
	}
	return n
}
