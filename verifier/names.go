package verifier

import (
	"strings"
	"unicode"

	"github.com/dhamidi/justice/classfile"
)

func isJavaIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.In(r, unicode.Nl, unicode.Sc, unicode.Pc)
}

func isJavaIdentifierPart(r rune) bool {
	if isJavaIdentifierStart(r) || unicode.In(r, unicode.Nd, unicode.Mn, unicode.Mc) {
		return true
	}
	return isIdentifierIgnorable(r)
}

func isIdentifierIgnorable(r rune) bool {
	switch {
	case r <= 0x08, r >= 0x0E && r <= 0x1B, r >= 0x7F && r <= 0x9F:
		return true
	}
	return unicode.Is(unicode.Cf, r)
}

func validJavaIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !isJavaIdentifierStart(r) {
			return false
		}
		if !isJavaIdentifierPart(r) {
			return false
		}
	}
	return true
}

func validFieldName(name string) bool {
	return validJavaIdentifier(name)
}

func validMethodName(name string, allowStaticInit bool) bool {
	if validJavaIdentifier(name) {
		return true
	}
	if allowStaticInit && name == classfile.StaticInitializerName {
		return true
	}
	return name == classfile.ConstructorName
}

func validClassMethodName(name string) bool {
	return validMethodName(name, false)
}

func validInterfaceMethodName(name string) bool {
	if strings.HasPrefix(name, "<") {
		return false
	}
	return validJavaIdentifier(name)
}

// validClassName accepts an internal binary name or, for CONSTANT_Class
// entries naming arrays, an array descriptor.
func validClassName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '[' {
		_, err := classfile.ParseFieldDescriptor(name)
		return err == nil
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || strings.ContainsAny(part, ".;[") {
			return false
		}
	}
	return true
}
